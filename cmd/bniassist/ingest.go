package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xaenox/bni-assistant/internal/ingest"
	"go.uber.org/zap"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load member details and scores from the BNI feeds",
		RunE:  runIngest,
	}
	cmd.Flags().Bool("replace-scores", false, "delete existing score rows before inserting")
	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	replace, _ := cmd.Flags().GetBool("replace-scores")
	ctx := cmd.Context()

	store, err := openStorage(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return err
	}
	defer store.Close()

	in := ingest.New(ingest.Config{
		DetailsURL: cfg.Ingest.DetailsURL,
		ScoresURL:  cfg.Ingest.ScoresURL,
		Timeout:    cfg.Ingest.Timeout,
	}, store, logger)

	res, err := in.Run(ctx, replace)
	if err != nil {
		logger.Error("Ingestion failed", zap.Error(err))
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Data inserted successfully: %d members, %d score rows\n", res.Members, res.Scores)
	return nil
}
