package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xaenox/bni-assistant/internal/storage"
	"github.com/xaenox/bni-assistant/pkg/config"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bniassist",
		Short: "BNI chapter assistant",
		Long: `bniassist answers natural-language questions about a BNI chapter's
members and weekly scores.

Examples:
  bniassist serve --config config.yaml
  bniassist ingest --replace-scores`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "config.yaml", "path to the configuration file")

	root.AddCommand(newServeCmd(), newIngestCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	return config.LoadConfig(path)
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	switch {
	case cfg.UseInMemory:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(ctx, logger)
	case cfg.Driver == "sqlite":
		logger.Info("Using SQLite storage", zap.String("path", cfg.Path))
		if cfg.Path == "" {
			return nil, fmt.Errorf("database.path is required for the sqlite driver")
		}
		return storage.NewSQLiteStorage(ctx, cfg.Path, logger)
	default:
		logger.Info("Using PostgreSQL storage",
			zap.String("host", cfg.Host),
			zap.String("dbname", cfg.DBName))
		return storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
		}, logger)
	}
}
