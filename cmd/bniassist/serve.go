package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xaenox/bni-assistant/internal/assistant"
	"github.com/xaenox/bni-assistant/internal/conversation"
	"github.com/xaenox/bni-assistant/internal/directory"
	"github.com/xaenox/bni-assistant/internal/knowledge"
	"github.com/xaenox/bni-assistant/internal/llm"
	"github.com/xaenox/bni-assistant/internal/server"
	"github.com/xaenox/bni-assistant/internal/sqlgen"
	"github.com/xaenox/bni-assistant/internal/summary"
	"github.com/xaenox/bni-assistant/pkg/config"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return err
	}
	defer store.Close()

	policy, err := directory.ParsePolicy(cfg.Matcher.Policy)
	if err != nil {
		return err
	}
	cache := directory.New(store, logger,
		directory.WithCutoff(cfg.Matcher.Cutoff),
		directory.WithPolicy(policy))
	if n, err := cache.Load(ctx); err != nil {
		logger.Warn("Failed to build member directory, starting with an empty cache", zap.Error(err))
	} else {
		logger.Info("Member directory loaded", zap.Int("members", n))
	}

	history, closeHistory, err := openHistory(ctx, cfg.Memory, logger)
	if err != nil {
		logger.Error("Failed to initialize conversation memory", zap.Error(err))
		return err
	}
	defer closeHistory()

	completer := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	chain := conversation.NewChain(history, completer, logger)

	svc := assistant.New(assistant.Deps{
		Store:        store,
		Matcher:      cache,
		Classifier:   knowledge.NewKeywordClassifier(knowledge.DefaultTriggers),
		Knowledge:    knowledge.NewBase(knowledge.DefaultTopics, chain, logger),
		Synthesizer:  sqlgen.NewSynthesizer(completer, sqlgen.RosterSchema, store.Dialect(), logger),
		Guard:        sqlgen.NewGuard(),
		Summarizer:   summary.NewSummarizer(completer, store, logger),
		Memory:       chain,
		QueryTimeout: cfg.Database.QueryTimeout,
	}, logger)

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, svc, cache, logger)

	return srv.Run(ctx)
}

func openHistory(ctx context.Context, cfg config.MemoryConfig, logger *zap.Logger) (conversation.Store, func(), error) {
	if cfg.Backend == "redis" {
		logger.Info("Using Redis conversation memory", zap.String("addr", cfg.RedisAddr))
		rs, err := conversation.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix, cfg.Window, logger)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	}
	logger.Info("Using in-process conversation memory", zap.Int("window", cfg.Window))
	return conversation.NewMemoryStore(cfg.Window), func() {}, nil
}
