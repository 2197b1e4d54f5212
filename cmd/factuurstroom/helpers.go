package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dekker/factuurstroom/internal/classify"
	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/config"
	"github.com/dekker/factuurstroom/internal/contact"
	"github.com/dekker/factuurstroom/internal/document"
	"github.com/dekker/factuurstroom/internal/extract"
	"github.com/dekker/factuurstroom/internal/llm"
	"github.com/dekker/factuurstroom/internal/match"
	"github.com/dekker/factuurstroom/internal/notify"
	"github.com/dekker/factuurstroom/internal/pipeline"
	"github.com/dekker/factuurstroom/internal/platform"
	"github.com/dekker/factuurstroom/internal/service"
	"github.com/dekker/factuurstroom/internal/storage"
	"github.com/dekker/factuurstroom/internal/validate"
)

// initStorage opens and migrates the local database.
func initStorage(ctx context.Context, cfg *config.Config) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return store, nil
}

// buildDispatcher assembles the configured notification channels. An
// unconfigured channel is simply absent.
func buildDispatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) *notify.Dispatcher {
	var channels []notify.Notifier

	if cfg.EmailConfigured() {
		email, err := notify.NewEmailNotifier(ctx, cfg.Email)
		if err != nil {
			logger.Warn("email channel unavailable", "error", err)
		} else {
			channels = append(channels, email)
		}
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.SMSConfigured() {
		channels = append(channels, notify.NewSMSNotifier(cfg.SMS))
	}

	return notify.NewDispatcher(channels, logger)
}

// executeRun performs one complete pipeline run. The platform session
// and model client live exactly as long as the run.
func executeRun(ctx context.Context, cfg *config.Config, store service.Storage) error {
	logger := slog.Default()

	platformClient, err := platform.Connect(ctx, cfg.Platform, logger)
	if err != nil {
		return common.NewUserError("could not reach the bookkeeping platform", err)
	}
	defer func() { _ = platformClient.Close() }()

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return common.NewUserError("could not initialize the model client", err)
	}
	defer func() {
		if closer, ok := llmClient.(interface{ Close() }); ok {
			closer.Close()
		}
	}()

	p := pipeline.New(
		platformClient,
		store,
		document.NewFetcher(platformClient, cfg.Document, cfg.LocalDocPath, logger),
		extract.NewEngine(llmClient, logger),
		contact.NewResolver(platformClient, llmClient, store, logger),
		validate.NewValidator(llmClient, logger),
		classify.NewClassifier(platformClient, llmClient, store, logger),
		match.NewMatcher(platformClient, llmClient, logger),
		buildDispatcher(ctx, cfg, logger),
		cfg.Gate,
		logger,
	)

	state, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if state.Invoice != nil {
		logger.Info("run outcome",
			"run_id", state.RunID,
			"invoice_id", state.Invoice.ID,
			"action", state.Action,
			"confidence", state.Confidence)
	}
	return nil
}
