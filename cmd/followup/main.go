package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/llm"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/service"
	"github.com/spec-kit/support-agent/internal/storage"
	"github.com/spec-kit/support-agent/internal/worker"
)

// cmd/followup runs one follow-up sweep and exits. Intended for cron-style
// scheduling; the API server also runs the sweep on its own timer.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	identity, err := storage.LoadIdentityStore(cfg.Storage.UsersPath)
	if err != nil {
		logger.Fatal("failed to load identity store", zap.Error(err))
	}
	eventLog := storage.NewEventLog(cfg.Storage.EventLogPath, logger)
	outbox := storage.NewOutbox(cfg.Storage.OutboxPath, logger)
	notifier := service.NewNotificationService(outbox, nil, logger, cfg.Notification)

	client := llm.NewClient(cfg.OpenAI.APIKey,
		llm.WithBaseURL(cfg.OpenAI.BaseURL),
		llm.WithTimeout(cfg.OpenAI.Timeout()))

	sweeper := worker.NewFollowupWorker(worker.FollowupDependencies{
		EventLog:  eventLog,
		Identity:  identity,
		Notifier:  notifier,
		Drafter:   worker.NewLLMDrafter(client, cfg.OpenAI.ChatModel, cfg.OpenAI.Temperature),
		Logger:    logger,
		Threshold: cfg.Followup.StaleThreshold,
	})

	queued, err := sweeper.RunOnce(context.Background())
	if err != nil {
		logger.Fatal("follow-up sweep failed", zap.Error(err))
	}
	fmt.Printf("follow-up sweep complete: %d emails queued\n", queued)
}
