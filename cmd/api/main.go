package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/agent"
	httptransport "github.com/spec-kit/support-agent/internal/api/http"
	"github.com/spec-kit/support-agent/internal/api/http/handlers"
	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/kb"
	"github.com/spec-kit/support-agent/internal/llm"
	"github.com/spec-kit/support-agent/internal/memory"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/service"
	"github.com/spec-kit/support-agent/internal/storage"
	"github.com/spec-kit/support-agent/internal/worker"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	identity, err := storage.LoadIdentityStore(cfg.Storage.UsersPath)
	if err != nil {
		logger.Fatal("failed to load identity store", zap.Error(err))
	}
	eventLog := storage.NewEventLog(cfg.Storage.EventLogPath, logger)
	outbox := storage.NewOutbox(cfg.Storage.OutboxPath, logger)
	textLog := storage.NewTextLog(cfg.Storage.TextLogPath)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	notifier := service.NewNotificationService(outbox, dispatcher, logger, cfg.Notification)
	notifier.RegisterHandlers()

	tickets := service.NewTicketService(service.TicketDependencies{
		EventLog:   eventLog,
		Identity:   identity,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	client := llm.NewClient(cfg.OpenAI.APIKey,
		llm.WithBaseURL(cfg.OpenAI.BaseURL),
		llm.WithTimeout(cfg.OpenAI.Timeout()))

	index := kb.NewIndex(client, cfg.OpenAI.EmbeddingModel, logger)
	if err := index.LoadDir(ctx, cfg.Storage.KnowledgeDir); err != nil {
		logger.Warn("knowledge base unavailable", zap.Error(err))
	}

	var memoryStore memory.Store
	if cfg.Redis.Addr != "" {
		memoryStore = memory.NewRedisStore(cfg.Redis, logger)
	} else {
		memoryStore = memory.NewInMemoryStore()
	}

	registry := agent.NewRegistry(agent.ToolDependencies{
		Tickets:  tickets,
		Notifier: notifier,
		KB:       index,
		TextLog:  textLog,
		Metrics:  metrics,
		Logger:   logger,
	})
	supportAgent := agent.New(agent.Dependencies{
		Client:      client,
		Registry:    registry,
		Memory:      memoryStore,
		Transcripts: memory.NewTranscriptWriter(cfg.Storage.ConversationsDir),
		Fallback:    agent.NewFallbackDetector(client, cfg.OpenAI.EmbeddingModel, cfg.Agent.FallbackThreshold),
		TextLog:     textLog,
		Logger:      logger,
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.Temperature,
		MaxRounds:   cfg.Agent.MaxToolRounds,
	})

	if cfg.Followup.Enabled {
		sweeper := worker.NewFollowupWorker(worker.FollowupDependencies{
			EventLog:  eventLog,
			Identity:  identity,
			Notifier:  notifier,
			Drafter:   worker.NewLLMDrafter(client, cfg.OpenAI.ChatModel, cfg.OpenAI.Temperature),
			Logger:    logger,
			Threshold: cfg.Followup.StaleThreshold,
		})
		go sweeper.Start(ctx, cfg.Followup.Interval)
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, identity, eventLog),
		Chat:   handlers.NewChatHandler(supportAgent),
		Outbox: handlers.NewOutboxHandler(outbox),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
