package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/agent"
	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/kb"
	"github.com/spec-kit/support-agent/internal/llm"
	"github.com/spec-kit/support-agent/internal/memory"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/service"
	"github.com/spec-kit/support-agent/internal/storage"
)

// cmd/chat is an interactive REPL against the same agent the HTTP server
// exposes. One process, one conversation.
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
	textLog := storage.NewTextLog(cfg.Storage.TextLogPath)

	dispatcher := events.NewInMemoryDispatcher()
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

	ctx := context.Background()
	index := kb.NewIndex(client, cfg.OpenAI.EmbeddingModel, logger)
	if err := index.LoadDir(ctx, cfg.Storage.KnowledgeDir); err != nil {
		logger.Warn("knowledge base unavailable", zap.Error(err))
	}

	registry := agent.NewRegistry(agent.ToolDependencies{
		Tickets:  tickets,
		Notifier: notifier,
		KB:       index,
		TextLog:  textLog,
		Metrics:  observability.NewMetrics(),
		Logger:   logger,
	})
	supportAgent := agent.New(agent.Dependencies{
		Client:      client,
		Registry:    registry,
		Memory:      memory.NewInMemoryStore(),
		Transcripts: memory.NewTranscriptWriter(cfg.Storage.ConversationsDir),
		Fallback:    agent.NewFallbackDetector(client, cfg.OpenAI.EmbeddingModel, cfg.Agent.FallbackThreshold),
		TextLog:     textLog,
		Logger:      logger,
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.Temperature,
		MaxRounds:   cfg.Agent.MaxToolRounds,
	})

	conversationID := uuid.NewString()
	fmt.Println("Agent ready. Type 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if lower := strings.ToLower(line); lower == "exit" || lower == "quit" {
			break
		}
		reply, err := supportAgent.Respond(ctx, conversationID, line)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		fmt.Println("Agent:", reply)
	}
}
