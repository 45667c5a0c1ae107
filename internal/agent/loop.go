// Package agent implements the policy driver: the loop that lets the
// language model pick backend tools per conversation turn.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/llm"
	"github.com/spec-kit/support-agent/internal/memory"
	"github.com/spec-kit/support-agent/internal/storage"
)

const systemPrompt = "You are a customer support agent. Choose tools wisely. " +
	"Use 'search_knowledge_base' for product and policy questions. " +
	"Record support issues as tickets with 'create_or_update_ticket'. " +
	"If confidence is low or the issue is critical, escalate via 'send_escalation_email'. " +
	"Always explain what you did. Keep answers concise."

// ChatClient is the slice of the LLM client the loop needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error)
}

// Agent runs the per-turn decision loop: send the conversation and tool
// declarations to the model, execute whatever tools it selects, feed the
// results back, and return its final text reply.
type Agent struct {
	client      ChatClient
	registry    *Registry
	memory      memory.Store
	transcripts *memory.TranscriptWriter
	fallback    *FallbackDetector
	textLog     *storage.TextLog
	logger      *zap.Logger
	model       string
	temperature float64
	maxRounds   int
}

// Dependencies bundles collaborators for the agent.
type Dependencies struct {
	Client      ChatClient
	Registry    *Registry
	Memory      memory.Store
	Transcripts *memory.TranscriptWriter
	Fallback    *FallbackDetector
	TextLog     *storage.TextLog
	Logger      *zap.Logger
	Model       string
	Temperature float64
	MaxRounds   int
}

// New constructs the agent.
func New(deps Dependencies) *Agent {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRounds := deps.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 6
	}
	return &Agent{
		client:      deps.Client,
		registry:    deps.Registry,
		memory:      deps.Memory,
		transcripts: deps.Transcripts,
		fallback:    deps.Fallback,
		textLog:     deps.TextLog,
		logger:      logger,
		model:       deps.Model,
		temperature: deps.Temperature,
		maxRounds:   maxRounds,
	}
}

// Respond handles one user turn for a conversation and returns the reply.
func (a *Agent) Respond(ctx context.Context, conversationID, userMessage string) (string, error) {
	history, err := a.memory.History(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("load conversation history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	reply, err := a.runLoop(ctx, messages)
	if err != nil {
		return "", err
	}

	if err := a.memory.Append(ctx, conversationID,
		memory.Message{Role: llm.RoleUser, Content: userMessage},
		memory.Message{Role: llm.RoleAssistant, Content: reply},
	); err != nil {
		a.logger.Warn("failed to persist conversation history", zap.Error(err))
	}
	a.writeTranscript(ctx, conversationID)
	a.flagFallback(ctx, conversationID, userMessage, reply)

	return reply, nil
}

func (a *Agent) runLoop(ctx context.Context, messages []llm.Message) (string, error) {
	for round := 0; round < a.maxRounds; round++ {
		resp, err := a.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
			Model:       a.model,
			Messages:    messages,
			Tools:       a.registry.Specs(),
			Temperature: &a.temperature,
		})
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		msg, ok := resp.FirstMessage()
		if !ok {
			return "", errors.New("model returned no choices")
		}

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			a.logger.Info("tool selected",
				zap.String("tool", call.Function.Name))
			result := a.registry.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    result,
			})
		}
	}
	return "", fmt.Errorf("no final answer after %d tool rounds", a.maxRounds)
}

func (a *Agent) writeTranscript(ctx context.Context, conversationID string) {
	if a.transcripts == nil {
		return
	}
	history, err := a.memory.History(ctx, conversationID)
	if err != nil {
		a.logger.Warn("failed to load history for transcript", zap.Error(err))
		return
	}
	if err := a.transcripts.Write(conversationID, history); err != nil {
		a.logger.Warn("failed to write transcript", zap.Error(err))
	}
}

// flagFallback saves fallback-like replies as FAQ-gap candidates. Detection
// failures are logged and otherwise ignored; this is advisory only.
func (a *Agent) flagFallback(ctx context.Context, conversationID, question, reply string) {
	if a.fallback == nil || a.textLog == nil {
		return
	}
	isFallback, score, err := a.fallback.IsFallback(ctx, reply)
	if err != nil {
		a.logger.Warn("fallback detection failed", zap.Error(err))
		return
	}
	if !isFallback {
		return
	}
	if err := a.textLog.Append(domain.TextNote{
		TS:   domain.EpochSeconds(nowFunc()),
		Tag:  "fallback_reply",
		Text: question,
		Meta: map[string]any{
			"session_id": conversationID,
			"reply":      reply,
			"similarity": score,
		},
	}); err != nil {
		a.logger.Warn("failed to record fallback reply", zap.Error(err))
	}
}
