package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/llm"
)

const followupSystemPrompt = "You are a customer support assistant writing " +
	"short, polite follow-up emails to customers about their open support tickets.\n" +
	"- Be concise and friendly.\n" +
	"- Do NOT invent any details about orders or policies.\n" +
	"- Ask if the issue is resolved or if they still need help.\n" +
	"- Do NOT mention internal systems, tools, or logs.\n"

// ChatCompleter is the slice of the LLM client the drafter needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error)
}

// LLMDrafter generates follow-up email bodies with the language model.
type LLMDrafter struct {
	client      ChatCompleter
	model       string
	temperature float64
}

// NewLLMDrafter constructs a drafter for the given model.
func NewLLMDrafter(client ChatCompleter, model string, temperature float64) *LLMDrafter {
	return &LLMDrafter{client: client, model: model, temperature: temperature}
}

// DraftFollowUp writes a plain-text follow-up body for one stale ticket.
func (d *LLMDrafter) DraftFollowUp(ctx context.Context, ticket domain.TicketEvent, profile domain.UserProfile) (string, error) {
	email := domain.NormalizeEmail(ticket.UserID)
	name := profile.Name
	if name == "" {
		name = email
	}
	if name == "" {
		name = "customer"
	}

	userPrompt := fmt.Sprintf(
		"Customer name: %s\nCustomer email: %s\nTicket ID: %s\nTopic: %s\n"+
			"Current ticket status: %s\nLast recorded customer message:\n%q\n\n"+
			"Write a short follow-up email (plain text, no subject line) to the customer, "+
			"asking if their issue has been resolved or if they still need assistance.",
		name, email, ticket.TicketID, ticket.Topic, ticket.Status, ticket.Message)

	resp, err := d.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       d.model,
		Temperature: &d.temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: followupSystemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	msg, ok := resp.FirstMessage()
	if !ok || msg.Content == "" {
		return "", errors.New("empty draft from model")
	}
	return msg.Content, nil
}
