package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/kb"
	"github.com/spec-kit/support-agent/internal/llm"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/orders"
	"github.com/spec-kit/support-agent/internal/service"
	"github.com/spec-kit/support-agent/internal/storage"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// ToolFunc executes one tool call. The returned string is fed back to the
// model verbatim, so recognized failures are serialized as JSON results
// rather than surfaced as errors.
type ToolFunc func(ctx context.Context, args json.RawMessage) (string, error)

type tool struct {
	spec llm.FunctionSpec
	run  ToolFunc
}

// Registry holds the tools the policy driver may select.
type Registry struct {
	tools   map[string]tool
	order   []string
	metrics *observability.Metrics
	logger  *zap.Logger
}

// ToolDependencies bundles the backends the standard tool set drives.
type ToolDependencies struct {
	Tickets  *service.TicketService
	Notifier *service.NotificationService
	KB       *kb.Index
	TextLog  *storage.TextLog
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewRegistry builds the standard tool set.
func NewRegistry(deps ToolDependencies) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		tools:   make(map[string]tool),
		metrics: deps.Metrics,
		logger:  logger,
	}

	r.register("create_or_update_ticket",
		"Create a support ticket for the user, or append an update to an existing ticket when ticket_id is given. Classify the issue with the enum fields.",
		createTicketSchema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				UserEmail  string `json:"user_email"`
				Message    string `json:"message"`
				Topic      string `json:"topic"`
				Urgency    string `json:"urgency"`
				Department string `json:"department"`
				Emotion    string `json:"emotion"`
				Status     string `json:"status"`
				TicketID   string `json:"ticket_id"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			result, err := deps.Tickets.CreateOrUpdateTicket(ctx, service.TicketInput{
				UserEmail:  in.UserEmail,
				Message:    in.Message,
				Topic:      domain.TicketTopic(in.Topic),
				Urgency:    domain.TicketUrgency(in.Urgency),
				Department: domain.TicketDepartment(in.Department),
				Emotion:    domain.TicketEmotion(in.Emotion),
				Status:     domain.TicketStatus(in.Status),
				TicketID:   in.TicketID,
			})
			if err != nil {
				return domainFailureJSON(err)
			}
			return marshalResult(result)
		})

	r.register("get_user_profile",
		"Look up a user by email: whether they are known, how many tickets they have, and whether any are open.",
		userEmailSchema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				UserEmail string `json:"user_email"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			result, err := deps.Tickets.GetUserProfile(ctx, in.UserEmail)
			if err != nil {
				return domainFailureJSON(err)
			}
			return marshalResult(result)
		})

	r.register("close_latest_open_ticket",
		"Close the user's most recent open ticket, marking it resolved. Use when the user confirms their issue is fixed.",
		userEmailSchema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				UserEmail string `json:"user_email"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			result, err := deps.Tickets.CloseLatestOpenTicket(ctx, in.UserEmail)
			if err != nil {
				return domainFailureJSON(err)
			}
			return marshalResult(result)
		})

	r.register("search_knowledge_base",
		"Retrieve relevant passages from the support knowledge base.",
		searchSchema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Query string `json:"query"`
				K     int    `json:"k"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			passages, err := deps.KB.Search(ctx, in.Query, in.K)
			if err != nil {
				return "", err
			}
			if len(passages) == 0 {
				return "No matching passages found.", nil
			}
			var sb strings.Builder
			for i, p := range passages {
				if i > 0 {
					sb.WriteString("\n\n")
				}
				sb.WriteString(p.Content)
			}
			return sb.String(), nil
		})

	r.register("lookup_order",
		"Query the order system. Supports GET /orders/{id}.",
		lookupOrderSchema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Endpoint string `json:"endpoint"`
				Method   string `json:"method"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if in.Method == "" {
				in.Method = "GET"
			}
			return marshalResult(orders.Lookup(in.Endpoint, in.Method))
		})

	r.register("send_escalation_email",
		"Escalate complex or low-confidence cases by email. Omit 'to' to reach the support team.",
		sendEmailSchema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				To      string `json:"to"`
				Subject string `json:"subject"`
				Body    string `json:"body"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if err := deps.Notifier.QueueEmail(in.To, in.Subject, in.Body, map[string]any{
				"source": "agent",
			}); err != nil {
				return "", err
			}
			return fmt.Sprintf("Queued email with subject %q.", in.Subject), nil
		})

	r.register("save_text",
		"Store snippets or FAQ candidates for later review.",
		saveTextSchema,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Text string `json:"text"`
				Tag  string `json:"tag"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if in.Tag == "" {
				in.Tag = "note"
			}
			if err := deps.TextLog.Append(domain.TextNote{
				TS:   domain.EpochSeconds(nowFunc()),
				Tag:  in.Tag,
				Text: in.Text,
			}); err != nil {
				return "", err
			}
			return fmt.Sprintf("Saved text with tag=%q.", in.Tag), nil
		})

	return r
}

func (r *Registry) register(name, description string, schema json.RawMessage, run ToolFunc) {
	r.tools[name] = tool{
		spec: llm.FunctionSpec{Name: name, Description: description, Parameters: schema},
		run:  run,
	}
	r.order = append(r.order, name)
}

// Specs lists tool declarations in registration order for the model request.
func (r *Registry) Specs() []llm.Tool {
	specs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, llm.Tool{Type: "function", Function: r.tools[name].spec})
	}
	return specs
}

// Execute runs one tool call and returns the string result to feed back to
// the model. Unknown tools and execution failures come back as error text,
// never as a Go error: the model gets a chance to recover.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) string {
	t, ok := r.tools[name]
	if !ok {
		r.metrics.RecordToolCall(name, true)
		return fmt.Sprintf("Error: unknown tool %q.", name)
	}
	result, err := t.run(ctx, args)
	if err != nil {
		r.metrics.RecordToolCall(name, true)
		r.logger.Error("tool execution failed",
			zap.String("tool", name), zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}
	r.metrics.RecordToolCall(name, false)
	return result
}

// domainFailureJSON serializes recognized domain failures as tool results
// the model can reason about.
func domainFailureJSON(err error) (string, error) {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code == "INTERNAL_ERROR" {
		return "", err
	}
	payload := map[string]any{
		"ok":    false,
		"error": domainErr.Code,
	}
	for k, v := range domainErr.Details {
		payload[k] = v
	}
	return marshalResult(payload)
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}
