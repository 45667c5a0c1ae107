package dto

// ChatRequest is one user turn. ConversationID is optional; the server
// mints one when absent.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// ChatResponse carries the agent's reply.
type ChatResponse struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversation_id"`
}

// OutboundMessageSummary is the debug view of one queued email.
type OutboundMessageSummary struct {
	TS      float64        `json:"ts"`
	To      string         `json:"to"`
	Subject string         `json:"subject"`
	Meta    map[string]any `json:"meta"`
}
