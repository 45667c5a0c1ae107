package domain

// OutboundMessage is one record in the append-only email outbox. There is no
// delivery tracking: "sent" means "appended".
type OutboundMessage struct {
	TS      float64        `json:"ts"`
	To      string         `json:"to"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Meta    map[string]any `json:"meta"`
}

// TextNote is a free-form snippet saved by the agent (FAQ candidates,
// conversation fragments, fallback replies flagged for review).
type TextNote struct {
	TS   float64        `json:"ts"`
	Tag  string         `json:"tag"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta"`
}
