package agent

import (
	"encoding/json"
	"time"
)

// nowFunc is swapped out by tests.
var nowFunc = time.Now

// JSON Schemas declared to the model for each tool. Enum values must stay in
// lockstep with the domain enums; the service re-checks membership anyway.
var (
	createTicketSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_email": {"type": "string", "description": "The customer's email address"},
			"message": {"type": "string", "description": "The customer's message, verbatim"},
			"topic": {"type": "string", "enum": ["order_status", "delivery_issue", "refund", "return_exchange", "billing_payment", "technical_issue", "account_access", "general_question"]},
			"urgency": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
			"department": {"type": "string", "enum": ["support", "billing", "technical", "sales", "general"]},
			"emotion": {"type": "string", "enum": ["neutral", "confused", "frustrated", "angry", "sad", "happy"]},
			"status": {"type": "string", "enum": ["open", "pending", "resolved", "escalated", "closed"], "description": "Defaults to open"},
			"ticket_id": {"type": "string", "description": "Existing ticket id to update; omit to create a new ticket"}
		},
		"required": ["user_email", "message", "topic", "urgency", "department", "emotion"]
	}`)

	userEmailSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_email": {"type": "string", "description": "The customer's email address"}
		},
		"required": ["user_email"]
	}`)

	searchSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Semantic search query"},
			"k": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Top-k passages to retrieve, default 4"}
		},
		"required": ["query"]
	}`)

	lookupOrderSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"endpoint": {"type": "string", "description": "e.g. /orders/12345"},
			"method": {"type": "string", "description": "HTTP method, default GET"}
		},
		"required": ["endpoint"]
	}`)

	sendEmailSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"to": {"type": "string", "description": "Recipient; omit for the support team"},
			"subject": {"type": "string"},
			"body": {"type": "string"}
		},
		"required": ["subject", "body"]
	}`)

	saveTextSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {"type": "string", "description": "The content to save"},
			"tag": {"type": "string", "description": "Optional tag for classification"}
		},
		"required": ["text"]
	}`)
)
