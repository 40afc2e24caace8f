package client

import "context"

// Chat roles shared by every LLM backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter is implemented by every LLM backend.
type ChatCompleter interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	ChatWithHistory(ctx context.Context, messages []Message) (string, error)
}
