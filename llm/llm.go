package llm

import (
	"context"
)

// LLM represents a text generation model interface
type LLM interface {
	// Chat generates a response based on the conversation history
	Chat(ctx context.Context, messages []Message, opts ...Option) (*Message, error)

	// Complete generates a completion for the given prompt
	Complete(ctx context.Context, prompt string, opts ...Option) (string, error)
}

const (
	// RoleSystem represents a system message
	RoleSystem = "system"
	// RoleUser represents a user message
	RoleUser = "user"
	// RoleAssistant represents an assistant message
	RoleAssistant = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
