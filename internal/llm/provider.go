// Package llm talks to an OpenAI-compatible chat completions API.
package llm

import "context"

//go:generate mockgen -source=provider.go -destination=../mocks/mock_provider.go -package=mocks

// Provider completes a single-turn conversation.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Role defines a message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a completion request. JSONMode asks the provider to constrain
// its output to a single JSON object.
type Request struct {
	Messages []Message
	JSONMode bool
}
