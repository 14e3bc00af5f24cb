package llm

import "context"

// Role represents the sender of a conversation message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single conversation message.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest carries the parameters for one completion call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the result of a completion call.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Provider is the model interface the digest writer talks to.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}
