package ai

import "context"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one role-tagged unit of conversation in provider order
// (oldest first). Role is "user" or "model".
type Turn struct {
	Role    string
	Content string
}

// Provider is a hosted generative-text API. Both calls are network I/O and
// honor ctx cancellation.
type Provider interface {
	// Chat requests a completion for a conversation. The system prompt is
	// carried out-of-band from the turns; the first turn must be "user".
	Chat(ctx context.Context, system string, turns []Turn) (string, error)

	// Generate is the one-shot form used for greetings and classification.
	Generate(ctx context.Context, system, prompt string) (string, error)
}
