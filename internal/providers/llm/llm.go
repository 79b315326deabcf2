package llm

import "context"

// Message is one prior turn forwarded to the model.
type Message struct {
	Role    string // "user" | "assistant"
	Content string
}

// Provider is the hosted-inference collaborator. Implementations are
// constructed explicitly and injected; there is no package-level client.
type Provider interface {
	// Complete runs one blocking turn and returns the full reply text.
	Complete(ctx context.Context, system string, messages []Message) (string, error)
	// StreamAnswer returns a stream of reply chunks (incremental).
	StreamAnswer(ctx context.Context, system string, messages []Message) (chunks <-chan string, errs <-chan error)
	// Embed returns a vector for text, sized for the memories table.
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}
