package suggest

import "context"

// Backend is the completion capability a mode is wired to. Run sends the
// conversation and the forwarded parameters, observing ctx for cancellation,
// and returns the backend's response text.
type Backend interface {
	Run(ctx context.Context, messages []Message, params map[string]any) (string, error)
}

// ModeConfig carries everything one suggestion mode needs: the system
// prompt generator, few-shot examples, the backend handle, the parameters
// forwarded verbatim to the backend, and the retry budget. It is built by
// the engine from configuration and read-only afterwards.
type ModeConfig struct {
	// SystemPrompt renders the system message from the configured purpose
	// and the gathered ambient context string.
	SystemPrompt func(purpose, contextString string) string
	// FewShot messages are placed verbatim after the system message.
	FewShot []Message
	// Backend performs the completion call.
	Backend Backend
	// Params is an opaque passthrough forwarded to the backend on every call.
	Params map[string]any
	// MaxAttempts bounds the retry policy for this mode.
	MaxAttempts int
}

// invoke calls the mode's backend under the retry policy and returns the
// backend's response verbatim, with no trimming or validation.
func invoke(ctx context.Context, mc *ModeConfig, messages []Message) (string, error) {
	return retry(ctx, mc.MaxAttempts, func() (string, error) {
		return mc.Backend.Run(ctx, messages, mc.Params)
	})
}
