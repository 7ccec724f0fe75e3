package llm

import "context"

// Fallback is the completion returned when the underlying provider
// fails. Users always get displayable text, never a raw transport error.
const Fallback = "I apologize, but I encountered an error while generating the response. Please try again."

// WithFallback wraps a provider so that any completion error degrades
// to the fixed Fallback text. The wrapped error is still reported so
// callers can log it.
type WithFallback struct {
	Provider Provider

	// OnError is called with the underlying error before the fallback
	// is returned. Optional.
	OnError func(err error)
}

// Complete implements the Provider interface.
func (w *WithFallback) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := w.Provider.Complete(ctx, prompt)
	if err != nil {
		if w.OnError != nil {
			w.OnError(err)
		}
		return Fallback, nil
	}
	return out, nil
}
