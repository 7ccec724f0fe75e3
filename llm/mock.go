package llm

import "context"

// Mock is a test provider.
type Mock struct {
	response   string
	err        error
	lastPrompt string
	callCount  int

	// CompleteFunc can be overridden for custom behavior.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
}

// NewMock creates a mock provider that returns response.
func NewMock(response string) *Mock {
	return &Mock{response: response}
}

// SetResponse sets the canned completion.
func (m *Mock) SetResponse(response string) {
	m.response = response
}

// SetError sets an error to return.
func (m *Mock) SetError(err error) {
	m.err = err
}

// LastPrompt returns the prompt from the most recent call.
func (m *Mock) LastPrompt() string {
	return m.lastPrompt
}

// CallCount returns the number of Complete calls made.
func (m *Mock) CallCount() int {
	return m.callCount
}

// Complete implements the Provider interface.
func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	m.callCount++
	m.lastPrompt = prompt

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}
