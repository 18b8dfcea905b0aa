package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockCompleter is a lightweight in-memory Completer useful for tests &
// examples. Responses are keyed by prompt; failures can be scripted per call
// or made permanent. All methods are safe for concurrent use.
type MockCompleter struct {
	name string

	mu        sync.Mutex
	calls     int
	responses map[string]string
	failures  []error // consumed one per call before responses are served
	permErr   error   // when set, every call fails with this error
}

// NewMockCompleter constructs a MockCompleter with the given provider name.
func NewMockCompleter(name string) *MockCompleter {
	return &MockCompleter{
		name:      name,
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockCompleter) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailWith makes every subsequent call fail with err.
func (m *MockCompleter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permErr = err
}

// FailNTimes scripts the next n calls to fail with err before responses are
// served again.
func (m *MockCompleter) FailNTimes(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failures = append(m.failures, err)
	}
}

// Calls returns how many times Complete has been invoked.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return "", err
	}
	if m.permErr != nil {
		return "", m.permErr
	}

	if resp, ok := m.responses[req.Prompt]; ok {
		return resp, nil
	}
	return fmt.Sprintf("Mock response to: %s", req.Prompt), nil
}

// Name implements Completer.
func (m *MockCompleter) Name() string { return m.name }
