// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/hindsight-core/internal/domain/ports"
)

// LLMClient is a mock implementation of ports.LLMClient. When Func is set
// it handles every call; otherwise each call returns Response/Err. Calls
// are recorded for inspection.
type LLMClient struct {
	Func     func(ctx context.Context, systemPrompt, userPrompt string, opts ports.CallOptions) (string, error)
	Response string
	Err      error

	mu    sync.Mutex
	calls []string
}

// Call implements ports.LLMClient.
func (m *LLMClient) Call(ctx context.Context, systemPrompt, userPrompt string, opts ports.CallOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, userPrompt)
	m.mu.Unlock()

	if m.Func != nil {
		return m.Func(ctx, systemPrompt, userPrompt, opts)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Calls returns the user prompts of every call made so far.
func (m *LLMClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many calls were made.
func (m *LLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
