package core

import (
	"context"
	"fmt"
	"strings"
)

// Oracle is the black-box text and embedding service consulted for agent
// behavior and event authoring. Complete may be served by a streaming
// provider; adapters concatenate all chunks before returning. Embed returns
// the provider-native vector; callers canonicalize it to EmbeddingDim.
type Oracle interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// MockOracle is an in-memory Oracle for tests. Completions are matched on
// exact prompt, on a registered substring, or fall back to a generic echo.
// EmbedDim controls the native width of returned embeddings so tests can
// exercise canonicalization of shorter and longer vectors.
type MockOracle struct {
	responses map[string]string
	contains  map[string]string

	EmbedDim    int
	CompleteErr error
	EmbedErr    error

	// Prompts records every prompt passed to Complete, in call order.
	Prompts []string
}

// NewMockOracle constructs a MockOracle producing EmbeddingDim-wide vectors.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		responses: map[string]string{},
		contains:  map[string]string{},
		EmbedDim:  EmbeddingDim,
	}
}

// AddResponse registers a canned completion for an exact prompt.
func (m *MockOracle) AddResponse(prompt, response string) { m.responses[prompt] = response }

// AddResponseContains registers a canned completion for any prompt
// containing the given substring.
func (m *MockOracle) AddResponseContains(substr, response string) { m.contains[substr] = response }

// Complete implements Oracle.
func (m *MockOracle) Complete(_ context.Context, prompt, _ string) (string, error) {
	if m.CompleteErr != nil {
		return "", m.CompleteErr
	}
	m.Prompts = append(m.Prompts, prompt)
	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}
	for substr, resp := range m.contains {
		if substr != "" && strings.Contains(prompt, substr) {
			return resp, nil
		}
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

// Embed implements Oracle, returning a deterministic vector derived from the
// text length so similarity ordering is stable across calls.
func (m *MockOracle) Embed(_ context.Context, text string) ([]float64, error) {
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	dim := m.EmbedDim
	if dim <= 0 {
		dim = EmbeddingDim
	}
	v := make([]float64, dim)
	for i, r := range text {
		v[i%dim] += float64(r) / 1000
		if i > 4*dim {
			break
		}
	}
	return v, nil
}
