package domain

import "sync"

// TokenUsage accumulates language-model cost counters.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	RequestCount int `json:"request_count"`
}

// Add returns the sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		RequestCount: u.RequestCount + other.RequestCount,
	}
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// IsZero reports whether nothing has been recorded.
func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}

// UsageMeter is a TokenUsage accumulator safe for concurrent use by workers.
// The zero value is ready to use.
type UsageMeter struct {
	mu    sync.Mutex
	total TokenUsage
}

// Record merges u into the running total.
func (m *UsageMeter) Record(u TokenUsage) {
	m.mu.Lock()
	m.total = m.total.Add(u)
	m.mu.Unlock()
}

// Total returns a snapshot of the running total.
func (m *UsageMeter) Total() TokenUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
