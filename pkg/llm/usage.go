package llm

import "sync"

// TokenCount holds input and output token counts for a single model call.
type TokenCount struct {
	Input  int
	Output int
}

// Total returns the sum of input and output tokens.
func (tc TokenCount) Total() int {
	return tc.Input + tc.Output
}

// Tracker accumulates token usage across the pipeline's model calls.
// It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	calls int
	total TokenCount
}

// Add records the token counts of one completed call.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++
	t.total.Input += tc.Input
	t.total.Output += tc.Output
}

// Total returns the aggregate token count across all recorded calls.
func (t *Tracker) Total() TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Calls returns the number of recorded calls.
func (t *Tracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.calls
}

// Reset clears all recorded usage.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = 0
	t.total = TokenCount{}
}
