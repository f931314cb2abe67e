package songvocab

import (
	"fmt"
	"sync"
)

// Trace is the human-readable progress log of a single request. It is created
// per request and handed back to the caller with the result.
type Trace struct {
	mu       sync.Mutex
	thoughts []string
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Addf appends a formatted line. A nil trace discards it.
func (t *Trace) Addf(format string, args ...any) {
	if t == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	t.mu.Lock()
	t.thoughts = append(t.thoughts, line)
	t.mu.Unlock()
}

// Thoughts returns a copy of the lines recorded so far.
func (t *Trace) Thoughts() []string {
	if t == nil {
		return []string{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.thoughts))
	copy(out, t.thoughts)
	return out
}

// Len returns the number of recorded lines.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.thoughts)
}
