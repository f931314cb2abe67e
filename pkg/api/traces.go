package api

import (
	"container/list"
	"sync"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// TraceRegistry keeps the traces of recent requests, evicting the oldest once
// capacity is reached.
type TraceRegistry struct {
	capacity int

	mu     sync.Mutex
	order  *list.List // of *traceEntry, oldest at the front
	byID   map[string]*list.Element
	latest map[string]string // caller -> request id
}

type traceEntry struct {
	id     string
	caller string
	trace  *songvocab.Trace
}

// NewTraceRegistry creates a registry holding up to capacity traces.
func NewTraceRegistry(capacity int) *TraceRegistry {
	if capacity <= 0 {
		capacity = 1
	}
	return &TraceRegistry{
		capacity: capacity,
		order:    list.New(),
		byID:     make(map[string]*list.Element),
		latest:   make(map[string]string),
	}
}

// Put stores tr under id and makes it caller's most recent trace.
func (r *TraceRegistry) Put(id, caller string, tr *songvocab.Trace) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.byID[id]; ok {
		r.order.Remove(el)
	}
	r.byID[id] = r.order.PushBack(&traceEntry{id: id, caller: caller, trace: tr})
	r.latest[caller] = id

	for r.order.Len() > r.capacity {
		oldest := r.order.Front()
		e := oldest.Value.(*traceEntry)
		r.order.Remove(oldest)
		delete(r.byID, e.id)
		if r.latest[e.caller] == e.id {
			delete(r.latest, e.caller)
		}
	}
}

// Get returns the trace stored under id.
func (r *TraceRegistry) Get(id string) (*songvocab.Trace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return el.Value.(*traceEntry).trace, true
}

// Latest returns caller's most recent trace.
func (r *TraceRegistry) Latest(caller string) (*songvocab.Trace, bool) {
	r.mu.Lock()
	id, ok := r.latest[caller]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// Len returns the number of stored traces.
func (r *TraceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
