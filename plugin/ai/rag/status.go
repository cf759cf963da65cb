package rag

import "sync"

// RebuildState is the lifecycle state of an embedding rebuild.
type RebuildState string

const (
	RebuildNotStarted RebuildState = "not_started"
	RebuildInProgress RebuildState = "in_progress"
	RebuildComplete   RebuildState = "complete"
)

// RebuildStatus guards against duplicate concurrent rebuilds and broadcasts
// state transitions to subscribers. Transitions are idempotent; query-time
// reads are never serialized through it.
type RebuildStatus struct {
	mu        sync.Mutex
	state     RebuildState
	listeners []chan RebuildState
}

// NewRebuildStatus creates a status handle in the NotStarted state.
func NewRebuildStatus() *RebuildStatus {
	return &RebuildStatus{state: RebuildNotStarted}
}

// State returns the current state.
func (s *RebuildStatus) State() RebuildState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions to InProgress. Returns false if a rebuild is already
// running, in which case the caller must not start another.
func (s *RebuildStatus) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == RebuildInProgress {
		return false
	}
	s.transition(RebuildInProgress)
	return true
}

// Complete transitions to Complete. Calling it twice is harmless.
func (s *RebuildStatus) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == RebuildComplete {
		return
	}
	s.transition(RebuildComplete)
}

// Reset returns the status to NotStarted so a new rebuild may run.
func (s *RebuildStatus) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == RebuildNotStarted {
		return
	}
	s.transition(RebuildNotStarted)
}

// Subscribe returns a channel receiving every subsequent state transition.
// The channel is buffered; a slow listener drops transitions rather than
// blocking the rebuild.
func (s *RebuildStatus) Subscribe() <-chan RebuildState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan RebuildState, 4)
	s.listeners = append(s.listeners, ch)
	return ch
}

// transition must be called with the mutex held.
func (s *RebuildStatus) transition(next RebuildState) {
	s.state = next
	for _, ch := range s.listeners {
		select {
		case ch <- next:
		default:
		}
	}
}
