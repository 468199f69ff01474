package fanout

import (
	"context"
	"sync"
)

// Sessions holds at most one live aggregation per owner. Starting a new one
// supersedes the previous aggregation of that owner without cancelling it.
type Sessions struct {
	mu      sync.Mutex
	current map[string]*Aggregation
}

func NewSessions() *Sessions {
	return &Sessions{current: make(map[string]*Aggregation)}
}

// Start installs agg as the owner's current aggregation and starts it.
func (s *Sessions) Start(ctx context.Context, owner string, agg *Aggregation, tasks ...Task) error {
	s.mu.Lock()
	if prev, ok := s.current[owner]; ok && prev != agg {
		prev.Supersede()
	}
	s.current[owner] = agg
	s.mu.Unlock()

	agg.afterDone = append(agg.afterDone, func() { s.release(owner, agg) })

	if err := agg.Start(ctx, tasks...); err != nil {
		s.release(owner, agg)
		return err
	}
	return nil
}

// Current returns the owner's live aggregation, if any.
func (s *Sessions) Current(owner string) (*Aggregation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.current[owner]
	return agg, ok
}

// Len returns the number of owners with a live aggregation.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.current)
}

func (s *Sessions) release(owner string, agg *Aggregation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current[owner] == agg {
		delete(s.current, owner)
	}
}
