// Package selection holds the currently-observed container or session id.
// The poller subscribes to it so a selection change resets the poll schedule
// synchronously, before any stale update can land.
package selection

import "sync"

// Kind says how the target id should be resolved
type Kind string

const (
	KindContainer Kind = "container"
	KindSession   Kind = "session"
)

// Target identifies what the operator is currently looking at. The id is
// opaque; nothing in this module ever parses it.
type Target struct {
	Kind Kind
	ID   string
}

// Zero reports whether no target is selected
func (t Target) Zero() bool {
	return t.ID == ""
}

// Store is the shared observed-target state
type Store struct {
	mu      sync.Mutex
	current Target
	nextID  int
	subs    map[int]func(Target)
}

// NewStore creates an empty selection store
func NewStore() *Store {
	return &Store{subs: make(map[int]func(Target))}
}

// Current returns the selected target
func (s *Store) Current() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set changes the selected target and notifies subscribers synchronously.
// Setting the same target again is a no-op.
func (s *Store) Set(t Target) {
	s.mu.Lock()
	if s.current == t {
		s.mu.Unlock()
		return
	}
	s.current = t
	subs := make([]func(Target), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(t)
	}
}

// Subscribe registers a change callback and returns an unsubscribe func
func (s *Store) Subscribe(fn func(Target)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
