package app

import (
	"errors"
	"fmt"
	"sync"

	"economy-ledger/store"
)

var (
	ErrNoSuggestion      = errors.New("no persistence was suggested")
	ErrSuggestionsClosed = errors.New("persistence suggestions are already resolved")
	ErrNegativePriority  = errors.New("suggestion priority cannot be negative")
	ErrMissingSuggestion = errors.New("suggestion requires a suggestor and a factory")
)

// PersistenceFactory builds a persistence backend once its suggestion has been chosen.
// The returned closer releases the backend; it may be nil.
type PersistenceFactory func() (store.Persistence, func() error, error)

type suggestion struct {
	suggestor string
	factory   PersistenceFactory
	priority  int
}

// Suggestions collects competing persistence offers during boot. Resolve picks the
// highest priority, ties going to the earliest offer, and closes the collection.
type Suggestions struct {
	mu       sync.Mutex
	offers   []suggestion
	resolved bool
}

func NewSuggestions() *Suggestions {
	return &Suggestions{}
}

func (s *Suggestions) Suggest(suggestor string, factory PersistenceFactory, priority int) error {
	if suggestor == "" || factory == nil {
		return ErrMissingSuggestion
	}
	if priority < 0 {
		return fmt.Errorf("%w: %s offered %d", ErrNegativePriority, suggestor, priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return fmt.Errorf("%w: %s arrived late", ErrSuggestionsClosed, suggestor)
	}
	s.offers = append(s.offers, suggestion{suggestor: suggestor, factory: factory, priority: priority})
	return nil
}

// Resolve runs the winning factory and returns the suggestor name with the backend.
// Only the first call resolves.
func (s *Suggestions) Resolve() (string, store.Persistence, func() error, error) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return "", nil, nil, ErrSuggestionsClosed
	}
	s.resolved = true
	offers := s.offers
	s.mu.Unlock()

	if len(offers) == 0 {
		return "", nil, nil, ErrNoSuggestion
	}
	best := offers[0]
	for _, offer := range offers[1:] {
		if offer.priority > best.priority {
			best = offer
		}
	}

	persistence, closer, err := best.factory()
	if err != nil {
		return best.suggestor, nil, nil, fmt.Errorf("failed to start persistence suggested by %s: %w", best.suggestor, err)
	}
	if closer == nil {
		closer = func() error { return nil }
	}
	return best.suggestor, persistence, closer, nil
}
