package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps the outbox in a slice, for tests and local runs.
type InMemoryStore struct {
	mu        sync.Mutex
	nextID    int64
	events    []Event
	published map[int64]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, published: make(map[int64]bool)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.nextID
	s.nextID++
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListPending(_ context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []Event
	for _, event := range s.events {
		if s.published[event.ID] {
			continue
		}
		pending = append(pending, event)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.published[id] = true
	}
	return nil
}

func (s *InMemoryStore) ListByCandidate(_ context.Context, candidateID int64) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, event := range s.events {
		if event.CandidateID == candidateID {
			out = append(out, event)
		}
	}
	return out, nil
}
