package admission

import (
	"context"
	"sync"
	"time"

	"conosco/pkg/platform/sentinel"
)

type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[int64]*Snapshot
}

func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{snapshots: make(map[int64]*Snapshot)}
}

func (s *InMemorySnapshotStore) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snap
	s.snapshots[snap.CandidateID] = &copied
	return nil
}

func (s *InMemorySnapshotStore) FindByCandidateID(_ context.Context, candidateID int64) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *snap
	return &copied, nil
}

func (s *InMemorySnapshotStore) MarkSent(_ context.Context, candidateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[candidateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	snap.SentAt = &now
	return nil
}

func (s *InMemorySnapshotStore) DeleteByCandidateID(_ context.Context, candidateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, candidateID)
	return nil
}
