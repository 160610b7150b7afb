package candidate

import (
	"context"
	"sort"
	"strings"
	"sync"

	"conosco/pkg/platform/sentinel"
)

// InMemoryStore is the map-backed Store for tests and local runs.
type InMemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	candidates map[int64]*Candidate
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, candidates: make(map[int64]*Candidate)}
}

func (s *InMemoryStore) Create(_ context.Context, cand *Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cpf := cand.NormalizedCPF()
	for _, existing := range s.candidates {
		if existing.NormalizedCPF() == cpf && sameVacancy(existing.VagaID, cand.VagaID) {
			return sentinel.ErrConflict
		}
	}
	cand.ID = s.nextID
	s.nextID++
	copied := *cand
	s.candidates[cand.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cand, ok := s.candidates[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *cand
	return &copied, nil
}

func (s *InMemoryStore) FindByCPFAndVacancy(_ context.Context, cpf string, vagaID *int64) (*Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cand := range s.candidates {
		if cand.NormalizedCPF() == cpf && sameVacancy(cand.VagaID, vagaID) {
			copied := *cand
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByCPF(_ context.Context, cpf string) ([]*Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Candidate
	for _, cand := range s.candidates {
		if cand.NormalizedCPF() == cpf {
			copied := *cand
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) ([]*Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Candidate
	for _, cand := range s.candidates {
		if strings.EqualFold(cand.Email, email) {
			copied := *cand
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Candidate
	for _, cand := range s.candidates {
		if filter.VagaID != nil && !sameVacancy(cand.VagaID, filter.VagaID) {
			continue
		}
		if filter.Status != "" && cand.Status != filter.Status {
			continue
		}
		copied := *cand
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, cand *Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[cand.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *cand
	s.candidates[cand.ID] = &copied
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.candidates, id)
	return nil
}

func sameVacancy(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
