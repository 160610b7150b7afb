package lgpd

import (
	"context"
	"sort"
	"strings"
	"sync"

	"conosco/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	requests map[int64]*Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, requests: make(map[int64]*Request)}
}

func (s *InMemoryStore) Create(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = s.nextID
	s.nextID++
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (s *InMemoryStore) FindActiveByEmail(_ context.Context, email string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.requests {
		if strings.EqualFold(req.Email, email) && req.Active() {
			copied := *req
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, req := range s.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Tipo != "" && req.Tipo != filter.Tipo {
			continue
		}
		copied := *req
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}
