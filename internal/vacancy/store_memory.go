package vacancy

import (
	"context"
	"sort"
	"strings"
	"sync"

	"conosco/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	vacancies map[int64]*Vacancy
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, vacancies: make(map[int64]*Vacancy)}
}

func (s *InMemoryStore) Create(_ context.Context, v *Vacancy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.nextID
	s.nextID++
	copied := *v
	s.vacancies[v.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*Vacancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vacancies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*Vacancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := filter.Status
	if status == "" {
		status = string(StatusAtiva)
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	var out []*Vacancy
	for _, v := range s.vacancies {
		if status != "all" && string(v.Status) != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(v.Titulo), query) &&
			!strings.Contains(strings.ToLower(v.Descricao), query) {
			continue
		}
		copied := *v
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CriadoEm.After(out[j].CriadoEm) })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, v *Vacancy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vacancies[v.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *v
	s.vacancies[v.ID] = &copied
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vacancies[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.vacancies, id)
	return nil
}
