package hrauth

import (
	"context"
	"strings"
	"sync"

	"conosco/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, users: make(map[int64]*User)}
}

func (s *InMemoryStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return sentinel.ErrConflict
		}
	}
	user.ID = s.nextID
	s.nextID++
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, user := range s.users {
		if strings.ToLower(user.Email) == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *user
	return &copied, nil
}
