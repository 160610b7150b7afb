package session

import (
	"context"
	"sync"
	"time"

	"conosco/internal/document"
	"conosco/pkg/platform/sentinel"
)

// MemoryStore keeps sessions in a map. Expired entries are evicted lazily on
// lookup, so an expired token behaves exactly like an unknown one.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]document.Session
	now      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]document.Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Save(_ context.Context, session document.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *MemoryStore) Find(_ context.Context, token string) (*document.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.now().After(session.ExpiresAt) {
		delete(s.sessions, token)
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
