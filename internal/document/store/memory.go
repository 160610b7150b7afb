package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"conosco/internal/document"
	"conosco/pkg/platform/sentinel"
)

// MemoryRecordStore is an in-memory RecordStore for tests and local runs.
type MemoryRecordStore struct {
	mu          sync.RWMutex
	nextID      int64
	records     map[int64]*document.Record
	byCandidate map[int64]int64
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		nextID:      1,
		records:     make(map[int64]*document.Record),
		byCandidate: make(map[int64]int64),
	}
}

func (s *MemoryRecordStore) Create(_ context.Context, record *document.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byCandidate[record.CandidateID]; exists {
		return sentinel.ErrConflict
	}
	record.ID = s.nextID
	s.nextID++
	s.records[record.ID] = copyRecord(record)
	s.byCandidate[record.CandidateID] = record.ID
	return nil
}

func (s *MemoryRecordStore) FindByID(_ context.Context, id int64) (*document.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(record), nil
}

func (s *MemoryRecordStore) FindByCandidateID(_ context.Context, candidateID int64) (*document.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCandidate[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(s.records[id]), nil
}

func (s *MemoryRecordStore) FindByDeclarationHash(_ context.Context, hash string) (*document.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.Declaration != nil && record.Declaration.Hash == hash {
			return copyRecord(record), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryRecordStore) List(_ context.Context) ([]*document.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*document.Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, copyRecord(record))
	}
	sort.Slice(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	return out, nil
}

func (s *MemoryRecordStore) UpsertSlot(_ context.Context, recordID int64, t document.Type, slot document.Slot, uploadedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.Slots == nil {
		record.Slots = make(map[document.Type]document.Slot)
	}
	record.Slots[t] = slot
	if record.FirstUploadAt == nil {
		first := uploadedAt
		record.FirstUploadAt = &first
	}
	last := uploadedAt
	record.LastUploadAt = &last
	return nil
}

func (s *MemoryRecordStore) UpdateSlot(_ context.Context, recordID int64, t document.Type, slot document.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.Slots == nil {
		record.Slots = make(map[document.Type]document.Slot)
	}
	record.Slots[t] = slot
	return nil
}

func (s *MemoryRecordStore) ValidateAllSlots(_ context.Context, recordID int64, approved bool, reason *string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	touched := 0
	for t, slot := range record.Slots {
		if !slot.Uploaded() {
			continue
		}
		if approved {
			slot.Validated = true
			slot.Rejected = false
			slot.RejectionReason = nil
		} else {
			slot.Validated = false
			slot.Rejected = true
			slot.RejectionReason = reason
		}
		record.Slots[t] = slot
		touched++
	}
	return touched, nil
}

func (s *MemoryRecordStore) Update(_ context.Context, record *document.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[record.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := copyRecord(record)
	// Slots only change through the slot methods.
	updated.Slots = existing.Slots
	updated.FirstUploadAt = existing.FirstUploadAt
	updated.LastUploadAt = existing.LastUploadAt
	s.records[record.ID] = updated
	return nil
}

func copyRecord(record *document.Record) *document.Record {
	out := *record
	out.Slots = make(map[document.Type]document.Slot, len(record.Slots))
	for t, slot := range record.Slots {
		out.Slots[t] = slot
	}
	out.Dependents = append([]document.Dependent(nil), record.Dependents...)
	if record.Declaration != nil {
		decl := *record.Declaration
		out.Declaration = &decl
	}
	return &out
}

func lastActivity(record *document.Record) time.Time {
	if record.LastUploadAt != nil {
		return *record.LastUploadAt
	}
	return record.LinkSentAt
}

// MemoryCredentialStore is an in-memory CredentialStore.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	nextID int64
	creds  []document.Credential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{nextID: 1}
}

func (s *MemoryCredentialStore) Create(_ context.Context, cred *document.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred.ID = s.nextID
	s.nextID++
	s.creds = append(s.creds, *cred)
	return nil
}

func (s *MemoryCredentialStore) FindActiveByCPF(_ context.Context, cpf string) (*document.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.creds) - 1; i >= 0; i-- {
		if s.creds[i].Active && s.creds[i].CPF == cpf {
			cred := s.creds[i]
			return &cred, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryCredentialStore) FindActiveByCandidateID(_ context.Context, candidateID int64) (*document.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.creds) - 1; i >= 0; i-- {
		if s.creds[i].Active && s.creds[i].CandidateID == candidateID {
			cred := s.creds[i]
			return &cred, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryCredentialStore) DeactivateByCandidateID(_ context.Context, candidateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.creds {
		if s.creds[i].CandidateID == candidateID {
			s.creds[i].Active = false
		}
	}
	return nil
}
