// Package store persists document records and candidate credentials. Each
// implementation reports missing rows with sentinel.ErrNotFound and duplicate
// rows with sentinel.ErrConflict.
package store

import (
	"context"
	"time"

	"conosco/internal/document"
)

// RecordStore persists per-candidate document records and their slots.
type RecordStore interface {
	// Create inserts a fresh record and fills in its ID. A candidate holds at
	// most one record, so a second insert for the same candidate conflicts.
	Create(ctx context.Context, record *document.Record) error

	FindByID(ctx context.Context, id int64) (*document.Record, error)
	FindByCandidateID(ctx context.Context, candidateID int64) (*document.Record, error)

	// FindByDeclarationHash resolves the record carrying a given ethnicity
	// self-declaration hash. Backs the public verification endpoint.
	FindByDeclarationHash(ctx context.Context, hash string) (*document.Record, error)

	// List returns every record, most recently updated first.
	List(ctx context.Context) ([]*document.Record, error)

	// UpsertSlot writes a slot after a successful upload and stamps the
	// record's first and last upload times.
	UpsertSlot(ctx context.Context, recordID int64, t document.Type, slot document.Slot, uploadedAt time.Time) error

	// UpdateSlot rewrites a slot's review flags without touching the upload
	// timestamps.
	UpdateSlot(ctx context.Context, recordID int64, t document.Type, slot document.Slot) error

	// ValidateAllSlots approves or rejects every uploaded slot of the record
	// and returns how many were touched. Rejection stamps the reason on each
	// slot. Empty slots stay untouched.
	ValidateAllSlots(ctx context.Context, recordID int64, approved bool, reason *string) (int, error)

	// Update rewrites the record's scalar fields (status, declaration,
	// dependents, residency issue date, completion stamp). Slots are managed
	// through the slot methods only.
	Update(ctx context.Context, record *document.Record) error
}

// CredentialStore persists login credentials issued to approved candidates.
type CredentialStore interface {
	Create(ctx context.Context, cred *document.Credential) error
	FindActiveByCPF(ctx context.Context, cpf string) (*document.Credential, error)
	FindActiveByCandidateID(ctx context.Context, candidateID int64) (*document.Credential, error)

	// DeactivateByCandidateID retires every active credential of the
	// candidate, keeping the one-active-credential invariant before a new
	// issue.
	DeactivateByCandidateID(ctx context.Context, candidateID int64) error
}
