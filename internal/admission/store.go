package admission

import "context"

// SnapshotStore keeps one snapshot per candidate, overwritten on re-approval.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	FindByCandidateID(ctx context.Context, candidateID int64) (*Snapshot, error)
	MarkSent(ctx context.Context, candidateID int64) error
	DeleteByCandidateID(ctx context.Context, candidateID int64) error
}
