package audit

import "context"

// Store is the append-only outbox. Events stay pending until the worker
// marks them published.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListPending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []int64) error
	ListByCandidate(ctx context.Context, candidateID int64) ([]Event, error)
}
