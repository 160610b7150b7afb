package lgpd

import "context"

type Filter struct {
	Status Status
	Tipo   RequestType
}

// Store persists data-subject requests. Missing rows are sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, req *Request) error
	FindByID(ctx context.Context, id int64) (*Request, error)

	// FindActiveByEmail returns the subject's request that is still pending
	// or verified, enforcing one active request per email.
	FindActiveByEmail(ctx context.Context, email string) (*Request, error)

	List(ctx context.Context, filter Filter) ([]*Request, error)
	Update(ctx context.Context, req *Request) error
}
