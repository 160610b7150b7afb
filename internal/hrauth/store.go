package hrauth

import "context"

// Store persists back-office users. Missing rows are sentinel.ErrNotFound and
// a duplicate email is sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}
