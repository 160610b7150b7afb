package candidate

import "context"

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	VagaID *int64
	Status Status
}

// Store persists applications. Missing rows are sentinel.ErrNotFound and a
// duplicate (CPF, vacancy) pair is sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, cand *Candidate) error
	FindByID(ctx context.Context, id int64) (*Candidate, error)
	FindByCPFAndVacancy(ctx context.Context, cpf string, vagaID *int64) (*Candidate, error)

	// FindByCPF returns every application of one person. Backs LGPD subject
	// resolution, so it matches across vacancies.
	FindByCPF(ctx context.Context, cpf string) ([]*Candidate, error)
	FindByEmail(ctx context.Context, email string) ([]*Candidate, error)
	List(ctx context.Context, filter Filter) ([]*Candidate, error)
	Update(ctx context.Context, cand *Candidate) error
	Delete(ctx context.Context, id int64) error
}
