package vacancy

import "context"

// Filter narrows listings. Status "" means active only, "all" disables the
// status clause; Query matches titulo or descricao case-insensitively.
type Filter struct {
	Status string
	Query  string
}

type Store interface {
	Create(ctx context.Context, v *Vacancy) error
	FindByID(ctx context.Context, id int64) (*Vacancy, error)
	List(ctx context.Context, filter Filter) ([]*Vacancy, error)
	Update(ctx context.Context, v *Vacancy) error
	Delete(ctx context.Context, id int64) error
}
