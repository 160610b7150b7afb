package vacancy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, v Vacancy) (*Vacancy, error) {
	if v.Status == "" {
		v.Status = StatusAtiva
	}
	if _, err := ParseStatus(string(v.Status)); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	v.CriadoEm = s.now()
	if err := s.store.Create(ctx, &v); err != nil {
		return nil, err
	}
	s.logger.Info("vacancy published", slog.Int64("vaga_id", v.ID), slog.String("titulo", v.Titulo))
	return &v, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Vacancy, error) {
	v, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Vaga não encontrada")
		}
		return nil, err
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Vacancy, error) {
	return s.store.List(ctx, filter)
}

// Update applies a partial patch: absent fields keep their stored value.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Vacancy, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.applyTo(v)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Vaga não encontrada")
		}
		return err
	}
	return nil
}
