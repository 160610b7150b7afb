package candidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"conosco/internal/platform/storage"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

// Service coordinates applications: intake with résumé upload, funnel status
// moves and LGPD-driven removal.
type Service struct {
	store  Store
	files  storage.Store
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

func NewService(store Store, files storage.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		files:  files,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Application is the intake payload. Resume is optional; when present it is
// stored before the row is written.
type Application struct {
	VagaID         *int64
	Nome           string
	Email          string
	Telefone       string
	CPF            string
	DataNascimento *string
	Estado         string
	Cidade         string
	Bairro         string
	LinkedinURL    *string
	Resume         []byte
	ResumeName     string
}

// Apply registers a new application. A CPF may apply once per vacancy.
func (s *Service) Apply(ctx context.Context, app Application) (*Candidate, error) {
	now := s.now()
	cand := &Candidate{
		VagaID:         app.VagaID,
		Nome:           strings.TrimSpace(app.Nome),
		Email:          strings.TrimSpace(app.Email),
		Telefone:       strings.TrimSpace(app.Telefone),
		CPF:            app.CPF,
		DataNascimento: app.DataNascimento,
		Estado:         strings.TrimSpace(app.Estado),
		Cidade:         strings.TrimSpace(app.Cidade),
		Bairro:         strings.TrimSpace(app.Bairro),
		LinkedinURL:    app.LinkedinURL,
		Status:         StatusNovo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := cand.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.FindByCPFAndVacancy(ctx, cand.NormalizedCPF(), cand.VagaID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "Você já se candidatou para esta vaga")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	if len(app.Resume) > 0 {
		url, err := s.storeResume(ctx, app)
		if err != nil {
			return nil, err
		}
		cand.CurriculoURL = &url
	}

	if err := s.store.Create(ctx, cand); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "Você já se candidatou para esta vaga")
		}
		return nil, err
	}
	s.logger.Info("application received",
		slog.Int64("candidate_id", cand.ID),
		slog.Any("vaga_id", cand.VagaID))
	return cand, nil
}

func (s *Service) storeResume(ctx context.Context, app Application) (string, error) {
	name := strings.TrimSpace(app.ResumeName)
	if name == "" {
		name = "curriculo.pdf"
	}
	filename := fmt.Sprintf("%s_%d_%s", app.CPF, s.now().UnixMilli(), sanitizeFilename(name))
	url, err := s.files.Store(ctx, app.Resume, "curriculos", filename, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("store resume: %w", err)
	}
	return url, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Candidate, error) {
	cand, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Candidato não encontrado")
		}
		return nil, err
	}
	return cand, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Candidate, error) {
	return s.store.List(ctx, filter)
}

func (s *Service) ListByVacancy(ctx context.Context, vagaID int64) ([]*Candidate, error) {
	return s.store.List(ctx, Filter{VagaID: &vagaID})
}

// UpdateStatus moves a candidate through the funnel. HR may set any status;
// moving into the talent pool detaches the vacancy so the CPF can reapply.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Candidate, error) {
	cand, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cand.Status = status
	if status == StatusBancoTalentos {
		cand.VagaID = nil
	}
	cand.UpdatedAt = s.now()
	if err := s.store.Update(ctx, cand); err != nil {
		return nil, err
	}
	return cand, nil
}

// SetStatus updates only the funnel position by raw value. It backs the
// document pipeline's status mirroring.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	parsed, err := ParseStatus(status)
	if err != nil {
		return err
	}
	_, err = s.UpdateStatus(ctx, id, parsed)
	return err
}

// SetEthnicity records the ethnicity the candidate self-declared in the
// admission portal, so recruitment views and data exports carry it.
func (s *Service) SetEthnicity(ctx context.Context, id int64, value string) error {
	cand, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	cand.Autodeclaracao = &value
	cand.UpdatedAt = s.now()
	return s.store.Update(ctx, cand)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Candidato não encontrado")
		}
		return err
	}
	return nil
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
