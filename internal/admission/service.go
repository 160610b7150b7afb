package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conosco/internal/audit"
	"conosco/internal/candidate"
	"conosco/internal/document"
	"conosco/internal/vacancy"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

// CandidateSource resolves the personal data going into the snapshot.
type CandidateSource interface {
	Get(ctx context.Context, id int64) (*candidate.Candidate, error)
}

// VacancySource resolves the vacancy title for the payload.
type VacancySource interface {
	Get(ctx context.Context, id int64) (*vacancy.Vacancy, error)
}

// RecordSource resolves the candidate's document record.
type RecordSource interface {
	FindByCandidateID(ctx context.Context, candidateID int64) (*document.Record, error)
}

// Transmitter delivers the snapshot to the external system.
type Transmitter interface {
	Send(ctx context.Context, snap *Snapshot) error
}

type Service struct {
	candidates CandidateSource
	vacancies  VacancySource
	records    RecordSource
	snapshots  SnapshotStore
	fgs        Transmitter
	auditor    audit.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(recorder audit.Recorder) Option {
	return func(s *Service) { s.auditor = recorder }
}

func WithTransmitter(fgs Transmitter) Option {
	return func(s *Service) { s.fgs = fgs }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(candidates CandidateSource, vacancies VacancySource, records RecordSource, snapshots SnapshotStore, opts ...Option) *Service {
	s := &Service{
		candidates: candidates,
		vacancies:  vacancies,
		records:    records,
		snapshots:  snapshots,
		auditor:    audit.NopRecorder{},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export freezes the approved candidate's data into a snapshot. The document
// pipeline fires it on record approval.
func (s *Service) Export(ctx context.Context, candidateID int64) error {
	snap, err := s.build(ctx, candidateID)
	if err != nil {
		return err
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save admission snapshot: %w", err)
	}
	s.logger.Info("admission snapshot saved", slog.Int64("candidate_id", candidateID))
	return nil
}

// Send transmits the snapshot to FGS. Only candidates whose documents were
// approved can be sent.
func (s *Service) Send(ctx context.Context, candidateID int64) error {
	cand, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return err
	}
	if cand.Status != candidate.StatusDocsAprovados {
		return dErrors.New(dErrors.CodeInvalidState,
			"Apenas candidatos com documentos aprovados podem ser enviados para admissão")
	}

	snap, err := s.snapshots.FindByCandidateID(ctx, candidateID)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Approval predates the snapshot table or the copy failed; rebuild.
		snap, err = s.build(ctx, candidateID)
		if err == nil {
			err = s.snapshots.Save(ctx, snap)
		}
	}
	if err != nil {
		return err
	}

	if s.fgs == nil {
		return dErrors.New(dErrors.CodeUnavailable, "Integração FGS não configurada")
	}
	if err := s.fgs.Send(ctx, snap); err != nil {
		return fmt.Errorf("send candidate %d to fgs: %w", candidateID, err)
	}
	if err := s.snapshots.MarkSent(ctx, candidateID); err != nil {
		s.logger.Error("mark snapshot sent", slog.Int64("candidate_id", candidateID), slog.Any("error", err))
	}

	s.auditor.Record(ctx, audit.Event{
		Actor:       "rh",
		CandidateID: candidateID,
		Action:      audit.ActionAdmissionExported,
		Detail:      "candidato transmitido para o sistema FGS",
	})
	s.logger.Info("candidate sent to fgs", slog.Int64("candidate_id", candidateID))
	return nil
}

func (s *Service) build(ctx context.Context, candidateID int64) (*Snapshot, error) {
	cand, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	record, err := s.records.FindByCandidateID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ficha de documentos não encontrada")
		}
		return nil, err
	}

	snap := &Snapshot{
		CandidateID:    cand.ID,
		Nome:           cand.Nome,
		CPF:            cand.NormalizedCPF(),
		Email:          cand.Email,
		Telefone:       cand.Telefone,
		DataNascimento: cand.DataNascimento,
		Estado:         cand.Estado,
		Cidade:         cand.Cidade,
		Bairro:         cand.Bairro,
		VagaID:         cand.VagaID,
		Documents:      flattenDocuments(record),
		CreatedAt:      s.now(),
	}
	snap.Documents.CurriculoURL = cand.CurriculoURL
	if record.Declaration != nil {
		snap.Autodeclaracao = string(record.Declaration.Value)
	}
	if cand.VagaID != nil && s.vacancies != nil {
		if vaga, err := s.vacancies.Get(ctx, *cand.VagaID); err == nil {
			snap.VagaTitulo = vaga.Titulo
		} else {
			s.logger.Warn("vacancy lookup for snapshot failed",
				slog.Int64("vaga_id", *cand.VagaID), slog.Any("error", err))
		}
	}
	return snap, nil
}
