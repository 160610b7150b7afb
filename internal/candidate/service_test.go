package candidate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "conosco/pkg/domain-errors"
)

type stubFiles struct {
	mu    sync.Mutex
	calls int
}

func (f *stubFiles) Store(_ context.Context, _ []byte, folder, filename, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return fmt.Sprintf("https://files.local/%s/%s", folder, filename), nil
}

type CandidateServiceSuite struct {
	suite.Suite

	ctx   context.Context
	store *InMemoryStore
	files *stubFiles
	svc   *Service
}

func TestCandidateServiceSuite(t *testing.T) {
	suite.Run(t, new(CandidateServiceSuite))
}

func (s *CandidateServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.files = &stubFiles{}
	s.svc = NewService(s.store, s.files,
		WithClock(func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }))
}

func (s *CandidateServiceSuite) application(vagaID int64) Application {
	return Application{
		VagaID:   &vagaID,
		Nome:     "Maria Souza",
		Email:    "maria@example.com",
		Telefone: "(11) 99999-0000",
		CPF:      "123.456.789-01",
		Estado:   "SP",
		Cidade:   "São Paulo",
		Bairro:   "Centro",
	}
}

func (s *CandidateServiceSuite) TestApply() {
	s.Run("stores application with resume", func() {
		app := s.application(7)
		app.Resume = []byte("%PDF-1.4 fake")
		app.ResumeName = "meu currículo.pdf"

		cand, err := s.svc.Apply(s.ctx, app)
		s.Require().NoError(err)
		s.Equal(StatusNovo, cand.Status)
		s.Equal("12345678901", cand.NormalizedCPF())
		s.Require().NotNil(cand.CurriculoURL)
		s.Contains(*cand.CurriculoURL, "curriculos/")
		s.NotContains(*cand.CurriculoURL, " ")
	})

	s.Run("rejects duplicate application to the same vacancy", func() {
		app := s.application(7)
		app.CPF = "98765432100"
		_, err := s.svc.Apply(s.ctx, app)
		s.Require().NoError(err)

		_, err = s.svc.Apply(s.ctx, app)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("same cpf may apply to a different vacancy", func() {
		app := s.application(8)
		app.CPF = "98765432100"
		_, err := s.svc.Apply(s.ctx, app)
		s.NoError(err)
	})

	s.Run("rejects missing fields", func() {
		_, err := s.svc.Apply(s.ctx, Application{CPF: "123"})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidationFailed))
		s.NotEmpty(dErrors.IssuesOf(err))
	})
}

func (s *CandidateServiceSuite) TestUpdateStatus() {
	cand, err := s.svc.Apply(s.ctx, s.application(3))
	s.Require().NoError(err)

	s.Run("moves through the funnel", func() {
		updated, err := s.svc.UpdateStatus(s.ctx, cand.ID, StatusAprovado)
		s.Require().NoError(err)
		s.Equal(StatusAprovado, updated.Status)
	})

	s.Run("talent pool detaches the vacancy", func() {
		updated, err := s.svc.UpdateStatus(s.ctx, cand.ID, StatusBancoTalentos)
		s.Require().NoError(err)
		s.Nil(updated.VagaID)
	})

	s.Run("detached candidate frees the slot for reapplication", func() {
		_, err := s.svc.Apply(s.ctx, s.application(3))
		s.NoError(err)
	})

	s.Run("unknown candidate", func() {
		_, err := s.svc.UpdateStatus(s.ctx, 999, StatusAprovado)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *CandidateServiceSuite) TestSetStatusValidatesValue() {
	cand, err := s.svc.Apply(s.ctx, s.application(1))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.SetStatus(s.ctx, cand.ID, "documentos_enviados"))
	got, err := s.svc.Get(s.ctx, cand.ID)
	s.Require().NoError(err)
	s.Equal(StatusDocsEnviados, got.Status)

	err = s.svc.SetStatus(s.ctx, cand.ID, "no_such_status")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *CandidateServiceSuite) TestSetEthnicity() {
	cand, err := s.svc.Apply(s.ctx, s.application(1))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.SetEthnicity(s.ctx, cand.ID, "parda"))
	got, err := s.svc.Get(s.ctx, cand.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Autodeclaracao)
	s.Equal("parda", *got.Autodeclaracao)

	err = s.svc.SetEthnicity(s.ctx, 999, "preta")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *CandidateServiceSuite) TestListByVacancy() {
	for i := int64(1); i <= 3; i++ {
		app := s.application(i % 2)
		app.CPF = fmt.Sprintf("1234567890%d", i)
		_, err := s.svc.Apply(s.ctx, app)
		s.Require().NoError(err)
	}

	matched, err := s.svc.ListByVacancy(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(matched, 2)

	all, err := s.svc.List(s.ctx, Filter{})
	s.Require().NoError(err)
	s.Len(all, 3)
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	if _, err := ParseStatus("contratado"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if _, err := ParseStatus("banco_talentos"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
