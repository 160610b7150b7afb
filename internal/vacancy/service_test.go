package vacancy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "conosco/pkg/domain-errors"
)

type VacancyServiceSuite struct {
	suite.Suite

	ctx context.Context
	svc *Service
	now time.Time
}

func TestVacancyServiceSuite(t *testing.T) {
	suite.Run(t, new(VacancyServiceSuite))
}

func (s *VacancyServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.svc = NewService(NewInMemoryStore(), WithClock(func() time.Time {
		t := s.now
		s.now = s.now.Add(time.Minute)
		return t
	}))
}

func (s *VacancyServiceSuite) publish(titulo, descricao string, status Status) *Vacancy {
	v, err := s.svc.Create(s.ctx, Vacancy{
		Titulo:    titulo,
		Descricao: descricao,
		Status:    status,
	})
	s.Require().NoError(err)
	return v
}

func (s *VacancyServiceSuite) TestCreate() {
	s.Run("defaults to ativa", func() {
		v := s.publish("Analista de RH", "Rotinas de admissão", "")
		s.Equal(StatusAtiva, v.Status)
		s.NotZero(v.ID)
		s.False(v.CriadoEm.IsZero())
	})

	s.Run("rejects missing title", func() {
		_, err := s.svc.Create(s.ctx, Vacancy{Descricao: "sem título"})
		s.True(dErrors.Is(err, dErrors.CodeValidationFailed))
	})

	s.Run("rejects unknown status", func() {
		_, err := s.svc.Create(s.ctx, Vacancy{Titulo: "x", Descricao: "y", Status: "pausada"})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *VacancyServiceSuite) TestListFilters() {
	s.publish("Desenvolvedor Go", "Serviços de backend", StatusAtiva)
	s.publish("Analista Fiscal", "Rotinas fiscais e backend office", StatusAtiva)
	s.publish("Estágio encerrado", "Vaga antiga", StatusEncerrada)

	s.Run("default lists only active", func() {
		got, err := s.svc.List(s.ctx, Filter{})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("all includes closed", func() {
		got, err := s.svc.List(s.ctx, Filter{Status: "all"})
		s.Require().NoError(err)
		s.Len(got, 3)
	})

	s.Run("query matches title or description", func() {
		got, err := s.svc.List(s.ctx, Filter{Query: "backend"})
		s.Require().NoError(err)
		s.Len(got, 2)

		got, err = s.svc.List(s.ctx, Filter{Query: "fiscal"})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("Analista Fiscal", got[0].Titulo)
	})

	s.Run("newest first", func() {
		got, err := s.svc.List(s.ctx, Filter{Status: "all"})
		s.Require().NoError(err)
		s.Equal("Estágio encerrado", got[0].Titulo)
	})
}

func (s *VacancyServiceSuite) TestPartialUpdate() {
	v := s.publish("Desenvolvedor Go", "Serviços de backend", StatusAtiva)

	closed := StatusEncerrada
	updated, err := s.svc.Update(s.ctx, v.ID, Patch{Status: &closed})
	s.Require().NoError(err)
	s.Equal(StatusEncerrada, updated.Status)
	s.Equal("Desenvolvedor Go", updated.Titulo)

	titulo := "Desenvolvedor Go Pleno"
	updated, err = s.svc.Update(s.ctx, v.ID, Patch{Titulo: &titulo})
	s.Require().NoError(err)
	s.Equal("Desenvolvedor Go Pleno", updated.Titulo)
	s.Equal(StatusEncerrada, updated.Status)

	_, err = s.svc.Update(s.ctx, 999, Patch{Titulo: &titulo})
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *VacancyServiceSuite) TestDelete() {
	v := s.publish("Temporária", "Prazo determinado", StatusAtiva)

	s.Require().NoError(s.svc.Delete(s.ctx, v.ID))
	_, err := s.svc.Get(s.ctx, v.ID)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	err = s.svc.Delete(s.ctx, v.ID)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
