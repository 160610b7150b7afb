package lgpd

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"conosco/internal/candidate"
	"conosco/internal/document"
	docstore "conosco/internal/document/store"
	dErrors "conosco/pkg/domain-errors"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMailer) Send(_ context.Context, to, _, _, plain, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+": "+plain)
	return nil
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked []int64
}

func (f *fakeRevoker) DeactivateByCandidateID(_ context.Context, candidateID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, candidateID)
	return nil
}

type LGPDSuite struct {
	suite.Suite

	ctx        context.Context
	store      *InMemoryStore
	candidates *candidate.InMemoryStore
	records    *docstore.MemoryRecordStore
	mailer     *fakeMailer
	revoker    *fakeRevoker
	svc        *Service
	now        time.Time
}

func TestLGPDSuite(t *testing.T) {
	suite.Run(t, new(LGPDSuite))
}

func (s *LGPDSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.candidates = candidate.NewInMemoryStore()
	s.records = docstore.NewMemoryRecordStore()
	s.mailer = &fakeMailer{}
	s.revoker = &fakeRevoker{}
	s.now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s.svc = NewService(s.store, s.candidates, s.records,
		WithEmail(s.mailer),
		WithCredentialRevoker(s.revoker),
		WithClock(func() time.Time { return s.now }))
}

func (s *LGPDSuite) seedSubject() *candidate.Candidate {
	raca := "parda"
	cand := &candidate.Candidate{
		Nome:           "Maria Souza",
		Email:          "maria@example.com",
		Telefone:       "11999990000",
		CPF:            "12345678901",
		Autodeclaracao: &raca,
		Status:         candidate.StatusAprovado,
		CreatedAt:      s.now,
		UpdatedAt:      s.now,
	}
	s.Require().NoError(s.candidates.Create(s.ctx, cand))

	url := "https://files/ctps.jpg"
	record := &document.Record{
		CandidateID: cand.ID,
		Slots: map[document.Type]document.Slot{
			document.TypeCTPSDigital: {URL: &url, Validated: true},
		},
		Declaration: &document.Declaration{Value: "parda", Hash: "ABCD"},
		Status:      document.StatusEnviados,
		LinkSentAt:  s.now,
	}
	s.Require().NoError(s.records.Create(s.ctx, record))
	return cand
}

func (s *LGPDSuite) open(tipo string) *Request {
	req, err := s.svc.Solicitar(s.ctx, tipo, "maria@example.com", "123.456.789-01", "1.2.3.4", "test-agent")
	s.Require().NoError(err)
	return req
}

func (s *LGPDSuite) verify(req *Request) *Request {
	stored, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	verified, err := s.svc.ValidarCodigo(s.ctx, req.ID, stored.Code)
	s.Require().NoError(err)
	return verified
}

func (s *LGPDSuite) TestSolicitar() {
	s.Run("emails a six digit code", func() {
		req := s.open("acesso")
		s.Equal(StatusPendenteVerificacao, req.Status)
		s.Len(req.Code, 6)
		s.Require().Len(s.mailer.sent, 1)
		s.Contains(s.mailer.sent[0], req.Code)
		s.Require().NotNil(req.CPF)
		s.Equal("12345678901", *req.CPF)
	})

	s.Run("second active request conflicts", func() {
		_, err := s.svc.Solicitar(s.ctx, "exclusao", "maria@example.com", "", "", "")
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("unknown type rejected", func() {
		_, err := s.svc.Solicitar(s.ctx, "portabilidade", "x@y.com", "", "", "")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *LGPDSuite) TestValidarCodigo() {
	req := s.open("acesso")

	s.Run("wrong code rejected", func() {
		_, err := s.svc.ValidarCodigo(s.ctx, req.ID, "000000")
		s.True(dErrors.Is(err, dErrors.CodeValidationFailed))
	})

	s.Run("correct code verifies", func() {
		verified := s.verify(req)
		s.Equal(StatusVerificado, verified.Status)
		s.NotNil(verified.CodeValidatedAt)
	})

	s.Run("code is single use", func() {
		stored, err := s.store.FindByID(s.ctx, req.ID)
		s.Require().NoError(err)
		_, err = s.svc.ValidarCodigo(s.ctx, req.ID, stored.Code)
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})
}

func (s *LGPDSuite) TestCodeExpiry() {
	req := s.open("acesso")
	stored, err := s.store.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)

	s.now = s.now.Add(CodeTTL + time.Second)
	_, err = s.svc.ValidarCodigo(s.ctx, req.ID, stored.Code)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	s.Contains(err.Error(), "expirado")
}

func (s *LGPDSuite) TestExportar() {
	cand := s.seedSubject()
	req := s.verify(s.open("acesso"))

	export, err := s.svc.Exportar(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().Len(export.Candidatos, 1)
	s.Equal(cand.ID, export.Candidatos[0].ID)
	s.Require().Len(export.Fichas, 1)
	s.True(export.Fichas[0].Slot(document.TypeCTPSDigital).Uploaded())

	final, err := s.svc.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(StatusConcluido, final.Status)

	s.Run("cannot export twice", func() {
		_, err := s.svc.Exportar(s.ctx, req.ID)
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})
}

func (s *LGPDSuite) TestExportarRequiresAccessType() {
	s.seedSubject()
	req := s.verify(s.open("exclusao"))
	_, err := s.svc.Exportar(s.ctx, req.ID)
	s.True(dErrors.Is(err, dErrors.CodeInvalidState))
}

func (s *LGPDSuite) TestExcluirAnonymizes() {
	cand := s.seedSubject()
	req := s.verify(s.open("exclusao"))

	done, err := s.svc.Excluir(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(StatusConcluido, done.Status)

	erased, err := s.candidates.FindByID(s.ctx, cand.ID)
	s.Require().NoError(err)
	s.Empty(erased.CPF)
	s.Empty(erased.Email)
	s.Empty(erased.Telefone)
	s.Nil(erased.Autodeclaracao)
	s.NotContains(strings.ToLower(erased.Nome), "maria")

	record, err := s.records.FindByCandidateID(s.ctx, cand.ID)
	s.Require().NoError(err)
	s.False(record.Slot(document.TypeCTPSDigital).Uploaded())
	s.Nil(record.Declaration)

	s.Contains(s.revoker.revoked, cand.ID)
}

func (s *LGPDSuite) TestExcluirRequiresVerification() {
	s.seedSubject()
	req := s.open("exclusao")
	_, err := s.svc.Excluir(s.ctx, req.ID)
	s.True(dErrors.Is(err, dErrors.CodeInvalidState))
}

func (s *LGPDSuite) TestRejeitar() {
	req := s.open("acesso")

	s.Run("requires motivo", func() {
		_, err := s.svc.Rejeitar(s.ctx, req.ID, "  ")
		s.True(dErrors.Is(err, dErrors.CodeValidationFailed))
	})

	s.Run("records motivo and closes", func() {
		rejected, err := s.svc.Rejeitar(s.ctx, req.ID, "Identidade não comprovada")
		s.Require().NoError(err)
		s.Equal(StatusRejeitado, rejected.Status)
		s.Require().NotNil(rejected.Motivo)
		s.Equal("Identidade não comprovada", *rejected.Motivo)
	})

	s.Run("closed request cannot be rejected again", func() {
		_, err := s.svc.Rejeitar(s.ctx, req.ID, "de novo")
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})
}
