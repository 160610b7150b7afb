package lgpd

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"conosco/internal/audit"
	"conosco/internal/candidate"
	"conosco/internal/document"
	"conosco/internal/notification"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

// SubjectDirectory resolves and rewrites the applications of one data subject.
type SubjectDirectory interface {
	FindByCPF(ctx context.Context, cpf string) ([]*candidate.Candidate, error)
	FindByEmail(ctx context.Context, email string) ([]*candidate.Candidate, error)
	Update(ctx context.Context, cand *candidate.Candidate) error
}

// RecordEraser reads and rewrites document records during export and erasure.
type RecordEraser interface {
	FindByCandidateID(ctx context.Context, candidateID int64) (*document.Record, error)
	UpdateSlot(ctx context.Context, recordID int64, t document.Type, slot document.Slot) error
	Update(ctx context.Context, record *document.Record) error
}

// CredentialRevoker retires portal credentials when a subject is erased.
type CredentialRevoker interface {
	DeactivateByCandidateID(ctx context.Context, candidateID int64) error
}

type Service struct {
	store       Store
	subjects    SubjectDirectory
	records     RecordEraser
	credentials CredentialRevoker
	email       notification.EmailSender
	auditor     audit.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEmail(sender notification.EmailSender) Option {
	return func(s *Service) { s.email = sender }
}

func WithCredentialRevoker(revoker CredentialRevoker) Option {
	return func(s *Service) { s.credentials = revoker }
}

func WithAuditor(recorder audit.Recorder) Option {
	return func(s *Service) { s.auditor = recorder }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, subjects SubjectDirectory, records RecordEraser, opts ...Option) *Service {
	s := &Service{
		store:    store,
		subjects: subjects,
		records:  records,
		auditor:  audit.NopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solicitar opens a request and emails the verification code. One active
// request per email.
func (s *Service) Solicitar(ctx context.Context, tipo, email, cpf, ip, userAgent string) (*Request, error) {
	parsedType, err := ParseRequestType(tipo)
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.WithIssues(dErrors.CodeValidationFailed, "solicitação inválida",
			[]string{"email inválido"})
	}

	if _, err := s.store.FindActiveByEmail(ctx, email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict,
			"Já existe uma solicitação em andamento para este email")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	req := &Request{
		Tipo:       parsedType,
		Email:      email,
		Status:     StatusPendenteVerificacao,
		Code:       code,
		CodeSentAt: now,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if cleaned := onlyDigits(cpf); cleaned != "" {
		req.CPF = &cleaned
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}

	s.sendCode(ctx, req)
	s.auditor.Record(ctx, audit.Event{
		Actor:  "titular:" + email,
		Action: audit.ActionLGPDRequested,
		Detail: fmt.Sprintf("solicitação %s aberta", parsedType),
	})
	return req, nil
}

func (s *Service) sendCode(ctx context.Context, req *Request) {
	if s.email == nil {
		s.logger.Warn("lgpd code not emailed, channel not configured", slog.Int64("request_id", req.ID))
		return
	}
	subject := "Código de verificação da sua solicitação LGPD"
	plain := fmt.Sprintf(
		"Seu código de verificação é %s.\nEle expira em 24 horas.\nSolicitação: %s",
		req.Code, req.Tipo)
	html := fmt.Sprintf(
		`<p>Seu código de verificação é <strong style="font-size:24px;letter-spacing:6px">%s</strong>.</p><p>Ele expira em 24 horas.</p>`,
		req.Code)
	if err := s.email.Send(ctx, req.Email, "", subject, plain, html); err != nil {
		s.logger.Error("send lgpd verification code",
			slog.Int64("request_id", req.ID), slog.Any("error", err))
	}
}

// ValidarCodigo consumes the emailed code and moves the request to verified.
func (s *Service) ValidarCodigo(ctx context.Context, requestID int64, code string) (*Request, error) {
	req, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPendenteVerificacao {
		if req.CodeValidatedAt != nil {
			return nil, dErrors.New(dErrors.CodeInvalidState, "Código já utilizado")
		}
		return nil, dErrors.New(dErrors.CodeInvalidState, "Solicitação não aguarda verificação")
	}
	if s.now().Sub(req.CodeSentAt) > CodeTTL {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Código expirado. Solicite um novo código")
	}
	if strings.TrimSpace(code) != req.Code {
		return nil, dErrors.New(dErrors.CodeValidationFailed, "Código inválido")
	}

	now := s.now()
	req.Status = StatusVerificado
	req.CodeValidatedAt = &now
	req.UpdatedAt = now
	if err := s.store.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) Listar(ctx context.Context, filter Filter) ([]*Request, error) {
	return s.store.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*Request, error) {
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id int64) (*Request, error) {
	req, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Solicitação não encontrada")
		}
		return nil, err
	}
	return req, nil
}

// SubjectExport is everything the system holds about one data subject.
type SubjectExport struct {
	Solicitacao *Request               `json:"solicitacao"`
	Candidatos  []*candidate.Candidate `json:"candidatos"`
	Fichas      []*document.Record     `json:"fichas"`
	GeradoEm    time.Time              `json:"gerado_em"`
}

// Exportar gathers the subject's data. The request must be a verified access
// request; exporting concludes it.
func (s *Service) Exportar(ctx context.Context, requestID int64) (*SubjectExport, error) {
	req, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Tipo != TypeAcesso {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Solicitação não é de acesso a dados")
	}
	if req.Status != StatusVerificado {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Solicitação ainda não verificada")
	}

	candidates, err := s.resolveSubject(ctx, req)
	if err != nil {
		return nil, err
	}
	export := &SubjectExport{Solicitacao: req, Candidatos: candidates, GeradoEm: s.now()}
	for _, cand := range candidates {
		record, err := s.records.FindByCandidateID(ctx, cand.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		export.Fichas = append(export.Fichas, record)
	}

	now := s.now()
	req.Status = StatusConcluido
	req.UpdatedAt = now
	if err := s.store.Update(ctx, req); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor:  "rh",
		Action: audit.ActionLGPDExported,
		Detail: fmt.Sprintf("dados exportados para a solicitação %d", req.ID),
	})
	return export, nil
}

// Excluir anonymizes every application of the subject and blanks the stored
// document URLs. The request must be a verified erasure request.
func (s *Service) Excluir(ctx context.Context, requestID int64) (*Request, error) {
	req, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Tipo != TypeExclusao {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Solicitação não é de exclusão de dados")
	}
	if req.Status != StatusVerificado {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Solicitação ainda não verificada")
	}

	candidates, err := s.resolveSubject(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, cand := range candidates {
		if err := s.eraseCandidate(ctx, cand); err != nil {
			return nil, err
		}
	}

	now := s.now()
	req.Status = StatusConcluido
	req.UpdatedAt = now
	if err := s.store.Update(ctx, req); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Event{
		Actor:  "rh",
		Action: audit.ActionLGPDErased,
		Detail: fmt.Sprintf("%d candidaturas anonimizadas para a solicitação %d", len(candidates), req.ID),
	})
	s.logger.Info("lgpd erasure completed",
		slog.Int64("request_id", req.ID), slog.Int("candidates", len(candidates)))
	return req, nil
}

func (s *Service) eraseCandidate(ctx context.Context, cand *candidate.Candidate) error {
	cand.Nome = "Titular anonimizado"
	cand.Email = ""
	cand.Telefone = ""
	cand.CPF = ""
	cand.DataNascimento = nil
	cand.Estado = ""
	cand.Cidade = ""
	cand.Bairro = ""
	cand.CurriculoURL = nil
	cand.LinkedinURL = nil
	cand.Autodeclaracao = nil
	cand.UpdatedAt = s.now()
	if err := s.subjects.Update(ctx, cand); err != nil {
		return fmt.Errorf("anonymize candidate %d: %w", cand.ID, err)
	}

	if s.credentials != nil {
		if err := s.credentials.DeactivateByCandidateID(ctx, cand.ID); err != nil {
			s.logger.Error("revoke credentials on erasure",
				slog.Int64("candidate_id", cand.ID), slog.Any("error", err))
		}
	}

	record, err := s.records.FindByCandidateID(ctx, cand.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}
	for t := range record.Slots {
		if err := s.records.UpdateSlot(ctx, record.ID, t, document.Slot{}); err != nil {
			return fmt.Errorf("blank slot %s of record %d: %w", t, record.ID, err)
		}
	}
	record.Declaration = nil
	record.Dependents = nil
	record.ResidencyIssuedAt = nil
	if err := s.records.Update(ctx, record); err != nil {
		return fmt.Errorf("erase record %d: %w", record.ID, err)
	}
	return nil
}

// Rejeitar closes a request without acting on it.
func (s *Service) Rejeitar(ctx context.Context, requestID int64, motivo string) (*Request, error) {
	req, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Active() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "Solicitação já encerrada")
	}
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, dErrors.WithIssues(dErrors.CodeValidationFailed, "rejeição inválida",
			[]string{"motivo é obrigatório"})
	}

	now := s.now()
	req.Status = StatusRejeitado
	req.Motivo = &motivo
	req.UpdatedAt = now
	if err := s.store.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) resolveSubject(ctx context.Context, req *Request) ([]*candidate.Candidate, error) {
	if req.CPF != nil && *req.CPF != "" {
		return s.subjects.FindByCPF(ctx, *req.CPF)
	}
	return s.subjects.FindByEmail(ctx, req.Email)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
