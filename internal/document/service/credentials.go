package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"conosco/internal/audit"
	"conosco/internal/document"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

// passwordAlphabet deliberately omits 0/O/1/I to keep hand-typed passwords
// unambiguous.
const (
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	passwordLength   = 7
)

// credentialStatuses are the funnel positions that may hold portal
// credentials: approved candidates entering the pipeline plus everyone
// already inside it.
var credentialStatuses = map[string]bool{
	candidateStatusApproved:     true,
	candidateStatusDocsSent:     true,
	candidateStatusDocsApproved: true,
	candidateStatusDocsRejected: true,
}

// CredentialIssue is the result of GenerateCredentials. Created reports
// whether a new credential was minted; Notified whether a delivery was
// queued.
type CredentialIssue struct {
	Credential document.Credential
	Candidate  Candidate
	LoginURL   string
	Created    bool
	Notified   bool
}

// GenerateCredentials issues a CPF+password pair for an approved candidate.
// The call is idempotent: an active, unexpired credential is returned as-is
// instead of minting a new one. A document record is created lazily on first
// issue. With notify false no message is sent, so HR can hand the pair over
// directly.
func (s *Service) GenerateCredentials(ctx context.Context, actor string, candidateID int64, notify bool) (*CredentialIssue, error) {
	cand, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "candidato não encontrado")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar candidato")
	}
	if !credentialStatuses[cand.Status] {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"candidato precisa estar aprovado para receber credenciais (status atual: %s)", cand.Status)
	}

	now := s.now()
	if existing, err := s.creds.FindActiveByCandidateID(ctx, candidateID); err == nil && !existing.Expired(now) {
		return &CredentialIssue{
			Credential: *existing,
			Candidate:  *cand,
			LoginURL:   s.loginURL,
			Created:    false,
		}, nil
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar credenciais")
	}

	cpf := normalizeCPF(cand.CPF)
	if len(cpf) != 11 {
		return nil, dErrors.New(dErrors.CodeValidationFailed, "candidato sem CPF válido cadastrado")
	}

	if err := s.creds.DeactivateByCandidateID(ctx, candidateID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao desativar credenciais anteriores")
	}

	cred := document.Credential{
		CandidateID: candidateID,
		CPF:         cpf,
		Password:    generatePassword(),
		Active:      true,
		ExpiresAt:   now.Add(s.credentialTTL),
		CreatedAt:   now,
	}
	if err := s.creds.Create(ctx, &cred); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao salvar credenciais")
	}

	if err := s.ensureRecord(ctx, candidateID, now); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CredentialsIssued.Inc()
	}
	s.audit(ctx, audit.Event{
		Actor:       actor,
		CandidateID: candidateID,
		Action:      audit.ActionCredentialIssued,
	})

	notified := notify && s.notifier != nil
	if notified {
		go func(cand Candidate, cred document.Credential) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.notifier.SendCredentials(ctx, cand, cred.CPF, cred.Password, s.loginURL); err != nil {
				s.logger.Error("failed to deliver credentials",
					"candidate_id", cand.ID, "error", err)
			}
		}(*cand, cred)
	}

	return &CredentialIssue{
		Credential: cred,
		Candidate:  *cand,
		LoginURL:   s.loginURL,
		Created:    true,
		Notified:   notified,
	}, nil
}

func (s *Service) ensureRecord(ctx context.Context, candidateID int64, now time.Time) error {
	_, err := s.records.FindByCandidateID(ctx, candidateID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar ficha de documentos")
	}
	record := &document.Record{
		CandidateID:    candidateID,
		AccessToken:    randomToken(32),
		TokenExpiresAt: now.Add(s.credentialTTL),
		Status:         document.StatusPendente,
		LinkSentAt:     now,
	}
	if err := s.records.Create(ctx, record); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "falha ao criar ficha de documentos")
	}
	return nil
}

// LoginResult carries the session issued by Login.
type LoginResult struct {
	Token     string
	Candidate Candidate
	ExpiresAt time.Time
}

// errInvalidLogin is deliberately the same for every failure mode so the
// endpoint never reveals whether a CPF is registered.
func errInvalidLogin() error {
	return dErrors.New(dErrors.CodeUnauthorized, "CPF ou senha inválidos")
}

// Login exchanges CPF+password for a session token.
func (s *Service) Login(ctx context.Context, cpf, password string) (*LoginResult, error) {
	cpf = normalizeCPF(cpf)
	if len(cpf) != 11 || password == "" {
		s.recordLogin("invalid")
		return nil, errInvalidLogin()
	}

	cred, err := s.creds.FindActiveByCPF(ctx, cpf)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordLogin("unknown_cpf")
			return nil, errInvalidLogin()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar credenciais")
	}

	now := s.now()
	if cred.Expired(now) {
		s.recordLogin("expired")
		return nil, errInvalidLogin()
	}
	if subtle.ConstantTimeCompare([]byte(cred.Password), []byte(password)) != 1 {
		s.recordLogin("wrong_password")
		return nil, errInvalidLogin()
	}

	cand, err := s.candidates.Get(ctx, cred.CandidateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar candidato")
	}

	sess := document.Session{
		Token:       randomToken(32),
		CandidateID: cred.CandidateID,
		ExpiresAt:   now.Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao criar sessão")
	}

	s.recordLogin("success")
	s.audit(ctx, audit.Event{
		Actor:       actorCandidate(cred.CandidateID),
		CandidateID: cred.CandidateID,
		Action:      audit.ActionCandidateLogin,
	})

	return &LoginResult{Token: sess.Token, Candidate: *cand, ExpiresAt: sess.ExpiresAt}, nil
}

// Logout discards the session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Resolve implements the session middleware contract: token in, candidate
// out.
func (s *Service) Resolve(ctx context.Context, token string) (int64, error) {
	sess, err := s.sessions.Find(ctx, token)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "sessão inválida ou expirada")
	}
	return sess.CandidateID, nil
}

func (s *Service) recordLogin(result string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(result)
	}
}

func generatePassword() string {
	out := make([]byte, passwordLength)
	size := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			// crypto/rand only fails when the platform RNG is broken.
			panic(err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out)
}

func normalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func actorCandidate(id int64) string {
	return "candidato:" + strconv.FormatInt(id, 10)
}
