package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/mssola/useragent"

	"conosco/internal/audit"
	"conosco/internal/document"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

// DeclarationResult carries the stored declaration plus the candidate's
// updated progress.
type DeclarationResult struct {
	Declaration  document.Declaration
	Completeness document.Completeness
}

// SubmitDeclaration registers the ethnicity self-declaration, with IP,
// user agent and device captured for the audit trail. The candidate must
// accept the declaration terms. Resubmitting replaces the previous
// declaration and rehashes it; the declared value is also mirrored onto the
// candidate's application row.
func (s *Service) SubmitDeclaration(ctx context.Context, candidateID int64, value string, termsAccepted bool, ip, rawUserAgent string) (*DeclarationResult, error) {
	parsed, err := document.ParseEthnicity(value)
	if err != nil {
		return nil, err
	}
	if !termsAccepted {
		return nil, dErrors.New(dErrors.CodeValidationFailed, "é necessário aceitar os termos da autodeclaração")
	}

	cand, record, err := s.lookupCandidateRecord(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	decl := document.Declaration{
		Value:      parsed,
		IP:         ip,
		UserAgent:  rawUserAgent,
		Device:     deviceFor(rawUserAgent),
		DeclaredAt: now,
	}
	decl.Hash = s.declarationHash(candidateID, parsed, decl.DeclaredAt.UTC().Format("2006-01-02T15:04:05Z"))

	record.Declaration = &decl
	if err := s.records.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao salvar autodeclaração")
	}

	if err := s.candidates.SetEthnicity(ctx, candidateID, string(parsed)); err != nil {
		s.logger.Error("failed to mirror ethnicity declaration",
			"candidate_id", candidateID, "error", err)
	}

	s.audit(ctx, audit.Event{
		Actor:       actorCandidate(candidateID),
		CandidateID: candidateID,
		Action:      audit.ActionDeclarationSubmitted,
		Detail:      string(parsed),
		IP:          ip,
	})

	completeness, err := s.refreshAfterChange(ctx, cand, record.ID)
	if err != nil {
		return nil, err
	}
	return &DeclarationResult{Declaration: decl, Completeness: completeness}, nil
}

// DeclarationProof is the public view of a verified declaration: candidate
// name, vacancy title, declared value and timestamp. Nothing else leaks.
type DeclarationProof struct {
	Valid      bool
	Nome       string
	Vaga       string
	Value      document.EthnicityValue
	DeclaredAt string
	Device     string
}

// VerifyDeclaration resolves a declaration hash, for printed-form QR checks.
// An unknown hash yields a proof with Valid false rather than an error.
func (s *Service) VerifyDeclaration(ctx context.Context, hash string) (*DeclarationProof, error) {
	hash = strings.ToUpper(strings.TrimSpace(hash))
	if hash == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "hash de verificação é obrigatório")
	}
	record, err := s.records.FindByDeclarationHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &DeclarationProof{Valid: false}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao verificar autodeclaração")
	}
	decl := record.Declaration
	proof := &DeclarationProof{
		Valid:      true,
		Value:      decl.Value,
		DeclaredAt: decl.DeclaredAt.UTC().Format("02/01/2006 15:04"),
		Device:     decl.Device,
	}
	// The candidate may have been erased meanwhile; the proof then carries
	// the value and timestamp only.
	if cand, err := s.candidates.Get(ctx, record.CandidateID); err == nil {
		proof.Nome = cand.Nome
		proof.Vaga = cand.Vaga
	}
	return proof, nil
}

// declarationHash derives a short verification code from the declaration.
// HMAC keyed by a server-side secret keeps the code unforgeable; 16 bytes of
// the digest keep it printable on forms.
func (s *Service) declarationHash(candidateID int64, value document.EthnicityValue, declaredAt string) string {
	mac := hmac.New(sha256.New, s.declarationSecret)
	mac.Write([]byte(strconv.FormatInt(candidateID, 10)))
	mac.Write([]byte("|"))
	mac.Write([]byte(value))
	mac.Write([]byte("|"))
	mac.Write([]byte(declaredAt))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)[:16]))
}

// mobileMarkers covers user agents the parser does not classify, like bare
// iPhone strings without a browser token.
var mobileMarkers = []string{"iphone", "ipad", "android", "mobile"}

func deviceFor(rawUserAgent string) string {
	ua := useragent.New(rawUserAgent)
	if ua.Mobile() {
		return "Móvel"
	}
	lowered := strings.ToLower(rawUserAgent)
	for _, marker := range mobileMarkers {
		if strings.Contains(lowered, marker) {
			return "Móvel"
		}
	}
	return "Desktop"
}
