package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"conosco/internal/audit"
	"conosco/internal/document"
	"conosco/internal/document/imagecheck"
	"conosco/internal/document/ocrcheck"
	"conosco/internal/document/photo"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

// UploadResult is returned after a successful upload.
type UploadResult struct {
	URL          string
	Completeness document.Completeness
	Quality      imagecheck.Result
	OCR          *ocrcheck.Result
	Dimensions   *photo.Dimensions
}

// Upload validates and stores one document. Nothing is persisted when
// validation fails; the caller gets the issues back and may retry with a
// better image.
func (s *Service) Upload(ctx context.Context, candidateID int64, typeName string, data []byte, contentType string) (*UploadResult, error) {
	t, err := document.ParseType(typeName)
	if err != nil {
		return nil, err
	}
	if t == document.TypeFoto3x4 {
		return s.UploadPhoto(ctx, candidateID, data)
	}

	cand, record, err := s.lookupCandidateRecord(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	quality := s.images.Validate(data)
	if !quality.IsValid {
		s.recordUpload(t, "rejected_quality")
		return nil, dErrors.WithIssues(dErrors.CodeValidationFailed,
			"documento reprovado na análise de qualidade", quality.Issues)
	}

	var ocrResult *ocrcheck.Result
	if t == document.TypeComprovanteResidencia && s.residency != nil {
		result := s.residency.Validate(ctx, data, cand.Nome)
		if !result.IsValid {
			s.recordUpload(t, "rejected_ocr")
			return nil, dErrors.WithIssues(dErrors.CodeValidationFailed,
				"comprovante de residência reprovado na validação", result.Issues)
		}
		ocrResult = &result
	}

	url, err := s.storage.Store(ctx, data, "documentos", s.fileName(candidateID, t, contentType), contentType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao armazenar documento")
	}

	now := s.now()
	slot := document.Slot{URL: &url}
	if err := s.records.UpsertSlot(ctx, record.ID, t, slot, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao salvar documento")
	}
	if ocrResult != nil && ocrResult.DataEmissao != nil {
		record.ResidencyIssuedAt = ocrResult.DataEmissao
		if err := s.records.Update(ctx, record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao salvar data do comprovante")
		}
	}

	s.recordUpload(t, "accepted")
	s.audit(ctx, audit.Event{
		Actor:       actorCandidate(candidateID),
		CandidateID: candidateID,
		Action:      audit.ActionDocumentUploaded,
		Detail:      string(t),
	})

	completeness, err := s.refreshAfterChange(ctx, cand, record.ID)
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		URL:          url,
		Completeness: completeness,
		Quality:      quality,
		OCR:          ocrResult,
	}, nil
}

// UploadPhoto validates, normalizes and stores the 3x4 badge photo.
func (s *Service) UploadPhoto(ctx context.Context, candidateID int64, data []byte) (*UploadResult, error) {
	cand, record, err := s.lookupCandidateRecord(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	quality := s.images.Validate(data)
	if !quality.IsValid {
		s.recordUpload(document.TypeFoto3x4, "rejected_quality")
		return nil, dErrors.WithIssues(dErrors.CodeValidationFailed,
			"foto reprovada na análise de qualidade", quality.Issues)
	}

	normalized, dims, err := s.photo(data)
	if err != nil {
		s.recordUpload(document.TypeFoto3x4, "rejected_format")
		return nil, dErrors.Wrap(err, dErrors.CodeValidationFailed, "não foi possível processar a foto")
	}

	url, err := s.storage.Store(ctx, normalized, "fotos",
		strconv.FormatInt(candidateID, 10)+"_foto_3x4.jpg", "image/jpeg")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao armazenar foto")
	}

	now := s.now()
	if err := s.records.UpsertSlot(ctx, record.ID, document.TypeFoto3x4, document.Slot{URL: &url}, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao salvar foto")
	}

	s.recordUpload(document.TypeFoto3x4, "accepted")
	s.audit(ctx, audit.Event{
		Actor:       actorCandidate(candidateID),
		CandidateID: candidateID,
		Action:      audit.ActionDocumentUploaded,
		Detail:      string(document.TypeFoto3x4),
	})

	completeness, err := s.refreshAfterChange(ctx, cand, record.ID)
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		URL:          url,
		Completeness: completeness,
		Quality:      quality,
		Dimensions:   &dims,
	}, nil
}

// DependentUpload carries one dependent child's documents.
type DependentUpload struct {
	Nome     string
	Idade    int
	Certidao []byte
	CPFDoc   []byte
}

// AddDependent stores a dependent's birth certificate (and optional CPF
// document) and appends the dependent to the record. Dependent documents are
// additive and never block completeness.
func (s *Service) AddDependent(ctx context.Context, candidateID int64, dep DependentUpload) ([]document.Dependent, error) {
	if strings.TrimSpace(dep.Nome) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "nome do dependente é obrigatório")
	}
	if dep.Idade < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "idade do dependente inválida")
	}
	if len(dep.Certidao) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "certidão de nascimento do dependente é obrigatória")
	}

	_, record, err := s.lookupCandidateRecord(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	if quality := s.images.Validate(dep.Certidao); !quality.IsValid {
		return nil, dErrors.WithIssues(dErrors.CodeValidationFailed,
			"certidão do dependente reprovada na análise de qualidade", quality.Issues)
	}

	prefix := fmt.Sprintf("%d_dependente_%d", candidateID, len(record.Dependents)+1)
	certURL, err := s.storage.Store(ctx, dep.Certidao, "dependentes", prefix+"_certidao.jpg", "image/jpeg")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao armazenar certidão")
	}

	entry := document.Dependent{
		Nome:        strings.TrimSpace(dep.Nome),
		Idade:       dep.Idade,
		CertidaoURL: certURL,
		DataUpload:  s.now(),
	}
	if len(dep.CPFDoc) > 0 {
		cpfURL, err := s.storage.Store(ctx, dep.CPFDoc, "dependentes", prefix+"_cpf.jpg", "image/jpeg")
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao armazenar CPF do dependente")
		}
		entry.CPFURL = &cpfURL
	}

	record.Dependents = append(record.Dependents, entry)
	if err := s.records.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao salvar dependente")
	}
	return record.Dependents, nil
}

// Completeness returns the candidate's current progress.
func (s *Service) Completeness(ctx context.Context, candidateID int64) (document.Completeness, *document.Record, error) {
	record, err := s.records.FindByCandidateID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return document.Completeness{}, nil, dErrors.New(dErrors.CodeNotFound, "ficha de documentos não encontrada")
		}
		return document.Completeness{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar ficha de documentos")
	}
	return record.Completeness(), record, nil
}

func (s *Service) lookupCandidateRecord(ctx context.Context, candidateID int64) (*Candidate, *document.Record, error) {
	cand, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "candidato não encontrado")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar candidato")
	}
	record, err := s.records.FindByCandidateID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "ficha de documentos não encontrada")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar ficha de documentos")
	}
	return cand, record, nil
}

// refreshAfterChange reloads the record and applies status transitions:
// a complete record moves to documentos_enviados (also recovering from a
// prior rejection), mirrors the candidate status and alerts HR once.
func (s *Service) refreshAfterChange(ctx context.Context, cand *Candidate, recordID int64) (document.Completeness, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return document.Completeness{}, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao recarregar ficha")
	}
	completeness := record.Completeness()

	switch {
	case completeness.Completo && record.Status != document.StatusEnviados && record.Status != document.StatusAprovado:
		firstCompletion := record.CompletedAt == nil
		record.Status = document.StatusEnviados
		if firstCompletion {
			now := s.now()
			record.CompletedAt = &now
		}
		if err := s.records.Update(ctx, record); err != nil {
			return completeness, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao atualizar ficha")
		}
		if err := s.candidates.SetStatus(ctx, cand.ID, candidateStatusDocsSent); err != nil {
			s.logger.Error("failed to mirror candidate status",
				"candidate_id", cand.ID, "status", candidateStatusDocsSent, "error", err)
		}
		if s.metrics != nil && firstCompletion {
			s.metrics.RecordsCompleted.Inc()
		}
		s.audit(ctx, audit.Event{
			Actor:       actorCandidate(cand.ID),
			CandidateID: cand.ID,
			Action:      audit.ActionDocumentsSubmitted,
		})
		if s.notifier != nil {
			go func(cand Candidate) {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := s.notifier.NotifyDocumentsComplete(ctx, cand); err != nil {
					s.logger.Error("failed to notify documents complete",
						"candidate_id", cand.ID, "error", err)
				}
			}(*cand)
		}

	case !completeness.Completo && record.Status == document.StatusRejeitado:
		// A fresh upload on a rejected record reopens it.
		record.Status = document.StatusPendente
		if err := s.records.Update(ctx, record); err != nil {
			return completeness, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao atualizar ficha")
		}
	}

	return completeness, nil
}

func (s *Service) recordUpload(t document.Type, result string) {
	if s.metrics != nil {
		s.metrics.IncrementUpload(string(t), result)
	}
}

func (s *Service) fileName(candidateID int64, t document.Type, contentType string) string {
	return strconv.FormatInt(candidateID, 10) + "_" + string(t) + extensionFor(contentType)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
