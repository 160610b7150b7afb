package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"conosco/internal/audit"
	"conosco/internal/document"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

// RecordSummary pairs a record with its candidate for the HR listing.
type RecordSummary struct {
	Record    *document.Record
	Candidate *Candidate
}

// ListRecords returns every document record with candidate data attached,
// most recent activity first.
func (s *Service) ListRecords(ctx context.Context) ([]RecordSummary, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao listar fichas")
	}
	summaries := make([]RecordSummary, 0, len(records))
	for _, record := range records {
		cand, err := s.candidates.Get(ctx, record.CandidateID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// The candidate may have been erased under LGPD; skip the
				// orphaned record rather than failing the whole listing.
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar candidato")
		}
		summaries = append(summaries, RecordSummary{Record: record, Candidate: cand})
	}
	return summaries, nil
}

// GetRecord returns one record with candidate data for the HR detail view.
func (s *Service) GetRecord(ctx context.Context, recordID int64) (*RecordSummary, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ficha de documentos não encontrada")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar ficha")
	}
	cand, err := s.candidates.Get(ctx, record.CandidateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar candidato")
	}
	return &RecordSummary{Record: record, Candidate: cand}, nil
}

// MyData returns the candidate's own profile joined with their record. Backs
// the portal's status page.
func (s *Service) MyData(ctx context.Context, candidateID int64) (*RecordSummary, error) {
	_, record, err := s.Completeness(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	cand, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar candidato")
	}
	return &RecordSummary{Record: record, Candidate: cand}, nil
}

// ReviewDecision is one HR validation call.
type ReviewDecision struct {
	Type     string
	Approved bool
	Reason   string
}

// ValidateDocument approves or rejects one uploaded document. Rejection
// requires a reason and notifies the candidate; the record's overall status
// is recomputed afterwards.
func (s *Service) ValidateDocument(ctx context.Context, hrActor string, recordID int64, decision ReviewDecision) (*document.Record, error) {
	t, err := document.ParseType(decision.Type)
	if err != nil {
		return nil, err
	}
	if !decision.Approved && strings.TrimSpace(decision.Reason) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "motivo da rejeição é obrigatório")
	}

	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ficha de documentos não encontrada")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao buscar ficha")
	}

	slot := record.Slot(t)
	if !slot.Uploaded() {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "documento %s ainda não foi enviado", t)
	}

	if decision.Approved {
		slot.Validated = true
		slot.Rejected = false
		slot.RejectionReason = nil
	} else {
		reason := strings.TrimSpace(decision.Reason)
		slot.Validated = false
		slot.Rejected = true
		slot.RejectionReason = &reason
	}
	if err := s.records.UpdateSlot(ctx, recordID, t, slot); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao salvar validação")
	}

	action := audit.ActionDocumentValidated
	metric := "approved"
	if !decision.Approved {
		action = audit.ActionDocumentRejected
		metric = "rejected"
	}
	if s.metrics != nil {
		s.metrics.IncrementReview(metric)
	}
	s.audit(ctx, audit.Event{
		Actor:       hrActor,
		CandidateID: record.CandidateID,
		Action:      action,
		Detail:      string(t),
	})

	if !decision.Approved {
		s.notifyRejection(record.CandidateID, string(t), strings.TrimSpace(decision.Reason))
	}

	return s.recomputeDisposition(ctx, hrActor, recordID)
}

// notifyRejection tells the candidate asynchronously which document failed
// review and why.
func (s *Service) notifyRejection(candidateID int64, docName, reason string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cand, err := s.candidates.Get(ctx, candidateID)
		if err != nil {
			return
		}
		if err := s.notifier.NotifyDocumentRejected(ctx, *cand, docName, reason); err != nil {
			s.logger.Error("failed to notify document rejection",
				"candidate_id", cand.ID, "error", err)
		}
	}()
}

// Bulk review actions.
const (
	ActionApprove = "aprovar"
	ActionReject  = "rejeitar"
)

// ValidateAll approves or rejects every uploaded document of the record in
// one shot and settles the record accordingly. Slots that were never uploaded
// are left untouched; rejection requires a reason, which is stamped on each
// slot. Approval triggers the admission export.
func (s *Service) ValidateAll(ctx context.Context, hrActor string, recordID int64, action, reason string) (*document.Record, int, error) {
	approved := false
	switch action {
	case ActionApprove:
		approved = true
	case ActionReject:
		if strings.TrimSpace(reason) == "" {
			return nil, 0, dErrors.New(dErrors.CodeBadRequest, "motivo da rejeição é obrigatório")
		}
	default:
		return nil, 0, dErrors.Newf(dErrors.CodeValidationFailed,
			"ação inválida: %q (use %q ou %q)", action, ActionApprove, ActionReject)
	}

	var slotReason *string
	if !approved {
		trimmed := strings.TrimSpace(reason)
		slotReason = &trimmed
	}
	touched, err := s.records.ValidateAllSlots(ctx, recordID, approved, slotReason)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, 0, dErrors.New(dErrors.CodeNotFound, "ficha de documentos não encontrada")
		}
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao validar documentos")
	}

	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao recarregar ficha")
	}

	if approved {
		record.Status = document.StatusAprovado
	} else {
		record.Status = document.StatusRejeitado
	}
	if err := s.records.Update(ctx, record); err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao atualizar ficha")
	}

	if approved {
		if s.metrics != nil {
			s.metrics.IncrementReview("approved_all")
		}
		s.mirrorCandidateStatus(ctx, record.CandidateID, candidateStatusDocsApproved)
		s.audit(ctx, audit.Event{
			Actor:       hrActor,
			CandidateID: record.CandidateID,
			Action:      audit.ActionRecordApproved,
		})
		s.triggerExport(hrActor, record.CandidateID)
	} else {
		if s.metrics != nil {
			s.metrics.IncrementReview("rejected_all")
		}
		s.mirrorCandidateStatus(ctx, record.CandidateID, candidateStatusDocsRejected)
		s.audit(ctx, audit.Event{
			Actor:       hrActor,
			CandidateID: record.CandidateID,
			Action:      audit.ActionRecordRejected,
			Detail:      strings.TrimSpace(reason),
		})
		s.notifyRejection(record.CandidateID, "todos os documentos", strings.TrimSpace(reason))
	}

	return record, touched, nil
}

// recomputeDisposition derives the record's overall status from its slots:
// any rejected slot fails the record; a complete record with every mandatory
// slot validated approves it and triggers the admission export.
func (s *Service) recomputeDisposition(ctx context.Context, hrActor string, recordID int64) (*document.Record, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao recarregar ficha")
	}

	anyRejected := false
	allValidated := true
	for _, t := range document.MandatoryTypes() {
		slot := record.Slot(t)
		if slot.Rejected {
			anyRejected = true
		}
		if !slot.Uploaded() || !slot.Validated {
			allValidated = false
		}
	}
	// Optional slots can also be rejected.
	if record.Slot(document.TypeReservista).Rejected {
		anyRejected = true
	}

	completeness := record.Completeness()

	switch {
	case anyRejected && record.Status != document.StatusRejeitado:
		record.Status = document.StatusRejeitado
		if err := s.records.Update(ctx, record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao atualizar ficha")
		}
		s.mirrorCandidateStatus(ctx, record.CandidateID, candidateStatusDocsRejected)
		s.audit(ctx, audit.Event{
			Actor:       hrActor,
			CandidateID: record.CandidateID,
			Action:      audit.ActionRecordRejected,
		})

	case !anyRejected && allValidated && completeness.Completo && record.Status != document.StatusAprovado:
		record.Status = document.StatusAprovado
		if err := s.records.Update(ctx, record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao atualizar ficha")
		}
		s.mirrorCandidateStatus(ctx, record.CandidateID, candidateStatusDocsApproved)
		s.audit(ctx, audit.Event{
			Actor:       hrActor,
			CandidateID: record.CandidateID,
			Action:      audit.ActionRecordApproved,
		})
		s.triggerExport(hrActor, record.CandidateID)

	case !anyRejected && record.Status == document.StatusRejeitado:
		// The last rejected slot was cleared; reopen the record.
		if completeness.Completo {
			record.Status = document.StatusEnviados
		} else {
			record.Status = document.StatusPendente
		}
		if err := s.records.Update(ctx, record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao atualizar ficha")
		}
	}

	return record, nil
}

func (s *Service) triggerExport(hrActor string, candidateID int64) {
	if s.exporter == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := s.exporter.Export(ctx, candidateID); err != nil {
			s.logger.Error("failed to export admission",
				"candidate_id", candidateID, "error", err)
			return
		}
		s.audit(ctx, audit.Event{
			Actor:       hrActor,
			CandidateID: candidateID,
			Action:      audit.ActionAdmissionExported,
		})
	}()
}

func (s *Service) mirrorCandidateStatus(ctx context.Context, candidateID int64, status string) {
	if err := s.candidates.SetStatus(ctx, candidateID, status); err != nil {
		s.logger.Error("failed to mirror candidate status",
			"candidate_id", candidateID, "status", status, "error", err)
	}
}
