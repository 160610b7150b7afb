// Package audit records who did what to a candidate's process. Events are
// appended to an outbox and a background worker ships them to Kafka, so a
// broker outage never blocks a request.
package audit

import "time"

// Action identifies the audited operation.
type Action string

const (
	ActionCredentialIssued     Action = "credencial_gerada"
	ActionCandidateLogin       Action = "candidato_login"
	ActionDocumentUploaded     Action = "documento_enviado"
	ActionDocumentValidated    Action = "documento_validado"
	ActionDocumentRejected     Action = "documento_rejeitado"
	ActionDocumentsSubmitted   Action = "documentos_completos"
	ActionRecordApproved       Action = "ficha_aprovada"
	ActionRecordRejected       Action = "ficha_rejeitada"
	ActionDeclarationSubmitted Action = "autodeclaracao_registrada"
	ActionAdmissionExported    Action = "admissao_exportada"
	ActionLGPDRequested        Action = "lgpd_solicitacao_criada"
	ActionLGPDExported         Action = "lgpd_dados_exportados"
	ActionLGPDErased           Action = "lgpd_dados_excluidos"
)

// Event is one audit entry. Actor is either an HR user ("rh:<id>") or the
// candidate ("candidato:<id>"); Detail is free-form context.
type Event struct {
	ID          int64          `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Actor       string         `json:"actor"`
	CandidateID int64          `json:"candidate_id,omitempty"`
	Action      Action         `json:"action"`
	Detail      string         `json:"detail,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	IP          string         `json:"ip,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
