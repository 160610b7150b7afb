// Package document owns the candidate admission document pipeline: the
// per-candidate document record, one-time credentials, upload validation and
// the review lifecycle.
package document

import (
	"time"

	dErrors "conosco/pkg/domain-errors"
)

// Type enumerates the fixed set of admission document slots. The legacy
// system interpolated these names into column names; here the enum is the
// single source of truth and storage keys derive from it.
type Type string

const (
	TypeFoto3x4                     Type = "foto_3x4"
	TypeCTPSDigital                 Type = "ctps_digital"
	TypeIdentidadeFrente            Type = "identidade_frente"
	TypeIdentidadeVerso             Type = "identidade_verso"
	TypeComprovanteResidencia       Type = "comprovante_residencia"
	TypeCertidaoNascimentoCasamento Type = "certidao_nascimento_casamento"
	TypeReservista                  Type = "reservista"
	TypeTituloEleitor               Type = "titulo_eleitor"
	TypeAntecedentesCriminais       Type = "antecedentes_criminais"
)

// AllTypes returns every document slot in presentation order.
func AllTypes() []Type {
	return []Type{
		TypeFoto3x4,
		TypeCTPSDigital,
		TypeIdentidadeFrente,
		TypeIdentidadeVerso,
		TypeComprovanteResidencia,
		TypeCertidaoNascimentoCasamento,
		TypeReservista,
		TypeTituloEleitor,
		TypeAntecedentesCriminais,
	}
}

// MandatoryTypes returns the slots that the completeness invariant requires.
// Reservista stays optional (only applies to part of the population).
func MandatoryTypes() []Type {
	return []Type{
		TypeFoto3x4,
		TypeCTPSDigital,
		TypeIdentidadeFrente,
		TypeIdentidadeVerso,
		TypeComprovanteResidencia,
		TypeCertidaoNascimentoCasamento,
		TypeTituloEleitor,
		TypeAntecedentesCriminais,
	}
}

// ParseType validates a wire-format document type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	for _, known := range AllTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeBadRequest, "tipo de documento inválido: %q", s)
}

// Slot tracks one document's upload and review state.
type Slot struct {
	URL             *string
	Validated       bool
	Rejected        bool
	RejectionReason *string
}

// Uploaded reports whether the slot has a stored document.
func (s Slot) Uploaded() bool { return s.URL != nil && *s.URL != "" }

// Dependent carries a dependent child's documents, stored as a JSON list on
// the record (they are additive, never part of the mandatory set).
type Dependent struct {
	Nome        string    `json:"nome"`
	Idade       int       `json:"idade"`
	CertidaoURL string    `json:"certidao_url"`
	CPFURL      *string   `json:"cpf_url,omitempty"`
	DataUpload  time.Time `json:"data_upload"`
}

// EthnicityValue enumerates the accepted self-declaration values.
type EthnicityValue string

const (
	EthnicityBranca       EthnicityValue = "branca"
	EthnicityPreta        EthnicityValue = "preta"
	EthnicityParda        EthnicityValue = "parda"
	EthnicityAmarela      EthnicityValue = "amarela"
	EthnicityIndigena     EthnicityValue = "indigena"
	EthnicityNaoInformado EthnicityValue = "nao_informado"
)

// ParseEthnicity validates a wire-format self-declaration value.
func ParseEthnicity(s string) (EthnicityValue, error) {
	v := EthnicityValue(s)
	switch v {
	case EthnicityBranca, EthnicityPreta, EthnicityParda,
		EthnicityAmarela, EthnicityIndigena, EthnicityNaoInformado:
		return v, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidationFailed, "valor de autodeclaração inválido: %q", s)
}

// Declaration is the auditable ethnicity self-declaration.
type Declaration struct {
	Value      EthnicityValue
	Hash       string
	IP         string
	UserAgent  string
	Device     string
	DeclaredAt time.Time
}

// RecordStatus is the document record lifecycle.
type RecordStatus string

const (
	StatusPendente  RecordStatus = "pendente"
	StatusEnviados  RecordStatus = "documentos_enviados"
	StatusAprovado  RecordStatus = "aprovado"
	StatusRejeitado RecordStatus = "rejeitado"
)

// Record is the per-candidate document record. Created lazily on first
// credential issuance; never deleted, only status-transitioned.
type Record struct {
	ID             int64
	CandidateID    int64
	AccessToken    string
	TokenExpiresAt time.Time

	Slots map[Type]Slot

	// Issue date extracted by OCR from the residency proof.
	ResidencyIssuedAt *time.Time

	Declaration *Declaration
	Dependents  []Dependent

	Status        RecordStatus
	FirstUploadAt *time.Time
	LastUploadAt  *time.Time
	CompletedAt   *time.Time
	LinkSentAt    time.Time
}

// Slot returns the slot for t, zero-valued when nothing was uploaded yet.
func (r *Record) Slot(t Type) Slot {
	if r.Slots == nil {
		return Slot{}
	}
	return r.Slots[t]
}

// Completeness summarizes how far the candidate is from a complete record.
type Completeness struct {
	Enviados       int      `json:"enviados"`
	Faltando       []string `json:"faltando"`
	Autodeclaracao bool     `json:"autodeclaracao"`
	Completo       bool     `json:"completo"`
}

// Completeness evaluates the invariant: complete iff every mandatory slot has
// a URL and the ethnicity self-declaration is present.
func (r *Record) Completeness() Completeness {
	c := Completeness{
		Faltando:       []string{},
		Autodeclaracao: r.Declaration != nil,
	}
	for _, t := range MandatoryTypes() {
		if r.Slot(t).Uploaded() {
			c.Enviados++
		} else {
			c.Faltando = append(c.Faltando, string(t))
		}
	}
	c.Completo = len(c.Faltando) == 0 && c.Autodeclaracao
	return c
}

// Credential is a one-time CPF+password pair delivered to an approved
// candidate. At most one active, unexpired credential exists per candidate.
type Credential struct {
	ID          int64
	CandidateID int64
	CPF         string
	Password    string
	Active      bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the credential is past its expiry at now.
func (c Credential) Expired(now time.Time) bool { return now.After(c.ExpiresAt) }

// Session is the ephemeral login session of a candidate.
type Session struct {
	Token       string
	CandidateID int64
	ExpiresAt   time.Time
}
