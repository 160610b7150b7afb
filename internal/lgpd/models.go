// Package lgpd handles data-subject requests: access exports and erasure,
// gated by an emailed verification code.
package lgpd

import (
	"time"

	dErrors "conosco/pkg/domain-errors"
)

type RequestType string

const (
	TypeAcesso   RequestType = "acesso"
	TypeExclusao RequestType = "exclusao"
)

func ParseRequestType(s string) (RequestType, error) {
	switch RequestType(s) {
	case TypeAcesso, TypeExclusao:
		return RequestType(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "tipo de solicitação inválido: %q", s)
	}
}

type Status string

const (
	StatusPendenteVerificacao Status = "pendente_verificacao"
	StatusVerificado          Status = "verificado"
	StatusConcluido           Status = "concluido"
	StatusRejeitado           Status = "rejeitado"
)

// CodeTTL is how long the emailed verification code stays valid.
const CodeTTL = 24 * time.Hour

// Request is one data-subject request. A subject holds at most one request
// that is not yet concluded or rejected.
type Request struct {
	ID              int64
	Tipo            RequestType
	Email           string
	CPF             *string
	Status          Status
	Code            string
	CodeSentAt      time.Time
	CodeValidatedAt *time.Time
	Motivo          *string
	IP              string
	UserAgent       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the request still needs attention.
func (r *Request) Active() bool {
	return r.Status == StatusPendenteVerificacao || r.Status == StatusVerificado
}
