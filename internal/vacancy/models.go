// Package vacancy owns job postings. Listings are public; mutations are HR.
package vacancy

import (
	"strings"
	"time"

	dErrors "conosco/pkg/domain-errors"
)

type Status string

const (
	StatusAtiva     Status = "ativa"
	StatusEncerrada Status = "encerrada"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAtiva, StatusEncerrada:
		return Status(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "status de vaga inválido: %q", s)
	}
}

type Vacancy struct {
	ID           int64
	Titulo       string
	TipoContrato string
	Endereco     string
	Descricao    string
	Requisitos   string
	Diferenciais string
	Status       Status
	CriadoEm     time.Time
}

func (v *Vacancy) Validate() error {
	var issues []string
	if strings.TrimSpace(v.Titulo) == "" {
		issues = append(issues, "titulo é obrigatório")
	}
	if strings.TrimSpace(v.Descricao) == "" {
		issues = append(issues, "descricao é obrigatória")
	}
	if len(issues) > 0 {
		return dErrors.WithIssues(dErrors.CodeValidationFailed, "vaga inválida", issues)
	}
	return nil
}

// Patch carries a partial update. Nil fields keep the stored value.
type Patch struct {
	Titulo       *string
	TipoContrato *string
	Endereco     *string
	Descricao    *string
	Requisitos   *string
	Diferenciais *string
	Status       *Status
}

func (p Patch) applyTo(v *Vacancy) {
	if p.Titulo != nil {
		v.Titulo = *p.Titulo
	}
	if p.TipoContrato != nil {
		v.TipoContrato = *p.TipoContrato
	}
	if p.Endereco != nil {
		v.Endereco = *p.Endereco
	}
	if p.Descricao != nil {
		v.Descricao = *p.Descricao
	}
	if p.Requisitos != nil {
		v.Requisitos = *p.Requisitos
	}
	if p.Diferenciais != nil {
		v.Diferenciais = *p.Diferenciais
	}
	if p.Status != nil {
		v.Status = *p.Status
	}
}
