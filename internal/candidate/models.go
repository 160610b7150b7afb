// Package candidate owns job applications: who applied to which vacancy and
// where they stand in the recruitment funnel.
package candidate

import (
	"strings"
	"time"

	dErrors "conosco/pkg/domain-errors"
)

// Status is the recruitment funnel position. The documentos_* statuses are
// mirrored from the document pipeline.
type Status string

const (
	StatusNovo           Status = "novo"
	StatusEmAnalise      Status = "em_analise"
	StatusAprovado       Status = "aprovado"
	StatusReprovado      Status = "reprovado"
	StatusDocsEnviados   Status = "documentos_enviados"
	StatusDocsAprovados  Status = "documentos_aprovados"
	StatusDocsRejeitados Status = "documentos_rejeitados"
	StatusBancoTalentos  Status = "banco_talentos"
)

var validStatuses = map[Status]bool{
	StatusNovo:           true,
	StatusEmAnalise:      true,
	StatusAprovado:       true,
	StatusReprovado:      true,
	StatusDocsEnviados:   true,
	StatusDocsAprovados:  true,
	StatusDocsRejeitados: true,
	StatusBancoTalentos:  true,
}

// ParseStatus validates a wire-format status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !validStatuses[status] {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "status de candidato inválido: %q", s)
	}
	return status, nil
}

// Candidate is one application. A person may apply to several vacancies; the
// (CPF, VagaID) pair is unique. VagaID is nil for talent-pool entries.
type Candidate struct {
	ID             int64
	VagaID         *int64
	Nome           string
	Email          string
	Telefone       string
	CPF            string
	DataNascimento *string
	Estado         string
	Cidade         string
	Bairro         string
	CurriculoURL   *string
	LinkedinURL    *string
	Autodeclaracao *string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the fields a new application must carry.
func (c *Candidate) Validate() error {
	var issues []string
	if strings.TrimSpace(c.Nome) == "" {
		issues = append(issues, "nome é obrigatório")
	}
	if strings.TrimSpace(c.Email) == "" || !strings.Contains(c.Email, "@") {
		issues = append(issues, "email inválido")
	}
	if len(onlyDigits(c.CPF)) != 11 {
		issues = append(issues, "CPF deve ter 11 dígitos")
	}
	if len(issues) > 0 {
		return dErrors.WithIssues(dErrors.CodeValidationFailed, "candidatura inválida", issues)
	}
	return nil
}

// NormalizedCPF returns the CPF with punctuation stripped.
func (c *Candidate) NormalizedCPF() string {
	return onlyDigits(c.CPF)
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
