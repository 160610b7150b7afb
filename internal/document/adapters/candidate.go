// Package adapters bridges the document pipeline's collaborator interfaces to
// the concrete services that implement them.
package adapters

import (
	"context"

	"conosco/internal/candidate"
	"conosco/internal/document/service"
	"conosco/internal/vacancy"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

// CandidateDirectory exposes the candidate service to the document pipeline,
// joining in the title of the vacancy the candidate applied to.
type CandidateDirectory struct {
	candidates *candidate.Service
	vacancies  *vacancy.Service
}

func NewCandidateDirectory(candidates *candidate.Service, vacancies *vacancy.Service) *CandidateDirectory {
	return &CandidateDirectory{candidates: candidates, vacancies: vacancies}
}

func (d *CandidateDirectory) Get(ctx context.Context, id int64) (*service.Candidate, error) {
	cand, err := d.candidates.Get(ctx, id)
	if err != nil {
		// The pipeline treats missing candidates as the store sentinel.
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return &service.Candidate{
		ID:       cand.ID,
		Nome:     cand.Nome,
		CPF:      cand.NormalizedCPF(),
		Email:    cand.Email,
		Telefone: cand.Telefone,
		Status:   string(cand.Status),
		Vaga:     d.vacancyTitle(ctx, cand.VagaID),
	}, nil
}

func (d *CandidateDirectory) SetStatus(ctx context.Context, id int64, status string) error {
	return d.candidates.SetStatus(ctx, id, status)
}

func (d *CandidateDirectory) SetEthnicity(ctx context.Context, id int64, value string) error {
	return d.candidates.SetEthnicity(ctx, id, value)
}

// vacancyTitle is best effort: talent-pool candidates carry no vacancy and a
// deleted vacancy must not fail the lookup.
func (d *CandidateDirectory) vacancyTitle(ctx context.Context, vagaID *int64) string {
	if vagaID == nil || d.vacancies == nil {
		return ""
	}
	vaga, err := d.vacancies.Get(ctx, *vagaID)
	if err != nil {
		return ""
	}
	return vaga.Titulo
}
