package candidate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"conosco/internal/platform/middleware"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/httputil"
)

// Résumés are PDFs; reject oversized uploads before buffering.
const maxResumeBytes = 10 << 20

// AdmissionTrigger transmits an approved candidate to the external admission
// system.
type AdmissionTrigger interface {
	Send(ctx context.Context, candidateID int64) error
}

type Handler struct {
	svc         *Service
	admission   AdmissionTrigger
	logger      *slog.Logger
	hrValidator middleware.HRTokenValidator
}

func NewHandler(svc *Service, admission AdmissionTrigger, logger *slog.Logger, hrValidator middleware.HRTokenValidator) *Handler {
	return &Handler{svc: svc, admission: admission, logger: logger, hrValidator: hrValidator}
}

// Register mounts the application routes. Intake is public; everything else
// is HR.
func (h *Handler) Register(r chi.Router) {
	r.Route("/candidatos", func(r chi.Router) {
		r.Post("/", h.handleApply)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireHR(h.hrValidator, h.logger))
			r.Get("/", h.handleList)
			r.Get("/vaga/{vagaId}", h.handleListByVacancy)
			r.Get("/{id}", h.handleGet)
			r.Put("/{id}", h.handleUpdateStatus)
			r.Post("/{id}/enviar-admissao", h.handleSendAdmission)
		})
	})
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Formulário multipart inválido"))
		return
	}
	app := Application{
		Nome:     r.FormValue("nome"),
		Email:    r.FormValue("email"),
		Telefone: r.FormValue("telefone"),
		CPF:      r.FormValue("cpf"),
		Estado:   r.FormValue("estado"),
		Cidade:   r.FormValue("cidade"),
		Bairro:   r.FormValue("bairro"),
	}
	if v := r.FormValue("data_nascimento"); v != "" {
		app.DataNascimento = &v
	}
	if v := r.FormValue("linkedin_url"); v != "" {
		app.LinkedinURL = &v
	}
	if v := r.FormValue("vaga_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "vaga_id inválido"))
			return
		}
		app.VagaID = &id
	}

	if file, header, err := r.FormFile("curriculo"); err == nil {
		data, readErr := readResume(file)
		if readErr != nil {
			httputil.WriteError(w, readErr)
			return
		}
		app.Resume = data
		app.ResumeName = header.Filename
	}

	cand, err := h.svc.Apply(r.Context(), app)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, candidateView(cand))
}

func readResume(file multipart.File) ([]byte, error) {
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxResumeBytes+1))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Falha ao ler o arquivo enviado")
	}
	if len(data) > maxResumeBytes {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Currículo excede o tamanho máximo permitido")
	}
	return data, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := Filter{}
	if v := r.URL.Query().Get("status"); v != "" && v != "all" {
		status, err := ParseStatus(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	candidates, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candidateViews(candidates))
}

func (h *Handler) handleListByVacancy(w http.ResponseWriter, r *http.Request) {
	vagaID, err := strconv.ParseInt(chi.URLParam(r, "vagaId"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "vaga_id inválido"))
		return
	}
	candidates, err := h.svc.ListByVacancy(r.Context(), vagaID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candidateViews(candidates))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id inválido"))
		return
	}
	cand, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candidateView(cand))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id inválido"))
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "JSON inválido"))
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cand, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candidateView(cand))
}

func (h *Handler) handleSendAdmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id inválido"))
		return
	}
	if h.admission == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "Integração de admissão não configurada"))
		return
	}
	if err := h.admission.Send(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

type view struct {
	ID             int64   `json:"id"`
	VagaID         *int64  `json:"vagaId"`
	Nome           string  `json:"nome"`
	Email          string  `json:"email"`
	Telefone       string  `json:"telefone"`
	CPF            string  `json:"cpf"`
	DataNascimento *string `json:"dataNascimento,omitempty"`
	Estado         string  `json:"estado,omitempty"`
	Cidade         string  `json:"cidade,omitempty"`
	Bairro         string  `json:"bairro,omitempty"`
	CurriculoURL   *string `json:"curriculoUrl,omitempty"`
	LinkedinURL    *string `json:"linkedinUrl,omitempty"`
	Autodeclaracao *string `json:"autodeclaracao,omitempty"`
	Status         string  `json:"status"`
	CriadoEm       string  `json:"criadoEm"`
}

func candidateView(c *Candidate) view {
	return view{
		ID:             c.ID,
		VagaID:         c.VagaID,
		Nome:           c.Nome,
		Email:          c.Email,
		Telefone:       c.Telefone,
		CPF:            c.NormalizedCPF(),
		DataNascimento: c.DataNascimento,
		Estado:         c.Estado,
		Cidade:         c.Cidade,
		Bairro:         c.Bairro,
		CurriculoURL:   c.CurriculoURL,
		LinkedinURL:    c.LinkedinURL,
		Autodeclaracao: c.Autodeclaracao,
		Status:         string(c.Status),
		CriadoEm:       c.CreatedAt.Format(time.RFC3339),
	}
}

func candidateViews(cs []*Candidate) []view {
	out := make([]view, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateView(c))
	}
	return out
}
