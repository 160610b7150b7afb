package vacancy

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"conosco/internal/platform/middleware"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/httputil"
)

type Handler struct {
	svc         *Service
	logger      *slog.Logger
	hrValidator middleware.HRTokenValidator
}

func NewHandler(svc *Service, logger *slog.Logger, hrValidator middleware.HRTokenValidator) *Handler {
	return &Handler{svc: svc, logger: logger, hrValidator: hrValidator}
}

// Register mounts the posting routes. Listing is the public careers page.
func (h *Handler) Register(r chi.Router) {
	r.Route("/vagas", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireHR(h.hrValidator, h.logger))
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

type payload struct {
	Titulo       *string `json:"titulo"`
	TipoContrato *string `json:"tipo_contrato"`
	Endereco     *string `json:"endereco"`
	Descricao    *string `json:"descricao"`
	Requisitos   *string `json:"requisitos"`
	Diferenciais *string `json:"diferenciais"`
	Status       *string `json:"status"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Status: r.URL.Query().Get("status"),
		Query:  r.URL.Query().Get("q"),
	}
	vacancies, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, vacancyViews(vacancies))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id inválido"))
		return
	}
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, vacancyView(v))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req payload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "JSON inválido"))
		return
	}
	v := Vacancy{
		Titulo:       deref(req.Titulo),
		TipoContrato: deref(req.TipoContrato),
		Endereco:     deref(req.Endereco),
		Descricao:    deref(req.Descricao),
		Requisitos:   deref(req.Requisitos),
		Diferenciais: deref(req.Diferenciais),
	}
	if req.Status != nil {
		v.Status = Status(*req.Status)
	}
	created, err := h.svc.Create(r.Context(), v)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, vacancyView(created))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id inválido"))
		return
	}
	var req payload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "JSON inválido"))
		return
	}
	patch := Patch{
		Titulo:       req.Titulo,
		TipoContrato: req.TipoContrato,
		Endereco:     req.Endereco,
		Descricao:    req.Descricao,
		Requisitos:   req.Requisitos,
		Diferenciais: req.Diferenciais,
	}
	if req.Status != nil {
		status, err := ParseStatus(*req.Status)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		patch.Status = &status
	}
	updated, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, vacancyView(updated))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id inválido"))
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type view struct {
	ID           int64  `json:"id"`
	Titulo       string `json:"titulo"`
	TipoContrato string `json:"tipo_contrato"`
	Endereco     string `json:"endereco"`
	Descricao    string `json:"descricao"`
	Requisitos   string `json:"requisitos"`
	Diferenciais string `json:"diferenciais"`
	Status       string `json:"status"`
	CriadoEm     string `json:"criado_em"`
}

func vacancyView(v *Vacancy) view {
	return view{
		ID:           v.ID,
		Titulo:       v.Titulo,
		TipoContrato: v.TipoContrato,
		Endereco:     v.Endereco,
		Descricao:    v.Descricao,
		Requisitos:   v.Requisitos,
		Diferenciais: v.Diferenciais,
		Status:       string(v.Status),
		CriadoEm:     v.CriadoEm.Format(time.RFC3339),
	}
}

func vacancyViews(vs []*Vacancy) []view {
	out := make([]view, 0, len(vs))
	for _, v := range vs {
		out = append(out, vacancyView(v))
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
