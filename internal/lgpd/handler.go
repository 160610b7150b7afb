package lgpd

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

// Register mounts the data-subject routes. Opening and verifying a request is
// public; acting on one is HR.
func (h *Handler) Register(r chi.Router) {
	r.Route("/lgpd", func(r chi.Router) {
		r.Use(middleware.ClientMetadata)
		r.Post("/solicitar", h.handleSolicitar)
		r.Post("/validar-codigo", h.handleValidarCodigo)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireHR(h.hrValidator, h.logger))
			r.Get("/solicitacoes", h.handleListar)
			r.Get("/solicitacoes/{id}", h.handleGet)
			r.Post("/exportar/{id}", h.handleExportar)
			r.Post("/excluir/{id}", h.handleExcluir)
			r.Post("/rejeitar/{id}", h.handleRejeitar)
		})
	})
}

func (h *Handler) handleSolicitar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tipo  string `json:"tipo"`
		Email string `json:"email"`
		CPF   string `json:"cpf"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "JSON inválido"))
		return
	}
	created, err := h.svc.Solicitar(r.Context(), req.Tipo, req.Email, req.CPF,
		middleware.GetClientIP(r.Context()), middleware.GetUserAgent(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"solicitacao": requestView(created),
		"mensagem":    "Código de verificação enviado por email",
	})
}

func (h *Handler) handleValidarCodigo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SolicitacaoID int64  `json:"solicitacao_id"`
		Codigo        string `json:"codigo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "JSON inválido"))
		return
	}
	validated, err := h.svc.ValidarCodigo(r.Context(), req.SolicitacaoID, req.Codigo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"solicitacao": requestView(validated),
	})
}

func (h *Handler) handleListar(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Status: Status(r.URL.Query().Get("status")),
		Tipo:   RequestType(r.URL.Query().Get("tipo")),
	}
	requests, err := h.svc.Listar(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(requests))
	for _, req := range requests {
		views = append(views, requestView(req))
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requestView(req))
}

func (h *Handler) handleExportar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	export, err := h.svc.Exportar(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, export)
}

func (h *Handler) handleExcluir(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, err := h.svc.Excluir(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"solicitacao": requestView(req),
	})
}

func (h *Handler) handleRejeitar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Motivo string `json:"motivo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "JSON inválido"))
		return
	}
	req, err := h.svc.Rejeitar(r.Context(), id, body.Motivo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"solicitacao": requestView(req),
	})
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id inválido"))
		return 0, false
	}
	return id, true
}

// requestView never exposes the verification code.
func requestView(req *Request) map[string]any {
	view := map[string]any{
		"id":       req.ID,
		"tipo":     string(req.Tipo),
		"email":    req.Email,
		"status":   string(req.Status),
		"criadoEm": req.CreatedAt.Format(time.RFC3339),
	}
	if req.Motivo != nil {
		view["motivo"] = *req.Motivo
	}
	return view
}
