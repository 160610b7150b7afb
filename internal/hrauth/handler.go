package hrauth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/httputil"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "JSON inválido"))
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Senha)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token":    result.Token,
		"expiraEm": result.ExpiresAt.Format(time.RFC3339),
		"usuario": map[string]any{
			"id":    result.User.ID,
			"nome":  result.User.Nome,
			"email": result.User.Email,
			"role":  string(result.User.Role),
		},
	})
}
