// Package handler exposes the document pipeline over HTTP: the candidate
// portal endpoints under /documents and the HR review endpoints under
// /documents/rh.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"conosco/internal/document"
	"conosco/internal/document/service"
	"conosco/internal/platform/middleware"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/httputil"
)

// Uploads are images; anything above this is rejected before validation.
const maxUploadBytes = 15 << 20

// Service is the pipeline surface the handler depends on.
type Service interface {
	GenerateCredentials(ctx context.Context, actor string, candidateID int64, notify bool) (*service.CredentialIssue, error)
	Login(ctx context.Context, cpf, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Upload(ctx context.Context, candidateID int64, typeName string, data []byte, contentType string) (*service.UploadResult, error)
	UploadPhoto(ctx context.Context, candidateID int64, data []byte) (*service.UploadResult, error)
	AddDependent(ctx context.Context, candidateID int64, dep service.DependentUpload) ([]document.Dependent, error)
	SubmitDeclaration(ctx context.Context, candidateID int64, value string, termsAccepted bool, ip, userAgent string) (*service.DeclarationResult, error)
	VerifyDeclaration(ctx context.Context, hash string) (*service.DeclarationProof, error)
	Completeness(ctx context.Context, candidateID int64) (document.Completeness, *document.Record, error)
	MyData(ctx context.Context, candidateID int64) (*service.RecordSummary, error)
	ListRecords(ctx context.Context) ([]service.RecordSummary, error)
	GetRecord(ctx context.Context, recordID int64) (*service.RecordSummary, error)
	ValidateDocument(ctx context.Context, hrActor string, recordID int64, decision service.ReviewDecision) (*document.Record, error)
	ValidateAll(ctx context.Context, hrActor string, recordID int64, action, reason string) (*document.Record, int, error)
}

type Handler struct {
	svc         Service
	logger      *slog.Logger
	hrValidator middleware.HRTokenValidator
	sessions    middleware.SessionResolver
}

func New(svc Service, logger *slog.Logger, hrValidator middleware.HRTokenValidator, sessions middleware.SessionResolver) *Handler {
	return &Handler{svc: svc, logger: logger, hrValidator: hrValidator, sessions: sessions}
}

// Register mounts the document routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Use(middleware.ClientMetadata)

		// Public.
		r.Post("/login", h.handleLogin)
		r.Get("/verificar-autodeclaracao/{hash}", h.handleVerifyDeclaration)

		// Candidate session required.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCandidate(h.sessions, h.logger))
			r.Post("/logout", h.handleLogout)
			r.Get("/completude", h.handleCompleteness)
			r.Get("/dados", h.handleMyData)
			r.Get("/ficha", h.handleMyRecord)
			r.Post("/upload", h.handleUpload)
			r.Post("/upload-foto-3x4", h.handleUploadPhoto)
			r.Post("/filhos", h.handleAddDependent)
			r.Post("/autodeclaracao", h.handleSubmitDeclaration)
		})

		// HR only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireHR(h.hrValidator, h.logger))
			r.Post("/gerar-credenciais/{candidatoId}", h.handleGenerateCredentials)
			r.Route("/rh", func(r chi.Router) {
				r.Get("/listar", h.handleList)
				r.Get("/{id}", h.handleGetRecord)
				r.Put("/{id}/validar", h.handleValidate)
				r.Put("/{id}/validar-todos", h.handleValidateAll)
			})
		})
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CPF   string `json:"cpf"`
		Senha string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "corpo da requisição inválido"))
		return
	}

	result, err := h.svc.Login(r.Context(), req.CPF, req.Senha)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"token":    result.Token,
		"expiraEm": result.ExpiresAt.UTC().Format(time.RFC3339),
		"candidato": map[string]any{
			"id":    result.Candidate.ID,
			"nome":  result.Candidate.Nome,
			"email": result.Candidate.Email,
		},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if err := h.svc.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "falha ao encerrar sessão"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleCompleteness(w http.ResponseWriter, r *http.Request) {
	candidateID := middleware.GetCandidateID(r.Context())
	completeness, _, err := h.svc.Completeness(r.Context(), candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, completeness)
}

func (h *Handler) handleMyRecord(w http.ResponseWriter, r *http.Request) {
	candidateID := middleware.GetCandidateID(r.Context())
	_, record, err := h.svc.Completeness(r.Context(), candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recordView(record))
}

func (h *Handler) handleMyData(w http.ResponseWriter, r *http.Request) {
	candidateID := middleware.GetCandidateID(r.Context())
	summary, err := h.svc.MyData(r.Context(), candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summaryView(*summary))
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	candidateID := middleware.GetCandidateID(r.Context())

	typeName := r.FormValue("tipo_documento")
	data, contentType, ok := h.readFile(w, r, "file")
	if !ok {
		return
	}

	result, err := h.svc.Upload(r.Context(), candidateID, typeName, data, contentType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := map[string]any{
		"success":    true,
		"url":        result.URL,
		"completude": result.Completeness,
		"qualidade":  result.Quality,
	}
	if result.OCR != nil {
		resp["ocr"] = result.OCR
	}
	if result.Dimensions != nil {
		resp["dimensoes"] = result.Dimensions
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	candidateID := middleware.GetCandidateID(r.Context())

	data, _, ok := h.readFile(w, r, "file")
	if !ok {
		return
	}

	result, err := h.svc.UploadPhoto(r.Context(), candidateID, data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"url":        result.URL,
		"dimensoes":  result.Dimensions,
		"completude": result.Completeness,
	})
}

func (h *Handler) handleAddDependent(w http.ResponseWriter, r *http.Request) {
	candidateID := middleware.GetCandidateID(r.Context())

	idade, err := strconv.Atoi(r.FormValue("idade"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "idade do dependente inválida"))
		return
	}

	certidao, _, ok := h.readFile(w, r, "certidao")
	if !ok {
		return
	}
	dep := service.DependentUpload{
		Nome:     r.FormValue("nome"),
		Idade:    idade,
		Certidao: certidao,
	}
	if cpfDoc, _, err := readOptionalFile(r, "cpf"); err == nil {
		dep.CPFDoc = cpfDoc
	}

	dependents, err := h.svc.AddDependent(r.Context(), candidateID, dep)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"dependentes": dependents,
	})
}

func (h *Handler) handleSubmitDeclaration(w http.ResponseWriter, r *http.Request) {
	candidateID := middleware.GetCandidateID(r.Context())

	var req struct {
		Raca         string `json:"raca"`
		AceiteTermos bool   `json:"aceiteTermos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "corpo da requisição inválido"))
		return
	}

	ctx := r.Context()
	result, err := h.svc.SubmitDeclaration(ctx, candidateID, req.Raca, req.AceiteTermos,
		middleware.GetClientIP(ctx), middleware.GetUserAgent(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"raca":            result.Declaration.Value,
		"hashVerificacao": result.Declaration.Hash,
		"completude":      result.Completeness,
		"dispositivo":     result.Declaration.Device,
		"declaradoEm":     result.Declaration.DeclaredAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleVerifyDeclaration(w http.ResponseWriter, r *http.Request) {
	proof, err := h.svc.VerifyDeclaration(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !proof.Valid {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]any{"valido": false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"valido":      true,
		"nome":        proof.Nome,
		"vaga":        proof.Vaga,
		"valor":       proof.Value,
		"data":        proof.DeclaredAt,
		"dispositivo": proof.Device,
	})
}

func (h *Handler) handleGenerateCredentials(w http.ResponseWriter, r *http.Request) {
	candidateID, err := strconv.ParseInt(chi.URLParam(r, "candidatoId"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id de candidato inválido"))
		return
	}

	// The body is optional; notifications default to on.
	req := struct {
		EnviarNotificacao *bool `json:"enviarNotificacao"`
	}{}
	_ = json.NewDecoder(r.Body).Decode(&req)
	notify := req.EnviarNotificacao == nil || *req.EnviarNotificacao

	issue, err := h.svc.GenerateCredentials(r.Context(), hrActor(r.Context()), candidateID, notify)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"link":         issue.LoginURL,
		"cpf":          issue.Credential.CPF,
		"senha":        issue.Credential.Password,
		"expiraEm":     issue.Credential.ExpiresAt.UTC().Format(time.RFC3339),
		"novoRegistro": issue.Created,
		"candidato": map[string]any{
			"id":    issue.Candidate.ID,
			"nome":  issue.Candidate.Nome,
			"email": issue.Candidate.Email,
		},
		"notificacao": issue.Notified,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.ListRecords(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, summaryView(summary))
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.GetRecord(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summaryView(*summary))
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req struct {
		Tipo     string `json:"tipo"`
		Aprovado bool   `json:"aprovado"`
		Motivo   string `json:"motivo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "corpo da requisição inválido"))
		return
	}

	record, err := h.svc.ValidateDocument(r.Context(), hrActor(r.Context()), recordID, service.ReviewDecision{
		Type:     req.Tipo,
		Approved: req.Aprovado,
		Reason:   req.Motivo,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  record.Status,
	})
}

func (h *Handler) handleValidateAll(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	var req struct {
		Acao   string `json:"acao"`
		Motivo string `json:"motivo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "corpo da requisição inválido"))
		return
	}

	record, touched, err := h.svc.ValidateAll(r.Context(), hrActor(r.Context()), recordID, req.Acao, req.Motivo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"validados": touched,
		"status":    record.Status,
	})
}

func (h *Handler) recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id de ficha inválido"))
		return 0, false
	}
	return id, true
}

func (h *Handler) readFile(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, bool) {
	data, contentType, err := readOptionalFile(r, field)
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "arquivo %q é obrigatório", field))
		return nil, "", false
	}
	return data, contentType, true
}

func readOptionalFile(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}

func hrActor(ctx context.Context) string {
	return "rh:" + middleware.GetHRUserID(ctx)
}

type slotView struct {
	URL            *string `json:"url"`
	Validado       bool    `json:"validado"`
	Rejeitado      bool    `json:"rejeitado"`
	MotivoRejeicao *string `json:"motivoRejeicao,omitempty"`
}

func recordView(record *document.Record) map[string]any {
	slots := make(map[string]slotView, len(document.AllTypes()))
	for _, t := range document.AllTypes() {
		slot := record.Slot(t)
		slots[string(t)] = slotView{
			URL:            slot.URL,
			Validado:       slot.Validated,
			Rejeitado:      slot.Rejected,
			MotivoRejeicao: slot.RejectionReason,
		}
	}
	view := map[string]any{
		"id":          record.ID,
		"candidatoId": record.CandidateID,
		"status":      record.Status,
		"documentos":  slots,
		"completude":  record.Completeness(),
		"dependentes": record.Dependents,
	}
	if record.Declaration != nil {
		view["autodeclaracao"] = map[string]any{
			"valor":           record.Declaration.Value,
			"hashVerificacao": record.Declaration.Hash,
			"declaradoEm":     record.Declaration.DeclaredAt.UTC().Format(time.RFC3339),
		}
	}
	if record.CompletedAt != nil {
		view["completadoEm"] = record.CompletedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func summaryView(summary service.RecordSummary) map[string]any {
	view := recordView(summary.Record)
	view["candidato"] = map[string]any{
		"id":       summary.Candidate.ID,
		"nome":     summary.Candidate.Nome,
		"email":    summary.Candidate.Email,
		"telefone": summary.Candidate.Telefone,
		"status":   summary.Candidate.Status,
		"vaga":     summary.Candidate.Vaga,
	}
	return view
}
