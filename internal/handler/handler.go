// Package handler exposes exam paper authoring over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exampaper/internal/generate"
	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/paper"
	"github.com/pavelanni/exampaper/internal/store"
	"github.com/pavelanni/exampaper/internal/validate"
)

const maxJSONBody = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	papers *paper.Service
	config model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, papers *paper.Service, cfg model.AppConfig) *Handler {
	return &Handler{store: s, papers: papers, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/api/me", h.handleMe)

		r.Post("/api/drafts", h.handleCreateDraft)
		r.Route("/api/drafts/{draftID}", func(r chi.Router) {
			r.Get("/", h.handleGetDraft)
			r.Delete("/", h.handleCloseDraft)
			r.Patch("/settings", h.handleUpdateSettings)
			r.Post("/questions", h.handleAddQuestion)
			r.Patch("/questions/{questionID}", h.handleUpdateQuestion)
			r.Delete("/questions/{questionID}", h.handleDeleteQuestion)
			r.Post("/questions/{questionID}/move", h.handleMoveQuestion)
			r.Post("/questions/{questionID}/options", h.handleAddOption)
			r.Put("/questions/{questionID}/options/{index}", h.handleUpdateOption)
			r.Delete("/questions/{questionID}/options/{index}", h.handleRemoveOption)
			r.Post("/generate", h.handleGenerate)
			r.Post("/save", h.handleSave)
			r.Get("/print/{sheet}", h.handlePrintDraft)
		})

		r.Get("/api/papers", h.handleListPapers)
		r.Get("/api/papers/{paperID}", h.handleGetPaper)
		r.Delete("/api/papers/{paperID}", h.handleDeletePaper)
		r.Post("/api/papers/{paperID}/edit", h.handleEditPaper)
		r.Get("/api/papers/{paperID}/print/{sheet}", h.handlePrintPaper)

		r.Post("/api/projects/{projectID}/documents", h.handleUploadDocument)
		r.Get("/api/projects/{projectID}/documents", h.handleListDocuments)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/api/admin/users", h.handleListUsers)
			r.Post("/api/admin/users", h.handleCreateUser)
			r.Post("/api/admin/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "drafts": h.papers.Workspace().Len()})
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields []model.Violation `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return validate.New(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: "internal error"}

	var verr *validate.Error
	var gerr *generate.ServiceError
	switch {
	case errors.As(err, &verr):
		status, resp = http.StatusBadRequest, errorResponse{Error: verr.Msg, Fields: verr.Fields}
	case errors.Is(err, paper.ErrTooFewOptions), errors.Is(err, paper.ErrConfirmationRequired):
		status, resp.Error = http.StatusBadRequest, err.Error()
	case errors.Is(err, paper.ErrForbidden):
		user := model.UserFromContext(r.Context())
		var userID string
		if user != nil {
			userID = user.ID
		}
		slog.Warn("forbidden paper access", "path", r.URL.Path, "user_id", userID)
		status, resp.Error = http.StatusNotFound, paper.ErrNotFound.Error()
	case errors.Is(err, paper.ErrNotFound), errors.Is(err, paper.ErrDraftNotFound),
		errors.Is(err, paper.ErrQuestionNotFound), errors.Is(err, store.ErrNotFound):
		status, resp.Error = http.StatusNotFound, err.Error()
	case errors.Is(err, paper.ErrConflict), errors.Is(err, paper.ErrBusy):
		status, resp.Error = http.StatusConflict, err.Error()
	case errors.Is(err, paper.ErrNoGenerator):
		status, resp.Error = http.StatusNotImplemented, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, resp.Error = http.StatusGatewayTimeout, "operation timed out"
	case errors.As(err, &gerr):
		status, resp.Error = http.StatusBadGateway, gerr.Error()
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

func currentUser(r *http.Request) *model.User {
	return model.UserFromContext(r.Context())
}
