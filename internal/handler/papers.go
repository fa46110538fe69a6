package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exampaper/internal/model"
)

func (h *Handler) handleListPapers(w http.ResponseWriter, r *http.Request) {
	list, err := h.papers.ListPapers(r.Context(), currentUser(r).ID, r.URL.Query().Get("projectId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type paperResponse struct {
	model.ExamPaper
	Stats model.Stats `json:"stats"`
}

func (h *Handler) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	p, err := h.papers.LoadPaper(r.Context(), chi.URLParam(r, "paperID"), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paperResponse{ExamPaper: p, Stats: model.ComputeStats(p.Questions)})
}

func (h *Handler) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	if err := h.papers.DeletePaper(r.Context(), chi.URLParam(r, "paperID"), currentUser(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePrintPaper(w http.ResponseWriter, r *http.Request) {
	p, err := h.papers.LoadPaper(r.Context(), chi.URLParam(r, "paperID"), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePrint(w, r, p.Settings, p.Questions)
}
