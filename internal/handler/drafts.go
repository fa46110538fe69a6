package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/paper"
	"github.com/pavelanni/exampaper/internal/render"
	"github.com/pavelanni/exampaper/internal/validate"
)

// draft resolves the {draftID} of the request for the current user.
func (h *Handler) draft(w http.ResponseWriter, r *http.Request) (*paper.Draft, bool) {
	d, err := h.papers.Draft(chi.URLParam(r, "draftID"), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return d, true
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectID string `json:"projectId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.papers.NewDraft(currentUser(r).ID, body.ProjectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleEditPaper(w http.ResponseWriter, r *http.Request) {
	view, err := h.papers.OpenPaper(r.Context(), chi.URLParam(r, "paperID"), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

func (h *Handler) handleCloseDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.papers.CloseDraft(chi.URLParam(r, "draftID"), currentUser(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var patch model.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := d.UpdateSettings(patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// edit applies fn to the draft's questions and responds with the draft view.
func (h *Handler) edit(w http.ResponseWriter, r *http.Request, status int, fn func(c *paper.Collection) error) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	if err := d.Edit(fn); err != nil {
		writeError(w, r, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, d.View())
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	var id string
	_ = d.Edit(func(c *paper.Collection) error {
		id = c.Add()
		return nil
	})
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "questionID")
	h.edit(w, r, http.StatusOK, func(c *paper.Collection) error {
		return c.Update(id, paper.Field(body.Field), body.Value)
	})
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "questionID")
	confirmed := r.URL.Query().Get("confirm") == "true"
	h.edit(w, r, http.StatusNoContent, func(c *paper.Collection) error {
		return c.Remove(id, confirmed)
	})
}

func (h *Handler) handleMoveQuestion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index *int `json:"index"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Index == nil {
		writeError(w, r, validate.New("invalid move", model.Violation{Field: "index", Message: "is required"}))
		return
	}
	id := chi.URLParam(r, "questionID")
	h.edit(w, r, http.StatusOK, func(c *paper.Collection) error {
		return c.Reorder(id, *body.Index)
	})
}

func optionIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, validate.New("invalid option index", model.Violation{Field: "index", Message: "must be an integer"})
	}
	return i, nil
}

func (h *Handler) handleAddOption(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "questionID")
	var index int
	err := d.Edit(func(c *paper.Collection) error {
		var err error
		index, err = c.AddOption(id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"index": index})
}

func (h *Handler) handleUpdateOption(w http.ResponseWriter, r *http.Request) {
	index, err := optionIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "questionID")
	h.edit(w, r, http.StatusOK, func(c *paper.Collection) error {
		return c.UpdateOption(id, index, body.Value)
	})
}

func (h *Handler) handleRemoveOption(w http.ResponseWriter, r *http.Request) {
	index, err := optionIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "questionID")
	h.edit(w, r, http.StatusOK, func(c *paper.Collection) error {
		return c.RemoveOption(id, index)
	})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var in paper.GenerateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user := currentUser(r)
	draftID := chi.URLParam(r, "draftID")
	n, err := h.papers.Generate(r.Context(), draftID, user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.papers.Draft(draftID, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": n, "draft": d.View()})
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	view, err := h.papers.Save(r.Context(), chi.URLParam(r, "draftID"), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handlePrintDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	p := d.Snapshot()
	writePrint(w, r, p.Settings, p.Questions)
}

// writePrint renders the sheet named in the URL as a standalone HTML page.
func writePrint(w http.ResponseWriter, r *http.Request, s model.ExamSettings, qs []model.Question) {
	kind, ok := render.ParseKind(chi.URLParam(r, "sheet"))
	if !ok {
		writeError(w, r, validate.New("unknown sheet", model.Violation{Field: "sheet", Message: "must be exam or answers"}))
		return
	}
	layout := render.ExamLayout(s, qs)
	if kind == render.KindAnswers {
		layout = render.AnswerSheet(s, qs)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.HTML(layout).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
