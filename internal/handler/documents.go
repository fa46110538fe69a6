package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/validate"
)

const maxDocumentSize = 10 << 20

type sourceUpload struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func (h *Handler) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.config.StoreTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.config.StoreTimeout)
}

// readUpload accepts either a JSON body or a multipart form with a "file" part.
func readUpload(w http.ResponseWriter, r *http.Request) (sourceUpload, error) {
	var up sourceUpload
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		err := decodeJSON(w, r, &up)
		return up, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		return up, validate.New("file too large or malformed form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return up, validate.New("no file uploaded", model.Violation{Field: "file", Message: "is required"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return up, err
	}
	if !utf8.Valid(data) {
		return up, validate.New("unsupported file", model.Violation{Field: "file", Message: "must be UTF-8 text"})
	}
	up.Content = string(data)
	up.Title = r.FormValue("title")
	if up.Title == "" {
		up.Title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	return up, nil
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	up.Title = strings.TrimSpace(up.Title)
	if err := validate.Struct(up); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := h.storeContext(r)
	defer cancel()
	src := model.SourceDocument{
		OwnerID:   currentUser(r).ID,
		ProjectID: chi.URLParam(r, "projectID"),
		Title:     up.Title,
		Content:   up.Content,
	}
	id, err := h.store.CreateSourceDocument(ctx, src)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "title": src.Title, "bytes": len(src.Content)})
}

// documentSummary omits the document text from listings.
type documentSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Bytes int    `json:"bytes"`
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r)
	defer cancel()
	docs, err := h.store.ListSourceDocuments(ctx, currentUser(r).ID, chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentSummary{ID: d.ID, Title: d.Title, Bytes: len(d.Content)})
	}
	writeJSON(w, http.StatusOK, out)
}
