package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/exampaper/internal/model"
)

// SourceCollection holds the project documents questions are generated from.
const SourceCollection = "sourceDocuments"

type sourceBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func toSource(d Document) (model.SourceDocument, error) {
	var b sourceBody
	if err := json.Unmarshal(d.Body, &b); err != nil {
		return model.SourceDocument{}, fmt.Errorf("decode source document %s: %w", d.ID, err)
	}
	return model.SourceDocument{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		ProjectID: d.ProjectID,
		Title:     b.Title,
		Content:   b.Content,
		CreatedAt: d.CreatedAt,
	}, nil
}

// CreateSourceDocument stores a project document and returns its ID.
func (s *Store) CreateSourceDocument(ctx context.Context, src model.SourceDocument) (string, error) {
	body, err := json.Marshal(sourceBody{Title: src.Title, Content: src.Content})
	if err != nil {
		return "", err
	}
	id, err := s.Create(ctx, SourceCollection, Document{
		OwnerID:   src.OwnerID,
		ProjectID: src.ProjectID,
		Body:      body,
	})
	if err != nil {
		slog.Error("failed to create source document", "owner", src.OwnerID, "project", src.ProjectID, "error", err)
		return "", err
	}
	slog.Info("created source document", "id", id, "owner", src.OwnerID, "project", src.ProjectID, "bytes", len(src.Content))
	return id, nil
}

// ListSourceDocuments returns the owner's documents in a project, oldest first.
func (s *Store) ListSourceDocuments(ctx context.Context, ownerID, projectID string) ([]model.SourceDocument, error) {
	docs, err := s.Query(ctx, SourceCollection, Query{
		Filters: []Filter{{FieldOwnerID, ownerID}, {FieldProjectID, projectID}},
		OrderBy: FieldCreatedAt,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.SourceDocument, 0, len(docs))
	for _, d := range docs {
		src, err := toSource(d)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// SourceDocuments returns the requested documents in the order given. Every
// document must exist and belong to ownerID and projectID.
func (s *Store) SourceDocuments(ctx context.Context, ownerID, projectID string, ids []string) ([]model.SourceDocument, error) {
	out := make([]model.SourceDocument, 0, len(ids))
	for _, id := range ids {
		d, err := s.Get(ctx, SourceCollection, id)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("source document %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		if d.OwnerID != ownerID || d.ProjectID != projectID {
			return nil, fmt.Errorf("source document %s: %w", id, ErrNotFound)
		}
		src, err := toSource(d)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}
