package paper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/store"
)

// Collection name papers are stored under.
const PapersCollection = "examPapers"

var (
	ErrNotFound  = errors.New("paper not found")
	ErrForbidden = errors.New("paper belongs to another user")
	ErrConflict  = errors.New("paper changed elsewhere, reload before saving")
	ErrStore     = errors.New("paper store unavailable")
)

// DocumentStore is the document database the repository persists papers in.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (store.Document, error)
	Create(ctx context.Context, collection string, d store.Document) (string, error)
	Update(ctx context.Context, collection string, d store.Document) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q store.Query) ([]store.Document, error)
}

// record is the stored body of a paper document.
type record struct {
	OwnerID   string             `json:"userId"`
	ProjectID string             `json:"projectId"`
	Settings  model.ExamSettings `json:"settings"`
	Questions []model.Question   `json:"questions"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt,omitzero"`
}

// Repository maps papers to and from documents, scoping every access by owner.
type Repository struct {
	docs DocumentStore
	now  func() time.Time
}

func NewRepository(docs DocumentStore) *Repository {
	return &Repository{docs: docs, now: func() time.Time { return time.Now().UTC() }}
}

// storeErr wraps a store failure, translating the store's sentinels.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// authorize reports whether userID may access a paper owned by ownerID.
func authorize(ownerID, userID string) error {
	if userID == "" || ownerID != userID {
		return ErrForbidden
	}
	return nil
}

func decode(d store.Document) (model.ExamPaper, error) {
	var r record
	if err := json.Unmarshal(d.Body, &r); err != nil {
		return model.ExamPaper{}, fmt.Errorf("decode paper %s: %w: %w", d.ID, ErrStore, err)
	}
	p := model.ExamPaper{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		ProjectID: d.ProjectID,
		Settings:  r.Settings,
		Questions: r.Questions,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Version:   d.Version,
	}
	if p.Questions == nil {
		p.Questions = []model.Question{}
	}
	return p, nil
}

func encode(p model.ExamPaper) (store.Document, error) {
	body, err := json.Marshal(record{
		OwnerID:   p.OwnerID,
		ProjectID: p.ProjectID,
		Settings:  p.Settings,
		Questions: p.Questions,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
	if err != nil {
		return store.Document{}, err
	}
	return store.Document{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		ProjectID: p.ProjectID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Version:   p.Version,
		Body:      body,
	}, nil
}

// Load returns the paper if userID owns it.
func (r *Repository) Load(ctx context.Context, paperID, userID string) (model.ExamPaper, error) {
	d, err := r.docs.Get(ctx, PapersCollection, paperID)
	if err != nil {
		return model.ExamPaper{}, storeErr("load paper", err)
	}
	if err := authorize(d.OwnerID, userID); err != nil {
		slog.Warn("paper access denied", "paper_id", paperID, "user_id", userID)
		return model.ExamPaper{}, err
	}
	return decode(d)
}

// Save creates p when it is a draft and updates it in place otherwise. The
// settings and questions are written as one document. p is only modified
// once the store has accepted the write.
func (r *Repository) Save(ctx context.Context, p *model.ExamPaper) (string, error) {
	if p.OwnerID == "" {
		return "", ErrForbidden
	}
	next := *p
	next.Questions = make([]model.Question, len(p.Questions))
	for i, q := range p.Questions {
		next.Questions[i] = q.Clone()
	}
	now := r.now()

	if next.IsDraft() {
		next.CreatedAt = now
		next.UpdatedAt = time.Time{}
		next.Version = 1
		d, err := encode(next)
		if err != nil {
			return "", err
		}
		id, err := r.docs.Create(ctx, PapersCollection, d)
		if err != nil {
			return "", storeErr("create paper", err)
		}
		next.ID = id
		slog.Info("created paper", "id", id, "owner", next.OwnerID, "questions", len(next.Questions))
		*p = next
		return id, nil
	}

	current, err := r.docs.Get(ctx, PapersCollection, next.ID)
	if err != nil {
		return "", storeErr("save paper", err)
	}
	if err := authorize(current.OwnerID, next.OwnerID); err != nil {
		return "", err
	}
	next.UpdatedAt = now
	d, err := encode(next)
	if err != nil {
		return "", err
	}
	if err := r.docs.Update(ctx, PapersCollection, d); err != nil {
		return "", storeErr("update paper", err)
	}
	next.Version++
	slog.Info("updated paper", "id", next.ID, "owner", next.OwnerID, "version", next.Version)
	*p = next
	return next.ID, nil
}

// Delete removes a paper owned by userID.
func (r *Repository) Delete(ctx context.Context, paperID, userID string) error {
	d, err := r.docs.Get(ctx, PapersCollection, paperID)
	if err != nil {
		return storeErr("delete paper", err)
	}
	if err := authorize(d.OwnerID, userID); err != nil {
		slog.Warn("paper delete denied", "paper_id", paperID, "user_id", userID)
		return err
	}
	if err := r.docs.Delete(ctx, PapersCollection, paperID); err != nil {
		return storeErr("delete paper", err)
	}
	slog.Info("deleted paper", "id", paperID, "owner", userID)
	return nil
}

// List returns summaries of the owner's papers, newest first. An empty
// projectID lists every project.
func (r *Repository) List(ctx context.Context, ownerID, projectID string) ([]model.PaperSummary, error) {
	if ownerID == "" {
		return nil, ErrForbidden
	}
	q := store.Query{
		Filters: []store.Filter{{Field: store.FieldOwnerID, Value: ownerID}},
		OrderBy: store.FieldCreatedAt,
		Desc:    true,
	}
	if projectID != "" {
		q.Filters = append(q.Filters, store.Filter{Field: store.FieldProjectID, Value: projectID})
	}

	docs, err := r.docs.Query(ctx, PapersCollection, q)
	sorted := true
	if errors.Is(err, store.ErrUnsupportedSort) {
		q.OrderBy, q.Desc = "", false
		docs, err = r.docs.Query(ctx, PapersCollection, q)
		sorted = false
	}
	if err != nil {
		return nil, storeErr("list papers", err)
	}

	out := make([]model.PaperSummary, 0, len(docs))
	for _, d := range docs {
		if d.OwnerID != ownerID {
			continue
		}
		p, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Summarize(p))
	}
	if !sorted {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID > out[j].ID
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out, nil
}
