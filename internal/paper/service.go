package paper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/exampaper/internal/generate"
	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/validate"
)

const (
	DefaultStoreTimeout    = 10 * time.Second
	DefaultGenerateTimeout = 120 * time.Second
	DefaultSessionID       = "default"
)

// ErrNoGenerator is returned when generation is requested but not configured.
var ErrNoGenerator = errors.New("question generation is not configured")

// Service ties drafts, persistence and generation together.
type Service struct {
	repo      *Repository
	workspace *Workspace
	gen       generate.Generator
	cfg       model.AppConfig
}

// NewService returns a Service. gen may be nil, in which case Generate fails
// with ErrNoGenerator. Zero timeouts in cfg fall back to the defaults.
func NewService(repo *Repository, ws *Workspace, gen generate.Generator, cfg model.AppConfig) *Service {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = DefaultGenerateTimeout
	}
	if cfg.DefaultSessionID == "" {
		cfg.DefaultSessionID = DefaultSessionID
	}
	return &Service{repo: repo, workspace: ws, gen: gen, cfg: cfg}
}

// Workspace returns the draft workspace.
func (s *Service) Workspace() *Workspace {
	return s.workspace
}

// NewDraft opens an empty paper with default settings.
func (s *Service) NewDraft(ownerID, projectID string) (DraftView, error) {
	if ownerID == "" {
		return DraftView{}, ErrForbidden
	}
	d := s.workspace.Open(model.ExamPaper{
		OwnerID:   ownerID,
		ProjectID: projectID,
		Settings:  model.DefaultSettings(),
	})
	slog.Info("opened new draft", "draft_id", d.ID, "owner", ownerID, "project", projectID)
	return d.View(), nil
}

// OpenPaper loads a persisted paper into a new draft. No draft is opened
// when the load fails.
func (s *Service) OpenPaper(ctx context.Context, paperID, ownerID string) (DraftView, error) {
	p, err := s.LoadPaper(ctx, paperID, ownerID)
	if err != nil {
		return DraftView{}, err
	}
	d := s.workspace.Open(p)
	slog.Info("opened paper for editing", "draft_id", d.ID, "paper_id", paperID, "owner", ownerID)
	return d.View(), nil
}

// Draft returns an open draft of ownerID.
func (s *Service) Draft(draftID, ownerID string) (*Draft, error) {
	return s.workspace.Get(draftID, ownerID)
}

// CloseDraft discards a draft without saving.
func (s *Service) CloseDraft(draftID, ownerID string) error {
	return s.workspace.Close(draftID, ownerID)
}

// GenerateInput is what the author picks for one generation batch.
type GenerateInput struct {
	DocumentIDs []string           `json:"documentIds"`
	Type        model.QuestionType `json:"type"`
	Difficulty  model.Difficulty   `json:"difficulty"`
	Count       int                `json:"count"`
}

// Generate requests a batch of questions and appends them to the draft. On
// failure nothing is appended. It returns the number of questions added.
func (s *Service) Generate(ctx context.Context, draftID, ownerID string, in GenerateInput) (int, error) {
	if s.gen == nil {
		return 0, ErrNoGenerator
	}
	d, err := s.workspace.Get(draftID, ownerID)
	if err != nil {
		return 0, err
	}
	view := d.View()
	req := generate.Request{
		OwnerID:     ownerID,
		SessionID:   s.cfg.DefaultSessionID,
		ProjectID:   view.ProjectID,
		DocumentIDs: in.DocumentIDs,
		Type:        in.Type,
		Difficulty:  in.Difficulty,
		Count:       in.Count,
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}

	if err := d.begin(Generating); err != nil {
		return 0, err
	}
	defer d.end()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()
	items, err := s.gen.Generate(ctx, req)
	if err != nil {
		slog.Error("question generation failed", "draft_id", draftID, "error", err)
		return 0, err
	}

	var n int
	_ = d.Edit(func(c *Collection) error {
		n = c.AppendGenerated(items)
		return nil
	})
	slog.Info("appended generated questions", "draft_id", draftID, "count", n)
	return n, nil
}

// Save persists the draft, creating the paper on first save. A failed save
// leaves the draft's persisted state as it was.
func (s *Service) Save(ctx context.Context, draftID, ownerID string) (DraftView, error) {
	d, err := s.workspace.Get(draftID, ownerID)
	if err != nil {
		return DraftView{}, err
	}
	if err := d.begin(Saving); err != nil {
		return DraftView{}, err
	}
	defer d.end()

	p := d.Snapshot()
	if err := checkSavable(p); err != nil {
		return DraftView{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if _, err := s.repo.Save(ctx, &p); err != nil {
		return DraftView{}, err
	}
	d.markSaved(p)
	return d.View(), nil
}

func checkSavable(p model.ExamPaper) error {
	var vs []model.Violation
	if strings.TrimSpace(p.Settings.Subject) == "" {
		vs = append(vs, model.Violation{Field: "subject", Message: "enter a subject name"})
	}
	if len(p.Questions) == 0 {
		vs = append(vs, model.Violation{Field: "questions", Message: "add at least one question"})
	}
	if len(vs) > 0 {
		return validate.New("paper cannot be saved", vs...)
	}
	return nil
}

// LoadPaper returns a persisted paper owned by ownerID.
func (s *Service) LoadPaper(ctx context.Context, paperID, ownerID string) (model.ExamPaper, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.repo.Load(ctx, paperID, ownerID)
}

// DeletePaper removes a persisted paper. Open drafts of it keep their
// contents, but saving them afterwards fails with ErrNotFound.
func (s *Service) DeletePaper(ctx context.Context, paperID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.repo.Delete(ctx, paperID, ownerID)
}

// ListPapers returns the owner's paper summaries, newest first.
func (s *Service) ListPapers(ctx context.Context, ownerID, projectID string) ([]model.PaperSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.repo.List(ctx, ownerID, projectID)
}
