package paper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/store"
)

func newTestRepository(t *testing.T) (*Repository, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewRepository(s), s
}

// fixedClock returns a clock that advances one minute per call.
func fixedClock() func() time.Time {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func samplePaper(owner, project string) model.ExamPaper {
	s := model.DefaultSettings()
	s.Subject = "Mathematics"
	q := model.NewQuestion(model.MultipleChoice, "q1")
	q.Prompt = "2+2?"
	q.Options = []string{"3", "4"}
	q.Answer = "B"
	return model.ExamPaper{
		OwnerID:   owner,
		ProjectID: project,
		Settings:  s,
		Questions: []model.Question{q, model.NewQuestion(model.YesNo, "q2")},
	}
}

func TestRepositorySaveAndLoad(t *testing.T) {
	repo, _ := newTestRepository(t)
	repo.now = fixedClock()
	ctx := context.Background()

	p := samplePaper("alice", "p1")
	id, err := repo.Save(ctx, &p)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" || p.ID != id || p.Version != 1 || p.CreatedAt.IsZero() {
		t.Fatalf("paper not committed after create: %+v", p)
	}

	got, err := repo.Load(ctx, id, "alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Settings.Subject != "Mathematics" || len(got.Questions) != 2 || got.Questions[0].Answer != "B" {
		t.Errorf("unexpected loaded paper: %+v", got)
	}

	// A second save updates in place.
	p.Settings.Subject = "Algebra"
	id2, err := repo.Save(ctx, &p)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if id2 != id {
		t.Errorf("second save changed id: %s -> %s", id, id2)
	}
	if p.Version != 2 || p.UpdatedAt.IsZero() {
		t.Errorf("expected version 2 with UpdatedAt, got %d %v", p.Version, p.UpdatedAt)
	}
	got, _ = repo.Load(ctx, id, "alice")
	if got.Settings.Subject != "Algebra" || !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("update lost data: %+v", got)
	}
}

func TestRepositoryOwnership(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	p := samplePaper("alice", "p1")
	id, err := repo.Save(ctx, &p)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := repo.Load(ctx, id, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Load by non-owner: expected ErrForbidden, got %v", err)
	}
	if err := repo.Delete(ctx, id, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete by non-owner: expected ErrForbidden, got %v", err)
	}

	stolen := p
	stolen.OwnerID = "mallory"
	if _, err := repo.Save(ctx, &stolen); !errors.Is(err, ErrForbidden) {
		t.Errorf("Save over another owner's paper: expected ErrForbidden, got %v", err)
	}

	if _, err := repo.Load(ctx, "missing", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := repo.Delete(ctx, id, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Load(ctx, id, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRepositoryConflict(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	p := samplePaper("alice", "p1")
	if _, err := repo.Save(ctx, &p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	stale := p
	if _, err := repo.Save(ctx, &p); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if _, err := repo.Save(ctx, &stale); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for stale version, got %v", err)
	}
	if stale.Version != 1 {
		t.Errorf("failed save changed version to %d", stale.Version)
	}
}

func TestRepositoryList(t *testing.T) {
	repo, _ := newTestRepository(t)
	repo.now = fixedClock()
	ctx := context.Background()

	var saved []string
	for _, project := range []string{"p1", "p1", "p2"} {
		p := samplePaper("alice", project)
		id, err := repo.Save(ctx, &p)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		saved = append(saved, id)
	}
	other := samplePaper("bob", "p1")
	if _, err := repo.Save(ctx, &other); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := repo.List(ctx, "alice", "p1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != saved[1] || list[1].ID != saved[0] {
		t.Fatalf("expected newest first for p1, got %+v", list)
	}
	if list[0].Stats.Total != 2 || list[0].Stats.TotalMarks != 5 {
		t.Errorf("unexpected summary stats: %+v", list[0].Stats)
	}

	all, err := repo.List(ctx, "alice", "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 papers across projects, got %d", len(all))
	}
}

// unsortedStore refuses server-side sorting and returns documents in
// insertion order.
type unsortedStore struct {
	*store.Store
	queries int
}

func (u *unsortedStore) Query(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	u.queries++
	if q.OrderBy != "" {
		return nil, store.ErrUnsupportedSort
	}
	return u.Store.Query(ctx, collection, q)
}

func TestRepositoryListSortsClientSide(t *testing.T) {
	_, s := newTestRepository(t)
	us := &unsortedStore{Store: s}
	repo := NewRepository(us)
	repo.now = fixedClock()
	ctx := context.Background()

	var saved []string
	for range 3 {
		p := samplePaper("alice", "p1")
		id, err := repo.Save(ctx, &p)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		saved = append(saved, id)
	}

	list, err := repo.List(ctx, "alice", "p1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if us.queries != 2 {
		t.Errorf("expected a sorted then an unsorted query, got %d queries", us.queries)
	}
	want := []string{saved[2], saved[1], saved[0]}
	for i, s := range list {
		if s.ID != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, s.ID, want[i])
		}
	}
}

// failingStore fails every call with a connectivity error.
type failingStore struct{}

var errOffline = errors.New("connection refused")

func (failingStore) Get(context.Context, string, string) (store.Document, error) {
	return store.Document{}, errOffline
}

func (failingStore) Create(context.Context, string, store.Document) (string, error) {
	return "", errOffline
}

func (failingStore) Update(context.Context, string, store.Document) error { return errOffline }

func (failingStore) Delete(context.Context, string, string) error { return errOffline }

func (failingStore) Query(context.Context, string, store.Query) ([]store.Document, error) {
	return nil, errOffline
}

func TestRepositoryStoreFailure(t *testing.T) {
	repo := NewRepository(failingStore{})
	ctx := context.Background()

	p := samplePaper("alice", "p1")
	before := p
	_, err := repo.Save(ctx, &p)
	if !errors.Is(err, ErrStore) || !errors.Is(err, errOffline) {
		t.Fatalf("expected ErrStore wrapping the cause, got %v", err)
	}
	if !p.IsDraft() || p.Version != before.Version || !p.CreatedAt.IsZero() {
		t.Errorf("failed save mutated the paper: %+v", p)
	}

	if _, err := repo.Load(ctx, "x", "alice"); !errors.Is(err, ErrStore) {
		t.Errorf("Load: expected ErrStore, got %v", err)
	}
	if _, err := repo.List(ctx, "alice", ""); !errors.Is(err, ErrStore) {
		t.Errorf("List: expected ErrStore, got %v", err)
	}
	if err := repo.Delete(ctx, "x", "alice"); !errors.Is(err, ErrStore) {
		t.Errorf("Delete: expected ErrStore, got %v", err)
	}
}
