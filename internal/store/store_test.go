package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/exampaper/internal/model"
)

const testCollection = "examPapers"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestDocument(t *testing.T, s *Store, owner, project string, created time.Time) string {
	t.Helper()
	id, err := s.Create(context.Background(), testCollection, Document{
		OwnerID:   owner,
		ProjectID: project,
		CreatedAt: created,
		Body:      json.RawMessage(`{"owner":"` + owner + `"}`),
	})
	if err != nil {
		t.Fatalf("insertTestDocument: %v", err)
	}
	return id
}

func TestDocumentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.DocumentCount(ctx, testCollection)
	if err != nil {
		t.Fatalf("DocumentCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 documents, got %d", count)
	}

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id := insertTestDocument(t, s, "alice", "p1", created)
	if id == "" {
		t.Fatal("expected generated ID")
	}

	d, err := s.Get(ctx, testCollection, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.OwnerID != "alice" || d.ProjectID != "p1" {
		t.Errorf("unexpected owner/project: %q/%q", d.OwnerID, d.ProjectID)
	}
	if !d.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, created)
	}
	if d.Version != 1 {
		t.Errorf("Version = %d, want 1", d.Version)
	}

	// Same ID in another collection is a different document.
	if _, err := s.Get(ctx, "other", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound across collections, got %v", err)
	}

	// Not found.
	_, err = s.Get(ctx, testCollection, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Update with the current version succeeds and bumps it.
	d.Body = json.RawMessage(`{"edited":true}`)
	if err := s.Update(ctx, testCollection, d); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Get(ctx, testCollection, id)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if string(got.Body) != `{"edited":true}` {
		t.Errorf("Body = %s", got.Body)
	}
	if got.Version != 2 {
		t.Errorf("Version after update = %d, want 2", got.Version)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("update must not touch CreatedAt")
	}

	// Stale version conflicts.
	if err := s.Update(ctx, testCollection, d); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for stale version, got %v", err)
	}

	// Update of a missing document.
	d.ID = "missing"
	if err := s.Update(ctx, testCollection, d); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing update, got %v", err)
	}

	// Delete.
	if err := s.Delete(ctx, testCollection, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, testCollection, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	old := insertTestDocument(t, s, "alice", "p1", base)
	newer := insertTestDocument(t, s, "alice", "p1", base.Add(time.Hour))
	insertTestDocument(t, s, "alice", "p2", base)
	insertTestDocument(t, s, "bob", "p1", base)

	tests := []struct {
		name      string
		q         Query
		wantCount int
	}{
		{"no filter", Query{}, 4},
		{"by owner", Query{Filters: []Filter{{FieldOwnerID, "alice"}}}, 3},
		{"by project", Query{Filters: []Filter{{FieldProjectID, "p1"}}}, 3},
		{"by both", Query{Filters: []Filter{{FieldOwnerID, "alice"}, {FieldProjectID, "p1"}}}, 2},
		{"no match", Query{Filters: []Filter{{FieldOwnerID, "carol"}}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Query(ctx, testCollection, tt.q)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(docs) != tt.wantCount {
				t.Errorf("expected %d documents, got %d", tt.wantCount, len(docs))
			}
		})
	}

	docs, err := s.Query(ctx, testCollection, Query{
		Filters: []Filter{{FieldOwnerID, "alice"}, {FieldProjectID, "p1"}},
		OrderBy: FieldCreatedAt,
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("sorted Query: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != newer || docs[1].ID != old {
		t.Errorf("expected newest first, got %v", docs)
	}

	if _, err := s.Query(ctx, testCollection, Query{OrderBy: "subject"}); !errors.Is(err, ErrUnsupportedSort) {
		t.Errorf("expected ErrUnsupportedSort, got %v", err)
	}
	if _, err := s.Query(ctx, testCollection, Query{Filters: []Filter{{"subject", "x"}}}); !errors.Is(err, ErrUnsupportedFilter) {
		t.Errorf("expected ErrUnsupportedFilter, got %v", err)
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(model.User{
		Username:     "alice",
		DisplayName:  "Alice",
		PasswordHash: "hash",
		Role:         model.UserRoleAuthor,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || !u.Active || u.Role != model.UserRoleAuthor {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := s.CreateUser(model.User{Username: "alice", DisplayName: "Dup", PasswordHash: "x", Role: model.UserRoleAuthor}); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	missing, err := s.GetUserByID("nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing user, got %v, %v", missing, err)
	}

	if err := s.ToggleUserActive(id); err != nil {
		t.Fatalf("ToggleUserActive: %v", err)
	}
	u, _ = s.GetUserByID(id)
	if u.Active {
		t.Error("expected user to be inactive after toggle")
	}
	if err := s.ToggleUserActive("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound toggling missing user, got %v", err)
	}

	users, err := s.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	uid, err := s.CreateUser(model.User{Username: "bob", DisplayName: "Bob", PasswordHash: "h", Role: model.UserRoleAuthor, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := s.CreateAuthSession(uid)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char token, got %d", len(token))
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != uid {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil || sess != nil {
		t.Errorf("expected nil session after delete, got %+v, %v", sess, err)
	}
}

func TestSourceDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSourceDocument(ctx, model.SourceDocument{OwnerID: "alice", ProjectID: "p1", Title: "Cells", Content: "Mitochondria produce ATP."})
	if err != nil {
		t.Fatalf("CreateSourceDocument: %v", err)
	}
	second, err := s.CreateSourceDocument(ctx, model.SourceDocument{OwnerID: "alice", ProjectID: "p1", Title: "Plants", Content: "Chlorophyll is green."})
	if err != nil {
		t.Fatalf("CreateSourceDocument: %v", err)
	}
	other, err := s.CreateSourceDocument(ctx, model.SourceDocument{OwnerID: "bob", ProjectID: "p1", Title: "Secret", Content: "x"})
	if err != nil {
		t.Fatalf("CreateSourceDocument: %v", err)
	}

	list, err := s.ListSourceDocuments(ctx, "alice", "p1")
	if err != nil {
		t.Fatalf("ListSourceDocuments: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(list))
	}

	docs, err := s.SourceDocuments(ctx, "alice", "p1", []string{second, first})
	if err != nil {
		t.Fatalf("SourceDocuments: %v", err)
	}
	if docs[0].Title != "Plants" || docs[1].Content != "Mitochondria produce ATP." {
		t.Errorf("unexpected documents: %+v", docs)
	}

	if _, err := s.SourceDocuments(ctx, "alice", "p1", []string{other}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for another owner's document, got %v", err)
	}
	if _, err := s.SourceDocuments(ctx, "alice", "p2", []string{first}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for another project, got %v", err)
	}
}
