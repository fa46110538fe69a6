package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when an update carries a stale version.
	ErrConflict = errors.New("document version conflict")
	// ErrUnsupportedSort is returned when a query cannot be sorted server-side.
	ErrUnsupportedSort = errors.New("sort not supported by store")
	// ErrUnsupportedFilter is returned for a filter on an unindexed field.
	ErrUnsupportedFilter = errors.New("filter not supported by store")
)

// Indexed document fields usable in filters and sorts.
const (
	FieldOwnerID   = "userId"
	FieldProjectID = "projectId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

var filterColumns = map[string]string{
	FieldOwnerID:   "owner_id",
	FieldProjectID: "project_id",
}

var sortColumns = map[string]string{
	FieldCreatedAt: "created_at",
	FieldUpdatedAt: "updated_at",
}

// Document is one JSON record in a collection. OwnerID and ProjectID are
// indexed copies of fields inside Body.
type Document struct {
	ID        string
	OwnerID   string
	ProjectID string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	Body      json.RawMessage
}

// Filter is an equality filter on an indexed field.
type Filter struct {
	Field string
	Value string
}

// Query selects documents by equality filters with an optional sort.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
}

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		project_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		body TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS documents_owner_project
		ON documents (collection, owner_id, project_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'author',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const documentColumns = `id, owner_id, project_id, created_at, updated_at, version, body`

func scanDocument(sc interface{ Scan(...any) error }) (Document, error) {
	var (
		d                Document
		created, updated int64
		body             string
	)
	if err := sc.Scan(&d.ID, &d.OwnerID, &d.ProjectID, &created, &updated, &d.Version, &body); err != nil {
		return Document{}, err
	}
	d.CreatedAt = time.Unix(0, created).UTC()
	d.UpdatedAt = time.Unix(0, updated).UTC()
	d.Body = json.RawMessage(body)
	return d, nil
}

// Get returns a document by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = ? AND id = ?`, collection, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

// Create inserts a document and returns its new ID. A caller-supplied ID is
// kept; otherwise a UUID is assigned.
func (s *Store) Create(ctx context.Context, collection string, d Document) (string, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	if d.Version == 0 {
		d.Version = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, owner_id, project_id, created_at, updated_at, version, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		collection, d.ID, d.OwnerID, d.ProjectID, d.CreatedAt.UnixNano(), d.UpdatedAt.UnixNano(), d.Version, string(d.Body),
	)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

// Update overwrites a document. d.Version must equal the stored version; the
// stored version is then incremented.
func (s *Store) Update(ctx context.Context, collection string, d Document) error {
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET owner_id = ?, project_id = ?, updated_at = ?, version = version + 1, body = ?
		 WHERE collection = ? AND id = ? AND version = ?`,
		d.OwnerID, d.ProjectID, d.UpdatedAt.UnixNano(), string(d.Body), collection, d.ID, d.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ? AND id = ?`, collection, d.ID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Query returns the documents of a collection matching every filter.
func (s *Store) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection = ?`
	args := []any{collection}
	for _, f := range q.Filters {
		col, ok := filterColumns[f.Field]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, f.Field)
		}
		query += ` AND ` + col + ` = ?`
		args = append(args, f.Value)
	}
	if q.OrderBy != "" {
		col, ok := sortColumns[q.OrderBy]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedSort, q.OrderBy)
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		query += ` ORDER BY ` + col + ` ` + dir + `, id ` + dir
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DocumentCount returns the number of documents in a collection.
func (s *Store) DocumentCount(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&count)
	return count, err
}

// IsUniqueViolation reports whether err is a SQLite uniqueness failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
