package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examportal/internal/model"

	_ "modernc.org/sqlite"
)

// Collection names.
const (
	CollStudents     = "students"
	CollTests        = "tests"
	CollResults      = "results"
	CollChats        = "chats"
	CollStatus       = "status"
	CollUsers        = "users"
	CollAuthSessions = "auth_sessions"
	CollMeta         = "meta"
)

// timeLayout is fixed-width so stored timestamps also sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type serverTimestamp struct{}

// ServerTimestamp is a field value placeholder replaced with the store's clock
// at write time.
var ServerTimestamp = serverTimestamp{}

// Document is one stored document with its decoded fields.
type Document struct {
	Collection string
	ID         string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo decodes the document fields into v.
func (d Document) DataTo(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Store is a document store with live queries backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time

	mu       sync.Mutex
	watchers map[string]map[*Subscription]struct{}
}

func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	memory := dbPath == ":memory:"
	if memory {
		dsn = dbPath
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// Every new connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{
		db:       db,
		now:      time.Now,
		watchers: make(map[string]map[*Subscription]struct{}),
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the clock used for server timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS documents_collection ON documents(collection);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns a single document or model.ErrNotFound.
func (s *Store) Get(ctx context.Context, coll, id string) (*Document, error) {
	d := Document{Collection: coll, ID: id}
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`, coll, id,
	).Scan(&raw, &d.CreateTime, &d.UpdateTime)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, model.Transient("get "+coll+"/"+id, err)
	}
	if err := json.Unmarshal([]byte(raw), &d.Data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", coll, id, err)
	}
	return &d, nil
}

// Add stores v under a generated id and returns that id.
func (s *Store) Add(ctx context.Context, coll string, v any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, coll, id, v); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or fully overwrites a document.
func (s *Store) Set(ctx context.Context, coll, id string, v any) error {
	fields, err := s.toFields(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		coll, id, string(raw), now, now,
	)
	if err != nil {
		return model.Transient("set "+coll+"/"+id, err)
	}
	s.notify(coll)
	return nil
}

// Merge upserts the given top-level fields, leaving other fields untouched.
func (s *Store) Merge(ctx context.Context, coll, id string, fields map[string]any) error {
	return s.patch(ctx, coll, id, fields, true)
}

// Update changes the given top-level fields of an existing document.
// It returns model.ErrNotFound when the document does not exist.
func (s *Store) Update(ctx context.Context, coll, id string, fields map[string]any) error {
	return s.patch(ctx, coll, id, fields, false)
}

func (s *Store) patch(ctx context.Context, coll, id string, fields map[string]any, upsert bool) error {
	op := "update " + coll + "/" + id
	patch, err := s.toFields(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transient(op, err)
	}
	defer tx.Rollback()

	existing := map[string]any{}
	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, coll, id,
	).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		if !upsert {
			return model.ErrNotFound
		}
	case err != nil:
		return model.Transient(op, err)
	default:
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return fmt.Errorf("decode %s/%s: %w", coll, id, err)
		}
	}
	for k, v := range patch {
		existing[k] = v
	}
	merged, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}

	now := s.now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		coll, id, string(merged), now, now,
	)
	if err != nil {
		return model.Transient(op, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Transient(op, err)
	}
	s.notify(coll)
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, coll, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, coll, id)
	if err != nil {
		return model.Transient("delete "+coll+"/"+id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notify(coll)
	}
	return nil
}

// Query returns the documents matching q.
func (s *Store) Query(ctx context.Context, q Query) ([]Document, error) {
	op := "query " + q.Collection
	sqlText := `SELECT id, data, created_at, updated_at FROM documents WHERE collection = ?`
	args := []any{q.Collection}
	if q.ID != "" {
		sqlText += ` AND id = ?`
		args = append(args, q.ID)
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, model.Transient(op, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d := Document{Collection: q.Collection}
		var raw string
		if err := rows.Scan(&d.ID, &raw, &d.CreateTime, &d.UpdateTime); err != nil {
			return nil, model.Transient(op, err)
		}
		if err := json.Unmarshal([]byte(raw), &d.Data); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Collection, d.ID, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient(op, err)
	}
	return q.apply(docs), nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, coll string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, coll).Scan(&count)
	if err != nil {
		return 0, model.Transient("count "+coll, err)
	}
	return count, nil
}

// toFields converts v to a field map, resolving ServerTimestamp placeholders.
func (s *Store) toFields(v any) (map[string]any, error) {
	var fields map[string]any
	if m, ok := v.(map[string]any); ok {
		fields = make(map[string]any, len(m))
		for k, val := range m {
			if _, ok := val.(serverTimestamp); ok {
				val = s.now().UTC().Format(timeLayout)
			}
			fields[k] = val
		}
		v = fields
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields = nil
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("document must encode to a JSON object")
	}
	for k := range fields {
		if strings.TrimSpace(k) == "" {
			return nil, errors.New("empty field name")
		}
	}
	return fields, nil
}
