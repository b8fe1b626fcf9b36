package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/lanes/internal/app"
	"github.com/evanschultz/lanes/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores the local board overlay.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would get its own empty database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS todos (
			id INTEGER PRIMARY KEY,
			text TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			user_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			position INTEGER NOT NULL DEFAULT 0,
			origin TEXT NOT NULL DEFAULT 'remote',
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tombstones (
			todo_id INTEGER PRIMARY KEY,
			deleted_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL DEFAULT '',
			todo_id INTEGER NOT NULL DEFAULT 0,
			operation TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_todos_status_position ON todos(status, position);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_created_at ON change_events(created_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

const todoColumns = `id, text, completed, user_id, status, position, origin, updated_at`

// ListTodos returns every stored todo in lane order.
func (r *Repository) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+todoColumns+`
		FROM todos
		ORDER BY CASE status WHEN 'pending' THEN 0 WHEN 'in-progress' THEN 1 WHEN 'completed' THEN 2 ELSE 3 END, position ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, todo)
	}
	return out, rows.Err()
}

// GetTodo returns one todo by id.
func (r *Repository) GetTodo(ctx context.Context, id int) (domain.Todo, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Todo{}, app.ErrNotFound
	}
	return todo, err
}

// UpsertTodo inserts or replaces one todo.
func (r *Repository) UpsertTodo(ctx context.Context, todo domain.Todo) error {
	return upsertTodo(ctx, r.db, todo)
}

// ReplaceTodos swaps the whole todo layout in one transaction.
func (r *Repository) ReplaceTodos(ctx context.Context, todos []domain.Todo) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM todos`); err != nil {
		return err
	}
	for _, todo := range todos {
		if err = upsertTodo(ctx, tx, todo); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// DeleteTodo removes one todo and tombstones its id.
func (r *Repository) DeleteTodo(ctx context.Context, id int, at time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	if err = putTombstone(ctx, tx, domain.Tombstone{TodoID: id, DeletedAt: at}); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// ListTombstones returns deleted todo ids, oldest id first.
func (r *Repository) ListTombstones(ctx context.Context) ([]domain.Tombstone, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT todo_id, deleted_at FROM tombstones ORDER BY todo_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Tombstone, 0)
	for rows.Next() {
		var (
			tomb       domain.Tombstone
			deletedRaw string
		)
		if err := rows.Scan(&tomb.TodoID, &deletedRaw); err != nil {
			return nil, err
		}
		tomb.DeletedAt = parseTS(deletedRaw)
		out = append(out, tomb)
	}
	return out, rows.Err()
}

// PutTombstone records one deleted todo id.
func (r *Repository) PutTombstone(ctx context.Context, tomb domain.Tombstone) error {
	return putTombstone(ctx, r.db, tomb)
}

// ClearTombstones forgets every deleted todo id.
func (r *Repository) ClearTombstones(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tombstones`)
	return err
}

// RecordChangeEvent appends one activity entry.
func (r *Repository) RecordChangeEvent(ctx context.Context, event domain.ChangeEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO change_events(event_id, todo_id, operation, summary, metadata_json, created_at)
		VALUES(?, ?, ?, ?, ?, ?)
	`, event.ID, event.TodoID, string(event.Operation), event.Summary, string(metadataJSON), ts(occurredAt))
	return err
}

// ListChangeEvents returns activity entries newest first.
func (r *Repository) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, todo_id, operation, summary, metadata_json, created_at
		FROM change_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.TodoID, &opRaw, &event.Summary, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = normalizeChangeOperation(opRaw)
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// execerContext is satisfied by *sql.DB and *sql.Tx.
type execerContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTodo(ctx context.Context, execer execerContext, todo domain.Todo) error {
	updatedAt := todo.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	origin := todo.Origin
	if origin == "" {
		origin = domain.OriginRemote
	}
	_, err := execer.ExecContext(ctx, `
		INSERT INTO todos(`+todoColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			completed = excluded.completed,
			user_id = excluded.user_id,
			status = excluded.status,
			position = excluded.position,
			origin = excluded.origin,
			updated_at = excluded.updated_at
	`, todo.ID, todo.Text, boolToInt(todo.Completed), todo.UserID, string(todo.Status), todo.Position, string(origin), ts(updatedAt))
	return err
}

func putTombstone(ctx context.Context, execer execerContext, tomb domain.Tombstone) error {
	at := tomb.DeletedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := execer.ExecContext(ctx, `
		INSERT INTO tombstones(todo_id, deleted_at) VALUES(?, ?)
		ON CONFLICT(todo_id) DO UPDATE SET deleted_at = excluded.deleted_at
	`, tomb.TodoID, ts(at))
	return err
}

// normalizeChangeOperation maps stored operation text onto known values.
func normalizeChangeOperation(raw string) domain.ChangeOperation {
	switch op := domain.ChangeOperation(strings.TrimSpace(strings.ToLower(raw))); op {
	case domain.ChangeOperationCreate,
		domain.ChangeOperationUpdate,
		domain.ChangeOperationMove,
		domain.ChangeOperationReorder,
		domain.ChangeOperationDelete,
		domain.ChangeOperationSync:
		return op
	default:
		return domain.ChangeOperationUpdate
	}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTodo handles scan todo.
func scanTodo(s scanner) (domain.Todo, error) {
	var (
		todo       domain.Todo
		completed  int
		statusRaw  string
		originRaw  string
		updatedRaw string
	)
	if err := s.Scan(&todo.ID, &todo.Text, &completed, &todo.UserID, &statusRaw, &todo.Position, &originRaw, &updatedRaw); err != nil {
		return domain.Todo{}, err
	}
	todo.Completed = completed != 0
	todo.Status = domain.Status(statusRaw)
	if !todo.Status.Valid() {
		todo.Status = domain.StatusFromCompleted(todo.Completed)
	}
	todo.Origin = domain.Origin(originRaw)
	if todo.Origin != domain.OriginLocal {
		todo.Origin = domain.OriginRemote
	}
	todo.UpdatedAt = parseTS(updatedRaw)
	return todo, nil
}

func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
