package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evanschultz/lanes/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "lanes.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exported_at"`
	Lanes      []SnapshotLane      `json:"lanes"`
	Todos      []SnapshotTodo      `json:"todos"`
	Tombstones []SnapshotTombstone `json:"tombstones,omitempty"`
}

// SnapshotLane represents one lane title in a snapshot.
type SnapshotLane struct {
	Status domain.Status `json:"status"`
	Title  string        `json:"title"`
}

// SnapshotTodo represents snapshot todo data used by this package.
type SnapshotTodo struct {
	ID        int           `json:"id"`
	Text      string        `json:"todo"`
	Completed bool          `json:"completed"`
	UserID    int           `json:"userId"`
	Status    domain.Status `json:"status"`
	Position  int           `json:"position"`
	Origin    domain.Origin `json:"origin"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SnapshotTombstone records one deleted todo id.
type SnapshotTombstone struct {
	TodoID    int       `json:"todo_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ExportSnapshot captures the local board overlay.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.board(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	tombs, err := s.store.ListTombstones(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Lanes:      make([]SnapshotLane, 0, len(s.lanes)),
		Todos:      make([]SnapshotTodo, 0),
		Tombstones: make([]SnapshotTombstone, 0, len(tombs)),
	}
	for _, lane := range s.lanes {
		snap.Lanes = append(snap.Lanes, SnapshotLane{Status: lane.Status, Title: lane.Title})
	}
	for _, todo := range board.Todos() {
		snap.Todos = append(snap.Todos, snapshotTodoFromDomain(todo))
	}
	for _, tomb := range tombs {
		snap.Tombstones = append(snap.Tombstones, SnapshotTombstone{TodoID: tomb.TodoID, DeletedAt: tomb.DeletedAt.UTC()})
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot replaces the local overlay with the snapshot contents.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	s.mu.Lock()
	defer s.mu.Unlock()

	todos := make([]domain.Todo, 0, len(snap.Todos))
	for _, todo := range snap.Todos {
		todos = append(todos, todo.toDomain())
	}
	board := domain.NewBoard(s.lanes, todos)
	if err := s.store.ReplaceTodos(ctx, board.Todos()); err != nil {
		return err
	}
	if err := s.store.ClearTombstones(ctx); err != nil {
		return err
	}
	for _, tomb := range snap.Tombstones {
		if err := s.store.PutTombstone(ctx, domain.Tombstone{TodoID: tomb.TodoID, DeletedAt: tomb.DeletedAt.UTC()}); err != nil {
			return err
		}
	}
	return s.record(ctx, 0, domain.ChangeOperationSync, "imported snapshot", map[string]string{
		"todos":      fmt.Sprint(len(snap.Todos)),
		"tombstones": fmt.Sprint(len(snap.Tombstones)),
	})
}

// Validate checks snapshot integrity before import.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	ids := map[int]struct{}{}
	for idx, todo := range s.Todos {
		if todo.ID <= 0 {
			return fmt.Errorf("todos[%d]: %w", idx, domain.ErrInvalidID)
		}
		if _, exists := ids[todo.ID]; exists {
			return fmt.Errorf("todos[%d]: duplicate todo id %d", idx, todo.ID)
		}
		ids[todo.ID] = struct{}{}
		if strings.TrimSpace(todo.Text) == "" {
			return fmt.Errorf("todos[%d]: %w", idx, domain.ErrInvalidText)
		}
		if todo.UserID <= 0 {
			return fmt.Errorf("todos[%d]: %w", idx, domain.ErrInvalidOwner)
		}
		if !todo.Status.Valid() {
			return fmt.Errorf("todos[%d]: %w", idx, domain.ErrInvalidStatus)
		}
		if todo.Position < 0 {
			return fmt.Errorf("todos[%d]: %w", idx, domain.ErrInvalidPosition)
		}
		switch todo.Origin {
		case "", domain.OriginRemote, domain.OriginLocal:
		default:
			return fmt.Errorf("todos[%d]: unsupported origin %q", idx, todo.Origin)
		}
	}
	for idx, tomb := range s.Tombstones {
		if tomb.TodoID <= 0 {
			return fmt.Errorf("tombstones[%d]: %w", idx, domain.ErrInvalidID)
		}
		if _, live := ids[tomb.TodoID]; live {
			return fmt.Errorf("tombstones[%d]: todo %d is both live and deleted", idx, tomb.TodoID)
		}
	}
	return nil
}

// DecodeSnapshot parses one snapshot document.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Encode renders the snapshot as indented JSON.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

func (s *Snapshot) sort() {
	sort.SliceStable(s.Lanes, func(i, j int) bool {
		return s.Lanes[i].Status.Index() < s.Lanes[j].Status.Index()
	})
	sort.SliceStable(s.Todos, func(i, j int) bool {
		a, b := s.Todos[i], s.Todos[j]
		if a.Status != b.Status {
			return a.Status.Index() < b.Status.Index()
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	sort.SliceStable(s.Tombstones, func(i, j int) bool {
		return s.Tombstones[i].TodoID < s.Tombstones[j].TodoID
	})
}

func snapshotTodoFromDomain(t domain.Todo) SnapshotTodo {
	return SnapshotTodo{
		ID:        t.ID,
		Text:      t.Text,
		Completed: t.Completed,
		UserID:    t.UserID,
		Status:    t.Status,
		Position:  t.Position,
		Origin:    t.Origin,
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (t SnapshotTodo) toDomain() domain.Todo {
	origin := t.Origin
	if origin == "" {
		origin = domain.OriginRemote
	}
	return domain.Todo{
		ID:        t.ID,
		Text:      strings.TrimSpace(t.Text),
		Completed: t.Status == domain.StatusCompleted,
		UserID:    t.UserID,
		Status:    t.Status,
		Position:  t.Position,
		Origin:    origin,
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}
