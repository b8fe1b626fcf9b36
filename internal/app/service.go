package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/lanes/internal/domain"
)

// defaultActivityLimit caps activity listings when callers pass no limit.
const defaultActivityLimit = 50

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Lanes        []domain.Lane
	PersistLocal bool
}

// IDGenerator returns unique identifiers for change events.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service orchestrates the remote todos API and the local board overlay.
type Service struct {
	remote       RemoteTodos
	store        Store
	idGen        IDGenerator
	clock        Clock
	lanes        []domain.Lane
	persistLocal bool

	mu sync.Mutex
	// remoteTotal is the largest todo count the API has reported; its ids run 1..total.
	remoteTotal int
}

// NewService constructs a new value for this package.
func NewService(remote RemoteTodos, store Store, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		remote:       remote,
		store:        store,
		idGen:        idGen,
		clock:        clock,
		lanes:        domain.NormalizeLanes(cfg.Lanes),
		persistLocal: cfg.PersistLocal,
	}
}

// Lanes returns the configured lane titles in display order.
func (s *Service) Lanes() []domain.Lane {
	return append([]domain.Lane(nil), s.lanes...)
}

// BoardLoad is the outcome of one board load.
type BoardLoad struct {
	Board  domain.Board
	Stale  bool
	Err    error
	Notice Notice
}

// Result carries the todo an operation touched plus its user-facing notice.
type Result struct {
	Todo   domain.Todo
	Notice Notice
}

// LoadBoard fetches the remote todos and merges them with the local overlay.
// When the remote call fails the cached board is returned marked stale.
func (s *Service) LoadBoard(ctx context.Context) (BoardLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, remoteErr := s.remote.ListTodos(ctx)
	if remoteErr != nil {
		log.Warn("load todos failed; serving cached board", "err", remoteErr)
		cached, err := s.board(ctx)
		if err != nil {
			return BoardLoad{}, err
		}
		return BoardLoad{
			Board:  cached,
			Stale:  true,
			Err:    remoteErr,
			Notice: NoticeFor(OperationLoad, remoteErr),
		}, nil
	}

	remoteTodos := page.Todos
	s.remoteTotal = max(s.remoteTotal, page.Total)

	var (
		cached []domain.Todo
		tombs  []domain.Tombstone
		err    error
	)
	if s.persistLocal {
		cached, err = s.store.ListTodos(ctx)
		if err != nil {
			return BoardLoad{}, err
		}
		tombs, err = s.store.ListTombstones(ctx)
		if err != nil {
			return BoardLoad{}, err
		}
	} else if err := s.store.ClearTombstones(ctx); err != nil {
		return BoardLoad{}, err
	}

	board := mergeBoard(s.lanes, remoteTodos, cached, tombs, s.clock())
	if err := s.store.ReplaceTodos(ctx, board.Todos()); err != nil {
		return BoardLoad{}, err
	}
	if err := s.record(ctx, 0, domain.ChangeOperationSync, "synced board", map[string]string{
		"remote": strconv.Itoa(len(remoteTodos)),
		"total":  strconv.Itoa(len(board.Todos())),
	}); err != nil {
		return BoardLoad{}, err
	}
	return BoardLoad{Board: board, Notice: NoticeFor(OperationLoad, nil)}, nil
}

// mergeBoard lays remote todos over the cached overlay.
// Cached rows win for text, status and layout; unseen remote todos append to their lane.
func mergeBoard(lanes []domain.Lane, remoteTodos, cached []domain.Todo, tombs []domain.Tombstone, now time.Time) domain.Board {
	deleted := make(map[int]struct{}, len(tombs))
	for _, tomb := range tombs {
		deleted[tomb.TodoID] = struct{}{}
	}
	cachedByID := make(map[int]domain.Todo, len(cached))
	for _, todo := range cached {
		cachedByID[todo.ID] = todo
	}

	keep := make([]domain.Todo, 0, len(remoteTodos)+len(cached))
	fresh := make([]domain.Todo, 0, len(remoteTodos))
	seen := make(map[int]struct{}, len(remoteTodos))
	for _, todo := range remoteTodos {
		if _, gone := deleted[todo.ID]; gone {
			continue
		}
		if _, dup := seen[todo.ID]; dup {
			continue
		}
		seen[todo.ID] = struct{}{}
		todo.Origin = domain.OriginRemote
		if prev, ok := cachedByID[todo.ID]; ok {
			todo.Text = prev.Text
			todo.Status = prev.Status
			todo.Completed = prev.Status == domain.StatusCompleted
			todo.Position = prev.Position
			todo.UpdatedAt = prev.UpdatedAt
			keep = append(keep, todo)
			continue
		}
		todo.Status = domain.StatusFromCompleted(todo.Completed)
		todo.UpdatedAt = now.UTC()
		fresh = append(fresh, todo)
	}
	for _, todo := range cached {
		if todo.Origin != domain.OriginLocal {
			continue
		}
		if _, gone := deleted[todo.ID]; gone {
			continue
		}
		if _, dup := seen[todo.ID]; dup {
			continue
		}
		keep = append(keep, todo)
	}

	board := domain.NewBoard(lanes, keep)
	for _, todo := range fresh {
		board.Append(todo)
	}
	return board
}

// Board returns the current overlay without contacting the remote API.
func (s *Service) Board(ctx context.Context) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board(ctx)
}

func (s *Service) board(ctx context.Context) (domain.Board, error) {
	todos, err := s.store.ListTodos(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	return domain.NewBoard(s.lanes, todos), nil
}

// CreateTodo adds a todo at the end of the in-progress lane.
// The API is told the todo is pending; the board starts it in progress.
func (s *Service) CreateTodo(ctx context.Context, text string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, err := s.createTodo(ctx, text)
	if err != nil {
		log.Error("add todo failed", "err", err)
		return Result{Notice: NoticeFor(OperationCreate, err)}, err
	}
	return Result{Todo: todo, Notice: NoticeFor(OperationCreate, nil)}, nil
}

func (s *Service) createTodo(ctx context.Context, text string) (domain.Todo, error) {
	board, err := s.board(ctx)
	if err != nil {
		return domain.Todo{}, err
	}
	id, err := s.nextID(ctx, board)
	if err != nil {
		return domain.Todo{}, err
	}
	now := s.clock()
	todo, err := domain.NewTodo(domain.TodoInput{
		ID:     id,
		Text:   text,
		UserID: id,
		Status: domain.StatusPending,
		Origin: domain.OriginLocal,
	}, now)
	if err != nil {
		return domain.Todo{}, err
	}
	if _, err := s.remote.AddTodo(ctx, todo); err != nil {
		return domain.Todo{}, fmt.Errorf("add todo: %w", err)
	}
	if err := todo.SetStatus(domain.StatusInProgress, now); err != nil {
		return domain.Todo{}, err
	}
	todo = board.Append(todo)
	if err := s.store.UpsertTodo(ctx, todo); err != nil {
		return domain.Todo{}, err
	}
	if err := s.record(ctx, todo.ID, domain.ChangeOperationCreate, todo.Text, map[string]string{
		"status": string(todo.Status),
	}); err != nil {
		return domain.Todo{}, err
	}
	return todo, nil
}

// nextID returns one more than every id the board has seen, deleted ids and
// unlisted remote ids included.
func (s *Service) nextID(ctx context.Context, board domain.Board) (int, error) {
	maxID := max(board.MaxID(), s.remoteTotal)
	tombs, err := s.store.ListTombstones(ctx)
	if err != nil {
		return 0, err
	}
	for _, tomb := range tombs {
		maxID = max(maxID, tomb.TodoID)
	}
	return maxID + 1, nil
}

// EditTodo replaces the text of one todo, keeping its owner, status and lane position.
func (s *Service) EditTodo(ctx context.Context, id int, text string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, err := s.editTodo(ctx, id, text)
	if err != nil {
		log.Error("update todo failed", "todo_id", id, "err", err)
		return Result{Notice: NoticeFor(OperationEdit, err)}, err
	}
	return Result{Todo: todo, Notice: NoticeFor(OperationEdit, nil)}, nil
}

func (s *Service) editTodo(ctx context.Context, id int, text string) (domain.Todo, error) {
	todo, err := s.store.GetTodo(ctx, id)
	if err != nil {
		return domain.Todo{}, err
	}
	previous := todo.Text
	if err := todo.UpdateText(text, s.clock()); err != nil {
		return domain.Todo{}, err
	}
	if !todo.IsLocal() {
		if _, err := s.remote.UpdateTodo(ctx, todo.ID, todo); err != nil {
			return domain.Todo{}, fmt.Errorf("update todo %d: %w", todo.ID, err)
		}
	}
	if err := s.store.UpsertTodo(ctx, todo); err != nil {
		return domain.Todo{}, err
	}
	if err := s.record(ctx, todo.ID, domain.ChangeOperationUpdate, todo.Text, map[string]string{
		"previous": previous,
	}); err != nil {
		return domain.Todo{}, err
	}
	return todo, nil
}

// DropInput describes one grab-and-drop gesture.
// A negative FromIndex skips the source index check; a negative ToIndex drops at the lane end.
type DropInput struct {
	TodoID     int
	FromStatus domain.Status
	FromIndex  int
	ToStatus   domain.Status
	ToIndex    int
}

// DropTodo reorders a todo within its lane or moves it to another lane.
// Cross-lane drops write the new status to the remote API first and leave the board untouched on failure.
func (s *Service) DropTodo(ctx context.Context, in DropInput) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drop(ctx, in)
}

func (s *Service) drop(ctx context.Context, in DropInput) (Result, error) {
	op := OperationMove
	if in.FromStatus == "" || in.FromStatus == in.ToStatus {
		op = OperationReorder
	}
	todo, op, err := s.dropTodo(ctx, in, op)
	if err != nil {
		log.Error("drop todo failed", "todo_id", in.TodoID, "to", in.ToStatus, "err", err)
		return Result{Notice: NoticeFor(op, err)}, err
	}
	return Result{Todo: todo, Notice: NoticeFor(op, nil)}, nil
}

func (s *Service) dropTodo(ctx context.Context, in DropInput, op Operation) (domain.Todo, Operation, error) {
	board, err := s.board(ctx)
	if err != nil {
		return domain.Todo{}, op, err
	}
	todo, status, index, ok := board.Find(in.TodoID)
	if !ok {
		return domain.Todo{}, op, ErrNotFound
	}
	if in.FromStatus != "" && in.FromStatus != status {
		return domain.Todo{}, op, fmt.Errorf("%w: todo %d is in %s, not %s", ErrInvalidDrop, todo.ID, status, in.FromStatus)
	}
	if in.FromIndex >= 0 && in.FromIndex != index {
		return domain.Todo{}, op, fmt.Errorf("%w: todo %d is at index %d, not %d", ErrInvalidDrop, todo.ID, index, in.FromIndex)
	}
	if !in.ToStatus.Valid() {
		return domain.Todo{}, op, fmt.Errorf("%w: %w", ErrInvalidDrop, domain.ErrInvalidStatus)
	}

	target, _ := board.Lane(in.ToStatus)
	toIndex := in.ToIndex
	if status == in.ToStatus {
		op = OperationReorder
		if toIndex < 0 || toIndex >= len(target.Todos) {
			toIndex = len(target.Todos) - 1
		}
		if toIndex == index {
			return todo, op, nil
		}
		if err := board.Reorder(status, index, toIndex); err != nil {
			return domain.Todo{}, op, err
		}
		if err := s.store.ReplaceTodos(ctx, board.Todos()); err != nil {
			return domain.Todo{}, op, err
		}
		moved, _, _, _ := board.Find(todo.ID)
		err := s.record(ctx, todo.ID, domain.ChangeOperationReorder, todo.Text, map[string]string{
			"status": string(status),
			"from":   strconv.Itoa(index),
			"to":     strconv.Itoa(moved.Position),
		})
		return moved, op, err
	}

	op = OperationMove
	if toIndex < 0 || toIndex > len(target.Todos) {
		toIndex = len(target.Todos)
	}
	updated := todo
	if err := updated.SetStatus(in.ToStatus, s.clock()); err != nil {
		return domain.Todo{}, op, err
	}
	if !updated.IsLocal() {
		if _, err := s.remote.UpdateTodo(ctx, updated.ID, updated); err != nil {
			return domain.Todo{}, op, fmt.Errorf("update todo %d status: %w", updated.ID, err)
		}
	}
	moved, err := board.Transfer(status, index, in.ToStatus, toIndex)
	if err != nil {
		return domain.Todo{}, op, err
	}
	moved.UpdatedAt = updated.UpdatedAt
	board.Replace(moved)
	if err := s.store.ReplaceTodos(ctx, board.Todos()); err != nil {
		return domain.Todo{}, op, err
	}
	err = s.record(ctx, moved.ID, domain.ChangeOperationMove, moved.Text, map[string]string{
		"from": string(status),
		"to":   string(moved.Status),
	})
	return moved, op, err
}

// MoveTodo drops a todo at the end of the lane delta steps away.
func (s *Service) MoveTodo(ctx context.Context, id, delta int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.board(ctx)
	if err != nil {
		return Result{Notice: NoticeFor(OperationMove, err)}, err
	}
	_, status, index, ok := board.Find(id)
	if !ok {
		return Result{Notice: NoticeFor(OperationMove, ErrNotFound)}, ErrNotFound
	}
	statuses := domain.Statuses()
	target := status.Index() + delta
	if target < 0 || target >= len(statuses) {
		err := fmt.Errorf("%w: no lane %d steps from %s", ErrInvalidDrop, delta, status)
		return Result{Notice: NoticeFor(OperationMove, err)}, err
	}
	return s.drop(ctx, DropInput{
		TodoID:     id,
		FromStatus: status,
		FromIndex:  index,
		ToStatus:   statuses[target],
		ToIndex:    -1,
	})
}

// ReorderTodo shifts a todo delta places within its lane.
func (s *Service) ReorderTodo(ctx context.Context, id, delta int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.board(ctx)
	if err != nil {
		return Result{Notice: NoticeFor(OperationReorder, err)}, err
	}
	_, status, index, ok := board.Find(id)
	if !ok {
		return Result{Notice: NoticeFor(OperationReorder, ErrNotFound)}, ErrNotFound
	}
	return s.drop(ctx, DropInput{
		TodoID:     id,
		FromStatus: status,
		FromIndex:  index,
		ToStatus:   status,
		ToIndex:    max(0, index+delta),
	})
}

// DeleteTodo removes a todo and tombstones its id.
func (s *Service) DeleteTodo(ctx context.Context, id int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, err := s.deleteTodo(ctx, id)
	if err != nil {
		log.Error("delete todo failed", "todo_id", id, "err", err)
		return Result{Notice: NoticeFor(OperationDelete, err)}, err
	}
	return Result{Todo: todo, Notice: NoticeFor(OperationDelete, nil)}, nil
}

func (s *Service) deleteTodo(ctx context.Context, id int) (domain.Todo, error) {
	todo, err := s.store.GetTodo(ctx, id)
	if err != nil {
		return domain.Todo{}, err
	}
	if !todo.IsLocal() {
		if err := s.remote.DeleteTodo(ctx, todo.ID); err != nil {
			return domain.Todo{}, fmt.Errorf("delete todo %d: %w", todo.ID, err)
		}
	}
	if err := s.store.DeleteTodo(ctx, todo.ID, s.clock()); err != nil {
		return domain.Todo{}, err
	}
	board, err := s.board(ctx)
	if err != nil {
		return domain.Todo{}, err
	}
	if err := s.store.ReplaceTodos(ctx, board.Todos()); err != nil {
		return domain.Todo{}, err
	}
	if err := s.record(ctx, todo.ID, domain.ChangeOperationDelete, todo.Text, map[string]string{
		"status": string(todo.Status),
	}); err != nil {
		return domain.Todo{}, err
	}
	return todo, nil
}

// GetTodo returns one todo from the overlay.
func (s *Service) GetTodo(ctx context.Context, id int) (domain.Todo, error) {
	return s.store.GetTodo(ctx, id)
}

// ListActivity returns change events newest first.
func (s *Service) ListActivity(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	return s.store.ListChangeEvents(ctx, limit)
}

// ResetLocal clears the overlay so the next load mirrors the remote API.
func (s *Service) ResetLocal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceTodos(ctx, nil); err != nil {
		return err
	}
	if err := s.store.ClearTombstones(ctx); err != nil {
		return err
	}
	return s.record(ctx, 0, domain.ChangeOperationSync, "reset local board", nil)
}

// record appends one change event to the activity ledger.
func (s *Service) record(ctx context.Context, todoID int, op domain.ChangeOperation, summary string, metadata map[string]string) error {
	event := domain.ChangeEvent{
		ID:         s.idGen(),
		TodoID:     todoID,
		Operation:  op,
		Summary:    summary,
		Metadata:   metadata,
		OccurredAt: s.clock().UTC(),
	}
	if err := s.store.RecordChangeEvent(ctx, event); err != nil {
		return fmt.Errorf("record %s event: %w", op, err)
	}
	return nil
}

// IsValidation reports whether err came from input validation rather than transport or storage.
func IsValidation(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidID,
		domain.ErrInvalidText,
		domain.ErrInvalidOwner,
		domain.ErrInvalidStatus,
		domain.ErrInvalidPosition,
		ErrInvalidDrop,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
