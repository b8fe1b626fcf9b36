package app

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/evanschultz/lanes/internal/domain"
)

type fakeRemote struct {
	todos     []domain.Todo
	total     int
	listErr   error
	addErr    error
	updateErr error
	deleteErr error

	added   []domain.Todo
	updated []domain.Todo
	deleted []int
}

func (f *fakeRemote) ListTodos(context.Context) (RemotePage, error) {
	if f.listErr != nil {
		return RemotePage{}, f.listErr
	}
	total := f.total
	if total == 0 {
		total = len(f.todos)
	}
	return RemotePage{Todos: append([]domain.Todo(nil), f.todos...), Total: total}, nil
}

func (f *fakeRemote) AddTodo(_ context.Context, todo domain.Todo) (domain.Todo, error) {
	if f.addErr != nil {
		return domain.Todo{}, f.addErr
	}
	f.added = append(f.added, todo)
	return todo, nil
}

func (f *fakeRemote) UpdateTodo(_ context.Context, id int, todo domain.Todo) (domain.Todo, error) {
	if f.updateErr != nil {
		return domain.Todo{}, f.updateErr
	}
	todo.ID = id
	f.updated = append(f.updated, todo)
	return todo, nil
}

func (f *fakeRemote) DeleteTodo(_ context.Context, id int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeStore struct {
	todos  map[int]domain.Todo
	tombs  map[int]domain.Tombstone
	events []domain.ChangeEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		todos: map[int]domain.Todo{},
		tombs: map[int]domain.Tombstone{},
	}
}

func (f *fakeStore) ListTodos(context.Context) ([]domain.Todo, error) {
	out := make([]domain.Todo, 0, len(f.todos))
	for _, todo := range f.todos {
		out = append(out, todo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetTodo(_ context.Context, id int) (domain.Todo, error) {
	todo, ok := f.todos[id]
	if !ok {
		return domain.Todo{}, ErrNotFound
	}
	return todo, nil
}

func (f *fakeStore) UpsertTodo(_ context.Context, todo domain.Todo) error {
	f.todos[todo.ID] = todo
	return nil
}

func (f *fakeStore) ReplaceTodos(_ context.Context, todos []domain.Todo) error {
	f.todos = map[int]domain.Todo{}
	for _, todo := range todos {
		f.todos[todo.ID] = todo
	}
	return nil
}

func (f *fakeStore) DeleteTodo(_ context.Context, id int, at time.Time) error {
	if _, ok := f.todos[id]; !ok {
		return ErrNotFound
	}
	delete(f.todos, id)
	f.tombs[id] = domain.Tombstone{TodoID: id, DeletedAt: at}
	return nil
}

func (f *fakeStore) ListTombstones(context.Context) ([]domain.Tombstone, error) {
	out := make([]domain.Tombstone, 0, len(f.tombs))
	for _, tomb := range f.tombs {
		out = append(out, tomb)
	}
	return out, nil
}

func (f *fakeStore) PutTombstone(_ context.Context, tomb domain.Tombstone) error {
	f.tombs[tomb.TodoID] = tomb
	return nil
}

func (f *fakeStore) ClearTombstones(context.Context) error {
	f.tombs = map[int]domain.Tombstone{}
	return nil
}

func (f *fakeStore) RecordChangeEvent(_ context.Context, event domain.ChangeEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) ListChangeEvents(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	out := slices.Clone(f.events)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func remoteFixture() *fakeRemote {
	return &fakeRemote{todos: []domain.Todo{
		{ID: 1, Text: "Do something nice", Completed: false, UserID: 26},
		{ID: 2, Text: "Memorize a poem", Completed: true, UserID: 13},
		{ID: 3, Text: "Watch a classic movie", Completed: false, UserID: 68},
	}}
}

func newTestService(t *testing.T, remote *fakeRemote, store *fakeStore) *Service {
	t.Helper()
	seq := 0
	idGen := func() string {
		seq++
		return "evt-" + strconv.Itoa(seq)
	}
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	return NewService(remote, store, idGen, func() time.Time { return now }, ServiceConfig{PersistLocal: true})
}

func mustLoad(t *testing.T, svc *Service) BoardLoad {
	t.Helper()
	load, err := svc.LoadBoard(context.Background())
	if err != nil {
		t.Fatalf("LoadBoard() error = %v", err)
	}
	return load
}

func laneIDs(b domain.Board, status domain.Status) []int {
	lane, _ := b.Lane(status)
	out := make([]int, 0, len(lane.Todos))
	for _, todo := range lane.Todos {
		out = append(out, todo.ID)
	}
	return out
}

func TestLoadBoardDerivesStatusFromCompleted(t *testing.T) {
	svc := newTestService(t, remoteFixture(), newFakeStore())
	load := mustLoad(t, svc)
	if load.Stale || load.Err != nil {
		t.Fatalf("unexpected stale load %#v", load)
	}
	if got := laneIDs(load.Board, domain.StatusPending); !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("unexpected pending lane %v", got)
	}
	if got := laneIDs(load.Board, domain.StatusCompleted); !slices.Equal(got, []int{2}) {
		t.Fatalf("unexpected completed lane %v", got)
	}
	if got := laneIDs(load.Board, domain.StatusInProgress); len(got) != 0 {
		t.Fatalf("expected empty in-progress lane, got %v", got)
	}
	if !load.Notice.Empty() {
		t.Fatalf("expected no notice on successful load, got %#v", load.Notice)
	}
}

func TestLoadBoardFailureServesCachedBoard(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := newTestService(t, remote, store)
	mustLoad(t, svc)

	remote.listErr = errors.New("boom")
	load := mustLoad(t, svc)
	if !load.Stale || load.Err == nil {
		t.Fatalf("expected stale load, got %#v", load)
	}
	if load.Notice.Kind != NoticeError || load.Notice.Message != "Failed to load todos" {
		t.Fatalf("unexpected notice %#v", load.Notice)
	}
	if len(load.Board.Todos()) != 3 {
		t.Fatalf("expected cached todos, got %d", len(load.Board.Todos()))
	}

	empty := newTestService(t, &fakeRemote{listErr: errors.New("down")}, newFakeStore())
	load = mustLoad(t, empty)
	if len(load.Board.Todos()) != 0 || !load.Stale {
		t.Fatalf("expected empty stale board, got %#v", load)
	}
}

func TestLoadBoardKeepsLocalOverlay(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := newTestService(t, remote, store)
	ctx := context.Background()
	mustLoad(t, svc)

	if _, err := svc.EditTodo(ctx, 1, "Do something kind"); err != nil {
		t.Fatalf("EditTodo() error = %v", err)
	}
	if _, err := svc.DropTodo(ctx, DropInput{TodoID: 3, FromStatus: domain.StatusPending, FromIndex: 1, ToStatus: domain.StatusInProgress, ToIndex: 0}); err != nil {
		t.Fatalf("DropTodo() error = %v", err)
	}
	created, err := svc.CreateTodo(ctx, "Local only")
	if err != nil {
		t.Fatalf("CreateTodo() error = %v", err)
	}
	if _, err := svc.DeleteTodo(ctx, 2); err != nil {
		t.Fatalf("DeleteTodo() error = %v", err)
	}

	load := mustLoad(t, svc)
	got, status, _, ok := load.Board.Find(1)
	if !ok || got.Text != "Do something kind" || status != domain.StatusPending {
		t.Fatalf("expected edited text to survive reload, got %#v", got)
	}
	if _, status, _, _ := load.Board.Find(3); status != domain.StatusInProgress {
		t.Fatalf("expected moved todo to stay in progress, got %q", status)
	}
	if _, _, _, ok := load.Board.Find(2); ok {
		t.Fatal("expected deleted todo to stay deleted")
	}
	if local, _, _, ok := load.Board.Find(created.Todo.ID); !ok || !local.IsLocal() {
		t.Fatalf("expected local todo to survive reload, got %#v", local)
	}
}

func TestLoadBoardWithoutPersistenceMirrorsRemote(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := NewService(remote, store, nil, nil, ServiceConfig{PersistLocal: false})
	ctx := context.Background()
	mustLoad(t, svc)
	if _, err := svc.EditTodo(ctx, 1, "changed"); err != nil {
		t.Fatalf("EditTodo() error = %v", err)
	}
	if _, err := svc.DeleteTodo(ctx, 2); err != nil {
		t.Fatalf("DeleteTodo() error = %v", err)
	}
	load := mustLoad(t, svc)
	todo, _, _, _ := load.Board.Find(1)
	if todo.Text != "Do something nice" {
		t.Fatalf("expected remote text after reload, got %q", todo.Text)
	}
	if _, _, _, ok := load.Board.Find(2); !ok {
		t.Fatal("expected deleted todo back after reload")
	}
}

func TestCreateTodo(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := newTestService(t, remote, store)
	ctx := context.Background()
	mustLoad(t, svc)

	res, err := svc.CreateTodo(ctx, "  Water plants ")
	if err != nil {
		t.Fatalf("CreateTodo() error = %v", err)
	}
	if res.Todo.ID != 4 || res.Todo.UserID != 4 {
		t.Fatalf("unexpected ids %#v", res.Todo)
	}
	if res.Todo.Status != domain.StatusInProgress || res.Todo.Completed || res.Todo.Position != 0 {
		t.Fatalf("unexpected lane placement %#v", res.Todo)
	}
	if res.Notice.Kind != NoticeSuccess || res.Notice.Message != "Todo added successfully" {
		t.Fatalf("unexpected notice %#v", res.Notice)
	}
	if len(remote.added) != 1 || remote.added[0].Text != "Water plants" {
		t.Fatalf("expected one POST, got %#v", remote.added)
	}
	if remote.added[0].Status != domain.StatusPending || remote.added[0].Completed {
		t.Fatalf("expected POST as pending, got %#v", remote.added[0])
	}
	board, err := svc.Board(ctx)
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	if got := laneIDs(board, domain.StatusInProgress); !slices.Equal(got, []int{4}) {
		t.Fatalf("expected new todo in progress, got %v", got)
	}
	if got := laneIDs(board, domain.StatusPending); !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("expected pending lane untouched, got %v", got)
	}
	if last := store.events[len(store.events)-1]; last.Operation != domain.ChangeOperationCreate || last.TodoID != 4 {
		t.Fatalf("unexpected change event %#v", last)
	}
}

func TestCreateTodoAvoidsReusingDeletedIDs(t *testing.T) {
	svc := newTestService(t, remoteFixture(), newFakeStore())
	ctx := context.Background()
	mustLoad(t, svc)
	if _, err := svc.DeleteTodo(ctx, 3); err != nil {
		t.Fatalf("DeleteTodo() error = %v", err)
	}
	res, err := svc.CreateTodo(ctx, "next")
	if err != nil {
		t.Fatalf("CreateTodo() error = %v", err)
	}
	if res.Todo.ID != 4 {
		t.Fatalf("expected id 4, got %d", res.Todo.ID)
	}
}

func TestCreateTodoSkipsUnlistedRemoteIDs(t *testing.T) {
	remote := remoteFixture()
	remote.total = 254
	svc := newTestService(t, remote, newFakeStore())
	mustLoad(t, svc)

	res, err := svc.CreateTodo(context.Background(), "after the first page")
	if err != nil {
		t.Fatalf("CreateTodo() error = %v", err)
	}
	if res.Todo.ID != 255 || res.Todo.UserID != 255 {
		t.Fatalf("expected id past the remote total, got %#v", res.Todo)
	}
}

func TestCreateTodoFailures(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := newTestService(t, remote, store)
	ctx := context.Background()
	mustLoad(t, svc)

	res, err := svc.CreateTodo(ctx, "   ")
	if !errors.Is(err, domain.ErrInvalidText) {
		t.Fatalf("expected ErrInvalidText, got %v", err)
	}
	if !IsValidation(err) {
		t.Fatal("expected validation error")
	}
	if res.Notice.Message != "Failed to add todo" {
		t.Fatalf("unexpected notice %#v", res.Notice)
	}
	if len(remote.added) != 0 {
		t.Fatal("expected no POST for empty text")
	}

	remote.addErr = errors.New("offline")
	if _, err := svc.CreateTodo(ctx, "x"); err == nil {
		t.Fatal("expected remote error")
	}
	if len(store.todos) != 3 {
		t.Fatalf("expected no stored todo after failed POST, got %d", len(store.todos))
	}
}

func TestEditTodo(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := newTestService(t, remote, store)
	ctx := context.Background()
	mustLoad(t, svc)

	res, err := svc.EditTodo(ctx, 2, "Memorize two poems")
	if err != nil {
		t.Fatalf("EditTodo() error = %v", err)
	}
	if res.Todo.Status != domain.StatusCompleted || !res.Todo.Completed || res.Todo.UserID != 13 {
		t.Fatalf("expected status and owner kept, got %#v", res.Todo)
	}
	if len(remote.updated) != 1 || remote.updated[0].Text != "Memorize two poems" {
		t.Fatalf("unexpected PUT payloads %#v", remote.updated)
	}
	if res.Notice.Message != "Todo updated successfully" {
		t.Fatalf("unexpected notice %#v", res.Notice)
	}

	if _, err := svc.EditTodo(ctx, 99, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	remote.updateErr = errors.New("500")
	res, err = svc.EditTodo(ctx, 1, "unsaved")
	if err == nil {
		t.Fatal("expected remote error")
	}
	if res.Notice.Message != "Failed to update todo" {
		t.Fatalf("unexpected notice %#v", res.Notice)
	}
	if store.todos[1].Text != "Do something nice" {
		t.Fatalf("expected text unchanged, got %q", store.todos[1].Text)
	}
}

func TestEditLocalTodoSkipsRemote(t *testing.T) {
	remote := remoteFixture()
	svc := newTestService(t, remote, newFakeStore())
	ctx := context.Background()
	mustLoad(t, svc)
	created, err := svc.CreateTodo(ctx, "local")
	if err != nil {
		t.Fatalf("CreateTodo() error = %v", err)
	}
	remote.updateErr = errors.New("404")
	if _, err := svc.EditTodo(ctx, created.Todo.ID, "still local"); err != nil {
		t.Fatalf("EditTodo() error = %v", err)
	}
	if _, err := svc.MoveTodo(ctx, created.Todo.ID, 1); err != nil {
		t.Fatalf("MoveTodo() error = %v", err)
	}
}

func TestDropTodoAcrossLanes(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := newTestService(t, remote, store)
	ctx := context.Background()
	mustLoad(t, svc)

	res, err := svc.DropTodo(ctx, DropInput{
		TodoID:     1,
		FromStatus: domain.StatusPending,
		FromIndex:  0,
		ToStatus:   domain.StatusCompleted,
		ToIndex:    0,
	})
	if err != nil {
		t.Fatalf("DropTodo() error = %v", err)
	}
	if res.Todo.Status != domain.StatusCompleted || !res.Todo.Completed || res.Todo.Position != 0 {
		t.Fatalf("unexpected dropped todo %#v", res.Todo)
	}
	if res.Notice.Message != "Todo status updated successfully" {
		t.Fatalf("unexpected notice %#v", res.Notice)
	}
	if len(remote.updated) != 1 || remote.updated[0].Status != domain.StatusCompleted || !remote.updated[0].Completed {
		t.Fatalf("unexpected PUT payloads %#v", remote.updated)
	}
	board, err := svc.Board(ctx)
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	if got := laneIDs(board, domain.StatusCompleted); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("unexpected completed lane %v", got)
	}
	if got := laneIDs(board, domain.StatusPending); !slices.Equal(got, []int{3}) {
		t.Fatalf("unexpected pending lane %v", got)
	}
}

func TestDropTodoFailureLeavesBoard(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := newTestService(t, remote, store)
	ctx := context.Background()
	mustLoad(t, svc)

	remote.updateErr = errors.New("offline")
	res, err := svc.DropTodo(ctx, DropInput{TodoID: 1, FromStatus: domain.StatusPending, FromIndex: 0, ToStatus: domain.StatusInProgress, ToIndex: 0})
	if err == nil {
		t.Fatal("expected drop error")
	}
	if res.Notice.Kind != NoticeError || res.Notice.Message != "Failed to update todo status" {
		t.Fatalf("unexpected notice %#v", res.Notice)
	}
	if store.todos[1].Status != domain.StatusPending {
		t.Fatalf("expected todo to stay pending, got %q", store.todos[1].Status)
	}
}

func TestDropTodoWithinLaneIsLocal(t *testing.T) {
	remote := remoteFixture()
	svc := newTestService(t, remote, newFakeStore())
	ctx := context.Background()
	mustLoad(t, svc)

	res, err := svc.DropTodo(ctx, DropInput{TodoID: 1, FromStatus: domain.StatusPending, FromIndex: 0, ToStatus: domain.StatusPending, ToIndex: 1})
	if err != nil {
		t.Fatalf("DropTodo() error = %v", err)
	}
	if len(remote.updated) != 0 {
		t.Fatal("expected no PUT for a same-lane drop")
	}
	if !res.Notice.Empty() {
		t.Fatalf("expected no notice for reorder, got %#v", res.Notice)
	}
	board, _ := svc.Board(ctx)
	if got := laneIDs(board, domain.StatusPending); !slices.Equal(got, []int{3, 1}) {
		t.Fatalf("unexpected pending lane %v", got)
	}
}

func TestDropTodoValidation(t *testing.T) {
	svc := newTestService(t, remoteFixture(), newFakeStore())
	ctx := context.Background()
	mustLoad(t, svc)

	cases := []DropInput{
		{TodoID: 1, FromStatus: domain.StatusCompleted, FromIndex: -1, ToStatus: domain.StatusInProgress},
		{TodoID: 1, FromStatus: domain.StatusPending, FromIndex: 5, ToStatus: domain.StatusInProgress},
		{TodoID: 1, FromStatus: domain.StatusPending, FromIndex: 0, ToStatus: "archived"},
	}
	for _, in := range cases {
		if _, err := svc.DropTodo(ctx, in); !errors.Is(err, ErrInvalidDrop) {
			t.Fatalf("DropTodo(%#v) expected ErrInvalidDrop, got %v", in, err)
		}
	}
	if _, err := svc.DropTodo(ctx, DropInput{TodoID: 77, FromIndex: -1, ToStatus: domain.StatusPending}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveAndReorderTodo(t *testing.T) {
	svc := newTestService(t, remoteFixture(), newFakeStore())
	ctx := context.Background()
	mustLoad(t, svc)

	res, err := svc.MoveTodo(ctx, 3, 1)
	if err != nil {
		t.Fatalf("MoveTodo() error = %v", err)
	}
	if res.Todo.Status != domain.StatusInProgress {
		t.Fatalf("unexpected status %q", res.Todo.Status)
	}
	if _, err := svc.MoveTodo(ctx, 3, 1); err != nil {
		t.Fatalf("MoveTodo() error = %v", err)
	}
	board, _ := svc.Board(ctx)
	if got := laneIDs(board, domain.StatusCompleted); !slices.Equal(got, []int{2, 3}) {
		t.Fatalf("expected move to append at lane end, got %v", got)
	}
	if _, err := svc.MoveTodo(ctx, 3, 1); !errors.Is(err, ErrInvalidDrop) {
		t.Fatalf("expected ErrInvalidDrop past the last lane, got %v", err)
	}

	if _, err := svc.ReorderTodo(ctx, 3, -1); err != nil {
		t.Fatalf("ReorderTodo() error = %v", err)
	}
	board, _ = svc.Board(ctx)
	if got := laneIDs(board, domain.StatusCompleted); !slices.Equal(got, []int{3, 2}) {
		t.Fatalf("unexpected completed lane after reorder %v", got)
	}
	if _, err := svc.ReorderTodo(ctx, 3, -5); err != nil {
		t.Fatalf("ReorderTodo() at lane top error = %v", err)
	}
}

func TestDeleteTodo(t *testing.T) {
	remote := remoteFixture()
	store := newFakeStore()
	svc := newTestService(t, remote, store)
	ctx := context.Background()
	mustLoad(t, svc)

	res, err := svc.DeleteTodo(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteTodo() error = %v", err)
	}
	if res.Notice.Message != "Todo deleted successfully" {
		t.Fatalf("unexpected notice %#v", res.Notice)
	}
	if !slices.Equal(remote.deleted, []int{1}) {
		t.Fatalf("unexpected DELETE calls %v", remote.deleted)
	}
	if _, ok := store.tombs[1]; !ok {
		t.Fatal("expected tombstone")
	}
	if store.todos[3].Position != 0 {
		t.Fatalf("expected pending lane renumbered, got %d", store.todos[3].Position)
	}

	remote.deleteErr = errors.New("offline")
	res, err = svc.DeleteTodo(ctx, 3)
	if err == nil || res.Notice.Message != "Failed to delete todo" {
		t.Fatalf("expected delete failure notice, got %v %#v", err, res.Notice)
	}
	if _, ok := store.todos[3]; !ok {
		t.Fatal("expected todo kept after failed DELETE")
	}
}

func TestListActivityAndReset(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, remoteFixture(), store)
	ctx := context.Background()
	mustLoad(t, svc)
	if _, err := svc.EditTodo(ctx, 1, "edited"); err != nil {
		t.Fatalf("EditTodo() error = %v", err)
	}

	events, err := svc.ListActivity(ctx, 0)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(events) != 2 || events[0].Operation != domain.ChangeOperationUpdate || events[1].Operation != domain.ChangeOperationSync {
		t.Fatalf("unexpected activity %#v", events)
	}
	if events[0].Metadata["previous"] != "Do something nice" {
		t.Fatalf("unexpected metadata %#v", events[0].Metadata)
	}

	if err := svc.ResetLocal(ctx); err != nil {
		t.Fatalf("ResetLocal() error = %v", err)
	}
	if len(store.todos) != 0 || len(store.tombs) != 0 {
		t.Fatal("expected overlay cleared")
	}
}

func TestNoticeFor(t *testing.T) {
	if n := NoticeFor(OperationMove, nil); n.Kind != NoticeSuccess || n.Message != "Todo status updated successfully" {
		t.Fatalf("unexpected notice %#v", n)
	}
	if n := NoticeFor(OperationDelete, errors.New("x")); n.Kind != NoticeError || n.Message != "Failed to delete todo" {
		t.Fatalf("unexpected notice %#v", n)
	}
	if n := NoticeFor("unknown", nil); !n.Empty() {
		t.Fatalf("expected empty notice, got %#v", n)
	}
}
