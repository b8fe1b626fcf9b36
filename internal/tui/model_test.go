package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/lanes/internal/app"
	"github.com/evanschultz/lanes/internal/domain"
)

// fakeService keeps an in-memory board and records the latest calls.
type fakeService struct {
	board     domain.Board
	events    []domain.ChangeEvent
	err       error
	loadErr   error
	remoteErr error

	lastDrop    *app.DropInput
	lastMove    [2]int
	lastReorder [2]int
	lastEdit    string
	deleted     []int
}

func newFakeService(t *testing.T, todos ...domain.Todo) *fakeService {
	t.Helper()
	return &fakeService{board: domain.NewBoard(domain.DefaultLanes(), todos)}
}

func mustTodo(t *testing.T, id int, text string, status domain.Status, position int) domain.Todo {
	t.Helper()
	todo, err := domain.NewTodo(domain.TodoInput{
		ID:       id,
		Text:     text,
		UserID:   id,
		Status:   status,
		Position: position,
	}, time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewTodo() error = %v", err)
	}
	return todo
}

func (f *fakeService) LoadBoard(context.Context) (app.BoardLoad, error) {
	if f.loadErr != nil {
		return app.BoardLoad{}, f.loadErr
	}
	if f.remoteErr != nil {
		return app.BoardLoad{
			Board:  cloneBoard(f.board),
			Stale:  true,
			Err:    f.remoteErr,
			Notice: app.NoticeFor(app.OperationLoad, f.remoteErr),
		}, nil
	}
	return app.BoardLoad{Board: cloneBoard(f.board)}, nil
}

func (f *fakeService) Board(context.Context) (domain.Board, error) {
	return cloneBoard(f.board), nil
}

func (f *fakeService) CreateTodo(_ context.Context, text string) (app.Result, error) {
	if f.err != nil {
		return app.Result{Notice: app.NoticeFor(app.OperationCreate, f.err)}, f.err
	}
	id := f.board.MaxID() + 1
	todo, err := domain.NewTodo(domain.TodoInput{ID: id, Text: text, UserID: id, Status: domain.StatusInProgress, Origin: domain.OriginLocal}, time.Now())
	if err != nil {
		return app.Result{Notice: app.NoticeFor(app.OperationCreate, err)}, err
	}
	todo = f.board.Append(todo)
	return app.Result{Todo: todo, Notice: app.NoticeFor(app.OperationCreate, nil)}, nil
}

func (f *fakeService) EditTodo(_ context.Context, id int, text string) (app.Result, error) {
	f.lastEdit = text
	if f.err != nil {
		return app.Result{Notice: app.NoticeFor(app.OperationEdit, f.err)}, f.err
	}
	todo, _, _, ok := f.board.Find(id)
	if !ok {
		return app.Result{Notice: app.NoticeFor(app.OperationEdit, app.ErrNotFound)}, app.ErrNotFound
	}
	todo.Text = text
	f.board.Replace(todo)
	return app.Result{Todo: todo, Notice: app.NoticeFor(app.OperationEdit, nil)}, nil
}

func (f *fakeService) DropTodo(_ context.Context, in app.DropInput) (app.Result, error) {
	f.lastDrop = &in
	op := app.OperationMove
	if in.FromStatus == in.ToStatus {
		op = app.OperationReorder
	}
	if f.err != nil {
		return app.Result{Notice: app.NoticeFor(op, f.err)}, f.err
	}
	moved, err := f.board.Transfer(in.FromStatus, in.FromIndex, in.ToStatus, in.ToIndex)
	if err != nil {
		return app.Result{Notice: app.NoticeFor(op, err)}, err
	}
	return app.Result{Todo: moved, Notice: app.NoticeFor(op, nil)}, nil
}

func (f *fakeService) MoveTodo(_ context.Context, id, delta int) (app.Result, error) {
	f.lastMove = [2]int{id, delta}
	if f.err != nil {
		return app.Result{Notice: app.NoticeFor(app.OperationMove, f.err)}, f.err
	}
	_, status, idx, ok := f.board.Find(id)
	if !ok {
		return app.Result{Notice: app.NoticeFor(app.OperationMove, app.ErrNotFound)}, app.ErrNotFound
	}
	target := status.Index() + delta
	if target < 0 || target >= len(domain.Statuses()) {
		return app.Result{Notice: app.NoticeFor(app.OperationMove, app.ErrInvalidDrop)}, app.ErrInvalidDrop
	}
	moved, err := f.board.Transfer(status, idx, domain.Statuses()[target], 1<<20)
	if err != nil {
		return app.Result{}, err
	}
	return app.Result{Todo: moved, Notice: app.NoticeFor(app.OperationMove, nil)}, nil
}

func (f *fakeService) ReorderTodo(_ context.Context, id, delta int) (app.Result, error) {
	f.lastReorder = [2]int{id, delta}
	_, status, idx, ok := f.board.Find(id)
	if !ok {
		return app.Result{}, app.ErrNotFound
	}
	if err := f.board.Reorder(status, idx, max(0, idx+delta)); err != nil {
		return app.Result{Notice: app.NoticeFor(app.OperationReorder, err)}, err
	}
	todo, _, _, _ := f.board.Find(id)
	return app.Result{Todo: todo}, nil
}

func (f *fakeService) DeleteTodo(_ context.Context, id int) (app.Result, error) {
	if f.err != nil {
		return app.Result{Notice: app.NoticeFor(app.OperationDelete, f.err)}, f.err
	}
	todo, _, _, ok := f.board.Find(id)
	if !ok {
		return app.Result{Notice: app.NoticeFor(app.OperationDelete, app.ErrNotFound)}, app.ErrNotFound
	}
	f.board.Remove(id)
	f.deleted = append(f.deleted, id)
	return app.Result{Todo: todo, Notice: app.NoticeFor(app.OperationDelete, nil)}, nil
}

func (f *fakeService) ListActivity(context.Context, int) ([]domain.ChangeEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

// fixtureService returns a board with two pending todos, one in progress and one completed.
func fixtureService(t *testing.T) *fakeService {
	t.Helper()
	return newFakeService(t,
		mustTodo(t, 1, "Ship", domain.StatusPending, 0),
		mustTodo(t, 2, "Test", domain.StatusPending, 1),
		mustTodo(t, 3, "Review", domain.StatusInProgress, 0),
		mustTodo(t, 4, "Done", domain.StatusCompleted, 0),
	)
}

func TestModelLoadAndNavigation(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))

	if len(m.board.Lanes) != 3 || len(m.laneTodos(0)) != 2 {
		t.Fatalf("unexpected loaded board %#v", m.board)
	}
	view := m.View().Content
	for _, want := range []string{"Pending (2)", "In Progress (1)", "Completed (1)", "Ship", "Review"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}

	m = applyMsg(t, m, keyRune('j'))
	if m.selectedTodo != 1 {
		t.Fatalf("selectedTodo = %d, want 1", m.selectedTodo)
	}
	m = applyMsg(t, m, keyRune('j'))
	if m.selectedTodo != 1 {
		t.Fatalf("selectedTodo = %d, want clamp at 1", m.selectedTodo)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight})
	if m.selectedLane != 1 || m.selectedTodo != 0 {
		t.Fatalf("expected lane 1 row 0, got lane %d row %d", m.selectedLane, m.selectedTodo)
	}
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('l'))
	if m.selectedLane != 2 {
		t.Fatalf("selectedLane = %d, want 2", m.selectedLane)
	}
	m = applyMsg(t, m, keyRune('h'))
	m = applyMsg(t, m, keyRune('k'))
	if m.selectedLane != 1 || m.selectedTodo != 0 {
		t.Fatalf("expected lane 1 row 0, got lane %d row %d", m.selectedLane, m.selectedTodo)
	}
}

func TestModelAddTodoDialog(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('n'))
	if m.mode != modeAddTodo {
		t.Fatalf("mode = %v, want add", m.mode)
	}
	if !strings.Contains(m.View().Content, "Add Todo") {
		t.Fatal("expected Add Todo dialog title")
	}
	m = typeText(t, m, "Groceries")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if m.mode != modeNone {
		t.Fatalf("mode = %v, want none after submit", m.mode)
	}
	todo, status, _, ok := svc.board.Find(5)
	if !ok || todo.Text != "Groceries" || status != domain.StatusInProgress {
		t.Fatalf("expected new in-progress todo, got %#v in %q", todo, status)
	}
	if m.toast.Kind != app.NoticeSuccess || m.toast.Message != "Todo added successfully" {
		t.Fatalf("unexpected toast %#v", m.toast)
	}
	if got := m.selectedTodoID(); got != 5 || m.selectedLane != domain.StatusInProgress.Index() {
		t.Fatalf("cursor on %d in lane %d, want new todo 5", got, m.selectedLane)
	}
}

func TestModelDialogRequiresText(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('n'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeAddTodo {
		t.Fatalf("expected dialog to stay open, mode = %v", m.mode)
	}
	if m.formErr != "Todo is required" {
		t.Fatalf("formErr = %q", m.formErr)
	}
	if !strings.Contains(m.View().Content, "Todo is required") {
		t.Fatal("expected validation message in view")
	}
	if len(svc.board.Todos()) != 4 {
		t.Fatal("expected no todo created")
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone || m.formErr != "" {
		t.Fatalf("expected dialog closed, mode=%v formErr=%q", m.mode, m.formErr)
	}
}

func TestModelEditTodo(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('e'))
	if m.mode != modeEditTodo || m.input.Value() != "Ship" {
		t.Fatalf("expected edit dialog prefilled, mode=%v value=%q", m.mode, m.input.Value())
	}
	if !strings.Contains(m.View().Content, "Edit Todo") {
		t.Fatal("expected Edit Todo dialog title")
	}
	m = typeText(t, m, "ped")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if svc.lastEdit != "Shipped" {
		t.Fatalf("lastEdit = %q, want Shipped", svc.lastEdit)
	}
	if m.toast.Message != "Todo updated successfully" {
		t.Fatalf("unexpected toast %#v", m.toast)
	}
	if todo, _ := m.selectedTodoItem(); todo.Text != "Shipped" {
		t.Fatalf("expected refreshed board, got %#v", todo)
	}
}

func TestModelDeleteConfirm(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('d'))
	if m.mode != modeConfirmDelete || m.pendingDelete.ID != 1 {
		t.Fatalf("expected confirm modal for todo 1, mode=%v pending=%#v", m.mode, m.pendingDelete)
	}
	if !strings.Contains(m.View().Content, "Delete Todo") {
		t.Fatal("expected confirm modal in view")
	}
	m = applyMsg(t, m, keyRune('n'))
	if m.mode != modeNone || len(svc.deleted) != 0 {
		t.Fatalf("expected cancel, mode=%v deleted=%v", m.mode, svc.deleted)
	}

	m = applyMsg(t, m, keyRune('d'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(svc.deleted) != 0 {
		t.Fatal("expected enter on default cancel choice to keep the todo")
	}

	m = applyMsg(t, m, keyRune('d'))
	m = applyMsg(t, m, keyRune('y'))
	if len(svc.deleted) != 1 || svc.deleted[0] != 1 {
		t.Fatalf("deleted = %v, want [1]", svc.deleted)
	}
	if m.toast.Message != "Todo deleted successfully" {
		t.Fatalf("unexpected toast %#v", m.toast)
	}
	if got := m.selectedTodoID(); got != 2 {
		t.Fatalf("cursor on %d, want 2 after delete", got)
	}
}

func TestModelDeleteWithoutConfirm(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc, WithConfirmDelete(false)))

	m = applyMsg(t, m, keyRune('d'))
	if m.mode != modeNone || len(svc.deleted) != 1 {
		t.Fatalf("expected immediate delete, mode=%v deleted=%v", m.mode, svc.deleted)
	}
}

func TestModelMoveAndReorderKeys(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune(']'))
	if svc.lastMove != [2]int{1, 1} {
		t.Fatalf("lastMove = %v", svc.lastMove)
	}
	if m.selectedLane != 1 || m.selectedTodoID() != 1 {
		t.Fatalf("expected cursor to follow todo 1 into lane 1, lane=%d id=%d", m.selectedLane, m.selectedTodoID())
	}
	if m.toast.Message != "Todo status updated successfully" {
		t.Fatalf("unexpected toast %#v", m.toast)
	}

	m = applyMsg(t, m, keyRune('K'))
	if svc.lastReorder != [2]int{1, -1} || m.selectedTodo != 0 {
		t.Fatalf("lastReorder = %v selectedTodo = %d", svc.lastReorder, m.selectedTodo)
	}
	m = applyMsg(t, m, keyRune('J'))
	if svc.lastReorder != [2]int{1, 1} || m.selectedTodo != 1 {
		t.Fatalf("lastReorder = %v selectedTodo = %d", svc.lastReorder, m.selectedTodo)
	}

	m = applyMsg(t, m, keyRune('['))
	if svc.lastMove != [2]int{1, -1} || m.selectedLane != 0 {
		t.Fatalf("lastMove = %v lane = %d", svc.lastMove, m.selectedLane)
	}
}

func TestModelFailedMoveKeepsBoard(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))
	svc.err = errors.New("upstream 500")

	m = applyMsg(t, m, keyRune(']'))
	if m.toast.Kind != app.NoticeError || m.toast.Message != "Failed to update todo status" {
		t.Fatalf("unexpected toast %#v", m.toast)
	}
	if strings.Contains(m.View().Content, "upstream 500") {
		t.Fatal("raw error leaked into the view")
	}
	if _, status, _, _ := m.board.Find(1); status != domain.StatusPending {
		t.Fatalf("todo 1 moved to %q after failure", status)
	}
}

func TestModelGrabAndDrop(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keySpace())
	if m.mode != modeGrab || m.grab.todo.ID != 1 {
		t.Fatalf("expected grab of todo 1, mode=%v grab=%#v", m.mode, m.grab)
	}
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('j'))
	if m.grab.toLane != 1 || m.grab.toIndex != 1 {
		t.Fatalf("drop target = lane %d index %d, want 1/1", m.grab.toLane, m.grab.toIndex)
	}
	preview := m.previewBoard()
	if lane := preview.Lanes[1].Todos; len(lane) != 2 || lane[1].ID != 1 {
		t.Fatalf("unexpected preview lane %#v", lane)
	}
	if len(m.board.Lanes[1].Todos) != 1 {
		t.Fatal("preview must not mutate the live board")
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	want := app.DropInput{TodoID: 1, FromStatus: domain.StatusPending, FromIndex: 0, ToStatus: domain.StatusInProgress, ToIndex: 1}
	if svc.lastDrop == nil || *svc.lastDrop != want {
		t.Fatalf("lastDrop = %#v, want %#v", svc.lastDrop, want)
	}
	if m.mode != modeNone || m.selectedLane != 1 || m.selectedTodo != 1 {
		t.Fatalf("expected cursor on dropped todo, mode=%v lane=%d row=%d", m.mode, m.selectedLane, m.selectedTodo)
	}
}

func TestModelGrabCancelAndNoopDrop(t *testing.T) {
	svc := fixtureService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keySpace())
	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone || svc.lastDrop != nil {
		t.Fatalf("expected cancelled grab, mode=%v drop=%#v", m.mode, svc.lastDrop)
	}

	m = applyMsg(t, m, keySpace())
	m = applyMsg(t, m, keySpace())
	if m.mode != modeNone || svc.lastDrop != nil {
		t.Fatalf("expected no-op drop, mode=%v drop=%#v", m.mode, svc.lastDrop)
	}
}

func TestModelStaleLoadShowsBanner(t *testing.T) {
	svc := fixtureService(t)
	svc.remoteErr = errors.New("dial tcp: timeout")
	m := loadReadyModel(t, NewModel(svc))

	if !m.stale {
		t.Fatal("expected stale board")
	}
	if m.toast.Kind != app.NoticeError || m.toast.Message != "Failed to load todos" {
		t.Fatalf("unexpected toast %#v", m.toast)
	}
	view := m.View().Content
	if !strings.Contains(view, "offline") || !strings.Contains(view, "Ship") {
		t.Fatalf("expected stale banner and cached todos:\n%s", view)
	}

	svc.remoteErr = nil
	m = applyMsg(t, m, keyRune('r'))
	if m.stale {
		t.Fatal("expected reload to clear stale flag")
	}
}

func TestModelLoadErrorAndRetry(t *testing.T) {
	svc := fixtureService(t)
	svc.loadErr = errors.New("disk gone")
	m := loadReadyModel(t, NewModel(svc))

	if m.err == nil || !strings.Contains(m.View().Content, "press r to retry") {
		t.Fatalf("expected error view, err=%v", m.err)
	}
	svc.loadErr = nil
	m = applyMsg(t, m, keyRune('r'))
	if m.err != nil || len(m.board.Lanes) != 3 {
		t.Fatalf("expected recovered board, err=%v", m.err)
	}
}

func TestModelToastExpiry(t *testing.T) {
	m := NewModel(fixtureService(t), WithNotifyDuration(time.Millisecond))
	if m.notifyDuration != time.Millisecond {
		t.Fatalf("notifyDuration = %v", m.notifyDuration)
	}
	if cmd := m.showToast(app.Notice{}); cmd != nil {
		t.Fatal("expected empty notice to schedule nothing")
	}
	_ = m.showToast(app.Notice{Kind: app.NoticeSuccess, Message: "first"})
	first := m.toastSeq
	_ = m.showToast(app.Notice{Kind: app.NoticeError, Message: "second"})

	m = applyMsg(t, m, toastExpiredMsg{seq: first})
	if m.toast.Message != "second" {
		t.Fatalf("stale expiry cleared newer toast: %#v", m.toast)
	}
	m = applyMsg(t, m, toastExpiredMsg{seq: m.toastSeq})
	if !m.toast.Empty() {
		t.Fatalf("expected toast cleared, got %#v", m.toast)
	}
}

func TestModelCopyTodoText(t *testing.T) {
	var copied string
	m := loadReadyModel(t, NewModel(fixtureService(t), WithClipboard(func(text string) error {
		copied = text
		return nil
	})))

	m = applyMsg(t, m, keyRune('y'))
	if copied != "Ship" || m.toast.Kind != app.NoticeSuccess {
		t.Fatalf("copied = %q toast = %#v", copied, m.toast)
	}

	m = NewModel(fixtureService(t), WithClipboard(func(string) error { return errors.New("no display") }))
	m = loadReadyModel(t, m)
	m = applyMsg(t, m, keyRune('y'))
	if m.toast.Kind != app.NoticeError || m.toast.Message != "Failed to copy todo" {
		t.Fatalf("unexpected toast %#v", m.toast)
	}
}

func TestModelActivityAndInfoOverlays(t *testing.T) {
	svc := fixtureService(t)
	svc.events = []domain.ChangeEvent{{
		ID:         "e1",
		TodoID:     1,
		Operation:  domain.ChangeOperationMove,
		Summary:    "Ship",
		Metadata:   map[string]string{"from": "pending", "to": "completed"},
		OccurredAt: time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC),
	}}
	m := loadReadyModel(t, NewModel(svc, WithActivityLimit(10)))

	m = applyMsg(t, m, keyRune('a'))
	if m.mode != modeActivityLog || len(m.activity) != 1 {
		t.Fatalf("expected activity overlay with 1 event, mode=%v events=%d", m.mode, len(m.activity))
	}
	view := m.View().Content
	if !strings.Contains(view, "Activity Log") || !strings.Contains(view, "pending → completed") {
		t.Fatalf("unexpected activity view:\n%s", view)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatalf("mode = %v, want none", m.mode)
	}

	m = applyMsg(t, m, keyRune('i'))
	if m.mode != modeTodoInfo || !strings.Contains(m.View().Content, "Todo Info") {
		t.Fatalf("expected info overlay, mode=%v", m.mode)
	}
	m = applyMsg(t, m, keyRune('i'))
	if m.mode != modeNone {
		t.Fatalf("mode = %v, want none", m.mode)
	}
}

func TestModelHelpOverlay(t *testing.T) {
	m := loadReadyModel(t, NewModel(fixtureService(t)))
	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll || !strings.Contains(m.View().Content, "lanes help") {
		t.Fatal("expected help overlay")
	}
	m = applyMsg(t, m, keyRune('d'))
	if m.mode != modeNone {
		t.Fatal("expected keys swallowed while help is open")
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.help.ShowAll {
		t.Fatal("expected help closed")
	}
}

func TestModelEmptyLaneActions(t *testing.T) {
	svc := newFakeService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('d'))
	if m.mode != modeNone || m.status != "no todo selected" {
		t.Fatalf("mode=%v status=%q", m.mode, m.status)
	}
	if !strings.Contains(m.View().Content, "(empty)") {
		t.Fatal("expected empty lane placeholder")
	}
}

func TestModelMouseSelection(t *testing.T) {
	m := loadReadyModel(t, NewModel(fixtureService(t)))
	x := m.columnWidth() + laneOverhead + 2
	m = applyMsg(t, m, tea.MouseClickMsg{X: x, Y: headerLines + 3, Button: tea.MouseLeft})
	if m.selectedLane != 1 || m.selectedTodo != 0 {
		t.Fatalf("click selected lane %d row %d", m.selectedLane, m.selectedTodo)
	}
	m = applyMsg(t, m, tea.MouseClickMsg{X: 2, Y: headerLines + 4, Button: tea.MouseLeft})
	if m.selectedLane != 0 || m.selectedTodo != 1 {
		t.Fatalf("click selected lane %d row %d", m.selectedLane, m.selectedTodo)
	}
	m = applyMsg(t, m, tea.MouseWheelMsg{Button: tea.MouseWheelUp})
	if m.selectedTodo != 0 {
		t.Fatalf("wheel up selected row %d", m.selectedTodo)
	}
}

func TestHelpers(t *testing.T) {
	if clamp(5, 0, 3) != 3 || clamp(-1, 0, 3) != 0 || clamp(2, 0, -1) != 0 {
		t.Fatal("unexpected clamp results")
	}
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("truncate = %q", got)
	}
	if truncate("abc", 0) != "" || truncate("abc", 5) != "abc" {
		t.Fatal("unexpected truncate edge cases")
	}
	if got := fitLines("a\nb\nc", 2); got != "a\n…" {
		t.Fatalf("fitLines = %q", got)
	}
	if got := fitLines("a", 3); got != "a\n\n" {
		t.Fatalf("fitLines pad = %q", got)
	}
	rows := []string{"0", "1", "2", "3", "4"}
	if got := scrollWindow(rows, 4, 2); strings.Join(got, ",") != "3,4" {
		t.Fatalf("scrollWindow = %v", got)
	}
	if got := scrollWindow(rows, -1, 2); strings.Join(got, ",") != "0,1" {
		t.Fatalf("scrollWindow = %v", got)
	}
	if got := todoMarkdown(domain.Todo{ID: 7, Text: "x", UserID: 3, Origin: domain.OriginLocal}, "Pending"); !strings.Contains(got, "Todo #7") || !strings.Contains(got, "**Owner:** 3") {
		t.Fatalf("unexpected markdown %q", got)
	}
	if got := formatActivity(domain.ChangeEvent{Operation: domain.ChangeOperationSync, Metadata: map[string]string{"total": "30"}}); !strings.Contains(got, "(30 todos)") {
		t.Fatalf("formatActivity = %q", got)
	}
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

// applyCmd runs commands synchronously; timers that do not fire quickly (toast expiry, cursor blink) are dropped.
func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg, ok := runCmd(currentCmd)
		if !ok {
			break
		}
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() {
		done <- cmd()
	}()
	select {
	case msg := <-done:
		return msg, msg != nil
	case <-time.After(50 * time.Millisecond):
		return nil, false
	}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = applyMsg(t, m, keyRune(r))
	}
	return m
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func keySpace() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}
}
