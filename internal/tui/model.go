package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/evanschultz/lanes/internal/app"
	"github.com/evanschultz/lanes/internal/domain"
)

// Service is the board API the terminal UI drives.
type Service interface {
	LoadBoard(context.Context) (app.BoardLoad, error)
	Board(context.Context) (domain.Board, error)
	CreateTodo(context.Context, string) (app.Result, error)
	EditTodo(context.Context, int, string) (app.Result, error)
	DropTodo(context.Context, app.DropInput) (app.Result, error)
	MoveTodo(context.Context, int, int) (app.Result, error)
	ReorderTodo(context.Context, int, int) (app.Result, error)
	DeleteTodo(context.Context, int) (app.Result, error)
	ListActivity(context.Context, int) ([]domain.ChangeEvent, error)
}

// inputMode represents the active interaction mode.
type inputMode int

// modeNone and related constants define interaction modes.
const (
	modeNone inputMode = iota
	modeAddTodo
	modeEditTodo
	modeTodoInfo
	modeConfirmDelete
	modeActivityLog
	modeGrab
)

const (
	todoTextLimit        = 280
	defaultActivityLimit = 50
	activityViewWindow   = 14
)

// todoRequiredMessage is shown inside the dialog when the text is blank.
const todoRequiredMessage = "Todo is required"

// loadedMsg carries the result of a board load.
type loadedMsg struct {
	load app.BoardLoad
	err  error
}

// actionMsg carries the result of one mutation plus the board after it.
type actionMsg struct {
	result   app.Result
	err      error
	board    domain.Board
	boardErr error
}

// activityLoadedMsg carries persisted change events for the activity overlay.
type activityLoadedMsg struct {
	events []domain.ChangeEvent
	err    error
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	err error
}

// toastExpiredMsg clears the toast with the matching sequence number.
type toastExpiredMsg struct {
	seq int
}

// grabState tracks one in-progress grab-and-drop gesture.
type grabState struct {
	todo      domain.Todo
	fromLane  int
	fromIndex int
	toLane    int
	toIndex   int
}

// Model is the Bubble Tea model for the lanes board.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error
	status string

	board        domain.Board
	stale        bool
	selectedLane int
	selectedTodo int

	mode          inputMode
	input         textinput.Model
	formErr       string
	editID        int
	pendingDelete domain.Todo
	confirmChoice int
	grab          grabState
	activity      []domain.ChangeEvent

	toast    app.Notice
	toastSeq int

	help     help.Model
	keys     keyMap
	markdown *markdownRenderer

	confirmDelete  bool
	notifyDuration time.Duration
	activityLimit  int
	copyText       func(string) error
}

// NewModel constructs the board model.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:            svc,
		status:         "loading...",
		help:           h,
		keys:           newKeyMap(),
		markdown:       &markdownRenderer{},
		confirmDelete:  true,
		notifyDuration: defaultNotifyDuration,
		activityLimit:  defaultActivityLimit,
		copyText:       clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init starts the first board load.
func (m Model) Init() tea.Cmd {
	return m.loadBoard
}

// Update applies one message to the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "load failed"
			return m, nil
		}
		m.err = nil
		focusID := m.selectedTodoID()
		m.board = msg.load.Board
		m.stale = msg.load.Stale
		m.focusTodo(focusID)
		m.status = "ready"
		if m.stale {
			m.status = "offline: showing cached board"
		}
		return m, m.showToast(msg.load.Notice)

	case actionMsg:
		if msg.boardErr == nil {
			m.board = msg.board
		}
		if msg.err == nil && msg.result.Todo.ID != 0 {
			m.focusTodo(msg.result.Todo.ID)
		} else {
			m.clampSelection()
		}
		notice := msg.result.Notice
		if msg.err != nil && notice.Empty() {
			notice = app.Notice{Kind: app.NoticeError, Message: "Operation failed"}
		}
		if msg.boardErr != nil {
			m.status = "refresh failed"
		}
		return m, m.showToast(notice)

	case activityLoadedMsg:
		if msg.err != nil {
			if m.mode == modeActivityLog {
				m.mode = modeNone
			}
			return m, m.showToast(app.Notice{Kind: app.NoticeError, Message: "Failed to load activity"})
		}
		m.activity = msg.events
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			return m, m.showToast(app.Notice{Kind: app.NoticeError, Message: "Failed to copy todo"})
		}
		return m, m.showToast(app.Notice{Kind: app.NoticeSuccess, Message: "Todo copied to clipboard"})

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = app.Notice{}
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	default:
		if m.mode == modeAddTodo || m.mode == modeEditTodo {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleKey routes a key press by mode.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.help.ShowAll {
		if key.Matches(msg, m.keys.toggleHelp, m.keys.cancel) {
			m.help.ShowAll = false
		}
		return m, nil
	}
	switch m.mode {
	case modeAddTodo, modeEditTodo:
		return m.handleDialogKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	case modeGrab:
		return m.handleGrabKey(msg)
	case modeTodoInfo, modeActivityLog:
		if key.Matches(msg, m.keys.cancel, m.keys.todoInfo, m.keys.activityLog, m.keys.quit) {
			m.mode = modeNone
		}
		return m, nil
	}
	return m.handleNormalModeKey(msg)
}

// handleNormalModeKey handles board navigation and actions.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.err != nil {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.reload):
			m.err = nil
			m.status = "loading..."
			return m, m.loadBoard
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadBoard
	case key.Matches(msg, m.keys.laneLeft):
		m.selectLane(m.selectedLane - 1)
		return m, nil
	case key.Matches(msg, m.keys.laneRight):
		m.selectLane(m.selectedLane + 1)
		return m, nil
	case key.Matches(msg, m.keys.todoUp):
		m.selectedTodo = max(0, m.selectedTodo-1)
		return m, nil
	case key.Matches(msg, m.keys.todoDown):
		m.selectedTodo++
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.addTodo):
		return m, m.openDialog(modeAddTodo, domain.Todo{})
	case key.Matches(msg, m.keys.activityLog):
		m.mode = modeActivityLog
		m.activity = nil
		return m, m.loadActivity
	}

	todo, ok := m.selectedTodoItem()
	if !ok {
		if key.Matches(msg, m.keys.editTodo, m.keys.todoInfo, m.keys.deleteTodo, m.keys.grab, m.keys.copyText,
			m.keys.moveLeft, m.keys.moveRight, m.keys.reorderUp, m.keys.reorderDown) {
			m.status = "no todo selected"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.editTodo):
		return m, m.openDialog(modeEditTodo, todo)
	case key.Matches(msg, m.keys.todoInfo):
		m.mode = modeTodoInfo
		return m, nil
	case key.Matches(msg, m.keys.deleteTodo):
		if !m.confirmDelete {
			return m, m.deleteTodo(todo.ID)
		}
		m.mode = modeConfirmDelete
		m.pendingDelete = todo
		m.confirmChoice = 1
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		return m, m.mutate(func(ctx context.Context) (app.Result, error) {
			return m.svc.MoveTodo(ctx, todo.ID, -1)
		})
	case key.Matches(msg, m.keys.moveRight):
		return m, m.mutate(func(ctx context.Context) (app.Result, error) {
			return m.svc.MoveTodo(ctx, todo.ID, 1)
		})
	case key.Matches(msg, m.keys.reorderUp):
		return m, m.mutate(func(ctx context.Context) (app.Result, error) {
			return m.svc.ReorderTodo(ctx, todo.ID, -1)
		})
	case key.Matches(msg, m.keys.reorderDown):
		return m, m.mutate(func(ctx context.Context) (app.Result, error) {
			return m.svc.ReorderTodo(ctx, todo.ID, 1)
		})
	case key.Matches(msg, m.keys.grab):
		m.startGrab(todo)
		return m, nil
	case key.Matches(msg, m.keys.copyText):
		copyText := m.copyText
		text := todo.Text
		return m, func() tea.Msg {
			return copiedMsg{err: copyText(text)}
		}
	}
	return m, nil
}

// handleDialogKey handles keys while the add/edit dialog is open.
func (m Model) handleDialogKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.closeDialog()
		return m, nil
	case key.Matches(msg, m.keys.submitDialog):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			m.formErr = todoRequiredMessage
			return m, nil
		}
		mode, id := m.mode, m.editID
		m.closeDialog()
		if mode == modeEditTodo {
			return m, m.mutate(func(ctx context.Context) (app.Result, error) {
				return m.svc.EditTodo(ctx, id, text)
			})
		}
		return m, m.mutate(func(ctx context.Context) (app.Result, error) {
			return m.svc.CreateTodo(ctx, text)
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if strings.TrimSpace(m.input.Value()) != "" {
		m.formErr = ""
	}
	return m, cmd
}

// handleConfirmKey handles the delete confirmation modal.
func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.confirmNo):
		m.mode = modeNone
		m.pendingDelete = domain.Todo{}
		m.status = "cancelled"
		return m, nil
	case key.Matches(msg, m.keys.laneLeft, m.keys.laneRight):
		m.confirmChoice = 1 - m.confirmChoice
		return m, nil
	case key.Matches(msg, m.keys.confirmYes):
		m.confirmChoice = 0
	case msg.String() == "enter":
	default:
		return m, nil
	}
	todo := m.pendingDelete
	m.mode = modeNone
	m.pendingDelete = domain.Todo{}
	if m.confirmChoice == 1 {
		m.status = "cancelled"
		return m, nil
	}
	return m, m.deleteTodo(todo.ID)
}

// handleGrabKey moves the drop target or finishes the gesture.
func (m Model) handleGrabKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.mode = modeNone
		m.grab = grabState{}
		m.status = "drop cancelled"
		return m, nil
	case key.Matches(msg, m.keys.drop):
		return m.dropGrabbed()
	case key.Matches(msg, m.keys.laneLeft):
		m.moveDropTarget(m.grab.toLane-1, m.grab.toIndex)
	case key.Matches(msg, m.keys.laneRight):
		m.moveDropTarget(m.grab.toLane+1, m.grab.toIndex)
	case key.Matches(msg, m.keys.todoUp):
		m.moveDropTarget(m.grab.toLane, m.grab.toIndex-1)
	case key.Matches(msg, m.keys.todoDown):
		m.moveDropTarget(m.grab.toLane, m.grab.toIndex+1)
	}
	return m, nil
}

// startGrab picks up the selected todo.
func (m *Model) startGrab(todo domain.Todo) {
	m.mode = modeGrab
	m.grab = grabState{
		todo:      todo,
		fromLane:  m.selectedLane,
		fromIndex: m.selectedTodo,
		toLane:    m.selectedLane,
		toIndex:   m.selectedTodo,
	}
	m.status = "grabbed #" + strconv.Itoa(todo.ID)
}

// moveDropTarget clamps and stores a new drop target.
func (m *Model) moveDropTarget(lane, index int) {
	lane = clamp(lane, 0, len(m.board.Lanes)-1)
	m.grab.toLane = lane
	m.grab.toIndex = clamp(index, 0, m.maxDropIndex(lane))
}

// maxDropIndex is the last valid drop index in a lane for the grabbed todo.
func (m Model) maxDropIndex(lane int) int {
	if lane < 0 || lane >= len(m.board.Lanes) {
		return 0
	}
	n := len(m.board.Lanes[lane].Todos)
	if lane == m.grab.fromLane {
		return max(0, n-1)
	}
	return n
}

// dropGrabbed submits the grab gesture to the service.
func (m Model) dropGrabbed() (tea.Model, tea.Cmd) {
	g := m.grab
	m.mode = modeNone
	m.grab = grabState{}
	if g.toLane == g.fromLane && g.toIndex == g.fromIndex {
		m.status = "ready"
		return m, nil
	}
	if g.fromLane >= len(m.board.Lanes) || g.toLane >= len(m.board.Lanes) {
		return m, nil
	}
	in := app.DropInput{
		TodoID:     g.todo.ID,
		FromStatus: m.board.Lanes[g.fromLane].Lane.Status,
		FromIndex:  g.fromIndex,
		ToStatus:   m.board.Lanes[g.toLane].Lane.Status,
		ToIndex:    g.toIndex,
	}
	m.status = "ready"
	return m, m.mutate(func(ctx context.Context) (app.Result, error) {
		return m.svc.DropTodo(ctx, in)
	})
}

// openDialog opens the add or edit dialog.
func (m *Model) openDialog(mode inputMode, todo domain.Todo) tea.Cmd {
	m.mode = mode
	m.formErr = ""
	m.editID = todo.ID
	m.input = newModalInput("› ", "What needs doing?", todo.Text, todoTextLimit)
	m.input.SetWidth(max(20, min(60, m.width-16)))
	return m.input.Focus()
}

// closeDialog resets the dialog state.
func (m *Model) closeDialog() {
	m.mode = modeNone
	m.formErr = ""
	m.editID = 0
	m.input.Blur()
}

// newModalInput constructs a dialog text input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// loadBoard fetches the board from the service.
func (m Model) loadBoard() tea.Msg {
	load, err := m.svc.LoadBoard(context.Background())
	return loadedMsg{load: load, err: err}
}

// loadActivity fetches recent change events.
func (m Model) loadActivity() tea.Msg {
	events, err := m.svc.ListActivity(context.Background(), m.activityLimit)
	return activityLoadedMsg{events: events, err: err}
}

// mutate runs one service mutation and re-reads the board afterwards.
func (m Model) mutate(fn func(context.Context) (app.Result, error)) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		res, err := fn(ctx)
		board, boardErr := svc.Board(ctx)
		return actionMsg{result: res, err: err, board: board, boardErr: boardErr}
	}
}

// deleteTodo removes one todo.
func (m Model) deleteTodo(id int) tea.Cmd {
	return m.mutate(func(ctx context.Context) (app.Result, error) {
		return m.svc.DeleteTodo(ctx, id)
	})
}

// showToast replaces the current toast and schedules its expiry.
func (m *Model) showToast(n app.Notice) tea.Cmd {
	if n.Empty() {
		return nil
	}
	m.toastSeq++
	m.toast = n
	seq := m.toastSeq
	return tea.Tick(m.notifyDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// selectLane moves the cursor to a lane, keeping the row in range.
func (m *Model) selectLane(lane int) {
	m.selectedLane = clamp(lane, 0, len(m.board.Lanes)-1)
	m.clampSelection()
}

// clampSelection keeps the cursor on an existing lane and row.
func (m *Model) clampSelection() {
	m.selectedLane = clamp(m.selectedLane, 0, len(m.board.Lanes)-1)
	m.selectedTodo = clamp(m.selectedTodo, 0, len(m.laneTodos(m.selectedLane))-1)
}

// focusTodo moves the cursor onto the todo with id when it exists.
func (m *Model) focusTodo(id int) {
	if id != 0 {
		if _, status, idx, ok := m.board.Find(id); ok {
			m.selectedLane = status.Index()
			m.selectedTodo = idx
			return
		}
	}
	m.clampSelection()
}

// laneTodos returns the todos of one lane.
func (m Model) laneTodos(lane int) []domain.Todo {
	if lane < 0 || lane >= len(m.board.Lanes) {
		return nil
	}
	return m.board.Lanes[lane].Todos
}

// selectedTodoItem returns the todo under the cursor.
func (m Model) selectedTodoItem() (domain.Todo, bool) {
	todos := m.laneTodos(m.selectedLane)
	if m.selectedTodo < 0 || m.selectedTodo >= len(todos) {
		return domain.Todo{}, false
	}
	return todos[m.selectedTodo], true
}

// selectedTodoID returns the id under the cursor or zero.
func (m Model) selectedTodoID() int {
	todo, ok := m.selectedTodoItem()
	if !ok {
		return 0
	}
	return todo.ID
}

// handleMouseWheel scrolls the cursor within the selected lane.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		m.selectedTodo = max(0, m.selectedTodo-1)
	case tea.MouseWheelDown:
		m.selectedTodo++
	}
	m.clampSelection()
	return m, nil
}

// handleMouseClick selects the lane and todo under the pointer, or retargets a grab.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || len(m.board.Lanes) == 0 {
		return m, nil
	}
	if m.mode != modeNone && m.mode != modeGrab {
		return m, nil
	}
	lane, row, ok := m.hitTest(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	if m.mode == modeGrab {
		if row < 0 {
			row = m.maxDropIndex(lane)
		}
		m.moveDropTarget(lane, row)
		return m, nil
	}
	m.selectedLane = lane
	if row >= 0 {
		m.selectedTodo = row
	}
	m.clampSelection()
	return m, nil
}
