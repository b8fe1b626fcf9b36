// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed or rejected input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrUpstreamFailed reports a todos API failure; the board is left unchanged.
var ErrUpstreamFailed = errors.New("upstream todos api failed")

// TodoView is the transport shape of one todo.
type TodoView struct {
	ID        int       `json:"id"`
	Text      string    `json:"todo"`
	Completed bool      `json:"completed"`
	UserID    int       `json:"userId"`
	Status    string    `json:"status"`
	Position  int       `json:"position"`
	Origin    string    `json:"origin"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LaneView is one lane with its ordered todos.
type LaneView struct {
	Status string     `json:"status"`
	Title  string     `json:"title"`
	Count  int        `json:"count"`
	Todos  []TodoView `json:"todos"`
}

// BoardView is the whole board as served to clients.
type BoardView struct {
	Lanes  []LaneView `json:"lanes"`
	Stale  bool       `json:"stale,omitempty"`
	Notice string     `json:"notice,omitempty"`
}

// MutationResult carries the touched todo and the user-facing notice.
type MutationResult struct {
	Todo   TodoView `json:"todo"`
	Notice string   `json:"notice,omitempty"`
}

// ActivityEntry is one change-log row.
type ActivityEntry struct {
	ID         string            `json:"id"`
	TodoID     int               `json:"todo_id,omitempty"`
	Operation  string            `json:"operation"`
	Summary    string            `json:"summary"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// AddTodoRequest creates one todo.
type AddTodoRequest struct {
	Text string `json:"text"`
}

// EditTodoRequest replaces the text of one todo.
type EditTodoRequest struct {
	ID   int    `json:"-"`
	Text string `json:"text"`
}

// MoveTodoRequest drops one todo into a lane; a nil Index drops at the lane end.
type MoveTodoRequest struct {
	ID     int    `json:"-"`
	Status string `json:"status"`
	Index  *int   `json:"index,omitempty"`
}

// BoardService is the board surface shared by REST and MCP transports.
type BoardService interface {
	Board(context.Context, bool) (BoardView, error)
	AddTodo(context.Context, AddTodoRequest) (MutationResult, error)
	EditTodo(context.Context, EditTodoRequest) (MutationResult, error)
	MoveTodo(context.Context, MoveTodoRequest) (MutationResult, error)
	DeleteTodo(context.Context, int) (MutationResult, error)
	Activity(context.Context, int) ([]ActivityEntry, error)
}
