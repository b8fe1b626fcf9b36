package app

import (
	"context"
	"time"

	"github.com/evanschultz/lanes/internal/domain"
)

// RemotePage is one listing from the todos API. Total counts every todo the API holds,
// listed or not.
type RemotePage struct {
	Todos []domain.Todo
	Total int
}

// RemoteTodos is the todos REST API the board mirrors.
type RemoteTodos interface {
	ListTodos(context.Context) (RemotePage, error)
	AddTodo(context.Context, domain.Todo) (domain.Todo, error)
	UpdateTodo(context.Context, int, domain.Todo) (domain.Todo, error)
	DeleteTodo(context.Context, int) error
}

// Store keeps the local board overlay.
type Store interface {
	ListTodos(context.Context) ([]domain.Todo, error)
	GetTodo(context.Context, int) (domain.Todo, error)
	UpsertTodo(context.Context, domain.Todo) error
	ReplaceTodos(context.Context, []domain.Todo) error
	DeleteTodo(context.Context, int, time.Time) error

	ListTombstones(context.Context) ([]domain.Tombstone, error)
	PutTombstone(context.Context, domain.Tombstone) error
	ClearTombstones(context.Context) error

	RecordChangeEvent(context.Context, domain.ChangeEvent) error
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}
