package domain

import (
	"strings"
	"time"
)

// Origin records where a todo was first seen.
type Origin string

// OriginRemote and related constants define todo origins.
const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Todo is one card on the board.
type Todo struct {
	ID        int
	Text      string
	Completed bool
	UserID    int
	Status    Status
	Position  int
	Origin    Origin
	UpdatedAt time.Time
}

// TodoInput holds values for NewTodo.
type TodoInput struct {
	ID        int
	Text      string
	Completed bool
	UserID    int
	Status    Status
	Position  int
	Origin    Origin
}

// NewTodo validates input and builds a todo.
func NewTodo(in TodoInput, now time.Time) (Todo, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.ID <= 0 {
		return Todo{}, ErrInvalidID
	}
	if in.Text == "" {
		return Todo{}, ErrInvalidText
	}
	if in.UserID <= 0 {
		return Todo{}, ErrInvalidOwner
	}
	if in.Position < 0 {
		return Todo{}, ErrInvalidPosition
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() {
		return Todo{}, ErrInvalidStatus
	}
	switch in.Origin {
	case "":
		in.Origin = OriginRemote
	case OriginRemote, OriginLocal:
	default:
		in.Origin = OriginRemote
	}

	return Todo{
		ID:        in.ID,
		Text:      in.Text,
		Completed: in.Completed,
		UserID:    in.UserID,
		Status:    in.Status,
		Position:  in.Position,
		Origin:    in.Origin,
		UpdatedAt: now.UTC(),
	}, nil
}

// UpdateText replaces the todo text; the text is required.
func (t *Todo) UpdateText(text string, now time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrInvalidText
	}
	t.Text = text
	t.UpdatedAt = now.UTC()
	return nil
}

// SetStatus moves the todo to another lane and keeps Completed aligned with it.
func (t *Todo) SetStatus(status Status, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	t.Status = status
	t.Completed = status == StatusCompleted
	t.UpdatedAt = now.UTC()
	return nil
}

// IsLocal reports whether the remote API has never stored this todo.
func (t Todo) IsLocal() bool {
	return t.Origin == OriginLocal
}

// Tombstone marks a todo id deleted on this board so reloads do not bring it back.
type Tombstone struct {
	TodoID    int
	DeletedAt time.Time
}
