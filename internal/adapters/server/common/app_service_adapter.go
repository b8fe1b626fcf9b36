package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/lanes/internal/app"
	"github.com/evanschultz/lanes/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service board APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// Board returns the local overlay, or reloads from the todos API when refresh is set.
func (a *AppServiceAdapter) Board(ctx context.Context, refresh bool) (BoardView, error) {
	if err := a.ready(); err != nil {
		return BoardView{}, err
	}
	if !refresh {
		board, err := a.service.Board(ctx)
		if err != nil {
			return BoardView{}, mapAppError("board", err)
		}
		return mapBoard(board), nil
	}
	load, err := a.service.LoadBoard(ctx)
	if err != nil {
		return BoardView{}, mapAppError("load board", err)
	}
	out := mapBoard(load.Board)
	out.Stale = load.Stale
	out.Notice = load.Notice.Message
	return out, nil
}

// AddTodo creates one todo at the end of the in-progress lane.
func (a *AppServiceAdapter) AddTodo(ctx context.Context, in AddTodoRequest) (MutationResult, error) {
	if err := a.ready(); err != nil {
		return MutationResult{}, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return MutationResult{}, fmt.Errorf("text is required: %w", ErrInvalidRequest)
	}
	res, err := a.service.CreateTodo(ctx, in.Text)
	if err != nil {
		return MutationResult{}, mapAppError("add todo", err)
	}
	return mapResult(res), nil
}

// EditTodo replaces the text of one todo.
func (a *AppServiceAdapter) EditTodo(ctx context.Context, in EditTodoRequest) (MutationResult, error) {
	if err := a.ready(); err != nil {
		return MutationResult{}, err
	}
	if in.ID <= 0 {
		return MutationResult{}, fmt.Errorf("id must be > 0: %w", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Text) == "" {
		return MutationResult{}, fmt.Errorf("text is required: %w", ErrInvalidRequest)
	}
	res, err := a.service.EditTodo(ctx, in.ID, in.Text)
	if err != nil {
		return MutationResult{}, mapAppError("edit todo", err)
	}
	return mapResult(res), nil
}

// MoveTodo drops one todo into the requested lane and index.
func (a *AppServiceAdapter) MoveTodo(ctx context.Context, in MoveTodoRequest) (MutationResult, error) {
	if err := a.ready(); err != nil {
		return MutationResult{}, err
	}
	if in.ID <= 0 {
		return MutationResult{}, fmt.Errorf("id must be > 0: %w", ErrInvalidRequest)
	}
	status, err := domain.ParseStatus(in.Status)
	if err != nil {
		return MutationResult{}, fmt.Errorf("status %q: %w", in.Status, errors.Join(ErrInvalidRequest, err))
	}
	index := -1
	if in.Index != nil {
		if *in.Index < 0 {
			return MutationResult{}, fmt.Errorf("index must be >= 0: %w", ErrInvalidRequest)
		}
		index = *in.Index
	}
	res, err := a.service.DropTodo(ctx, app.DropInput{
		TodoID:    in.ID,
		FromIndex: -1,
		ToStatus:  status,
		ToIndex:   index,
	})
	if err != nil {
		return MutationResult{}, mapAppError("move todo", err)
	}
	return mapResult(res), nil
}

// DeleteTodo removes one todo.
func (a *AppServiceAdapter) DeleteTodo(ctx context.Context, id int) (MutationResult, error) {
	if err := a.ready(); err != nil {
		return MutationResult{}, err
	}
	if id <= 0 {
		return MutationResult{}, fmt.Errorf("id must be > 0: %w", ErrInvalidRequest)
	}
	res, err := a.service.DeleteTodo(ctx, id)
	if err != nil {
		return MutationResult{}, mapAppError("delete todo", err)
	}
	return mapResult(res), nil
}

// Activity lists change events newest first.
func (a *AppServiceAdapter) Activity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit must be >= 0: %w", ErrInvalidRequest)
	}
	events, err := a.service.ListActivity(ctx, limit)
	if err != nil {
		return nil, mapAppError("list activity", err)
	}
	out := make([]ActivityEntry, 0, len(events))
	for _, event := range events {
		out = append(out, ActivityEntry{
			ID:         event.ID,
			TodoID:     event.TodoID,
			Operation:  string(event.Operation),
			Summary:    event.Summary,
			Metadata:   event.Metadata,
			OccurredAt: event.OccurredAt,
		})
	}
	return out, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return errors.New("app service adapter is not configured")
	}
	return nil
}

// mapAppError maps app and domain errors onto transport sentinels.
func mapAppError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	case app.IsValidation(err):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrInvalidRequest, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w", op, errors.Join(ErrUpstreamFailed, err))
	}
}

func mapBoard(board domain.Board) BoardView {
	out := BoardView{Lanes: make([]LaneView, 0, len(board.Lanes))}
	for _, lane := range board.Lanes {
		view := LaneView{
			Status: string(lane.Lane.Status),
			Title:  lane.Lane.Title,
			Count:  len(lane.Todos),
			Todos:  make([]TodoView, 0, len(lane.Todos)),
		}
		for _, todo := range lane.Todos {
			view.Todos = append(view.Todos, mapTodo(todo))
		}
		out.Lanes = append(out.Lanes, view)
	}
	return out
}

func mapTodo(todo domain.Todo) TodoView {
	return TodoView{
		ID:        todo.ID,
		Text:      todo.Text,
		Completed: todo.Completed,
		UserID:    todo.UserID,
		Status:    string(todo.Status),
		Position:  todo.Position,
		Origin:    string(todo.Origin),
		UpdatedAt: todo.UpdatedAt,
	}
}

func mapResult(res app.Result) MutationResult {
	return MutationResult{Todo: mapTodo(res.Todo), Notice: res.Notice.Message}
}
