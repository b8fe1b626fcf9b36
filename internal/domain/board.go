package domain

import (
	"cmp"
	"slices"
)

// LaneTodos holds the ordered todos of one lane.
type LaneTodos struct {
	Lane  Lane
	Todos []Todo
}

// Board partitions todos into the fixed lanes.
type Board struct {
	Lanes []LaneTodos
}

// NewBoard groups todos by status, ordered by position then id.
// Todos with an unknown status go to the end of the pending lane, in input order.
func NewBoard(lanes []Lane, todos []Todo) Board {
	lanes = NormalizeLanes(lanes)
	board := Board{Lanes: make([]LaneTodos, len(lanes))}
	for idx, lane := range lanes {
		board.Lanes[idx] = LaneTodos{Lane: lane, Todos: []Todo{}}
	}
	var strays []Todo
	for _, todo := range todos {
		if !todo.Status.Valid() {
			todo.Status = StatusPending
			todo.Completed = false
			strays = append(strays, todo)
			continue
		}
		idx := todo.Status.Index()
		board.Lanes[idx].Todos = append(board.Lanes[idx].Todos, todo)
	}
	for idx := range board.Lanes {
		slices.SortStableFunc(board.Lanes[idx].Todos, func(a, b Todo) int {
			if a.Position == b.Position {
				return cmp.Compare(a.ID, b.ID)
			}
			return cmp.Compare(a.Position, b.Position)
		})
	}
	pending := &board.Lanes[StatusPending.Index()]
	pending.Todos = append(pending.Todos, strays...)
	for idx := range board.Lanes {
		board.Lanes[idx].renumber()
	}
	return board
}

// Lane returns the lane holding the given status.
func (b *Board) Lane(status Status) (*LaneTodos, bool) {
	for idx := range b.Lanes {
		if b.Lanes[idx].Lane.Status == status {
			return &b.Lanes[idx], true
		}
	}
	return nil, false
}

// Find returns the todo with id together with its lane status and index.
func (b Board) Find(id int) (Todo, Status, int, bool) {
	for _, lane := range b.Lanes {
		for idx, todo := range lane.Todos {
			if todo.ID == id {
				return todo, lane.Lane.Status, idx, true
			}
		}
	}
	return Todo{}, "", -1, false
}

// Todos flattens the board in lane order.
func (b Board) Todos() []Todo {
	out := make([]Todo, 0)
	for _, lane := range b.Lanes {
		out = append(out, lane.Todos...)
	}
	return out
}

// Counts returns the number of todos per lane status.
func (b Board) Counts() map[Status]int {
	out := make(map[Status]int, len(b.Lanes))
	for _, lane := range b.Lanes {
		out[lane.Lane.Status] = len(lane.Todos)
	}
	return out
}

// MaxID returns the largest todo id on the board.
func (b Board) MaxID() int {
	maxID := 0
	for _, todo := range b.Todos() {
		if todo.ID > maxID {
			maxID = todo.ID
		}
	}
	return maxID
}

// Reorder moves one todo inside a lane, shifting its neighbours.
func (b *Board) Reorder(status Status, from, to int) error {
	lane, ok := b.Lane(status)
	if !ok {
		return ErrInvalidStatus
	}
	if from < 0 || from >= len(lane.Todos) {
		return ErrInvalidPosition
	}
	to = clampIndex(to, len(lane.Todos)-1)
	if from == to {
		return nil
	}
	todo := lane.Todos[from]
	lane.Todos = slices.Delete(lane.Todos, from, from+1)
	lane.Todos = slices.Insert(lane.Todos, to, todo)
	lane.renumber()
	return nil
}

// Transfer removes a todo from one lane and inserts it into another at the target index.
func (b *Board) Transfer(fromStatus Status, from int, toStatus Status, to int) (Todo, error) {
	source, ok := b.Lane(fromStatus)
	if !ok {
		return Todo{}, ErrInvalidStatus
	}
	target, ok := b.Lane(toStatus)
	if !ok {
		return Todo{}, ErrInvalidStatus
	}
	if from < 0 || from >= len(source.Todos) {
		return Todo{}, ErrInvalidPosition
	}
	if fromStatus == toStatus {
		if err := b.Reorder(fromStatus, from, to); err != nil {
			return Todo{}, err
		}
		return source.Todos[clampIndex(to, len(source.Todos)-1)], nil
	}
	todo := source.Todos[from]
	source.Todos = slices.Delete(source.Todos, from, from+1)
	to = clampIndex(to, len(target.Todos))
	todo.Status = toStatus
	todo.Completed = toStatus == StatusCompleted
	target.Todos = slices.Insert(target.Todos, to, todo)
	source.renumber()
	target.renumber()
	return target.Todos[to], nil
}

// Replace swaps the stored copy of a todo in place.
func (b *Board) Replace(todo Todo) bool {
	for laneIdx := range b.Lanes {
		for idx := range b.Lanes[laneIdx].Todos {
			if b.Lanes[laneIdx].Todos[idx].ID == todo.ID {
				todo.Position = idx
				b.Lanes[laneIdx].Todos[idx] = todo
				return true
			}
		}
	}
	return false
}

// Append adds a todo at the end of its lane.
func (b *Board) Append(todo Todo) Todo {
	if !todo.Status.Valid() {
		todo.Status = StatusPending
	}
	lane, _ := b.Lane(todo.Status)
	todo.Position = len(lane.Todos)
	lane.Todos = append(lane.Todos, todo)
	return todo
}

// Remove deletes a todo from the board.
func (b *Board) Remove(id int) bool {
	for laneIdx := range b.Lanes {
		lane := &b.Lanes[laneIdx]
		for idx := range lane.Todos {
			if lane.Todos[idx].ID == id {
				lane.Todos = slices.Delete(lane.Todos, idx, idx+1)
				lane.renumber()
				return true
			}
		}
	}
	return false
}

// renumber rewrites positions to 0..n-1.
func (l *LaneTodos) renumber() {
	for idx := range l.Todos {
		l.Todos[idx].Position = idx
	}
}

// clampIndex clamps idx into 0..maxIdx.
func clampIndex(idx, maxIdx int) int {
	if maxIdx < 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx > maxIdx {
		return maxIdx
	}
	return idx
}
