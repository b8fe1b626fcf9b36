package domain

import "time"

// ChangeOperation describes a persisted activity operation for a todo.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate  ChangeOperation = "create"
	ChangeOperationUpdate  ChangeOperation = "update"
	ChangeOperationMove    ChangeOperation = "move"
	ChangeOperationReorder ChangeOperation = "reorder"
	ChangeOperationDelete  ChangeOperation = "delete"
	ChangeOperationSync    ChangeOperation = "sync"
)

// ChangeEvent represents a single activity-log entry for the board.
type ChangeEvent struct {
	ID         string
	TodoID     int
	Operation  ChangeOperation
	Summary    string
	Metadata   map[string]string
	OccurredAt time.Time
}
