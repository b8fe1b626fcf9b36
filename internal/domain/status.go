package domain

import (
	"slices"
	"strings"
)

// Status identifies the lane a todo belongs to.
type Status string

// StatusPending and related constants define the fixed lanes.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// statusOrder stores lanes in left-to-right display order.
var statusOrder = []Status{StatusPending, StatusInProgress, StatusCompleted}

// Statuses returns every lane status in display order.
func Statuses() []Status {
	return slices.Clone(statusOrder)
}

// ParseStatus normalizes one raw status value and its common aliases.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	switch normalized {
	case "pending", "todo", "to-do":
		return StatusPending, nil
	case "in-progress", "progress", "inprogress", "doing":
		return StatusInProgress, nil
	case "completed", "complete", "done":
		return StatusCompleted, nil
	default:
		return "", ErrInvalidStatus
	}
}

// StatusFromCompleted derives the initial lane for a todo loaded from the API.
func StatusFromCompleted(completed bool) Status {
	if completed {
		return StatusCompleted
	}
	return StatusPending
}

// Valid reports whether the status names one of the fixed lanes.
func (s Status) Valid() bool {
	return slices.Contains(statusOrder, s)
}

// Index returns the lane position of the status, or -1.
func (s Status) Index() int {
	return slices.Index(statusOrder, s)
}

// Lane pairs a status with its display title.
type Lane struct {
	Status Status
	Title  string
}

// DefaultLanes returns the stock lane titles.
func DefaultLanes() []Lane {
	return []Lane{
		{Status: StatusPending, Title: "Pending"},
		{Status: StatusInProgress, Title: "In Progress"},
		{Status: StatusCompleted, Title: "Completed"},
	}
}

// NormalizeLanes returns one lane per status in display order, filling missing titles.
func NormalizeLanes(in []Lane) []Lane {
	titles := map[Status]string{}
	for _, lane := range in {
		title := strings.TrimSpace(lane.Title)
		if !lane.Status.Valid() || title == "" {
			continue
		}
		titles[lane.Status] = title
	}
	out := DefaultLanes()
	for idx := range out {
		if title, ok := titles[out[idx].Status]; ok {
			out[idx].Title = title
		}
	}
	return out
}
