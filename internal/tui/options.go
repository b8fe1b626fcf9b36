package tui

import "time"

// Option configures a Model.
type Option func(*Model)

// defaultNotifyDuration is how long a toast stays on screen.
const defaultNotifyDuration = 3 * time.Second

// WithConfirmDelete toggles the delete confirmation modal.
func WithConfirmDelete(confirm bool) Option {
	return func(m *Model) {
		m.confirmDelete = confirm
	}
}

// WithNotifyDuration sets the toast lifetime. Non-positive values keep the default.
func WithNotifyDuration(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.notifyDuration = d
		}
	}
}

// WithClipboard replaces the function used to copy todo text.
func WithClipboard(copyText func(string) error) Option {
	return func(m *Model) {
		if copyText != nil {
			m.copyText = copyText
		}
	}
}

// WithActivityLimit caps how many events the activity overlay loads.
func WithActivityLimit(limit int) Option {
	return func(m *Model) {
		if limit > 0 {
			m.activityLimit = limit
		}
	}
}
