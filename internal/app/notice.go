package app

// NoticeKind classifies a user-facing notice.
type NoticeKind string

// NoticeSuccess and related constants define notice kinds.
const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the short message shown to the user after an operation.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Empty reports whether the notice carries nothing to show.
func (n Notice) Empty() bool {
	return n.Message == ""
}

// Operation names one board operation for notice lookup.
type Operation string

// OperationLoad and related constants define board operations.
const (
	OperationLoad    Operation = "load"
	OperationCreate  Operation = "create"
	OperationEdit    Operation = "edit"
	OperationMove    Operation = "move"
	OperationReorder Operation = "reorder"
	OperationDelete  Operation = "delete"
)

var noticeMessages = map[Operation][2]string{
	OperationLoad:    {"", "Failed to load todos"},
	OperationCreate:  {"Todo added successfully", "Failed to add todo"},
	OperationEdit:    {"Todo updated successfully", "Failed to update todo"},
	OperationMove:    {"Todo status updated successfully", "Failed to update todo status"},
	OperationReorder: {"", "Failed to reorder todo"},
	OperationDelete:  {"Todo deleted successfully", "Failed to delete todo"},
}

// NoticeFor returns the notice for one operation outcome.
// Raw errors never reach the message; callers log them.
func NoticeFor(op Operation, err error) Notice {
	msgs, ok := noticeMessages[op]
	if !ok {
		return Notice{}
	}
	if err != nil {
		return Notice{Kind: NoticeError, Message: msgs[1]}
	}
	if msgs[0] == "" {
		return Notice{}
	}
	return Notice{Kind: NoticeSuccess, Message: msgs[0]}
}
