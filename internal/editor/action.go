package editor

import "strings"

// Action: запрошенная клиентом операция.
type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionEdit
	ActionDelete
	ActionUpload
	ActionUnknown
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "remove"
	case ActionUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// ParseAction: без action это чтение, remove это удаление, прочее неизвестное даёт Unknown.
func ParseAction(raw string) Action {
	switch strings.TrimSpace(raw) {
	case "":
		return ActionRead
	case "create":
		return ActionCreate
	case "edit":
		return ActionEdit
	case "remove":
		return ActionDelete
	case "upload":
		return ActionUpload
	default:
		return ActionUnknown
	}
}

// SetType: в каких операциях поле пишется в БД. Нулевое значение означает обе.
type SetType int

const (
	SetBoth SetType = iota
	SetNone
	SetCreate
	SetEdit
)

// ParseSetType понимает значения из DSL: none|both|create|edit.
func ParseSetType(s string) (SetType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both", "true":
		return SetBoth, true
	case "none", "false":
		return SetNone, true
	case "create":
		return SetCreate, true
	case "edit":
		return SetEdit, true
	}
	return SetBoth, false
}
