package model

// Employee is the master data row the board is keyed by. Managed elsewhere,
// read here for name resolution and bot sign-in.
type Employee struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TelegramID *int64 `json:"telegram_id"`
}

// RefKind names a kind of referenced master data.
type RefKind string

const (
	RefEmployee       RefKind = "Employee"
	RefClient         RefKind = "Client"
	RefStatus         RefKind = "Status"
	RefScheduleType   RefKind = "Schedule type"
	RefLifecycleState RefKind = "Lifecycle state"
)
