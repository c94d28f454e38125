package model

import "time"

// CancellationReason annotates a cancelled slot. Rows are append-only:
// re-cancelling creates a new reason and repoints the slot.
type CancellationReason struct {
	ID        int64     `json:"id"`
	Reason    string    `json:"reason"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`

	// Where the reason was given. Kept so the reason can still be
	// reported after its slot is gone.
	EmployeeID int64     `json:"employee_id"`
	SlotDate   time.Time `json:"slot_date"`
	SlotKey    string    `json:"slot_key"`
}
