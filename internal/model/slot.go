package model

import "time"

// Slot is one assignment of an employee on a date: either a status
// (optionally paired with another employee) or a client visit
// (optionally tagged with a schedule type).
type Slot struct {
	ID                   int64      `json:"id"`
	EmployeeID           int64      `json:"employee_id"`
	StatusID             *int64     `json:"status_id"`        // status subject
	WithEmployeeID       *int64     `json:"with_employee_id"` // only with StatusID
	ClientID             *int64     `json:"client_id"`        // client subject
	ScheduleTypeID       *int64     `json:"schedule_type_id"` // only with ClientID
	Date                 time.Time  `json:"date"`
	LifecycleStateID     *int64     `json:"lifecycle_state_id"`
	PostponedDate        *time.Time `json:"postponed_date"` // original date when postponed to a known date
	CancellationReasonID *int64     `json:"cancellation_reason_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

// IsClient reports whether the slot is a client visit.
func (s *Slot) IsClient() bool {
	return s.ClientID != nil
}

// IsStatus reports whether the slot is a status assignment.
func (s *Slot) IsStatus() bool {
	return s.StatusID != nil
}

// HasLifecycle reports whether the slot carries a lifecycle state.
func (s *Slot) HasLifecycle() bool {
	return s.LifecycleStateID != nil
}

// IsTBA reports whether the slot is postponed without a known destination.
func (s *Slot) IsTBA() bool {
	return s.LifecycleStateID != nil && *s.LifecycleStateID == LifecyclePostponedID && s.PostponedDate == nil
}

// Clone returns a deep copy so callers can keep a before-image.
func (s *Slot) Clone() *Slot {
	c := *s
	c.StatusID = cloneID(s.StatusID)
	c.WithEmployeeID = cloneID(s.WithEmployeeID)
	c.ClientID = cloneID(s.ClientID)
	c.ScheduleTypeID = cloneID(s.ScheduleTypeID)
	c.LifecycleStateID = cloneID(s.LifecycleStateID)
	c.CancellationReasonID = cloneID(s.CancellationReasonID)
	if s.PostponedDate != nil {
		d := *s.PostponedDate
		c.PostponedDate = &d
	}
	return &c
}

// ID returns a pointer to a copy of id. Handy for optional columns.
func ID(id int64) *int64 {
	return &id
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// SameID compares two optional ids.
func SameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
