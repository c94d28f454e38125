package slotkey

import (
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
)

// Predicate selects slot rows by subject. It is built from a Key and
// consumed by both the in-memory matcher and the SQL repositories, so the
// update and delete paths filter identically.
type Predicate struct {
	Kind           Kind
	StatusID       int64
	WithEmployeeID *int64
	ClientID       int64
	TypeID         *int64
	// AnyType matches a client regardless of its schedule type.
	AnyType bool
}

// Filter scopes a predicate to one employee day.
type Filter struct {
	EmployeeID int64
	Date       time.Time
	Predicate  Predicate
}

func (k StatusKey) Predicate() Predicate {
	return Predicate{Kind: k.Kind(), StatusID: k.StatusID, WithEmployeeID: k.WithEmployeeID}
}

func (k ClientKey) Predicate() Predicate {
	return Predicate{Kind: KindClient, ClientID: k.ClientID, TypeID: k.TypeID}
}

// BasePredicate matches every row of the client, whatever its type.
func (k ClientKey) BasePredicate() Predicate {
	return Predicate{Kind: KindClient, ClientID: k.ClientID, AnyType: true}
}

// Matches reports whether slot satisfies p. A status predicate never
// matches a paired row with the same status and vice versa.
func (p Predicate) Matches(slot *model.Slot) bool {
	switch p.Kind {
	case KindStatus:
		return slot.StatusID != nil && *slot.StatusID == p.StatusID &&
			slot.WithEmployeeID == nil && slot.ClientID == nil
	case KindWith:
		return slot.StatusID != nil && *slot.StatusID == p.StatusID &&
			model.SameID(slot.WithEmployeeID, p.WithEmployeeID) && slot.ClientID == nil
	case KindClient:
		if slot.ClientID == nil || *slot.ClientID != p.ClientID || slot.StatusID != nil {
			return false
		}
		return p.AnyType || model.SameID(slot.ScheduleTypeID, p.TypeID)
	}
	return false
}

// On scopes p to an employee day.
func (p Predicate) On(employeeID int64, date time.Time) Filter {
	return Filter{EmployeeID: employeeID, Date: date, Predicate: p}
}

// Matches reports whether slot lies in the filter's day and satisfies its predicate.
func (f Filter) Matches(slot *model.Slot) bool {
	return slot.EmployeeID == f.EmployeeID && slot.Date.Equal(f.Date) && f.Predicate.Matches(slot)
}
