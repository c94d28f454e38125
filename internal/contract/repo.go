package contract

import (
	"context"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
)

// Store opens transactions and serves read-only lookups.
type Store interface {
	// WithTx runs fn in one transaction: committed when fn returns nil,
	// rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Names() NameRepo
}

// Tx exposes the repositories bound to a running transaction.
type Tx interface {
	Slots() SlotRepo
	Reasons() ReasonRepo
}

// SlotRepo persists assignment slots. Update and delete paths take the
// same slotkey.Filter so a key selects identical rows in both.
type SlotRepo interface {
	ListDay(ctx context.Context, employeeID int64, date time.Time) ([]*model.Slot, error)
	// LockDay is ListDay holding an exclusive per-day lock until the
	// transaction ends, so concurrent writers of one day queue up even
	// when the day has no rows yet.
	LockDay(ctx context.Context, employeeID int64, date time.Time) ([]*model.Slot, error)
	Find(ctx context.Context, f slotkey.Filter) ([]*model.Slot, error)
	Create(ctx context.Context, slot *model.Slot) error
	SetScheduleType(ctx context.Context, slotID int64, typeID *int64) error
	UpdateLifecycle(ctx context.Context, f slotkey.Filter, stateID *int64, postponedDate *time.Time) (int64, error)
	SetCancellationReason(ctx context.Context, f slotkey.Filter, reasonID *int64) (int64, error)
	Delete(ctx context.Context, f slotkey.Filter) (int64, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	DeleteDay(ctx context.Context, employeeID int64, date time.Time) (int64, error)
}

// ReasonRepo stores cancellation reasons. Append-only.
type ReasonRepo interface {
	Create(ctx context.Context, reason *model.CancellationReason) error
	// List returns reasons whose slot date lies in [from, to], newest first.
	// Nil bounds are open.
	List(ctx context.Context, from, to *time.Time) ([]*model.CancellationReason, error)
}

// NameRepo resolves master data the core only reads.
type NameRepo interface {
	Name(ctx context.Context, kind model.RefKind, id int64) (string, error)
	EmployeeByTelegramID(ctx context.Context, telegramID int64) (*model.Employee, error)
}
