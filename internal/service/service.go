package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/model"
)

// AuditEmitter принимает закоммиченные изменения. Emit не должен блокировать.
type AuditEmitter interface {
	Emit(change audit.Change)
}

// NopEmitter отбрасывает изменения
type NopEmitter struct{}

func (NopEmitter) Emit(audit.Change) {}

func validateDay(employeeID int64, date time.Time) (time.Time, error) {
	if employeeID <= 0 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidEmployee, employeeID)
	}
	if date.IsZero() {
		return time.Time{}, ErrInvalidDate
	}
	return model.Day(date), nil
}

func emit(ctx context.Context, e AuditEmitter, c audit.Change) {
	c.Actor = audit.ActorFromContext(ctx)
	if c.At.IsZero() {
		c.At = time.Now()
	}
	e.Emit(c)
}

func cloneSlots(slots []*model.Slot) []*model.Slot {
	out := make([]*model.Slot, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Clone())
	}
	return out
}
