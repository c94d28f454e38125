package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enricher resolves every id a change touches and builds the record.
type Enricher struct {
	names  contract.NameRepo
	logger *zap.Logger
	now    func() time.Time
}

func NewEnricher(names contract.NameRepo, logger *zap.Logger) *Enricher {
	return &Enricher{names: names, logger: logger, now: time.Now}
}

// Enrich never fails: unresolved names fall back to placeholders.
func (e *Enricher) Enrich(ctx context.Context, c Change) Record {
	res := NewResolver(e.names, e.logger)

	at := c.At
	if at.IsZero() {
		at = e.now()
	}

	after := map[string]any{
		"actionType": string(c.ActionType),
		"employeeId": c.EmployeeID,
		"employee":   res.Name(ctx, model.RefEmployee, c.EmployeeID),
		"date":       model.FormatDate(c.Date),
		"slots":      slotViews(ctx, res, c.After),
	}
	if c.SlotKey != "" {
		after["slotKey"] = c.SlotKey
	}
	for k, v := range c.Details {
		after[k] = v
	}

	var before map[string]any
	if len(c.Before) > 0 {
		before = map[string]any{"slots": slotViews(ctx, res, c.Before)}
	}

	actor := c.Actor
	if actor.ID == "" {
		actor = SystemActor
	}

	return Record{
		ID:         uuid.New(),
		OccurredAt: at,
		ActorID:    actor.ID,
		ActorLabel: actor.Label,
		ActionKind: c.Kind,
		EntityKind: EntitySlot,
		EntityRef:  entityRef(c),
		Before:     before,
		After:      after,
	}
}

func entityRef(c Change) string {
	ref := fmt.Sprintf("employee:%d/%s", c.EmployeeID, model.FormatDate(c.Date))
	if c.SlotKey != "" {
		ref += "/" + c.SlotKey
	}
	return ref
}

func slotViews(ctx context.Context, res *Resolver, slots []*model.Slot) []map[string]any {
	views := make([]map[string]any, 0, len(slots))
	for _, s := range slots {
		views = append(views, slotView(ctx, res, s))
	}
	return views
}

func slotView(ctx context.Context, res *Resolver, s *model.Slot) map[string]any {
	v := map[string]any{
		"id":       s.ID,
		"date":     model.FormatDate(s.Date),
		"employee": res.Name(ctx, model.RefEmployee, s.EmployeeID),
	}
	if key := slotkey.KeyOf(s); key != nil {
		v["key"] = key.String()
	}
	if name, ok := res.OptionalName(ctx, model.RefEmployee, s.WithEmployeeID); ok {
		v["withEmployee"] = name
	}
	if name, ok := res.OptionalName(ctx, model.RefClient, s.ClientID); ok {
		v["client"] = name
	}
	if name, ok := res.OptionalName(ctx, model.RefStatus, s.StatusID); ok {
		v["status"] = name
	}
	if name, ok := res.OptionalName(ctx, model.RefScheduleType, s.ScheduleTypeID); ok {
		v["scheduleType"] = name
	}
	if name, ok := res.OptionalName(ctx, model.RefLifecycleState, s.LifecycleStateID); ok {
		v["lifecycleState"] = name
	}
	if s.PostponedDate != nil {
		v["postponedDate"] = model.FormatDate(*s.PostponedDate)
	}
	if s.CancellationReasonID != nil {
		v["cancellationReasonId"] = *s.CancellationReasonID
	}
	return v
}
