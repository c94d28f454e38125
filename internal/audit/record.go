// Package audit turns committed board changes into enriched audit records
// and delivers them to a sink off the request path.
package audit

import (
	"context"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/google/uuid"
)

// ActionKind is the coarse kind of an audited operation.
type ActionKind string

const (
	ActionCreate ActionKind = "CREATE"
	ActionUpdate ActionKind = "UPDATE"
	ActionDelete ActionKind = "DELETE"
	ActionImport ActionKind = "IMPORT"
)

// ActionType tags what happened to the slots.
type ActionType string

const (
	TypeCreated    ActionType = "created"
	TypeCleared    ActionType = "cleared"
	TypeCancelled  ActionType = "cancelled"
	TypePostponed  ActionType = "postponed"
	TypeCompleted  ActionType = "completed"
	TypeClearedAll ActionType = "cleared_all"
)

// EntitySlot is the entity kind of every board record.
const EntitySlot = "assignment_slot"

// Actor is who triggered a change.
type Actor struct {
	ID    string
	Label string
}

// SystemActor is used when the caller did not identify itself.
var SystemActor = Actor{ID: "system", Label: "System"}

type actorKey struct{}

// WithActor stores the acting user in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the acting user, SystemActor if none.
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok && a.ID != "" {
		if a.Label == "" {
			a.Label = a.ID
		}
		return a
	}
	return SystemActor
}

// Change is a committed board operation with bare ids. The enricher turns
// it into a Record.
type Change struct {
	Actor      Actor
	Kind       ActionKind
	ActionType ActionType
	EmployeeID int64
	Date       time.Time
	SlotKey    string
	Before     []*model.Slot
	After      []*model.Slot
	Details    map[string]any
	At         time.Time
}

// Record is what a Sink receives.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    string         `json:"actor_id"`
	ActorLabel string         `json:"actor_label"`
	ActionKind ActionKind     `json:"action_kind"`
	EntityKind string         `json:"entity_kind"`
	EntityRef  string         `json:"entity_ref"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after"`
}
