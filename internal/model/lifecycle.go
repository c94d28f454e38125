package model

import "fmt"

// Ids of the seeded lifecycle_states rows.
const (
	LifecycleCompletedID int64 = 1
	LifecycleCancelledID int64 = 2
	LifecyclePostponedID int64 = 3
)

// LifecycleState is the state a caller asks a slot to move to.
type LifecycleState string

const (
	LifecycleNone      LifecycleState = "none"
	LifecycleCompleted LifecycleState = "completed"
	LifecycleCancelled LifecycleState = "cancelled"
	LifecyclePostponed LifecycleState = "postponed"
)

// ParseLifecycleState parses the wire name of a state.
func ParseLifecycleState(s string) (LifecycleState, error) {
	switch LifecycleState(s) {
	case LifecycleNone, LifecycleCompleted, LifecycleCancelled, LifecyclePostponed:
		return LifecycleState(s), nil
	case "":
		return LifecycleNone, nil
	}
	return "", fmt.Errorf("unknown lifecycle state %q", s)
}

// StateID returns the lifecycle_states id, nil for none.
func (s LifecycleState) StateID() *int64 {
	switch s {
	case LifecycleCompleted:
		return ID(LifecycleCompletedID)
	case LifecycleCancelled:
		return ID(LifecycleCancelledID)
	case LifecyclePostponed:
		return ID(LifecyclePostponedID)
	}
	return nil
}

// LifecycleStateOf maps a stored id back to its state.
func LifecycleStateOf(id *int64) LifecycleState {
	if id == nil {
		return LifecycleNone
	}
	switch *id {
	case LifecycleCompletedID:
		return LifecycleCompleted
	case LifecycleCancelledID:
		return LifecycleCancelled
	case LifecyclePostponedID:
		return LifecyclePostponed
	}
	return LifecycleNone
}
