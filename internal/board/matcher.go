// Package board holds the pure slot matching and day planning logic. It
// never touches the store: callers load the day's rows, ask for a Plan and
// apply it inside their transaction.
package board

import (
	"sort"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
)

// Tier tells how a requested key found its row.
type Tier int

const (
	NoMatch Tier = iota
	// Exact: the row already has the requested subject.
	Exact
	// SameClient: a row of the same client with another (or no) type; it is
	// retyped in place and keeps its lifecycle state.
	SameClient
)

func (t Tier) String() string {
	switch t {
	case Exact:
		return "exact"
	case SameClient:
		return "same_client"
	}
	return "none"
}

// Match finds the best row for key among rows not yet taken. Status keys
// only match exactly.
func Match(key slotkey.Key, rows []*model.Slot, taken map[int64]bool) (*model.Slot, Tier) {
	if row := matchExact(key, rows, taken); row != nil {
		return row, Exact
	}
	if row := matchSameClient(key, rows, taken); row != nil {
		return row, SameClient
	}
	return nil, NoMatch
}

func matchExact(key slotkey.Key, rows []*model.Slot, taken map[int64]bool) *model.Slot {
	if key == nil {
		return nil
	}
	pred := key.Predicate()
	for _, row := range rows {
		if !taken[row.ID] && pred.Matches(row) {
			return row
		}
	}
	return nil
}

// matchSameClient prefers rows carrying a lifecycle state, then the most
// recent row.
func matchSameClient(key slotkey.Key, rows []*model.Slot, taken map[int64]bool) *model.Slot {
	ck, ok := key.(slotkey.ClientKey)
	if !ok {
		return nil
	}
	pred := ck.BasePredicate()

	var candidates []*model.Slot
	for _, row := range rows {
		if !taken[row.ID] && pred.Matches(row) {
			candidates = append(candidates, row)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.HasLifecycle() != b.HasLifecycle() {
			return a.HasLifecycle()
		}
		return a.ID > b.ID
	})
	return candidates[0]
}
