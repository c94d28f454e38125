package board

import (
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
)

// TypeChange records a client row retyped in place.
type TypeChange struct {
	SlotID   int64  `json:"slot_id"`
	ClientID int64  `json:"client_id"`
	FromType *int64 `json:"from_type"`
	ToType   *int64 `json:"to_type"`
}

// Plan is what reconciling one employee day against a requested key list
// has to do.
type Plan struct {
	// Kept rows matched their key exactly.
	Kept []*model.Slot
	// Retyped rows are kept too, with a new schedule type.
	Retyped []TypeChange
	// Create holds keys that found no row.
	Create []slotkey.Key
	// Orphans are neither matched nor similar to any request; they go.
	Orphans []*model.Slot
	// Retained are unmatched rows spared because they resemble a request.
	Retained []*model.Slot
}

// PlanDay matches keys against the existing rows of a day.
//
// Duplicate keys collapse to their first occurrence. All keys get an exact
// pass first; keys still unmatched then take same-client fallbacks in
// request order, first come first served, and whatever is left is created.
func PlanDay(existing []*model.Slot, keys []slotkey.Key) Plan {
	keys = dedupe(keys)

	var plan Plan
	taken := make(map[int64]bool, len(existing))
	pending := make([]slotkey.Key, 0, len(keys))

	for _, key := range keys {
		if row := matchExact(key, existing, taken); row != nil {
			taken[row.ID] = true
			plan.Kept = append(plan.Kept, row)
			continue
		}
		pending = append(pending, key)
	}

	for _, key := range pending {
		row := matchSameClient(key, existing, taken)
		if row == nil {
			plan.Create = append(plan.Create, key)
			continue
		}
		taken[row.ID] = true
		ck := key.(slotkey.ClientKey)
		plan.Retyped = append(plan.Retyped, TypeChange{
			SlotID:   row.ID,
			ClientID: ck.ClientID,
			FromType: row.ScheduleTypeID,
			ToType:   ck.TypeID,
		})
	}

	for _, row := range existing {
		if taken[row.ID] {
			continue
		}
		if Similar(row, keys) {
			plan.Retained = append(plan.Retained, row)
			continue
		}
		plan.Orphans = append(plan.Orphans, row)
	}

	return plan
}

// Similar reports whether an unmatched row resembles one of the requested
// keys closely enough to survive the orphan sweep.
//
// A client row is similar to any request for the same client, whatever the
// types on either side. A status row is similar to any request for the same
// status, paired or not.
func Similar(row *model.Slot, keys []slotkey.Key) bool {
	for _, key := range keys {
		switch k := key.(type) {
		case slotkey.ClientKey:
			if row.ClientID != nil && *row.ClientID == k.ClientID {
				return true
			}
		case slotkey.StatusKey:
			if row.StatusID != nil && *row.StatusID == k.StatusID {
				return true
			}
		}
	}
	return false
}

func dedupe(keys []slotkey.Key) []slotkey.Key {
	seen := make(map[string]bool, len(keys))
	out := make([]slotkey.Key, 0, len(keys))
	for _, key := range keys {
		if key == nil {
			continue
		}
		s := key.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, key)
	}
	return out
}
