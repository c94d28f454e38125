// Package slotkey encodes and decodes the composite identity of a slot.
//
// A key has one of four shapes:
//
//	status-<statusID>
//	with_<employeeID>_status-<statusID>
//	client-<clientID>
//	client-<clientID>_type-<typeID>
//
// Parsing happens once at the edge; the rest of the code works with Key
// values and the Predicate they build.
package slotkey

import (
	"strconv"
	"strings"

	"github.com/Freeeeeet/assignment_board/internal/model"
)

// Kind is the subject shape of a key.
type Kind string

const (
	KindStatus Kind = "status"
	KindClient Kind = "client"
	KindWith   Kind = "with"
)

const (
	statusPrefix = "status-"
	clientPrefix = "client-"
	withPrefix   = "with_"
	typeInfix    = "_type-"
	statusInfix  = "_status-"
)

// Key is either a StatusKey or a ClientKey.
type Key interface {
	Kind() Kind
	String() string
	// Predicate matches exactly the rows of this key.
	Predicate() Predicate
	isKey()
}

// StatusKey is a status assignment, optionally paired with another employee.
type StatusKey struct {
	StatusID       int64
	WithEmployeeID *int64
}

// ClientKey is a client visit, optionally tagged with a schedule type.
type ClientKey struct {
	ClientID int64
	TypeID   *int64
}

func (StatusKey) isKey() {}
func (ClientKey) isKey() {}

func (k StatusKey) Kind() Kind {
	if k.WithEmployeeID != nil {
		return KindWith
	}
	return KindStatus
}

func (k StatusKey) String() string {
	s := statusPrefix + strconv.FormatInt(k.StatusID, 10)
	if k.WithEmployeeID != nil {
		return withPrefix + strconv.FormatInt(*k.WithEmployeeID, 10) + "_" + s
	}
	return s
}

func (ClientKey) Kind() Kind { return KindClient }

func (k ClientKey) String() string {
	s := clientPrefix + strconv.FormatInt(k.ClientID, 10)
	if k.TypeID != nil {
		s += typeInfix + strconv.FormatInt(*k.TypeID, 10)
	}
	return s
}

// Base drops the schedule type.
func (k ClientKey) Base() ClientKey {
	return ClientKey{ClientID: k.ClientID}
}

// Parse decodes s. Malformed input yields nil, which callers treat as
// "nothing to match".
func Parse(s string) Key {
	switch {
	case strings.HasPrefix(s, withPrefix):
		rest := strings.TrimPrefix(s, withPrefix)
		i := strings.Index(rest, statusInfix)
		if i < 0 {
			return nil
		}
		with, ok := parseID(rest[:i])
		if !ok {
			return nil
		}
		status, ok := parseID(rest[i+len(statusInfix):])
		if !ok {
			return nil
		}
		return StatusKey{StatusID: status, WithEmployeeID: &with}

	case strings.HasPrefix(s, statusPrefix):
		status, ok := parseID(strings.TrimPrefix(s, statusPrefix))
		if !ok {
			return nil
		}
		return StatusKey{StatusID: status}

	case strings.HasPrefix(s, clientPrefix):
		rest := strings.TrimPrefix(s, clientPrefix)
		idPart, typePart, typed := strings.Cut(rest, typeInfix)
		client, ok := parseID(idPart)
		if !ok {
			return nil
		}
		if !typed {
			return ClientKey{ClientID: client}
		}
		typeID, ok := parseID(typePart)
		if !ok {
			return nil
		}
		return ClientKey{ClientID: client, TypeID: &typeID}
	}
	return nil
}

// BaseKey strips the _type-<id> suffix from a client key string. Other
// strings are returned unchanged.
func BaseKey(s string) string {
	if !strings.HasPrefix(s, clientPrefix) {
		return s
	}
	if i := strings.Index(s, typeInfix); i >= 0 {
		return s[:i]
	}
	return s
}

// KeyOf rebuilds the key of a stored row. Returns nil for a row without a
// subject.
func KeyOf(slot *model.Slot) Key {
	switch {
	case slot.ClientID != nil:
		k := ClientKey{ClientID: *slot.ClientID}
		if slot.ScheduleTypeID != nil {
			t := *slot.ScheduleTypeID
			k.TypeID = &t
		}
		return k
	case slot.StatusID != nil:
		k := StatusKey{StatusID: *slot.StatusID}
		if slot.WithEmployeeID != nil {
			w := *slot.WithEmployeeID
			k.WithEmployeeID = &w
		}
		return k
	}
	return nil
}

// Apply writes the subject of k onto slot, clearing the other shape.
func Apply(k Key, slot *model.Slot) {
	slot.StatusID, slot.WithEmployeeID, slot.ClientID, slot.ScheduleTypeID = nil, nil, nil, nil
	switch k := k.(type) {
	case StatusKey:
		slot.StatusID = model.ID(k.StatusID)
		if k.WithEmployeeID != nil {
			slot.WithEmployeeID = model.ID(*k.WithEmployeeID)
		}
	case ClientKey:
		slot.ClientID = model.ID(k.ClientID)
		if k.TypeID != nil {
			slot.ScheduleTypeID = model.ID(*k.TypeID)
		}
	}
}

func parseID(s string) (int64, bool) {
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
