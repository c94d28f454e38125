package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/slotkey"
)

// Форматы callback data:
//
//	day:<yyyymmdd>
//	slot:<yyyymmdd>:<slotKey>
//	lc:<op>:<yyyymmdd>:<slotKey>
const (
	PrefixDay       = "day:"
	PrefixSlot      = "slot:"
	PrefixLifecycle = "lc:"
	Noop            = "noop"
)

// MaxCallbackData is the Telegram limit on callback_data bytes.
const MaxCallbackData = 64

const callbackDateLayout = "20060102"

// LifecycleOp is the action behind a lifecycle button.
type LifecycleOp string

const (
	OpDone   LifecycleOp = "done"
	OpCancel LifecycleOp = "cancel"
	OpTBA    LifecycleOp = "tba"
	OpMove   LifecycleOp = "move"
	OpClear  LifecycleOp = "clear"
)

func (op LifecycleOp) valid() bool {
	switch op {
	case OpDone, OpCancel, OpTBA, OpMove, OpClear:
		return true
	}
	return false
}

// SlotRef адресует назначение текущего сотрудника
type SlotRef struct {
	Date    time.Time
	SlotKey string
}

func (r SlotRef) encode() string {
	return r.Date.Format(callbackDateLayout) + ":" + r.SlotKey
}

// DayData кодирует переход к дню
func DayData(date time.Time) string {
	return PrefixDay + date.Format(callbackDateLayout)
}

// SlotData кодирует открытие карточки назначения
func SlotData(ref SlotRef) string {
	return PrefixSlot + ref.encode()
}

// LifecycleData кодирует действие над назначением
func LifecycleData(op LifecycleOp, ref SlotRef) string {
	return PrefixLifecycle + string(op) + ":" + ref.encode()
}

// ParseDayData разбирает day:<yyyymmdd>
func ParseDayData(data string) (time.Time, error) {
	raw, ok := strings.CutPrefix(data, PrefixDay)
	if !ok {
		return time.Time{}, ErrInvalidFormat
	}
	return parseCallbackDate(raw)
}

// ParseSlotData разбирает slot:<yyyymmdd>:<slotKey>
func ParseSlotData(data string) (SlotRef, error) {
	raw, ok := strings.CutPrefix(data, PrefixSlot)
	if !ok {
		return SlotRef{}, ErrInvalidFormat
	}
	return parseRef(raw)
}

// ParseLifecycleData разбирает lc:<op>:<yyyymmdd>:<slotKey>
func ParseLifecycleData(data string) (LifecycleOp, SlotRef, error) {
	raw, ok := strings.CutPrefix(data, PrefixLifecycle)
	if !ok {
		return "", SlotRef{}, ErrInvalidFormat
	}
	opRaw, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return "", SlotRef{}, ErrInvalidFormat
	}
	op := LifecycleOp(opRaw)
	if !op.valid() {
		return "", SlotRef{}, fmt.Errorf("%w: unknown op %q", ErrInvalidFormat, opRaw)
	}
	ref, err := parseRef(rest)
	if err != nil {
		return "", SlotRef{}, err
	}
	return op, ref, nil
}

func parseRef(raw string) (SlotRef, error) {
	dateRaw, key, ok := strings.Cut(raw, ":")
	if !ok {
		return SlotRef{}, ErrInvalidFormat
	}
	date, err := parseCallbackDate(dateRaw)
	if err != nil {
		return SlotRef{}, err
	}
	if slotkey.Parse(key) == nil {
		return SlotRef{}, fmt.Errorf("%w: bad slot key %q", ErrInvalidFormat, key)
	}
	return SlotRef{Date: date, SlotKey: key}, nil
}

func parseCallbackDate(raw string) (time.Time, error) {
	date, err := time.Parse(callbackDateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return date, nil
}
