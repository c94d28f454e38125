// Package memory is an in-memory contract.Store for tests and local runs.
// Transactions work on a copy of the data that replaces the original only
// on commit, so a failing operation leaves nothing behind.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
)

// ErrNotFound is returned by Name for unknown ids.
var ErrNotFound = errors.New("not found")

type refKey struct {
	kind model.RefKind
	id   int64
}

type data struct {
	slots      map[int64]*model.Slot
	reasons    []*model.CancellationReason
	nextSlot   int64
	nextReason int64
}

func (d *data) clone() *data {
	c := &data{
		slots:      make(map[int64]*model.Slot, len(d.slots)),
		reasons:    make([]*model.CancellationReason, len(d.reasons)),
		nextSlot:   d.nextSlot,
		nextReason: d.nextReason,
	}
	for id, s := range d.slots {
		c.slots[id] = s.Clone()
	}
	for i, r := range d.reasons {
		cp := *r
		c.reasons[i] = &cp
	}
	return c
}

// Store is safe for concurrent use; transactions are serialized.
type Store struct {
	mu        sync.Mutex
	data      *data
	names     map[refKey]string
	telegram  map[int64]int64
	failOn    map[string]error
	locks     []DayLock
	now       func() time.Time
	namesRepo *nameRepo
}

func New() *Store {
	s := &Store{
		data:     &data{slots: make(map[int64]*model.Slot)},
		names:    make(map[refKey]string),
		telegram: make(map[int64]int64),
		failOn:   make(map[string]error),
		now:      time.Now,
	}
	s.namesRepo = &nameRepo{store: s}
	return s
}

// DayLock is one LockDay call, kept in call order.
type DayLock struct {
	EmployeeID int64
	Date       time.Time
}

// Locks returns every day locked so far, rolled back transactions included.
func (s *Store) Locks() []DayLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DayLock(nil), s.locks...)
}

// SetName registers a master data name.
func (s *Store) SetName(kind model.RefKind, id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[refKey{kind: kind, id: id}] = name
}

// SetEmployee registers an employee with an optional Telegram account.
func (s *Store) SetEmployee(id int64, name string, telegramID int64) {
	s.SetName(model.RefEmployee, id, name)
	if telegramID != 0 {
		s.mu.Lock()
		s.telegram[telegramID] = id
		s.mu.Unlock()
	}
}

// FailOn makes the named repository operation (e.g. "Slots.Create")
// return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, op)
		return
	}
	s.failOn[op] = err
}

// Seed inserts a slot directly, outside any transaction. The slot gets an
// id when it has none.
func (s *Store) Seed(slot *model.Slot) *model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	insertSlot(s.data, slot, s.now())
	return slot.Clone()
}

// Slots returns a copy of every stored slot ordered by id.
func (s *Store) Slots() []*model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedSlots(s.data.slots, func(*model.Slot) bool { return true })
}

// Reasons returns a copy of every stored cancellation reason.
func (s *Store) Reasons() []*model.CancellationReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.CancellationReason, len(s.data.reasons))
	for i, r := range s.data.reasons {
		cp := *r
		out[i] = &cp
	}
	return out
}

// WithTx runs fn against a private copy and publishes it on success.
func (s *Store) WithTx(ctx context.Context, fn func(tx contract.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{store: s, data: s.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) Names() contract.NameRepo {
	return s.namesRepo
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// fail is called with s.mu held.
func (s *Store) fail(op string) error {
	if err, ok := s.failOn[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type tx struct {
	store *Store
	data  *data
}

func (t *tx) Slots() contract.SlotRepo     { return &slotRepo{tx: t} }
func (t *tx) Reasons() contract.ReasonRepo { return &reasonRepo{tx: t} }

type slotRepo struct {
	tx *tx
}

func (r *slotRepo) ListDay(_ context.Context, employeeID int64, date time.Time) ([]*model.Slot, error) {
	if err := r.tx.store.fail("Slots.ListDay"); err != nil {
		return nil, err
	}
	date = model.Day(date)
	return sortedSlots(r.tx.data.slots, func(s *model.Slot) bool {
		return s.EmployeeID == employeeID && s.Date.Equal(date)
	}), nil
}

func (r *slotRepo) LockDay(ctx context.Context, employeeID int64, date time.Time) ([]*model.Slot, error) {
	if err := r.tx.store.fail("Slots.LockDay"); err != nil {
		return nil, err
	}
	// Транзакции и так сериализованы мьютексом, фиксируем только порядок.
	r.tx.store.locks = append(r.tx.store.locks, DayLock{EmployeeID: employeeID, Date: date})
	return r.ListDay(ctx, employeeID, date)
}

func (r *slotRepo) Find(_ context.Context, f slotkey.Filter) ([]*model.Slot, error) {
	if err := r.tx.store.fail("Slots.Find"); err != nil {
		return nil, err
	}
	f.Date = model.Day(f.Date)
	return sortedSlots(r.tx.data.slots, f.Matches), nil
}

func (r *slotRepo) Create(_ context.Context, slot *model.Slot) error {
	if err := r.tx.store.fail("Slots.Create"); err != nil {
		return err
	}
	slot.ID = 0
	insertSlot(r.tx.data, slot, r.tx.store.now())
	return nil
}

func (r *slotRepo) SetScheduleType(_ context.Context, slotID int64, typeID *int64) error {
	if err := r.tx.store.fail("Slots.SetScheduleType"); err != nil {
		return err
	}
	s, ok := r.tx.data.slots[slotID]
	if !ok || s.ClientID == nil {
		return fmt.Errorf("set schedule type: slot %d not found", slotID)
	}
	s.ScheduleTypeID = copyID(typeID)
	return nil
}

func (r *slotRepo) UpdateLifecycle(_ context.Context, f slotkey.Filter, stateID *int64, postponedDate *time.Time) (int64, error) {
	if err := r.tx.store.fail("Slots.UpdateLifecycle"); err != nil {
		return 0, err
	}
	return r.update(f, func(s *model.Slot) {
		s.LifecycleStateID = copyID(stateID)
		s.PostponedDate = nil
		if postponedDate != nil {
			d := model.Day(*postponedDate)
			s.PostponedDate = &d
		}
	}), nil
}

func (r *slotRepo) SetCancellationReason(_ context.Context, f slotkey.Filter, reasonID *int64) (int64, error) {
	if err := r.tx.store.fail("Slots.SetCancellationReason"); err != nil {
		return 0, err
	}
	return r.update(f, func(s *model.Slot) {
		s.CancellationReasonID = copyID(reasonID)
	}), nil
}

func (r *slotRepo) Delete(_ context.Context, f slotkey.Filter) (int64, error) {
	if err := r.tx.store.fail("Slots.Delete"); err != nil {
		return 0, err
	}
	f.Date = model.Day(f.Date)
	var n int64
	for id, s := range r.tx.data.slots {
		if f.Matches(s) {
			delete(r.tx.data.slots, id)
			n++
		}
	}
	return n, nil
}

func (r *slotRepo) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	if err := r.tx.store.fail("Slots.DeleteByIDs"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if _, ok := r.tx.data.slots[id]; ok {
			delete(r.tx.data.slots, id)
			n++
		}
	}
	return n, nil
}

func (r *slotRepo) DeleteDay(_ context.Context, employeeID int64, date time.Time) (int64, error) {
	if err := r.tx.store.fail("Slots.DeleteDay"); err != nil {
		return 0, err
	}
	date = model.Day(date)
	var n int64
	for id, s := range r.tx.data.slots {
		if s.EmployeeID == employeeID && s.Date.Equal(date) {
			delete(r.tx.data.slots, id)
			n++
		}
	}
	return n, nil
}

func (r *slotRepo) update(f slotkey.Filter, apply func(*model.Slot)) int64 {
	f.Date = model.Day(f.Date)
	var n int64
	for _, s := range r.tx.data.slots {
		if f.Matches(s) {
			apply(s)
			n++
		}
	}
	return n
}

type reasonRepo struct {
	tx *tx
}

func (r *reasonRepo) Create(_ context.Context, reason *model.CancellationReason) error {
	if err := r.tx.store.fail("Reasons.Create"); err != nil {
		return err
	}
	r.tx.data.nextReason++
	reason.ID = r.tx.data.nextReason
	reason.CreatedAt = r.tx.store.now()
	reason.SlotDate = model.Day(reason.SlotDate)
	cp := *reason
	r.tx.data.reasons = append(r.tx.data.reasons, &cp)
	return nil
}

func (r *reasonRepo) List(_ context.Context, from, to *time.Time) ([]*model.CancellationReason, error) {
	if err := r.tx.store.fail("Reasons.List"); err != nil {
		return nil, err
	}
	var out []*model.CancellationReason
	for _, reason := range r.tx.data.reasons {
		if from != nil && reason.SlotDate.Before(model.Day(*from)) {
			continue
		}
		if to != nil && reason.SlotDate.After(model.Day(*to)) {
			continue
		}
		cp := *reason
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type nameRepo struct {
	store *Store
}

func (n *nameRepo) Name(_ context.Context, kind model.RefKind, id int64) (string, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	name, ok := n.store.names[refKey{kind: kind, id: id}]
	if !ok {
		return "", fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return name, nil
}

func (n *nameRepo) EmployeeByTelegramID(_ context.Context, telegramID int64) (*model.Employee, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	id, ok := n.store.telegram[telegramID]
	if !ok {
		return nil, nil
	}
	tg := telegramID
	return &model.Employee{
		ID:         id,
		Name:       n.store.names[refKey{kind: model.RefEmployee, id: id}],
		TelegramID: &tg,
	}, nil
}

func insertSlot(d *data, slot *model.Slot, now time.Time) {
	if slot.ID == 0 {
		d.nextSlot++
		slot.ID = d.nextSlot
	} else if slot.ID > d.nextSlot {
		d.nextSlot = slot.ID
	}
	slot.Date = model.Day(slot.Date)
	if slot.PostponedDate != nil {
		pd := model.Day(*slot.PostponedDate)
		slot.PostponedDate = &pd
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	d.slots[slot.ID] = slot.Clone()
}

func sortedSlots(slots map[int64]*model.Slot, keep func(*model.Slot) bool) []*model.Slot {
	var out []*model.Slot
	for _, s := range slots {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
