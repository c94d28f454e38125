package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/repository/memory"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const employeeID int64 = 1

var (
	jan10 = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	jan15 = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	jan20 = time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
)

type recordingEmitter struct {
	mu      sync.Mutex
	changes []audit.Change
}

func (r *recordingEmitter) Emit(c audit.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingEmitter) all() []audit.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Change(nil), r.changes...)
}

type testEnv struct {
	store     *memory.Store
	emitter   *recordingEmitter
	board     *BoardService
	lifecycle *LifecycleService
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	store := memory.New()
	emitter := &recordingEmitter{}
	logger := zaptest.NewLogger(t)

	return testEnv{
		store:     store,
		emitter:   emitter,
		board:     NewBoardService(store, emitter, logger),
		lifecycle: NewLifecycleService(store, emitter, logger),
	}
}

func (e testEnv) seed(key string, date time.Time, mutate ...func(*model.Slot)) *model.Slot {
	slot := &model.Slot{EmployeeID: employeeID, Date: date}
	slotkey.Apply(slotkey.Parse(key), slot)
	for _, m := range mutate {
		m(slot)
	}
	return e.store.Seed(slot)
}

func (e testEnv) day(t *testing.T, date time.Time) []*model.Slot {
	t.Helper()
	slots, err := e.board.DaySlots(context.Background(), employeeID, date)
	require.NoError(t, err)
	return slots
}

func withState(id int64) func(*model.Slot) {
	return func(s *model.Slot) { s.LifecycleStateID = model.ID(id) }
}

func keys(ss ...string) []slotkey.Key {
	out := make([]slotkey.Key, 0, len(ss))
	for _, s := range ss {
		out = append(out, slotkey.Parse(s))
	}
	return out
}

func keyStrings(slots []*model.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotkey.KeyOf(s).String())
	}
	return out
}

func TestReconcileDay_RetypesClientAndSweepsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	status := env.seed("status-5", jan10)
	client := env.seed("client-3", jan10)

	res, err := env.board.ReconcileDay(ctx, employeeID, jan10, keys("client-3_type-7"))
	require.NoError(t, err)

	assert.Empty(t, res.Created)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, status.ID, res.Removed[0].ID)
	require.Len(t, res.TypeChanges, 1)
	assert.Equal(t, int64(3), res.TypeChanges[0].ClientID)
	assert.Nil(t, res.TypeChanges[0].FromType)
	require.NotNil(t, res.TypeChanges[0].ToType)
	assert.Equal(t, int64(7), *res.TypeChanges[0].ToType)
	assert.False(t, res.ClearedAll)

	day := env.day(t, jan10)
	require.Len(t, day, 1)
	assert.Equal(t, client.ID, day[0].ID)
	assert.Equal(t, "client-3_type-7", slotkey.KeyOf(day[0]).String())
}

func TestReconcileDay_TypeChangeKeepsLifecycleState(t *testing.T) {
	env := newTestEnv(t)

	env.seed("client-9", jan10, withState(model.LifecycleCompletedID))

	res, err := env.board.ReconcileDay(context.Background(), employeeID, jan10, keys("client-9_type-2"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Preserved)

	day := env.day(t, jan10)
	require.Len(t, day, 1)
	require.NotNil(t, day[0].ScheduleTypeID)
	assert.Equal(t, int64(2), *day[0].ScheduleTypeID)
	assert.Equal(t, model.LifecycleCompleted, model.LifecycleStateOf(day[0].LifecycleStateID))
}

func TestReconcileDay_OrphanSweepLeavesKeptRowUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.board.ReconcileDay(ctx, employeeID, jan10, keys("client-1", "status-4"))
	require.NoError(t, err)

	_, err = env.lifecycle.SetLifecycleState(ctx, employeeID, jan10, "client-1", model.LifecycleCancelled, Postponement{})
	require.NoError(t, err)
	before := env.day(t, jan10)

	res, err := env.board.ReconcileDay(ctx, employeeID, jan10, keys("client-1"))
	require.NoError(t, err)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, "status-4", slotkey.KeyOf(res.Removed[0]).String())

	day := env.day(t, jan10)
	require.Len(t, day, 1)
	assert.Equal(t, before[0], day[0])
}

func TestReconcileDay_CreatesMissingRows(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.board.ReconcileDay(context.Background(), employeeID, jan10,
		keys("status-2", "with_4_status-2", "client-8_type-1", "status-2"))
	require.NoError(t, err)

	assert.Len(t, res.Created, 3)
	assert.ElementsMatch(t, []string{"status-2", "with_4_status-2", "client-8_type-1"}, keyStrings(env.day(t, jan10)))
}

func TestReconcileDay_EmptyListClearsDayTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seed("status-1", jan10)
	env.seed("client-2", jan10, withState(model.LifecyclePostponedID))
	env.seed("client-2", jan15)

	first, err := env.board.ReconcileDay(ctx, employeeID, jan10, nil)
	require.NoError(t, err)
	assert.True(t, first.ClearedAll)
	assert.Len(t, first.Removed, 2)

	second, err := env.board.ReconcileDay(ctx, employeeID, jan10, []slotkey.Key{})
	require.NoError(t, err)
	assert.True(t, second.ClearedAll)
	assert.Empty(t, second.Removed)

	assert.Empty(t, env.day(t, jan10))
	assert.Len(t, env.day(t, jan15), 1)

	changes := env.emitter.all()
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, audit.TypeClearedAll, c.ActionType)
		assert.Equal(t, audit.ActionDelete, c.Kind)
	}
}

func TestReconcileDay_MalformedKeysLeaveDayUntouched(t *testing.T) {
	env := newTestEnv(t)

	env.seed("status-1", jan10)

	res, err := env.board.ReconcileDay(context.Background(), employeeID, jan10, keys("bogus", "client-x"))
	require.NoError(t, err)
	assert.False(t, res.ClearedAll)
	assert.Empty(t, res.Removed)
	assert.Len(t, env.day(t, jan10), 1)
	assert.Empty(t, env.emitter.all())
}

func TestReconcileDay_StoreFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)

	env.seed("status-1", jan10)
	env.seed("client-2", jan10)
	before := env.store.Slots()

	boom := errors.New("connection reset")
	env.store.FailOn("Slots.Create", boom)

	_, err := env.board.ReconcileDay(context.Background(), employeeID, jan10, keys("client-2_type-3", "status-9"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, before, env.store.Slots())
	assert.Empty(t, env.emitter.all())
}

func TestReconcileDay_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.board.ReconcileDay(ctx, 0, jan10, keys("status-1"))
	assert.ErrorIs(t, err, ErrInvalidEmployee)

	_, err = env.board.ReconcileDay(ctx, employeeID, time.Time{}, keys("status-1"))
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.True(t, IsValidation(err))
}

func TestReconcileDay_EmitsAuditAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := audit.WithActor(context.Background(), audit.Actor{ID: "u-7", Label: "Dispatcher"})

	env.seed("status-1", jan10)

	_, err := env.board.ReconcileDay(ctx, employeeID, jan10, keys("client-5"))
	require.NoError(t, err)

	changes := env.emitter.all()
	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, audit.ActionUpdate, c.Kind)
	assert.Equal(t, audit.TypeCreated, c.ActionType)
	assert.Equal(t, "u-7", c.Actor.ID)
	assert.Equal(t, []string{"status-1"}, keyStrings(c.Before))
	assert.Equal(t, []string{"client-5"}, keyStrings(c.After))
	assert.Equal(t, 1, c.Details["created"])
	assert.Equal(t, 1, c.Details["removed"])
}

func TestRemoveSlot_DoesNotTouchPairedStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seed("status-5", jan10)
	paired := env.seed("with_2_status-5", jan10)

	n, err := env.board.RemoveSlot(ctx, employeeID, jan10, "status-5")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	day := env.day(t, jan10)
	require.Len(t, day, 1)
	assert.Equal(t, paired.ID, day[0].ID)

	n, err = env.board.RemoveSlot(ctx, employeeID, jan10, "status-")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcileDay_SimilarRowsWithStateAreRetained(t *testing.T) {
	env := newTestEnv(t)

	paired := env.seed("with_2_status-5", jan10, withState(model.LifecycleCompletedID))
	cancelled := env.seed("client-3_type-5", jan10, withState(model.LifecycleCancelledID))
	completed := env.seed("client-3_type-6", jan10, withState(model.LifecycleCompletedID))

	res, err := env.board.ReconcileDay(context.Background(), employeeID, jan10, keys("status-5", "client-3_type-7"))
	require.NoError(t, err)

	assert.Empty(t, res.Removed)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "status-5", slotkey.KeyOf(res.Created[0]).String())
	require.Len(t, res.TypeChanges, 1)
	assert.Equal(t, completed.ID, res.TypeChanges[0].SlotID)

	day := env.day(t, jan10)
	ids := make([]int64, 0, len(day))
	for _, s := range day {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, paired.ID)
	assert.Contains(t, ids, cancelled.ID)
	assert.Contains(t, ids, completed.ID)
	assert.ElementsMatch(t,
		[]string{"with_2_status-5", "client-3_type-5", "client-3_type-7", "status-5"},
		keyStrings(day))
}

func TestReconcileDay_AuditActionFollowsResult(t *testing.T) {
	tests := []struct {
		name     string
		seed     []string
		request  []string
		kind     audit.ActionKind
		typ      audit.ActionType
		recorded bool
	}{
		{name: "only created", request: []string{"client-1"}, kind: audit.ActionCreate, typ: audit.TypeCreated, recorded: true},
		{name: "created and removed", seed: []string{"status-1"}, request: []string{"client-1"}, kind: audit.ActionUpdate, typ: audit.TypeCreated, recorded: true},
		{name: "only orphans removed", seed: []string{"status-1", "client-1"}, request: []string{"client-1"}, kind: audit.ActionDelete, typ: audit.TypeCleared, recorded: true},
		{name: "removed and retyped", seed: []string{"status-1", "client-1"}, request: []string{"client-1_type-2"}, kind: audit.ActionUpdate, typ: audit.TypeCleared, recorded: true},
		{name: "only retyped", seed: []string{"client-1"}, request: []string{"client-1_type-2"}, kind: audit.ActionUpdate, typ: audit.TypeCreated, recorded: true},
		{name: "nothing changed", seed: []string{"client-1"}, request: []string{"client-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			for _, k := range tt.seed {
				env.seed(k, jan10)
			}

			_, err := env.board.ReconcileDay(context.Background(), employeeID, jan10, keys(tt.request...))
			require.NoError(t, err)

			changes := env.emitter.all()
			if !tt.recorded {
				assert.Empty(t, changes)
				return
			}
			require.Len(t, changes, 1)
			assert.Equal(t, tt.kind, changes[0].Kind)
			assert.Equal(t, tt.typ, changes[0].ActionType)
		})
	}
}

func TestReconcileDay_LocksDayOnce(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.board.ReconcileDay(context.Background(), employeeID, jan10, keys("client-1", "status-2"))
	require.NoError(t, err)

	require.Len(t, env.store.Locks(), 1)
	assert.Equal(t, jan10, env.store.Locks()[0].Date)
}
