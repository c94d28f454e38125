package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/repository/memory"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLifecycleState_PostponeToDateMovesRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seed("status-5", jan10)

	res, err := env.lifecycle.SetLifecycleState(ctx, employeeID, jan10, "status-5",
		model.LifecyclePostponed, Postponement{Date: &jan15})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.IsTBA)
	assert.Equal(t, jan15, res.Date)
	require.NotNil(t, res.PostponedDate)
	assert.Equal(t, jan10, *res.PostponedDate)

	assert.Empty(t, env.day(t, jan10))

	moved := env.day(t, jan15)
	require.Len(t, moved, 1)
	assert.Equal(t, "status-5", slotkey.KeyOf(moved[0]).String())
	assert.Equal(t, model.LifecyclePostponed, model.LifecycleStateOf(moved[0].LifecycleStateID))
	require.NotNil(t, moved[0].PostponedDate)
	assert.Equal(t, jan10, *moved[0].PostponedDate)
	assert.False(t, moved[0].IsTBA())

	changes := env.emitter.all()
	require.Len(t, changes, 1)
	assert.Equal(t, audit.TypePostponed, changes[0].ActionType)
}

func TestSetLifecycleState_SecondPostponementKeepsFirstDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seed("client-4_type-1", jan10, func(s *model.Slot) { s.CancellationReasonID = model.ID(42) })

	_, err := env.lifecycle.SetLifecycleState(ctx, employeeID, jan10, "client-4_type-1",
		model.LifecyclePostponed, Postponement{Date: &jan15})
	require.NoError(t, err)

	res, err := env.lifecycle.SetLifecycleState(ctx, employeeID, jan15, "client-4_type-1",
		model.LifecyclePostponed, Postponement{Date: &jan20})
	require.NoError(t, err)
	assert.Equal(t, jan10, *res.PostponedDate)

	assert.Empty(t, env.day(t, jan15))
	final := env.day(t, jan20)
	require.Len(t, final, 1)
	assert.Equal(t, jan10, *final[0].PostponedDate)
	require.NotNil(t, final[0].CancellationReasonID)
	assert.Equal(t, int64(42), *final[0].CancellationReasonID)
}

func TestSetLifecycleState_PostponeOntoExistingSlotUpdatesIt(t *testing.T) {
	env := newTestEnv(t)

	env.seed("client-2", jan10)
	target := env.seed("client-2", jan15, withState(model.LifecycleCompletedID))

	_, err := env.lifecycle.SetLifecycleState(context.Background(), employeeID, jan10, "client-2",
		model.LifecyclePostponed, Postponement{Date: &jan15})
	require.NoError(t, err)

	day := env.day(t, jan15)
	require.Len(t, day, 1)
	assert.Equal(t, target.ID, day[0].ID)
	assert.Equal(t, model.LifecyclePostponed, model.LifecycleStateOf(day[0].LifecycleStateID))
	assert.Equal(t, jan10, *day[0].PostponedDate)
}

func TestSetLifecycleState_PostponeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seed("status-5", jan10)

	_, err := env.lifecycle.SetLifecycleState(ctx, employeeID, jan10, "status-5",
		model.LifecyclePostponed, Postponement{Date: &jan10})
	assert.ErrorIs(t, err, ErrInvalidPostponement)

	_, err = env.lifecycle.SetLifecycleState(ctx, employeeID, jan10, "status-5",
		model.LifecyclePostponed, Postponement{Date: &jan15, IsTBA: true})
	assert.ErrorIs(t, err, ErrInvalidPostponement)

	_, err = env.lifecycle.SetLifecycleState(ctx, employeeID, jan10, "status-5",
		model.LifecycleState("archived"), Postponement{})
	assert.ErrorIs(t, err, ErrUnknownState)

	assert.Len(t, env.day(t, jan10), 1)
	assert.Empty(t, env.emitter.all())
}

func TestSetLifecycleState_TBAStaysOnDate(t *testing.T) {
	env := newTestEnv(t)

	env.seed("client-1", jan10, func(s *model.Slot) {
		s.LifecycleStateID = model.ID(model.LifecyclePostponedID)
		s.PostponedDate = &jan15
	})

	res, err := env.lifecycle.SetLifecycleState(context.Background(), employeeID, jan10, "client-1",
		model.LifecyclePostponed, Postponement{IsTBA: true})
	require.NoError(t, err)
	assert.True(t, res.IsTBA)
	assert.Nil(t, res.PostponedDate)

	day := env.day(t, jan10)
	require.Len(t, day, 1)
	assert.True(t, day[0].IsTBA())
	assert.Nil(t, day[0].PostponedDate)
}

func TestSetLifecycleState_CompletedCreatesMissingRow(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.lifecycle.SetLifecycleState(context.Background(), employeeID, jan10, "with_3_status-2",
		model.LifecycleCompleted, Postponement{})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, model.LifecycleCompleted, res.State)

	day := env.day(t, jan10)
	require.Len(t, day, 1)
	assert.Equal(t, "with_3_status-2", slotkey.KeyOf(day[0]).String())
	assert.Equal(t, model.LifecycleCompleted, model.LifecycleStateOf(day[0].LifecycleStateID))

	changes := env.emitter.all()
	require.Len(t, changes, 1)
	assert.Equal(t, audit.ActionCreate, changes[0].Kind)
	assert.Equal(t, audit.TypeCompleted, changes[0].ActionType)
}

func TestSetLifecycleState_ExactRowOnly(t *testing.T) {
	env := newTestEnv(t)

	plain := env.seed("status-5", jan10)
	paired := env.seed("with_2_status-5", jan10)

	_, err := env.lifecycle.SetLifecycleState(context.Background(), employeeID, jan10, "status-5",
		model.LifecycleCancelled, Postponement{})
	require.NoError(t, err)

	for _, s := range env.day(t, jan10) {
		switch s.ID {
		case plain.ID:
			assert.Equal(t, model.LifecycleCancelled, model.LifecycleStateOf(s.LifecycleStateID))
		case paired.ID:
			assert.Nil(t, s.LifecycleStateID)
		}
	}
}

func TestSetLifecycleState_MalformedKeyIsNoop(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.lifecycle.SetLifecycleState(context.Background(), employeeID, jan10, "client-0",
		model.LifecycleCompleted, Postponement{})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Empty(t, env.store.Slots())
}

func TestClearLifecycleState(t *testing.T) {
	t.Run("lonely typed client row is deleted", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed("client-3_type-2", jan10, withState(model.LifecycleCompletedID))

		res, err := env.lifecycle.ClearLifecycleState(context.Background(), employeeID, jan10, "client-3_type-2")
		require.NoError(t, err)
		assert.True(t, res.Cleared)
		assert.True(t, res.DeletedRow)
		assert.Empty(t, env.day(t, jan10))
	})

	t.Run("typed client row with another variant is cleared", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed("client-3_type-2", jan10, withState(model.LifecycleCompletedID))
		env.seed("client-3", jan10)

		res, err := env.lifecycle.ClearLifecycleState(context.Background(), employeeID, jan10, "client-3_type-2")
		require.NoError(t, err)
		assert.True(t, res.Cleared)
		assert.False(t, res.DeletedRow)

		day := env.day(t, jan10)
		require.Len(t, day, 2)
		for _, s := range day {
			assert.Nil(t, s.LifecycleStateID)
		}
	})

	t.Run("status row keeps existing", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed("status-1", jan10, func(s *model.Slot) {
			s.LifecycleStateID = model.ID(model.LifecyclePostponedID)
		})

		res, err := env.lifecycle.ClearLifecycleState(context.Background(), employeeID, jan10, "status-1")
		require.NoError(t, err)
		assert.Equal(t, &ClearResult{Cleared: true}, res)

		day := env.day(t, jan10)
		require.Len(t, day, 1)
		assert.Nil(t, day[0].LifecycleStateID)
		assert.Nil(t, day[0].PostponedDate)
	})

	t.Run("missing row", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.lifecycle.ClearLifecycleState(context.Background(), employeeID, jan10, "status-1")
		require.NoError(t, err)
		assert.Equal(t, &ClearResult{}, res)
		assert.Empty(t, env.emitter.all())
	})
}

func TestAttachCancellationReason(t *testing.T) {
	t.Run("exact slot", func(t *testing.T) {
		env := newTestEnv(t)
		slot := env.seed("client-6_type-1", jan10)

		res, err := env.lifecycle.AttachCancellationReason(context.Background(), employeeID, jan10, "client-6_type-1", " sick ", "")
		require.NoError(t, err)
		assert.True(t, res.Attached)
		assert.NotZero(t, res.ReasonID)
		assert.False(t, res.CreatedAt.IsZero())

		day := env.day(t, jan10)
		require.Len(t, day, 1)
		assert.Equal(t, slot.ID, day[0].ID)
		assert.Equal(t, res.ReasonID, *day[0].CancellationReasonID)

		reasons := env.store.Reasons()
		require.Len(t, reasons, 1)
		assert.Equal(t, "sick", reasons[0].Reason)
		assert.Equal(t, "client-6_type-1", reasons[0].SlotKey)
	})

	t.Run("falls back to same client", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed("client-6", jan10)

		res, err := env.lifecycle.AttachCancellationReason(context.Background(), employeeID, jan10, "client-6_type-9", "closed", "note")
		require.NoError(t, err)
		assert.True(t, res.Attached)
		assert.Equal(t, res.ReasonID, *env.day(t, jan10)[0].CancellationReasonID)
	})

	t.Run("reason kept without slot", func(t *testing.T) {
		env := newTestEnv(t)

		res, err := env.lifecycle.AttachCancellationReason(context.Background(), employeeID, jan10, "status-3", "weather", "")
		require.NoError(t, err)
		assert.False(t, res.Attached)
		assert.Len(t, env.store.Reasons(), 1)
	})

	t.Run("recancel supersedes pointer", func(t *testing.T) {
		env := newTestEnv(t)
		env.seed("status-3", jan10)
		ctx := context.Background()

		first, err := env.lifecycle.AttachCancellationReason(ctx, employeeID, jan10, "status-3", "one", "")
		require.NoError(t, err)
		second, err := env.lifecycle.AttachCancellationReason(ctx, employeeID, jan10, "status-3", "two", "")
		require.NoError(t, err)

		assert.NotEqual(t, first.ReasonID, second.ReasonID)
		assert.Equal(t, second.ReasonID, *env.day(t, jan10)[0].CancellationReasonID)
		assert.Len(t, env.store.Reasons(), 2)
	})

	t.Run("empty reason", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.lifecycle.AttachCancellationReason(context.Background(), employeeID, jan10, "status-3", "  ", "")
		assert.ErrorIs(t, err, ErrEmptyReason)
		assert.Empty(t, env.store.Reasons())
	})
}

func TestDetachCancellationReason_KeepsReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seed("status-3", jan10)
	_, err := env.lifecycle.AttachCancellationReason(ctx, employeeID, jan10, "status-3", "ill", "")
	require.NoError(t, err)

	res, err := env.lifecycle.DetachCancellationReason(ctx, employeeID, jan10, "status-3")
	require.NoError(t, err)
	assert.True(t, res.Detached)
	assert.Nil(t, env.day(t, jan10)[0].CancellationReasonID)
	assert.Len(t, env.store.Reasons(), 1)

	res, err = env.lifecycle.DetachCancellationReason(ctx, employeeID, jan10, "status-9")
	require.NoError(t, err)
	assert.False(t, res.Detached)
}

func TestListCancellations_ResolvesLabels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.store.SetEmployee(employeeID, "Anna", 0)
	env.store.SetName(model.RefClient, 6, "Acme")
	env.store.SetName(model.RefScheduleType, 1, "Morning")
	env.store.SetName(model.RefStatus, 3, "Vacation")

	_, err := env.lifecycle.AttachCancellationReason(ctx, employeeID, jan10, "client-6_type-1", "closed", "door locked")
	require.NoError(t, err)
	_, err = env.lifecycle.AttachCancellationReason(ctx, employeeID, jan20, "with_8_status-3", "moved", "")
	require.NoError(t, err)

	all, err := env.lifecycle.ListCancellations(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	labels := map[string]string{}
	for _, v := range all {
		assert.Equal(t, "Anna", v.EmployeeName)
		labels[v.Reason] = v.ClientOrStatusLabel
	}
	assert.Equal(t, "Acme (Morning)", labels["closed"])
	assert.Equal(t, "Vacation / Employee 8", labels["moved"])

	ranged, err := env.lifecycle.ListCancellations(ctx, &jan10, &jan15)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "closed", ranged[0].Reason)
	assert.Equal(t, "door locked", ranged[0].Note)
	assert.Equal(t, jan10, ranged[0].Date)

	_, err = env.lifecycle.ListCancellations(ctx, &jan15, &jan10)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSetLifecycleState_LocksDayBeforeCreatingRow(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.lifecycle.SetLifecycleState(context.Background(), employeeID, jan10, "client-4",
		model.LifecycleCompleted, Postponement{})
	require.NoError(t, err)

	assert.Equal(t, []memory.DayLock{{EmployeeID: employeeID, Date: jan10}}, env.store.Locks())
}

func TestSetLifecycleState_LockFailureCreatesNothing(t *testing.T) {
	env := newTestEnv(t)
	boom := errors.New("lock timeout")
	env.store.FailOn("Slots.LockDay", boom)

	_, err := env.lifecycle.SetLifecycleState(context.Background(), employeeID, jan10, "client-4",
		model.LifecycleCancelled, Postponement{})
	require.ErrorIs(t, err, boom)

	assert.Empty(t, env.store.Slots())
	assert.Empty(t, env.emitter.all())
}

func TestSetLifecycleState_PostponeLocksBothDaysInDateOrder(t *testing.T) {
	env := newTestEnv(t)

	env.seed("client-3", jan15)

	// Перенос назад: целевая дата раньше исходной, блокируется первой.
	_, err := env.lifecycle.SetLifecycleState(context.Background(), employeeID, jan15, "client-3",
		model.LifecyclePostponed, Postponement{Date: &jan10})
	require.NoError(t, err)

	assert.Equal(t, []memory.DayLock{
		{EmployeeID: employeeID, Date: jan10},
		{EmployeeID: employeeID, Date: jan15},
	}, env.store.Locks())
	assert.Len(t, env.day(t, jan10), 1)
	assert.Empty(t, env.day(t, jan15))
}
