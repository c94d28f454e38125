package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/repository/base"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

// recordingQuerier captures Exec calls and reports a fixed row count.
type recordingQuerier struct {
	calls    []execCall
	affected string
	err      error
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.calls = append(q.calls, execCall{sql: squash(sql), args: args})
	if q.err != nil {
		return pgconn.CommandTag{}, q.err
	}
	return pgconn.NewCommandTag(q.affected), nil
}

func (q *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (q *recordingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ base.Querier = (*recordingQuerier)(nil)

func TestPredicateSQL(t *testing.T) {
	tests := []struct {
		key      string
		base     bool
		wantSQL  string
		wantArgs []any
	}{
		{
			key:      "status-5",
			wantSQL:  "status_id = $1 AND with_employee_id IS NULL AND client_id IS NULL",
			wantArgs: []any{int64(5)},
		},
		{
			key:      "with_2_status-5",
			wantSQL:  "status_id = $1 AND with_employee_id = $2 AND client_id IS NULL",
			wantArgs: []any{int64(5), int64(2)},
		},
		{
			key:      "client-3",
			wantSQL:  "client_id = $1 AND status_id IS NULL AND schedule_type_id IS NULL",
			wantArgs: []any{int64(3)},
		},
		{
			key:      "client-3_type-7",
			wantSQL:  "client_id = $1 AND status_id IS NULL AND schedule_type_id = $2",
			wantArgs: []any{int64(3), int64(7)},
		},
		{
			key:      "client-3_type-7",
			base:     true,
			wantSQL:  "client_id = $1 AND status_id IS NULL",
			wantArgs: []any{int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			key := slotkey.Parse(tt.key)
			require.NotNil(t, key)

			pred := key.Predicate()
			if tt.base {
				pred = key.(slotkey.ClientKey).BasePredicate()
			}

			var args base.Args
			assert.Equal(t, tt.wantSQL, predicateSQL(pred, &args))
			assert.Equal(t, tt.wantArgs, []any(args))
		})
	}
}

func TestPredicateSQL_ZeroPredicateMatchesNothing(t *testing.T) {
	var args base.Args
	assert.Equal(t, "FALSE", predicateSQL(slotkey.Predicate{}, &args))
	assert.Empty(t, args)
}

func TestSlotRepository_UpdateLifecycleSQL(t *testing.T) {
	q := &recordingQuerier{affected: "UPDATE 2"}
	repo := NewSlotRepository(q)

	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	postponed := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	filter := slotkey.Parse("with_2_status-5").Predicate().On(7, date)
	stateID := model.ID(model.LifecyclePostponedID)

	n, err := repo.UpdateLifecycle(context.Background(), filter, stateID, &postponed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, q.calls, 1)
	assert.Equal(t,
		"UPDATE assignment_slots SET lifecycle_state_id = $1, postponed_date = $2 WHERE employee_id = $3 AND slot_date = $4 AND status_id = $5 AND with_employee_id = $6 AND client_id IS NULL",
		q.calls[0].sql)
	assert.Equal(t, []any{stateID, &postponed, int64(7), date, int64(5), int64(2)}, q.calls[0].args)
}

func TestSlotRepository_DeleteByIDs(t *testing.T) {
	q := &recordingQuerier{affected: "DELETE 3"}
	repo := NewSlotRepository(q)

	n, err := repo.DeleteByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, q.calls)

	n, err = repo.DeleteByIDs(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "DELETE FROM assignment_slots WHERE id = ANY($1)", q.calls[0].sql)
}

func TestSlotRepository_SetScheduleTypeMissingRow(t *testing.T) {
	q := &recordingQuerier{affected: "UPDATE 0"}
	repo := NewSlotRepository(q)

	err := repo.SetScheduleType(context.Background(), 42, model.ID(1))
	assert.Error(t, err)
}

func TestSlotRepository_WrapsStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := NewSlotRepository(&recordingQuerier{err: boom})

	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err := repo.Delete(context.Background(), slotkey.Parse("status-1").Predicate().On(1, date))
	assert.ErrorIs(t, err, boom)

	_, err = repo.DeleteDay(context.Background(), 1, date)
	assert.ErrorIs(t, err, boom)
}

func TestSlotRepository_LockDayTakesAdvisoryLockFirst(t *testing.T) {
	q := &recordingQuerier{affected: "SELECT 1"}
	repo := NewSlotRepository(q)
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	// Query у recordingQuerier не поддерживается, важна только advisory-блокировка перед ним.
	_, err := repo.LockDay(context.Background(), 7, date)
	require.Error(t, err)

	require.Len(t, q.calls, 1)
	assert.Equal(t, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", q.calls[0].sql)
	assert.Equal(t, []any{"assignment_slots:7:2025-01-10"}, q.calls[0].args)
}

func TestSlotRepository_LockDayFailsWhenLockFails(t *testing.T) {
	boom := errors.New("lock timeout")
	repo := NewSlotRepository(&recordingQuerier{err: boom})

	_, err := repo.LockDay(context.Background(), 7, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, boom)
}

func TestDayLockKey_DistinguishesEmployeeAndDate(t *testing.T) {
	jan10 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	jan11 := jan10.AddDate(0, 0, 1)

	assert.Equal(t, DayLockKey(1, jan10), DayLockKey(1, jan10.Add(5*time.Hour)))
	assert.NotEqual(t, DayLockKey(1, jan10), DayLockKey(2, jan10))
	assert.NotEqual(t, DayLockKey(1, jan10), DayLockKey(1, jan11))
}
