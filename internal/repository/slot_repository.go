package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/repository/base"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, employee_id, status_id, with_employee_id, client_id, schedule_type_id,
	slot_date, lifecycle_state_id, postponed_date, cancellation_reason_id, created_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(q base.Querier) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(q)}
}

// ListDay получает все слоты сотрудника за день
func (r *SlotRepository) ListDay(ctx context.Context, employeeID int64, date time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM assignment_slots
		WHERE employee_id = $1 AND slot_date = $2
		ORDER BY id
	`

	slots, err := r.querySlots(ctx, query, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("list day slots: %w", err)
	}
	return slots, nil
}

// LockDay берёт advisory-блокировку дня и читает его слоты FOR UPDATE.
// FOR UPDATE не защищает от вставки отсутствующих строк, поэтому
// параллельные транзакции по одному дню сериализуются через advisory lock.
// Обе блокировки держатся до конца транзакции.
func (r *SlotRepository) LockDay(ctx context.Context, employeeID int64, date time.Time) ([]*model.Slot, error) {
	if _, err := r.ExecAffected(ctx, lockDayQuery, DayLockKey(employeeID, date)); err != nil {
		return nil, fmt.Errorf("lock day: %w", err)
	}

	query := `
		SELECT ` + slotColumns + `
		FROM assignment_slots
		WHERE employee_id = $1 AND slot_date = $2
		ORDER BY id
		FOR UPDATE
	`

	slots, err := r.querySlots(ctx, query, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("lock day slots: %w", err)
	}
	return slots, nil
}

const lockDayQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

// DayLockKey строка, из которой считается ключ advisory-блокировки дня
func DayLockKey(employeeID int64, date time.Time) string {
	return fmt.Sprintf("assignment_slots:%d:%s", employeeID, date.Format(time.DateOnly))
}

// Find получает слоты по фильтру ключа
func (r *SlotRepository) Find(ctx context.Context, f slotkey.Filter) ([]*model.Slot, error) {
	var args base.Args
	where := filterSQL(f, &args)

	query := `
		SELECT ` + slotColumns + `
		FROM assignment_slots
		WHERE ` + where + `
		ORDER BY id
	`

	slots, err := r.querySlots(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find slots: %w", err)
	}
	return slots, nil
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO assignment_slots (
			employee_id, status_id, with_employee_id, client_id, schedule_type_id,
			slot_date, lifecycle_state_id, postponed_date, cancellation_reason_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.EmployeeID,
		slot.StatusID,
		slot.WithEmployeeID,
		slot.ClientID,
		slot.ScheduleTypeID,
		slot.Date,
		slot.LifecycleStateID,
		slot.PostponedDate,
		slot.CancellationReasonID,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// SetScheduleType меняет тип визита, не трогая состояние
func (r *SlotRepository) SetScheduleType(ctx context.Context, slotID int64, typeID *int64) error {
	query := `
		UPDATE assignment_slots
		SET schedule_type_id = $1
		WHERE id = $2 AND client_id IS NOT NULL
	`

	affected, err := r.ExecAffected(ctx, query, typeID, slotID)
	if err != nil {
		return fmt.Errorf("set schedule type: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("set schedule type: slot %d not found", slotID)
	}

	return nil
}

// UpdateLifecycle обновляет состояние слотов, подходящих под фильтр
func (r *SlotRepository) UpdateLifecycle(ctx context.Context, f slotkey.Filter, stateID *int64, postponedDate *time.Time) (int64, error) {
	var args base.Args
	stateArg := args.Add(stateID)
	dateArg := args.Add(postponedDate)
	where := filterSQL(f, &args)

	query := `
		UPDATE assignment_slots
		SET lifecycle_state_id = ` + stateArg + `, postponed_date = ` + dateArg + `
		WHERE ` + where

	affected, err := r.ExecAffected(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update lifecycle: %w", err)
	}
	return affected, nil
}

// SetCancellationReason привязывает причину отмены
func (r *SlotRepository) SetCancellationReason(ctx context.Context, f slotkey.Filter, reasonID *int64) (int64, error) {
	var args base.Args
	reasonArg := args.Add(reasonID)
	where := filterSQL(f, &args)

	query := `
		UPDATE assignment_slots
		SET cancellation_reason_id = ` + reasonArg + `
		WHERE ` + where

	affected, err := r.ExecAffected(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("set cancellation reason: %w", err)
	}
	return affected, nil
}

// Delete удаляет слоты, подходящие под фильтр
func (r *SlotRepository) Delete(ctx context.Context, f slotkey.Filter) (int64, error) {
	var args base.Args
	where := filterSQL(f, &args)

	affected, err := r.ExecAffected(ctx, `DELETE FROM assignment_slots WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete slots: %w", err)
	}
	return affected, nil
}

// DeleteByIDs удаляет слоты по ID
func (r *SlotRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	affected, err := r.ExecAffected(ctx, `DELETE FROM assignment_slots WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete slots by id: %w", err)
	}
	return affected, nil
}

// DeleteDay удаляет все слоты сотрудника за день
func (r *SlotRepository) DeleteDay(ctx context.Context, employeeID int64, date time.Time) (int64, error) {
	query := `
		DELETE FROM assignment_slots
		WHERE employee_id = $1 AND slot_date = $2
	`

	affected, err := r.ExecAffected(ctx, query, employeeID, date)
	if err != nil {
		return 0, fmt.Errorf("delete day: %w", err)
	}
	return affected, nil
}

func (r *SlotRepository) querySlots(ctx context.Context, query string, args ...any) ([]*model.Slot, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.EmployeeID,
		&slot.StatusID,
		&slot.WithEmployeeID,
		&slot.ClientID,
		&slot.ScheduleTypeID,
		&slot.Date,
		&slot.LifecycleStateID,
		&slot.PostponedDate,
		&slot.CancellationReasonID,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// filterSQL renders a filter as a WHERE clause, appending its parameters.
func filterSQL(f slotkey.Filter, args *base.Args) string {
	return "employee_id = " + args.Add(f.EmployeeID) +
		" AND slot_date = " + args.Add(f.Date) +
		" AND " + predicateSQL(f.Predicate, args)
}

// predicateSQL mirrors slotkey.Predicate.Matches: the subject columns of
// the other shape must be NULL.
func predicateSQL(p slotkey.Predicate, args *base.Args) string {
	switch p.Kind {
	case slotkey.KindStatus:
		return "status_id = " + args.Add(p.StatusID) +
			" AND with_employee_id IS NULL AND client_id IS NULL"
	case slotkey.KindWith:
		if p.WithEmployeeID == nil {
			return "FALSE"
		}
		return "status_id = " + args.Add(p.StatusID) +
			" AND with_employee_id = " + args.Add(*p.WithEmployeeID) +
			" AND client_id IS NULL"
	case slotkey.KindClient:
		clause := "client_id = " + args.Add(p.ClientID) + " AND status_id IS NULL"
		switch {
		case p.AnyType:
		case p.TypeID == nil:
			clause += " AND schedule_type_id IS NULL"
		default:
			clause += " AND schedule_type_id = " + args.Add(*p.TypeID)
		}
		return clause
	}
	return "FALSE"
}
