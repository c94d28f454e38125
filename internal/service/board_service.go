package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/board"
	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"go.uber.org/zap"
)

type BoardService struct {
	store  contract.Store
	audit  AuditEmitter
	logger *zap.Logger
}

func NewBoardService(store contract.Store, emitter AuditEmitter, logger *zap.Logger) *BoardService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &BoardService{
		store:  store,
		audit:  emitter,
		logger: logger,
	}
}

// ReconcileResult описывает, что изменилось при замене дня
type ReconcileResult struct {
	Created     []*model.Slot      `json:"created"`
	Removed     []*model.Slot      `json:"removed"`
	TypeChanges []board.TypeChange `json:"typeChanges"`
	// Preserved: сколько оставшихся строк сохранили состояние
	Preserved  int  `json:"preserved"`
	ClearedAll bool `json:"clearedAll"`
}

// DaySlots получает слоты сотрудника за день
func (s *BoardService) DaySlots(ctx context.Context, employeeID int64, date time.Time) ([]*model.Slot, error) {
	date, err := validateDay(employeeID, date)
	if err != nil {
		return nil, err
	}

	var slots []*model.Slot
	err = s.store.WithTx(ctx, func(tx contract.Tx) error {
		var err error
		slots, err = tx.Slots().ListDay(ctx, employeeID, date)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list day: %w", err)
	}
	return slots, nil
}

// ReconcileDay заменяет набор слотов дня на переданный список ключей.
// Состояние жизненного цикла сохраняется у совпавших строк, в том числе
// при смене типа визита. Пустой список очищает день целиком.
// Некорректные ключи (nil) пропускаются; если других нет, день не меняется.
// Запись аудита пишется только когда день действительно изменился.
func (s *BoardService) ReconcileDay(ctx context.Context, employeeID int64, date time.Time, keys []slotkey.Key) (*ReconcileResult, error) {
	if len(keys) == 0 {
		return s.ClearDay(ctx, employeeID, date)
	}

	date, err := validateDay(employeeID, date)
	if err != nil {
		return nil, err
	}

	valid := make([]slotkey.Key, 0, len(keys))
	for _, k := range keys {
		if k != nil {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		s.logger.Warn("Reconcile request has no valid keys, day left untouched",
			zap.Int64("employee_id", employeeID),
			zap.Time("date", date),
			zap.Int("items", len(keys)))
		return &ReconcileResult{}, nil
	}

	result := &ReconcileResult{}
	var before, after []*model.Slot

	err = s.store.WithTx(ctx, func(tx contract.Tx) error {
		repo := tx.Slots()

		// Блокируем день, чтобы параллельная замена ждала коммита
		existing, err := repo.LockDay(ctx, employeeID, date)
		if err != nil {
			return fmt.Errorf("lock day: %w", err)
		}
		before = cloneSlots(existing)

		plan := board.PlanDay(existing, valid)

		byID := make(map[int64]*model.Slot, len(existing))
		for _, row := range existing {
			byID[row.ID] = row
		}

		for _, row := range plan.Kept {
			if row.HasLifecycle() {
				result.Preserved++
			}
			after = append(after, row.Clone())
		}

		// Меняем тип на месте, состояние не трогаем
		for _, tc := range plan.Retyped {
			if err := repo.SetScheduleType(ctx, tc.SlotID, tc.ToType); err != nil {
				return fmt.Errorf("retype slot %d: %w", tc.SlotID, err)
			}
			row := byID[tc.SlotID].Clone()
			row.ScheduleTypeID = tc.ToType
			if row.HasLifecycle() {
				result.Preserved++
			}
			after = append(after, row)
		}
		result.TypeChanges = plan.Retyped

		for _, key := range plan.Create {
			slot := &model.Slot{EmployeeID: employeeID, Date: date}
			slotkey.Apply(key, slot)
			if err := repo.Create(ctx, slot); err != nil {
				return fmt.Errorf("create slot %s: %w", key, err)
			}
			result.Created = append(result.Created, slot)
			after = append(after, slot.Clone())
		}

		if len(plan.Orphans) > 0 {
			ids := make([]int64, 0, len(plan.Orphans))
			for _, row := range plan.Orphans {
				ids = append(ids, row.ID)
			}
			if _, err := repo.DeleteByIDs(ctx, ids); err != nil {
				return fmt.Errorf("delete orphans: %w", err)
			}
			result.Removed = plan.Orphans
		}

		after = append(after, cloneSlots(plan.Retained)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile day: %w", err)
	}

	s.logger.Info("Day reconciled",
		zap.Int64("employee_id", employeeID),
		zap.Time("date", date),
		zap.Int("created", len(result.Created)),
		zap.Int("removed", len(result.Removed)),
		zap.Int("type_changes", len(result.TypeChanges)),
		zap.Int("preserved", result.Preserved))

	kind, actionType, changed := reconcileAction(result)
	if !changed {
		return result, nil
	}

	emit(ctx, s.audit, audit.Change{
		Kind:       kind,
		ActionType: actionType,
		EmployeeID: employeeID,
		Date:       date,
		Before:     before,
		After:      after,
		Details: map[string]any{
			"created":     len(result.Created),
			"removed":     len(result.Removed),
			"typeChanges": result.TypeChanges,
			"preserved":   result.Preserved,
		},
	})

	return result, nil
}

// reconcileAction выбирает тип записи аудита по итогу замены дня.
// changed=false, если день не изменился и писать нечего.
func reconcileAction(r *ReconcileResult) (kind audit.ActionKind, actionType audit.ActionType, changed bool) {
	created, removed, retyped := len(r.Created) > 0, len(r.Removed) > 0, len(r.TypeChanges) > 0

	switch {
	case created && !removed && !retyped:
		return audit.ActionCreate, audit.TypeCreated, true
	case created:
		return audit.ActionUpdate, audit.TypeCreated, true
	case removed && !retyped:
		return audit.ActionDelete, audit.TypeCleared, true
	case removed:
		return audit.ActionUpdate, audit.TypeCleared, true
	case retyped:
		// отдельного тега для смены типа нет, детали лежат в typeChanges
		return audit.ActionUpdate, audit.TypeCreated, true
	}
	return "", "", false
}

// ClearDay удаляет все слоты дня. Повторный вызов ничего не меняет.
func (s *BoardService) ClearDay(ctx context.Context, employeeID int64, date time.Time) (*ReconcileResult, error) {
	date, err := validateDay(employeeID, date)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{ClearedAll: true}

	err = s.store.WithTx(ctx, func(tx contract.Tx) error {
		existing, err := tx.Slots().LockDay(ctx, employeeID, date)
		if err != nil {
			return fmt.Errorf("lock day: %w", err)
		}
		if len(existing) == 0 {
			return nil
		}
		if _, err := tx.Slots().DeleteDay(ctx, employeeID, date); err != nil {
			return fmt.Errorf("delete day: %w", err)
		}
		result.Removed = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clear day: %w", err)
	}

	s.logger.Info("Day cleared",
		zap.Int64("employee_id", employeeID),
		zap.Time("date", date),
		zap.Int("removed", len(result.Removed)))

	emit(ctx, s.audit, audit.Change{
		Kind:       audit.ActionDelete,
		ActionType: audit.TypeClearedAll,
		EmployeeID: employeeID,
		Date:       date,
		Before:     cloneSlots(result.Removed),
		Details:    map[string]any{"removed": len(result.Removed)},
	})

	return result, nil
}

// RemoveSlot удаляет слот по ключу. Возвращает число удалённых строк.
func (s *BoardService) RemoveSlot(ctx context.Context, employeeID int64, date time.Time, slotKey string) (int64, error) {
	date, err := validateDay(employeeID, date)
	if err != nil {
		return 0, err
	}

	key := slotkey.Parse(slotKey)
	if key == nil {
		s.logger.Warn("Malformed slot key, nothing removed",
			zap.Int64("employee_id", employeeID),
			zap.String("slot_key", slotKey))
		return 0, nil
	}

	filter := key.Predicate().On(employeeID, date)
	var removed []*model.Slot

	err = s.store.WithTx(ctx, func(tx contract.Tx) error {
		rows, err := tx.Slots().Find(ctx, filter)
		if err != nil {
			return fmt.Errorf("find slot: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.Slots().Delete(ctx, filter); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		removed = rows
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("remove slot: %w", err)
	}

	if len(removed) == 0 {
		s.logger.Debug("No slot to remove",
			zap.Int64("employee_id", employeeID),
			zap.String("slot_key", slotKey))
		return 0, nil
	}

	emit(ctx, s.audit, audit.Change{
		Kind:       audit.ActionDelete,
		ActionType: audit.TypeCleared,
		EmployeeID: employeeID,
		Date:       date,
		SlotKey:    key.String(),
		Before:     removed,
	})

	return int64(len(removed)), nil
}
