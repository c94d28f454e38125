package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"go.uber.org/zap"
)

type LifecycleService struct {
	store  contract.Store
	audit  AuditEmitter
	logger *zap.Logger
}

func NewLifecycleService(store contract.Store, emitter AuditEmitter, logger *zap.Logger) *LifecycleService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &LifecycleService{
		store:  store,
		audit:  emitter,
		logger: logger,
	}
}

// Postponement уточняет перенос. Без даты перенос считается TBA.
type Postponement struct {
	Date  *time.Time
	IsTBA bool
}

// LifecycleResult описывает слот после смены состояния
type LifecycleResult struct {
	State model.LifecycleState `json:"state"`
	// Date: где слот находится теперь; отличается от даты запроса только
	// после переноса на дату
	Date          time.Time  `json:"date"`
	PostponedDate *time.Time `json:"postponedDate"`
	IsTBA         bool       `json:"isTBA"`
	// Applied=false, если ключ некорректный и ничего не изменилось
	Applied bool `json:"applied"`
}

// ClearResult описывает результат сброса состояния
type ClearResult struct {
	Cleared    bool `json:"cleared"`
	DeletedRow bool `json:"deletedRow"`
}

// AttachResult описывает созданную причину отмены
type AttachResult struct {
	ReasonID  int64     `json:"reasonId"`
	CreatedAt time.Time `json:"createdAt"`
	// Attached=false, если привязать причину было не к чему; сама причина сохраняется
	Attached bool `json:"attached"`
}

// DetachResult описывает результат отвязки причины отмены
type DetachResult struct {
	Detached bool `json:"detached"`
}

// CancellationView строка отчёта по отменам
type CancellationView struct {
	ReasonID            int64     `json:"reasonId"`
	Date                time.Time `json:"date"`
	EmployeeID          int64     `json:"employeeId"`
	EmployeeName        string    `json:"employeeName"`
	SlotKey             string    `json:"slotKey"`
	ClientOrStatusLabel string    `json:"clientOrStatusLabel"`
	Reason              string    `json:"reason"`
	Note                string    `json:"note"`
	CreatedAt           time.Time `json:"createdAt"`
}

// SetLifecycleState переводит слот в указанное состояние.
// completed, cancelled и TBA обновляют строку на текущей дате (создают её,
// если строки нет). Перенос на дату удаляет строку и создаёт её на новой
// дате с postponed_date = исходная дата.
func (s *LifecycleService) SetLifecycleState(ctx context.Context, employeeID int64, date time.Time, slotKey string, state model.LifecycleState, p Postponement) (*LifecycleResult, error) {
	date, err := validateDay(employeeID, date)
	if err != nil {
		return nil, err
	}

	switch state {
	case model.LifecycleNone:
		if _, err := s.ClearLifecycleState(ctx, employeeID, date, slotKey); err != nil {
			return nil, err
		}
		return &LifecycleResult{State: model.LifecycleNone, Date: date, Applied: true}, nil
	case model.LifecycleCompleted, model.LifecycleCancelled:
	case model.LifecyclePostponed:
		if p.IsTBA && p.Date != nil {
			return nil, fmt.Errorf("%w: both TBA and a target date given", ErrInvalidPostponement)
		}
		if p.Date != nil {
			return s.postponeTo(ctx, employeeID, date, slotKey, model.Day(*p.Date))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}

	key := slotkey.Parse(slotKey)
	if key == nil {
		s.logger.Warn("Malformed slot key, lifecycle unchanged",
			zap.Int64("employee_id", employeeID),
			zap.String("slot_key", slotKey),
			zap.String("state", string(state)))
		return &LifecycleResult{State: state, Date: date}, nil
	}

	filter := key.Predicate().On(employeeID, date)
	stateID := state.StateID()
	kind := audit.ActionUpdate
	var before, after []*model.Slot

	err = s.store.WithTx(ctx, func(tx contract.Tx) error {
		repo := tx.Slots()

		// Блокируем день: без этого два параллельных запроса создадут по строке
		if err := lockDays(ctx, repo, employeeID, date); err != nil {
			return err
		}

		rows, err := repo.Find(ctx, filter)
		if err != nil {
			return fmt.Errorf("find slot: %w", err)
		}

		// Слота ещё нет: создаём его сразу с состоянием
		if len(rows) == 0 {
			slot := &model.Slot{EmployeeID: employeeID, Date: date, LifecycleStateID: stateID}
			slotkey.Apply(key, slot)
			if err := repo.Create(ctx, slot); err != nil {
				return fmt.Errorf("create slot: %w", err)
			}
			kind = audit.ActionCreate
			after = []*model.Slot{slot.Clone()}
			return nil
		}

		if _, err := repo.UpdateLifecycle(ctx, filter, stateID, nil); err != nil {
			return fmt.Errorf("update lifecycle: %w", err)
		}
		before = cloneSlots(rows)
		for _, row := range rows {
			row.LifecycleStateID = stateID
			row.PostponedDate = nil
		}
		after = rows
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set lifecycle state: %w", err)
	}

	s.logger.Info("Lifecycle state set",
		zap.Int64("employee_id", employeeID),
		zap.Time("date", date),
		zap.String("slot_key", key.String()),
		zap.String("state", string(state)))

	emit(ctx, s.audit, audit.Change{
		Kind:       kind,
		ActionType: actionTypeOf(state),
		EmployeeID: employeeID,
		Date:       date,
		SlotKey:    key.String(),
		Before:     before,
		After:      after,
	})

	return &LifecycleResult{
		State:   state,
		Date:    date,
		IsTBA:   state == model.LifecyclePostponed,
		Applied: true,
	}, nil
}

// postponeTo переносит слот на другую дату.
// Если слот уже был перенесён, сохраняется самая первая дата. Если на
// целевой дате такой слот уже есть, обновляется он.
func (s *LifecycleService) postponeTo(ctx context.Context, employeeID int64, date time.Time, slotKey string, target time.Time) (*LifecycleResult, error) {
	if target.Equal(date) {
		return nil, fmt.Errorf("%w: target date equals current date", ErrInvalidPostponement)
	}

	key := slotkey.Parse(slotKey)
	if key == nil {
		s.logger.Warn("Malformed slot key, postponement skipped",
			zap.Int64("employee_id", employeeID),
			zap.String("slot_key", slotKey))
		return &LifecycleResult{State: model.LifecyclePostponed, Date: date}, nil
	}

	pred := key.Predicate()
	source := pred.On(employeeID, date)
	dest := pred.On(employeeID, target)
	stateID := model.LifecyclePostponed.StateID()
	origin := date
	var before, after []*model.Slot

	err := s.store.WithTx(ctx, func(tx contract.Tx) error {
		repo := tx.Slots()

		if err := lockDays(ctx, repo, employeeID, date, target); err != nil {
			return err
		}

		rows, err := repo.Find(ctx, source)
		if err != nil {
			return fmt.Errorf("find source slot: %w", err)
		}

		var reasonID *int64
		if len(rows) > 0 {
			first := rows[0]
			if first.PostponedDate != nil {
				origin = model.Day(*first.PostponedDate)
			}
			reasonID = first.CancellationReasonID

			if _, err := repo.Delete(ctx, source); err != nil {
				return fmt.Errorf("delete source slot: %w", err)
			}
			before = cloneSlots(rows)
		}

		existing, err := repo.Find(ctx, dest)
		if err != nil {
			return fmt.Errorf("find target slot: %w", err)
		}

		if len(existing) > 0 {
			if _, err := repo.UpdateLifecycle(ctx, dest, stateID, &origin); err != nil {
				return fmt.Errorf("update target slot: %w", err)
			}
			if reasonID != nil {
				if _, err := repo.SetCancellationReason(ctx, dest, reasonID); err != nil {
					return fmt.Errorf("move cancellation reason: %w", err)
				}
			}
			before = append(before, cloneSlots(existing)...)
			for _, row := range existing {
				row.LifecycleStateID = stateID
				o := origin
				row.PostponedDate = &o
				if reasonID != nil {
					row.CancellationReasonID = model.ID(*reasonID)
				}
			}
			after = existing
			return nil
		}

		o := origin
		slot := &model.Slot{
			EmployeeID:           employeeID,
			Date:                 target,
			LifecycleStateID:     stateID,
			PostponedDate:        &o,
			CancellationReasonID: reasonID,
		}
		slotkey.Apply(key, slot)
		if err := repo.Create(ctx, slot); err != nil {
			return fmt.Errorf("create target slot: %w", err)
		}
		after = []*model.Slot{slot.Clone()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postpone slot: %w", err)
	}

	s.logger.Info("Slot postponed",
		zap.Int64("employee_id", employeeID),
		zap.Time("from", date),
		zap.Time("to", target),
		zap.Time("original_date", origin),
		zap.String("slot_key", key.String()))

	emit(ctx, s.audit, audit.Change{
		Kind:       audit.ActionUpdate,
		ActionType: audit.TypePostponed,
		EmployeeID: employeeID,
		Date:       date,
		SlotKey:    key.String(),
		Before:     before,
		After:      after,
		Details:    map[string]any{"targetDate": model.FormatDate(target)},
	})

	return &LifecycleResult{
		State:         model.LifecyclePostponed,
		Date:          target,
		PostponedDate: &origin,
		Applied:       true,
	}, nil
}

// lockDays блокирует дни по возрастанию даты, чтобы встречные переносы
// не взяли блокировки в разном порядке.
func lockDays(ctx context.Context, repo contract.SlotRepo, employeeID int64, dates ...time.Time) error {
	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	for _, d := range sorted {
		if _, err := repo.LockDay(ctx, employeeID, d); err != nil {
			return fmt.Errorf("lock day %s: %w", model.FormatDate(d), err)
		}
	}
	return nil
}

// ClearLifecycleState сбрасывает состояние слота.
// Типизированный визит клиента без других вариантов на этот день удаляется целиком.
func (s *LifecycleService) ClearLifecycleState(ctx context.Context, employeeID int64, date time.Time, slotKey string) (*ClearResult, error) {
	date, err := validateDay(employeeID, date)
	if err != nil {
		return nil, err
	}

	key := slotkey.Parse(slotKey)
	if key == nil {
		s.logger.Warn("Malformed slot key, nothing cleared",
			zap.Int64("employee_id", employeeID),
			zap.String("slot_key", slotKey))
		return &ClearResult{}, nil
	}

	filter := key.Predicate().On(employeeID, date)
	result := &ClearResult{}
	var before, after []*model.Slot

	err = s.store.WithTx(ctx, func(tx contract.Tx) error {
		repo := tx.Slots()

		rows, err := repo.Find(ctx, filter)
		if err != nil {
			return fmt.Errorf("find slot: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		before = cloneSlots(rows)

		lonely, err := lonelyTypedClient(ctx, repo, key, employeeID, date, rows)
		if err != nil {
			return err
		}
		if lonely {
			if _, err := repo.Delete(ctx, filter); err != nil {
				return fmt.Errorf("delete slot: %w", err)
			}
			result.Cleared, result.DeletedRow = true, true
			return nil
		}

		if _, err := repo.UpdateLifecycle(ctx, filter, nil, nil); err != nil {
			return fmt.Errorf("clear lifecycle: %w", err)
		}
		for _, row := range rows {
			row.LifecycleStateID = nil
			row.PostponedDate = nil
		}
		after = rows
		result.Cleared = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clear lifecycle state: %w", err)
	}

	if !result.Cleared {
		s.logger.Debug("No slot to clear",
			zap.Int64("employee_id", employeeID),
			zap.String("slot_key", key.String()))
		return result, nil
	}

	kind := audit.ActionUpdate
	if result.DeletedRow {
		kind = audit.ActionDelete
	}
	emit(ctx, s.audit, audit.Change{
		Kind:       kind,
		ActionType: audit.TypeCleared,
		EmployeeID: employeeID,
		Date:       date,
		SlotKey:    key.String(),
		Before:     before,
		After:      after,
		Details:    map[string]any{"deletedRow": result.DeletedRow},
	})

	return result, nil
}

// lonelyTypedClient проверяет, что ключ типизированного клиента и других
// строк этого клиента на день нет
func lonelyTypedClient(ctx context.Context, repo contract.SlotRepo, key slotkey.Key, employeeID int64, date time.Time, rows []*model.Slot) (bool, error) {
	ck, ok := key.(slotkey.ClientKey)
	if !ok || ck.TypeID == nil {
		return false, nil
	}

	all, err := repo.Find(ctx, ck.BasePredicate().On(employeeID, date))
	if err != nil {
		return false, fmt.Errorf("find client variants: %w", err)
	}

	own := make(map[int64]bool, len(rows))
	for _, row := range rows {
		own[row.ID] = true
	}
	for _, row := range all {
		if !own[row.ID] {
			return false, nil
		}
	}
	return true, nil
}

// AttachCancellationReason создаёт причину отмены и привязывает её к слоту.
// Причина сохраняется, даже если слот не найден.
func (s *LifecycleService) AttachCancellationReason(ctx context.Context, employeeID int64, date time.Time, slotKey, reason, note string) (*AttachResult, error) {
	date, err := validateDay(employeeID, date)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	key := slotkey.Parse(slotKey)
	rec := &model.CancellationReason{
		Reason:     reason,
		Note:       strings.TrimSpace(note),
		EmployeeID: employeeID,
		SlotDate:   date,
		SlotKey:    slotKey,
	}
	if key != nil {
		rec.SlotKey = key.String()
	}

	var attached int64
	var broadened bool

	err = s.store.WithTx(ctx, func(tx contract.Tx) error {
		if err := tx.Reasons().Create(ctx, rec); err != nil {
			return fmt.Errorf("create reason: %w", err)
		}
		if key == nil {
			return nil
		}

		n, err := tx.Slots().SetCancellationReason(ctx, key.Predicate().On(employeeID, date), &rec.ID)
		if err != nil {
			return fmt.Errorf("attach reason: %w", err)
		}

		// Не нашли точный слот: пробуем тот же клиент с любым типом
		if n == 0 {
			if ck, ok := key.(slotkey.ClientKey); ok {
				n, err = tx.Slots().SetCancellationReason(ctx, ck.BasePredicate().On(employeeID, date), &rec.ID)
				if err != nil {
					return fmt.Errorf("attach reason to client: %w", err)
				}
				broadened = n > 0
			}
		}
		attached = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("attach cancellation reason: %w", err)
	}

	if attached == 0 {
		s.logger.Warn("Cancellation reason stored without a slot",
			zap.Int64("reason_id", rec.ID),
			zap.Int64("employee_id", employeeID),
			zap.Time("date", date),
			zap.String("slot_key", slotKey))
	} else {
		s.logger.Info("Cancellation reason attached",
			zap.Int64("reason_id", rec.ID),
			zap.Int64("employee_id", employeeID),
			zap.String("slot_key", rec.SlotKey),
			zap.Bool("broadened", broadened))
	}

	emit(ctx, s.audit, audit.Change{
		Kind:       audit.ActionCreate,
		ActionType: audit.TypeCancelled,
		EmployeeID: employeeID,
		Date:       date,
		SlotKey:    rec.SlotKey,
		Details: map[string]any{
			"reasonId": rec.ID,
			"reason":   rec.Reason,
			"note":     rec.Note,
			"attached": attached > 0,
		},
	})

	return &AttachResult{
		ReasonID:  rec.ID,
		CreatedAt: rec.CreatedAt,
		Attached:  attached > 0,
	}, nil
}

// DetachCancellationReason отвязывает причину от слота. Сама причина остаётся.
func (s *LifecycleService) DetachCancellationReason(ctx context.Context, employeeID int64, date time.Time, slotKey string) (*DetachResult, error) {
	date, err := validateDay(employeeID, date)
	if err != nil {
		return nil, err
	}

	key := slotkey.Parse(slotKey)
	if key == nil {
		s.logger.Warn("Malformed slot key, nothing detached",
			zap.Int64("employee_id", employeeID),
			zap.String("slot_key", slotKey))
		return &DetachResult{}, nil
	}

	var detached int64
	err = s.store.WithTx(ctx, func(tx contract.Tx) error {
		n, err := tx.Slots().SetCancellationReason(ctx, key.Predicate().On(employeeID, date), nil)
		if err != nil {
			return fmt.Errorf("detach reason: %w", err)
		}
		if n == 0 {
			if ck, ok := key.(slotkey.ClientKey); ok {
				n, err = tx.Slots().SetCancellationReason(ctx, ck.BasePredicate().On(employeeID, date), nil)
				if err != nil {
					return fmt.Errorf("detach reason from client: %w", err)
				}
			}
		}
		detached = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("detach cancellation reason: %w", err)
	}

	if detached > 0 {
		emit(ctx, s.audit, audit.Change{
			Kind:       audit.ActionUpdate,
			ActionType: audit.TypeCleared,
			EmployeeID: employeeID,
			Date:       date,
			SlotKey:    key.String(),
			Details:    map[string]any{"cancellationReason": "detached"},
		})
	}

	return &DetachResult{Detached: detached > 0}, nil
}

// ListCancellations возвращает причины отмен за период, новые первыми
func (s *LifecycleService) ListCancellations(ctx context.Context, from, to *time.Time) ([]CancellationView, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, fmt.Errorf("%w: range end before start", ErrInvalidDate)
	}

	var reasons []*model.CancellationReason
	err := s.store.WithTx(ctx, func(tx contract.Tx) error {
		var err error
		reasons, err = tx.Reasons().List(ctx, from, to)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list cancellations: %w", err)
	}

	res := audit.NewResolver(s.store.Names(), s.logger)
	views := make([]CancellationView, 0, len(reasons))
	for _, r := range reasons {
		label := SlotLabel(ctx, res, slotkey.Parse(r.SlotKey))
		if label == "" {
			label = r.SlotKey
		}
		views = append(views, CancellationView{
			ReasonID:            r.ID,
			Date:                r.SlotDate,
			EmployeeID:          r.EmployeeID,
			EmployeeName:        res.Name(ctx, model.RefEmployee, r.EmployeeID),
			SlotKey:             r.SlotKey,
			ClientOrStatusLabel: label,
			Reason:              r.Reason,
			Note:                r.Note,
			CreatedAt:           r.CreatedAt,
		})
	}
	return views, nil
}

// SlotLabel строит подпись ключа: клиент (с типом визита) или статус
// (с сотрудником в паре)
func SlotLabel(ctx context.Context, res *audit.Resolver, key slotkey.Key) string {
	switch k := key.(type) {
	case slotkey.ClientKey:
		label := res.Name(ctx, model.RefClient, k.ClientID)
		if name, ok := res.OptionalName(ctx, model.RefScheduleType, k.TypeID); ok {
			label += " (" + name + ")"
		}
		return label
	case slotkey.StatusKey:
		label := res.Name(ctx, model.RefStatus, k.StatusID)
		if name, ok := res.OptionalName(ctx, model.RefEmployee, k.WithEmployeeID); ok {
			label += " / " + name
		}
		return label
	}
	return ""
}

func actionTypeOf(state model.LifecycleState) audit.ActionType {
	switch state {
	case model.LifecycleCompleted:
		return audit.TypeCompleted
	case model.LifecycleCancelled:
		return audit.TypeCancelled
	case model.LifecyclePostponed:
		return audit.TypePostponed
	}
	return audit.TypeCleared
}

// ParseState переводит имя состояния из запроса в LifecycleState.
// Неизвестное имя оборачивается в ErrUnknownState.
func ParseState(s string) (model.LifecycleState, error) {
	state, err := model.ParseLifecycleState(s)
	if err != nil {
		return "", errors.Join(ErrUnknownState, err)
	}
	return state, nil
}
