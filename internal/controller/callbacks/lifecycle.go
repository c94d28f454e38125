package callbacks

import (
	"fmt"
	"html"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common"
	"github.com/Freeeeeet/assignment_board/internal/controller/state"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"go.uber.org/zap"
)

// HandleDay показывает день сотрудника
func HandleDay(hc *common.HandlerContext) {
	date, err := common.ParseDayData(hc.Callback.Data)
	if err != nil {
		hc.AnswerAlert(common.ErrorMessage(err))
		return
	}
	hc.Answer("")
	showDay(hc, date)
}

// HandleSlot показывает карточку назначения
func HandleSlot(hc *common.HandlerContext) {
	ref, err := common.ParseSlotData(hc.Callback.Data)
	if err != nil {
		hc.AnswerAlert(common.ErrorMessage(err))
		return
	}
	hc.Answer("")
	showSlot(hc, ref)
}

// HandleLifecycle выполняет действие над назначением
func HandleLifecycle(hc *common.HandlerContext) {
	op, ref, err := common.ParseLifecycleData(hc.Callback.Data)
	if err != nil {
		hc.AnswerAlert(common.ErrorMessage(err))
		return
	}

	log := hc.Handler.Logger.With(
		zap.Int64("employee_id", hc.Employee.ID),
		zap.Time("date", ref.Date),
		zap.String("slot_key", ref.SlotKey),
		zap.String("op", string(op)),
	)
	log.Info("Lifecycle action")

	switch op {
	case common.OpDone:
		applyState(hc, log, ref, model.LifecycleCompleted, service.Postponement{}, "✅ Отмечено как выполненное")
	case common.OpTBA:
		applyState(hc, log, ref, model.LifecyclePostponed, service.Postponement{IsTBA: true}, "⏸ Перенесено, дата уточняется")
	case common.OpClear:
		res, err := hc.Handler.Lifecycle.ClearLifecycleState(hc.Ctx, hc.Employee.ID, ref.Date, ref.SlotKey)
		if err != nil {
			log.Error("Failed to clear lifecycle state", zap.Error(err))
			hc.AnswerAlert(common.ErrorMessage(err))
			return
		}
		if res.DeletedRow {
			hc.Answer("↩️ Состояние сброшено, назначение удалено")
			showDay(hc, ref.Date)
			return
		}
		hc.Answer("↩️ Состояние сброшено")
		showSlot(hc, ref)
	case common.OpCancel:
		startDialog(hc, ref, state.StateCancelReason,
			"❌ Отмена: <b>%s</b>\n\nНапишите причину отмены одним сообщением.\n\nДля выхода используйте /cancel")
	case common.OpMove:
		startDialog(hc, ref, state.StatePostponeDate,
			"📅 Перенос: <b>%s</b>\n\nНа какую дату перенести? Формат: ДД.ММ.ГГГГ или ДД.ММ\n\nДля выхода используйте /cancel")
	}
}

func applyState(hc *common.HandlerContext, log *zap.Logger, ref common.SlotRef, st model.LifecycleState, p service.Postponement, done string) {
	if _, err := hc.Handler.Lifecycle.SetLifecycleState(hc.Ctx, hc.Employee.ID, ref.Date, ref.SlotKey, st, p); err != nil {
		log.Error("Failed to set lifecycle state", zap.Error(err))
		hc.AnswerAlert(common.ErrorMessage(err))
		return
	}
	hc.Answer(done)
	showSlot(hc, ref)
}

func startDialog(hc *common.HandlerContext, ref common.SlotRef, st state.UserState, prompt string) {
	label := service.SlotLabel(hc.Ctx, hc.Resolver(), slotkey.Parse(ref.SlotKey))

	hc.StartDialog(st, state.SlotDialog{
		EmployeeID: hc.Employee.ID,
		Date:       ref.Date,
		SlotKey:    ref.SlotKey,
		Label:      label,
	})
	hc.Answer("")

	if err := hc.SendMessage(fmt.Sprintf(prompt, html.EscapeString(label)), nil); err != nil {
		hc.Handler.Logger.Error("Failed to send dialog prompt", zap.Error(err))
	}
}

func showDay(hc *common.HandlerContext, date time.Time) {
	slots, err := hc.Handler.Board.DaySlots(hc.Ctx, hc.Employee.ID, date)
	if err != nil {
		hc.Handler.Logger.Error("Failed to load day", zap.Int64("employee_id", hc.Employee.ID), zap.Error(err))
		hc.AnswerAlert(common.ErrorMessage(err))
		return
	}

	lines := common.BuildSlotLines(hc.Ctx, hc.Resolver(), date, slots)
	text, kb := common.DayScreen(hc.Employee, date, model.Day(time.Now()), lines)
	if err := hc.EditMessage(text, kb); err != nil {
		hc.Handler.Logger.Error("Failed to render day", zap.Error(err))
	}
}

func showSlot(hc *common.HandlerContext, ref common.SlotRef) {
	slots, err := hc.Handler.Board.DaySlots(hc.Ctx, hc.Employee.ID, ref.Date)
	if err != nil {
		hc.Handler.Logger.Error("Failed to load day", zap.Int64("employee_id", hc.Employee.ID), zap.Error(err))
		return
	}

	line, ok := common.FindLine(common.BuildSlotLines(hc.Ctx, hc.Resolver(), ref.Date, slots), ref.SlotKey)
	if !ok {
		// Назначение могло уехать на другую дату или быть удалено
		showDay(hc, ref.Date)
		return
	}

	text, kb := common.SlotScreen(line)
	if err := hc.EditMessage(text, kb); err != nil {
		hc.Handler.Logger.Error("Failed to render slot", zap.Error(err))
	}
}
