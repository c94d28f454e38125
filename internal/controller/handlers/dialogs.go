package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common"
	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// handleCancelReasonStep отменяет назначение и сохраняет причину
func (h *Handlers) handleCancelReasonStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	ctx, employee, ok := h.requireEmployee(ctx, b, update)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	dialog, ok := h.stateManager.Dialog(telegramID)
	if !ok || dialog.EmployeeID != employee.ID {
		h.logger.Warn("Cancel dialog data missing", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ Диалог устарел. Откройте день заново: /today")
		return
	}

	reason := strings.TrimSpace(update.Message.Text)
	if n := utf8.RuneCountInString(reason); n < CancelReasonMinLength || n > CancelReasonMaxLength {
		h.sendError(ctx, b, chatID,
			fmt.Sprintf("❌ Причина должна быть от %d до %d символов.\n\nПопробуйте ещё раз:", CancelReasonMinLength, CancelReasonMaxLength))
		return
	}

	log := h.logger.With(
		zap.Int64("employee_id", employee.ID),
		zap.Time("date", dialog.Date),
		zap.String("slot_key", dialog.SlotKey))

	if _, err := h.lifecycle.SetLifecycleState(ctx, employee.ID, dialog.Date, dialog.SlotKey, model.LifecycleCancelled, service.Postponement{}); err != nil {
		log.Error("Failed to cancel slot", zap.Error(err))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		return
	}

	if _, err := h.lifecycle.AttachCancellationReason(ctx, employee.ID, dialog.Date, dialog.SlotKey, reason, ""); err != nil {
		log.Error("Failed to attach cancellation reason", zap.Error(err))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "⚠️ Назначение отменено, но причину сохранить не удалось.")
		return
	}

	h.stateManager.ClearState(telegramID)
	log.Info("Slot cancelled via bot")

	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("❌ Отменено: <b>%s</b>\n%s\n💬 %s",
			html.EscapeString(dialog.Label),
			formatting.FormatDate(dialog.Date),
			html.EscapeString(reason)),
		nil)
	h.sendDay(ctx, b, chatID, employee, dialog.Date)
}

// handlePostponeDateStep переносит назначение на введённую дату
func (h *Handlers) handlePostponeDateStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	ctx, employee, ok := h.requireEmployee(ctx, b, update)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	dialog, ok := h.stateManager.Dialog(telegramID)
	if !ok || dialog.EmployeeID != employee.ID {
		h.logger.Warn("Postpone dialog data missing", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ Диалог устарел. Откройте день заново: /today")
		return
	}

	target, err := formatting.ParseUserDate(update.Message.Text, h.now())
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Не понял дату. Формат: ДД.ММ.ГГГГ или ДД.ММ\n\nПопробуйте ещё раз:")
		return
	}
	if target.Equal(model.Day(dialog.Date)) {
		h.sendError(ctx, b, chatID, "❌ Это та же дата. Введите другую:")
		return
	}

	res, err := h.lifecycle.SetLifecycleState(ctx, employee.ID, dialog.Date, dialog.SlotKey,
		model.LifecyclePostponed, service.Postponement{Date: &target})
	if err != nil {
		h.logger.Error("Failed to postpone slot",
			zap.Int64("employee_id", employee.ID),
			zap.String("slot_key", dialog.SlotKey),
			zap.Error(err))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("📅 Перенесено: <b>%s</b>\n%s → %s",
			html.EscapeString(dialog.Label),
			formatting.FormatDate(dialog.Date),
			formatting.FormatDate(res.Date)),
		nil)
	h.sendDay(ctx, b, chatID, employee, res.Date)
}
