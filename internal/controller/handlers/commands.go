package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common"
	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/assignment_board/internal/controller/state"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "Доступные команды:\n" +
	"/today - Мои назначения на сегодня\n" +
	"/day ДД.ММ.ГГГГ - Назначения на дату\n" +
	"/cancellations - Отмены за последние 30 дней\n" +
	"/cancel - Выйти из текущего диалога\n" +
	"/help - Справка\n\n" +
	"Откройте день и нажмите на назначение, чтобы отметить его выполненным, отменить или перенести."

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, employee, ok := h.requireEmployee(ctx, b, update)
	if !ok {
		return
	}

	h.logger.Info("Employee started bot",
		zap.Int64("telegram_id", update.Message.From.ID),
		zap.Int64("employee_id", employee.ID))

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		fmt.Sprintf("👋 Привет, %s!\n\nЭто табель назначений.\n\n%s", html.EscapeString(employee.Name), helpText),
		nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, "📖 Справка\n\n"+helpText, nil)
}

// HandleToday показывает назначения на сегодня
func (h *Handlers) HandleToday(ctx context.Context, b *bot.Bot, update *models.Update) {
	ctx, employee, ok := h.requireEmployee(ctx, b, update)
	if !ok {
		return
	}
	h.sendDay(ctx, b, update.Message.Chat.ID, employee, h.today())
}

// HandleDay показывает назначения на дату: /day 10.01.2025
func (h *Handlers) HandleDay(ctx context.Context, b *bot.Bot, update *models.Update) {
	ctx, employee, ok := h.requireEmployee(ctx, b, update)
	if !ok {
		return
	}

	arg := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/day"))
	date := h.today()
	if arg != "" {
		parsed, err := formatting.ParseUserDate(arg, h.now())
		if err != nil {
			h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не понял дату. Формат: /day ДД.ММ.ГГГГ")
			return
		}
		date = parsed
	}

	h.sendDay(ctx, b, update.Message.Chat.ID, employee, date)
}

// HandleCancellations показывает отмены за последние дни
func (h *Handlers) HandleCancellations(ctx context.Context, b *bot.Bot, update *models.Update) {
	ctx, _, ok := h.requireEmployee(ctx, b, update)
	if !ok {
		return
	}

	to := h.today()
	from := to.AddDate(0, 0, -CancellationsLookbackDays)

	views, err := h.lifecycle.ListCancellations(ctx, &from, &to)
	if err != nil {
		h.logger.Error("Failed to list cancellations", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось загрузить отмены. Попробуйте позже.")
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, common.CancellationsScreen(from, to, views), nil)
}

// HandleCancel выходит из текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "Нет активного диалога.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✖️ Диалог отменён.", nil)
}

// HandleTextMessage обрабатывает текст в зависимости от состояния диалога
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	current := h.stateManager.GetState(telegramID)

	h.logger.Debug("Text message",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(current)))

	switch current {
	case state.StateCancelReason:
		h.handleCancelReasonStep(ctx, b, update)
	case state.StatePostponeDate:
		h.handlePostponeDateStep(ctx, b, update)
	default:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "Не понимаю. Используйте /help", nil)
	}
}

func (h *Handlers) sendDay(ctx context.Context, b *bot.Bot, chatID int64, employee *model.Employee, date time.Time) {
	slots, err := h.board.DaySlots(ctx, employee.ID, date)
	if err != nil {
		h.logger.Error("Failed to load day",
			zap.Int64("employee_id", employee.ID),
			zap.Time("date", date),
			zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Не удалось загрузить день. Попробуйте позже.")
		return
	}

	lines := common.BuildSlotLines(ctx, audit.NewResolver(h.names, h.logger), date, slots)
	text, kb := common.DayScreen(employee, date, h.today(), lines)
	h.sendMessage(ctx, b, chatID, text, kb)
}

func (h *Handlers) today() time.Time {
	return model.Day(h.now())
}
