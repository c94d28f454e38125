package handlers

import (
	"context"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireEmployee находит сотрудника, привязанного к отправителю.
// Возвращает контекст с актором для аудита.
func (h *Handlers) requireEmployee(ctx context.Context, b *bot.Bot, update *models.Update) (context.Context, *model.Employee, bool) {
	if update.Message == nil || update.Message.From == nil {
		return ctx, nil, false
	}

	telegramID := update.Message.From.ID
	employee, err := h.names.EmployeeByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get employee", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return ctx, nil, false
	}

	if employee == nil {
		h.sendError(ctx, b, update.Message.Chat.ID, common.ErrorMessage(common.ErrEmployeeNotFound))
		return ctx, nil, false
	}

	return audit.WithActor(ctx, common.TelegramActor(telegramID, employee)), employee, true
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет HTML-сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
