package common

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// WithEmployee создаёт HandlerContext и загружает сотрудника.
// При ошибке автоматически отвечает пользователю
func WithEmployee(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *Handler,
	handler func(*HandlerContext),
) {
	hc := NewHandlerContext(ctx, b, callback, h)

	if err := hc.LoadEmployee(); err != nil {
		h.Logger.Warn("Failed to load employee",
			zap.Int64("telegram_id", hc.TelegramID),
			zap.Error(err))
		hc.AnswerAlert(ErrorMessage(err))
		return
	}

	handler(hc)
}
