package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *common.Handler) {
	data := callback.Data

	switch {
	case data == common.Noop:
		common.AnswerCallback(ctx, b, callback.ID, "")
	case strings.HasPrefix(data, common.PrefixDay):
		common.WithEmployee(ctx, b, callback, h, HandleDay)
	case strings.HasPrefix(data, common.PrefixSlot):
		common.WithEmployee(ctx, b, callback, h, HandleSlot)
	case strings.HasPrefix(data, common.PrefixLifecycle):
		common.WithEmployee(ctx, b, callback, h, HandleLifecycle)
	default:
		h.Logger.Warn("Unknown callback", zap.String("data", data))
		common.AnswerCallback(ctx, b, callback.ID, "Неизвестная команда")
	}
}
