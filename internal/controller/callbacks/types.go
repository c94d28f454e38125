package callbacks

import (
	"context"

	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common"
	"github.com/Freeeeeet/assignment_board/internal/controller/state"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler обертка для common.Handler с методами
type Handler struct {
	*common.Handler
}

// NewHandler создаёт новый обработчик callbacks с зависимостями
func NewHandler(
	board *service.BoardService,
	lifecycle *service.LifecycleService,
	names contract.NameRepo,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handler {
	return &Handler{Handler: &common.Handler{
		Board:        board,
		Lifecycle:    lifecycle,
		Names:        names,
		StateManager: stateManager,
		Logger:       logger,
	}}
}

// HandleCallbackQuery - главный обработчик callback queries
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	callback := update.CallbackQuery
	h.Logger.Info("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID),
	)

	Route(ctx, b, callback, h.Handler)
}
