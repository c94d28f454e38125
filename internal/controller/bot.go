package controller

import (
	"context"

	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks"
	"github.com/Freeeeeet/assignment_board/internal/controller/handlers"
	"github.com/Freeeeeet/assignment_board/internal/controller/state"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	board *service.BoardService,
	lifecycle *service.LifecycleService,
	names contract.NameRepo,
	logger *zap.Logger,
) *BotController {
	// Общий менеджер состояний для команд и callback'ов
	stateManager := state.NewManager()

	return &BotController{
		bot:             botInstance,
		handlers:        handlers.NewHandlers(board, lifecycle, names, stateManager, logger),
		callbackHandler: callbacks.NewHandler(board, lifecycle, names, stateManager, logger),
		logger:          logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/today", bot.MatchTypeExact, c.handlers.HandleToday)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/day", bot.MatchTypePrefix, c.handlers.HandleDay)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancellations", bot.MatchTypeExact, c.handlers.HandleCancellations)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "today", Description: "📅 Мои назначения на сегодня"},
		{Command: "day", Description: "🗓 Назначения на дату"},
		{Command: "cancellations", Description: "❌ Отмены за 30 дней"},
		{Command: "cancel", Description: "✖️ Выйти из диалога"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
