package common

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/controller/state"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	Board        *service.BoardService
	Lifecycle    *service.LifecycleService
	Names        contract.NameRepo
	StateManager *state.Manager
	Logger       *zap.Logger
}

// HandlerContext содержит общие данные для обработки callback
type HandlerContext struct {
	Ctx        context.Context
	Bot        *bot.Bot
	Callback   *models.CallbackQuery
	Handler    *Handler
	Message    *models.Message
	Employee   *model.Employee
	TelegramID int64
	ChatID     int64
}

// NewHandlerContext создаёт новый контекст обработчика
func NewHandlerContext(
	ctx context.Context,
	b *bot.Bot,
	callback *models.CallbackQuery,
	h *Handler,
) *HandlerContext {
	msg := GetMessageFromCallback(callback)
	var chatID int64
	if msg != nil {
		chatID = msg.Chat.ID
	}

	return &HandlerContext{
		Ctx:        ctx,
		Bot:        b,
		Callback:   callback,
		Handler:    h,
		Message:    msg,
		TelegramID: callback.From.ID,
		ChatID:     chatID,
	}
}

// LoadEmployee находит сотрудника по Telegram ID и кладёт актора в контекст
func (hc *HandlerContext) LoadEmployee() error {
	employee, err := hc.Handler.Names.EmployeeByTelegramID(hc.Ctx, hc.TelegramID)
	if err != nil {
		return err
	}
	if employee == nil {
		return ErrEmployeeNotFound
	}
	hc.Employee = employee
	hc.Ctx = audit.WithActor(hc.Ctx, TelegramActor(hc.TelegramID, employee))
	return nil
}

// TelegramActor описывает автора изменений, сделанных через бота
func TelegramActor(telegramID int64, employee *model.Employee) audit.Actor {
	return audit.Actor{ID: fmt.Sprintf("tg:%d", telegramID), Label: employee.Name}
}

// Answer отвечает на callback query
func (hc *HandlerContext) Answer(text string) {
	AnswerCallback(hc.Ctx, hc.Bot, hc.Callback.ID, text)
}

// AnswerAlert отвечает на callback query с alert
func (hc *HandlerContext) AnswerAlert(text string) {
	AnswerCallbackAlert(hc.Ctx, hc.Bot, hc.Callback.ID, text)
}

// EditMessage редактирует сообщение
func (hc *HandlerContext) EditMessage(text string, keyboard *models.InlineKeyboardMarkup) error {
	if hc.Message == nil {
		return ErrNoMessage
	}

	params := &bot.EditMessageTextParams{
		ChatID:    hc.ChatID,
		MessageID: hc.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := hc.Bot.EditMessageText(hc.Ctx, params)

	// Игнорируем ошибку "message is not modified" - это не настоящая ошибка
	if IsMessageNotModifiedError(err) {
		return nil
	}

	return err
}

// SendMessage отправляет новое сообщение
func (hc *HandlerContext) SendMessage(text string, keyboard *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:    hc.ChatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, err := hc.Bot.SendMessage(hc.Ctx, params)
	return err
}

// StartDialog переводит пользователя в диалог по слоту
func (hc *HandlerContext) StartDialog(st state.UserState, d state.SlotDialog) {
	hc.Handler.StateManager.StartDialog(hc.TelegramID, st, d)
}

// Resolver создаёт резолвер имён на время обработки одного callback
func (hc *HandlerContext) Resolver() *audit.Resolver {
	return audit.NewResolver(hc.Handler.Names, hc.Handler.Logger)
}
