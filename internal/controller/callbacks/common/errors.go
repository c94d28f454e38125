package common

import (
	"errors"

	"github.com/Freeeeeet/assignment_board/internal/service"
)

// Общие ошибки для обработчиков
var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrNoMessage        = errors.New("no message in callback")
	ErrInvalidFormat    = errors.New("invalid callback format")
	ErrSlotNotFound     = errors.New("slot not found")
)

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmployeeNotFound):
		return "❌ Ваш Telegram не привязан к сотруднику. Обратитесь к администратору."
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case errors.Is(err, ErrSlotNotFound):
		return "❌ Назначение не найдено. Обновите день."
	case errors.Is(err, service.ErrInvalidPostponement):
		return "❌ Нельзя перенести на ту же дату"
	case errors.Is(err, service.ErrInvalidDate):
		return "❌ Неверная дата"
	case errors.Is(err, service.ErrEmptyReason):
		return "❌ Причина отмены не может быть пустой"
	default:
		return "❌ Произошла ошибка"
	}
}
