package keyboard

import "github.com/go-telegram/bot/models"

// Builder собирает inline клавиатуру по рядам
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

func NewBuilder() *Builder {
	return &Builder{rows: make([][]models.InlineKeyboardButton, 0)}
}

// Row добавляет ряд кнопок. Пустой ряд пропускается: Telegram его не принимает
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// AddBackButton добавляет ряд с кнопкой "Назад"
func (b *Builder) AddBackButton(callbackData string) *Builder {
	return b.Row(Button("⬅️ Назад", callbackData))
}

func (b *Builder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: b.rows}
}

// Button создаёт кнопку с callback data
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackData}
}

// DayNavigation создаёт ряд перехода между днями: назад, сегодня, вперёд
func DayNavigation(prevData, todayData, nextData string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{
		Button("◀️", prevData),
		Button("📍 Сегодня", todayData),
		Button("▶️", nextData),
	}
}
