package common

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/assignment_board/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"github.com/go-telegram/bot/models"
)

// SlotLine - одно назначение дня, готовое к показу
type SlotLine struct {
	Slot    *model.Slot
	Ref     SlotRef
	Label   string
	Display formatting.LifecycleDisplay
}

// BuildSlotLines подписывает назначения дня. Строки без субъекта пропускаются.
func BuildSlotLines(ctx context.Context, res *audit.Resolver, date time.Time, slots []*model.Slot) []SlotLine {
	lines := make([]SlotLine, 0, len(slots))
	for _, s := range slots {
		key := slotkey.KeyOf(s)
		if key == nil {
			continue
		}
		lines = append(lines, SlotLine{
			Slot:    s,
			Ref:     SlotRef{Date: date, SlotKey: key.String()},
			Label:   service.SlotLabel(ctx, res, key),
			Display: formatting.GetLifecycleDisplay(s),
		})
	}
	return lines
}

// DayScreen рендерит день сотрудника: текст и клавиатуру с назначениями
func DayScreen(employee *model.Employee, date, today time.Time, lines []SlotLine) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>📅 %s</b>\n%s\n\n", html.EscapeString(employee.Name), formatting.FormatDateWithWeekday(date))

	kb := keyboard.NewBuilder()
	if len(lines) == 0 {
		sb.WriteString("Назначений нет.")
	} else {
		fmt.Fprintf(&sb, "%d %s:\n", len(lines), formatting.PluralizeAssignments(len(lines)))
		for _, line := range lines {
			fmt.Fprintf(&sb, "%s %s\n", line.Display.Emoji, html.EscapeString(line.Label))
			kb.Row(keyboard.Button(line.Display.Emoji+" "+line.Label, SlotData(line.Ref)))
		}
		sb.WriteString("\nНажмите на назначение, чтобы отметить его.")
	}

	kb.Row(keyboard.DayNavigation(
		DayData(date.AddDate(0, 0, -1)),
		DayData(today),
		DayData(date.AddDate(0, 0, 1)),
	)...)

	return sb.String(), kb.Build()
}

// SlotScreen рендерит карточку назначения с действиями
func SlotScreen(line SlotLine) (string, *models.InlineKeyboardMarkup) {
	text := fmt.Sprintf(
		"<b>%s</b>\n%s\n\nСостояние: %s %s",
		html.EscapeString(line.Label),
		formatting.FormatDateWithWeekday(line.Ref.Date),
		line.Display.Emoji,
		line.Display.Text,
	)

	kb := keyboard.NewBuilder().
		Row(
			keyboard.Button("✅ Выполнено", LifecycleData(OpDone, line.Ref)),
			keyboard.Button("❌ Отменить", LifecycleData(OpCancel, line.Ref)),
		).
		Row(
			keyboard.Button("⏸ Дата уточняется", LifecycleData(OpTBA, line.Ref)),
			keyboard.Button("📅 Перенести", LifecycleData(OpMove, line.Ref)),
		)
	if line.Slot.HasLifecycle() {
		kb.Row(keyboard.Button("↩️ Сбросить состояние", LifecycleData(OpClear, line.Ref)))
	}
	kb.AddBackButton(DayData(line.Ref.Date))

	return text, kb.Build()
}

// FindLine ищет назначение по ключу
func FindLine(lines []SlotLine, slotKey string) (SlotLine, bool) {
	for _, line := range lines {
		if line.Ref.SlotKey == slotKey {
			return line, true
		}
	}
	return SlotLine{}, false
}

// CancellationsScreen рендерит список причин отмен
func CancellationsScreen(from, to time.Time, views []service.CancellationView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>❌ Отмены %s – %s</b>\n\n", formatting.FormatDate(from), formatting.FormatDate(to))

	if len(views) == 0 {
		sb.WriteString("Отмен нет.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "%d %s:\n\n", len(views), formatting.PluralizeCancellations(len(views)))
	for _, v := range views {
		fmt.Fprintf(&sb, "%s · %s\n%s\n💬 %s\n",
			formatting.FormatDate(v.Date),
			html.EscapeString(v.EmployeeName),
			html.EscapeString(v.ClientOrStatusLabel),
			html.EscapeString(v.Reason),
		)
		if v.Note != "" {
			fmt.Fprintf(&sb, "📝 %s\n", html.EscapeString(v.Note))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
