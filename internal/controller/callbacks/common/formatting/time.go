package formatting

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadDate возвращается, если пользователь ввёл дату в неизвестном формате
var ErrBadDate = errors.New("bad date")

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatDateWithWeekday форматирует дату с днём недели: 10.01.2025 (Пт)
func FormatDateWithWeekday(t time.Time) string {
	return fmt.Sprintf("%s (%s)", FormatDate(t), GetWeekdayShortName(int(t.Weekday())))
}

// ParseUserDate разбирает дату, введённую пользователем.
// Понимает "ДД.ММ.ГГГГ", "ДД.ММ" (текущий год), "сегодня" и "завтра".
func ParseUserDate(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch s {
	case "сегодня":
		return today, nil
	case "завтра":
		return today.AddDate(0, 0, 1), nil
	}

	if t, err := time.Parse("02.01.2006", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2.1.2006", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("02.01", s); err == nil {
		return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

// GetWeekdayShortName возвращает краткое название дня недели на русском
func GetWeekdayShortName(weekday int) string {
	names := []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	if weekday >= 0 && weekday < len(names) {
		return names[weekday]
	}
	return "?"
}
