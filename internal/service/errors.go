package service

import "errors"

// Ошибки валидации. Транспорт отдаёт их клиенту как 400.
var (
	ErrInvalidEmployee     = errors.New("invalid employee id")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidPostponement = errors.New("invalid postponement")
	ErrUnknownState        = errors.New("unknown lifecycle state")
	ErrEmptyReason         = errors.New("cancellation reason is empty")
)

// IsValidation проверяет, что ошибка вызвана неверным запросом, а не хранилищем
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEmployee) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidPostponement) ||
		errors.Is(err, ErrUnknownState) ||
		errors.Is(err, ErrEmptyReason)
}
