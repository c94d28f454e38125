package handlers

// Ограничения ввода в диалогах
const (
	CancelReasonMinLength = 3
	CancelReasonMaxLength = 500

	// Сколько дней назад показывает /cancellations
	CancellationsLookbackDays = 30
)
