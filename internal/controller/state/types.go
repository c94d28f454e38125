package state

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Ожидаем текст причины отмены
	StateCancelReason UserState = "cancel_reason"
	// Ожидаем новую дату переноса (ДД.ММ.ГГГГ)
	StatePostponeDate UserState = "postpone_date"
)

// Ключи временных данных диалога
const (
	KeyEmployeeID = "employee_id"
	KeyDate       = "date"
	KeySlotKey    = "slot_key"
	KeyLabel      = "label"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State UserState
	Data  map[string]any
}
