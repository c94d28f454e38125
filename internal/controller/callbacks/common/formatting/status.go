package formatting

import "github.com/Freeeeeet/assignment_board/internal/model"

// LifecycleDisplay представляет отображение состояния назначения
type LifecycleDisplay struct {
	Emoji string
	Text  string
}

// GetLifecycleDisplay возвращает emoji и текст для состояния назначения
func GetLifecycleDisplay(slot *model.Slot) LifecycleDisplay {
	switch model.LifecycleStateOf(slot.LifecycleStateID) {
	case model.LifecycleCompleted:
		return LifecycleDisplay{"✅", "Выполнено"}
	case model.LifecycleCancelled:
		return LifecycleDisplay{"❌", "Отменено"}
	case model.LifecyclePostponed:
		if slot.PostponedDate == nil {
			return LifecycleDisplay{"⏸", "Перенесено, дата уточняется"}
		}
		return LifecycleDisplay{"📅", "Перенесено с " + FormatDate(*slot.PostponedDate)}
	}
	return LifecycleDisplay{"▫️", "Запланировано"}
}
