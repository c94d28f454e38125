package state

import (
	"sync"
	"time"
)

// Manager управляет состояниями пользователей
type Manager struct {
	mu     sync.RWMutex
	states map[int64]*UserData // telegramID -> UserData
}

// NewManager создаёт новый менеджер состояний
func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*UserData),
	}
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// SetState устанавливает состояние пользователя
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.states, telegramID)
		return
	}

	if userData, exists := sm.states[telegramID]; exists {
		userData.State = state
		return
	}
	sm.states[telegramID] = &UserData{State: state, Data: make(map[string]any)}
}

// GetData получает временные данные пользователя
func (sm *Manager) GetData(telegramID int64, key string) (any, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		value, ok := userData.Data[key]
		return value, ok
	}
	return nil, false
}

// SetData устанавливает временные данные пользователя
func (sm *Manager) SetData(telegramID int64, key string, value any) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.states[telegramID]; !exists {
		sm.states[telegramID] = &UserData{State: StateNone, Data: make(map[string]any)}
	}
	sm.states[telegramID].Data[key] = value
}

// ClearState очищает состояние и данные пользователя
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}

// SlotDialog is the slot a dialog step acts on.
type SlotDialog struct {
	EmployeeID int64
	Date       time.Time
	SlotKey    string
	Label      string
}

// StartDialog переводит пользователя в состояние и запоминает слот
func (sm *Manager) StartDialog(telegramID int64, state UserState, d SlotDialog) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.states[telegramID] = &UserData{
		State: state,
		Data: map[string]any{
			KeyEmployeeID: d.EmployeeID,
			KeyDate:       d.Date,
			KeySlotKey:    d.SlotKey,
			KeyLabel:      d.Label,
		},
	}
}

// Dialog возвращает слот текущего диалога. ok=false, если данных нет
// или они повреждены.
func (sm *Manager) Dialog(telegramID int64) (SlotDialog, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	userData, exists := sm.states[telegramID]
	if !exists {
		return SlotDialog{}, false
	}

	employeeID, ok1 := userData.Data[KeyEmployeeID].(int64)
	date, ok2 := userData.Data[KeyDate].(time.Time)
	slotKey, ok3 := userData.Data[KeySlotKey].(string)
	label, _ := userData.Data[KeyLabel].(string)
	if !ok1 || !ok2 || !ok3 {
		return SlotDialog{}, false
	}
	return SlotDialog{EmployeeID: employeeID, Date: date, SlotKey: slotKey, Label: label}, true
}
