package httpapi

import (
	"time"

	"github.com/Freeeeeet/assignment_board/internal/board"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
)

// Item kinds accepted by the reconcile endpoint.
const (
	ItemStatus         = "status"
	ItemClient         = "client"
	ItemClientWithType = "client-with-type"
)

// ItemDTO is one requested slot. Either Key or Kind with its ids is set.
type ItemDTO struct {
	Kind           string `json:"kind"`
	ID             *int64 `json:"id,omitempty"`
	ClientID       *int64 `json:"clientId,omitempty"`
	ScheduleTypeID *int64 `json:"scheduleTypeId,omitempty"`
	WithEmployeeID *int64 `json:"withEmployeeId,omitempty"`
	Key            string `json:"key,omitempty"`
}

// ToKey converts the item to a slot key, nil when it is malformed.
func (it ItemDTO) ToKey() slotkey.Key {
	if it.Key != "" {
		return slotkey.Parse(it.Key)
	}

	var k slotkey.Key
	switch it.Kind {
	case ItemStatus:
		if it.ID == nil {
			return nil
		}
		k = slotkey.StatusKey{StatusID: *it.ID, WithEmployeeID: it.WithEmployeeID}
	case ItemClient, ItemClientWithType:
		clientID := it.ClientID
		if clientID == nil {
			clientID = it.ID
		}
		if clientID == nil {
			return nil
		}
		if it.Kind == ItemClientWithType && it.ScheduleTypeID == nil {
			return nil
		}
		k = slotkey.ClientKey{ClientID: *clientID, TypeID: it.ScheduleTypeID}
	default:
		return nil
	}

	// Через строку отсекаем нулевые и отрицательные id
	return slotkey.Parse(k.String())
}

type ReconcileRequest struct {
	Items []ItemDTO `json:"items"`
}

type ReconcileResponse struct {
	OK          bool               `json:"ok"`
	ClearedAll  bool               `json:"clearedAll"`
	Created     []SlotDTO          `json:"created"`
	Removed     []SlotDTO          `json:"removed"`
	TypeChanges []board.TypeChange `json:"typeChanges"`
	Preserved   int                `json:"preserved"`
	Skipped     int                `json:"skipped"`
}

// SlotDTO represents a slot in API responses.
type SlotDTO struct {
	ID                   int64   `json:"id"`
	Key                  string  `json:"key"`
	EmployeeID           int64   `json:"employeeId"`
	Date                 string  `json:"date"`
	StatusID             *int64  `json:"statusId,omitempty"`
	WithEmployeeID       *int64  `json:"withEmployeeId,omitempty"`
	ClientID             *int64  `json:"clientId,omitempty"`
	ScheduleTypeID       *int64  `json:"scheduleTypeId,omitempty"`
	LifecycleState       string  `json:"lifecycleState"`
	PostponedDate        *string `json:"postponedDate"`
	IsTBA                bool    `json:"isTBA"`
	CancellationReasonID *int64  `json:"cancellationReasonId,omitempty"`
	CreatedAt            string  `json:"createdAt"`
}

type DayResponse struct {
	EmployeeID int64     `json:"employeeId"`
	Date       string    `json:"date"`
	Slots      []SlotDTO `json:"slots"`
}

type LifecycleRequest struct {
	State         string  `json:"state"`
	PostponedDate *string `json:"postponedDate,omitempty"`
	IsTBA         bool    `json:"isTBA,omitempty"`
}

type LifecycleResponse struct {
	OK            bool    `json:"ok"`
	Applied       bool    `json:"applied"`
	State         string  `json:"state"`
	Date          string  `json:"date"`
	PostponedDate *string `json:"postponedDate"`
	IsTBA         bool    `json:"isTBA"`
}

type ClearLifecycleResponse struct {
	OK         bool `json:"ok"`
	Cleared    bool `json:"cleared"`
	DeletedRow bool `json:"deletedRow"`
}

type CancellationRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note,omitempty"`
}

type CancellationResponse struct {
	OK        bool   `json:"ok"`
	ReasonID  int64  `json:"reasonId"`
	CreatedAt string `json:"createdAt"`
	Attached  bool   `json:"attached"`
}

type DetachResponse struct {
	OK       bool `json:"ok"`
	Detached bool `json:"detached"`
}

type RemoveResponse struct {
	OK      bool  `json:"ok"`
	Removed int64 `json:"removed"`
}

// CancellationDTO is one line of the cancellations report.
type CancellationDTO struct {
	ReasonID            int64  `json:"reasonId"`
	Date                string `json:"date"`
	EmployeeID          int64  `json:"employeeId"`
	EmployeeName        string `json:"employeeName"`
	SlotKey             string `json:"slotKey"`
	ClientOrStatusLabel string `json:"clientOrStatusLabel"`
	Reason              string `json:"reason"`
	Note                string `json:"note"`
	CreatedAt           string `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toSlotDTO(s *model.Slot) SlotDTO {
	dto := SlotDTO{
		ID:                   s.ID,
		EmployeeID:           s.EmployeeID,
		Date:                 model.FormatDate(s.Date),
		StatusID:             s.StatusID,
		WithEmployeeID:       s.WithEmployeeID,
		ClientID:             s.ClientID,
		ScheduleTypeID:       s.ScheduleTypeID,
		LifecycleState:       string(model.LifecycleStateOf(s.LifecycleStateID)),
		PostponedDate:        formatOptionalDate(s.PostponedDate),
		IsTBA:                s.IsTBA(),
		CancellationReasonID: s.CancellationReasonID,
		CreatedAt:            s.CreatedAt.Format(time.RFC3339),
	}
	if key := slotkey.KeyOf(s); key != nil {
		dto.Key = key.String()
	}
	return dto
}

func toSlotDTOs(slots []*model.Slot) []SlotDTO {
	dtos := make([]SlotDTO, 0, len(slots))
	for _, s := range slots {
		dtos = append(dtos, toSlotDTO(s))
	}
	return dtos
}

func toCancellationDTO(v service.CancellationView) CancellationDTO {
	return CancellationDTO{
		ReasonID:            v.ReasonID,
		Date:                model.FormatDate(v.Date),
		EmployeeID:          v.EmployeeID,
		EmployeeName:        v.EmployeeName,
		SlotKey:             v.SlotKey,
		ClientOrStatusLabel: v.ClientOrStatusLabel,
		Reason:              v.Reason,
		Note:                v.Note,
		CreatedAt:           v.CreatedAt.Format(time.RFC3339),
	}
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := model.FormatDate(*t)
	return &s
}
