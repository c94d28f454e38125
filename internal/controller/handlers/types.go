package handlers

import (
	"time"

	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/controller/state"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	board        *service.BoardService
	lifecycle    *service.LifecycleService
	names        contract.NameRepo
	stateManager *state.Manager
	logger       *zap.Logger
	now          func() time.Time
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	board *service.BoardService,
	lifecycle *service.LifecycleService,
	names contract.NameRepo,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		board:        board,
		lifecycle:    lifecycle,
		names:        names,
		stateManager: stateManager,
		logger:       logger,
		now:          time.Now,
	}
}
