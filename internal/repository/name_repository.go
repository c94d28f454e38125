package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/repository/base"
)

// Master data is owned by other services; the board only reads names.
var nameQueries = map[model.RefKind]string{
	model.RefEmployee:       `SELECT name FROM employees WHERE id = $1`,
	model.RefClient:         `SELECT name FROM clients WHERE id = $1`,
	model.RefStatus:         `SELECT name FROM statuses WHERE id = $1`,
	model.RefScheduleType:   `SELECT name FROM schedule_types WHERE id = $1`,
	model.RefLifecycleState: `SELECT name FROM lifecycle_states WHERE id = $1`,
}

type NameRepository struct {
	*base.Repository
}

func NewNameRepository(q base.Querier) *NameRepository {
	return &NameRepository{Repository: base.NewRepository(q)}
}

// Name получает отображаемое имя записи справочника
func (r *NameRepository) Name(ctx context.Context, kind model.RefKind, id int64) (string, error) {
	query, ok := nameQueries[kind]
	if !ok {
		return "", fmt.Errorf("unknown reference kind %q", kind)
	}

	var name string
	if err := r.QueryRow(ctx, query, id).Scan(&name); err != nil {
		return "", fmt.Errorf("get %s name: %w", kind, err)
	}

	return name, nil
}

// EmployeeByTelegramID получает сотрудника по Telegram ID
func (r *NameRepository) EmployeeByTelegramID(ctx context.Context, telegramID int64) (*model.Employee, error) {
	query := `
		SELECT id, name, telegram_id
		FROM employees
		WHERE telegram_id = $1
	`

	var employee model.Employee
	err := r.QueryRow(ctx, query, telegramID).Scan(
		&employee.ID,
		&employee.Name,
		&employee.TelegramID,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee by telegram id: %w", err)
	}

	return &employee, nil
}
