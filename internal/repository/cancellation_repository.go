package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/repository/base"
)

// CancellationRepository хранит причины отмены. Записи только добавляются.
type CancellationRepository struct {
	*base.Repository
}

func NewCancellationRepository(q base.Querier) *CancellationRepository {
	return &CancellationRepository{Repository: base.NewRepository(q)}
}

// Create создаёт новую причину отмены
func (r *CancellationRepository) Create(ctx context.Context, reason *model.CancellationReason) error {
	query := `
		INSERT INTO cancellation_reasons (reason, note, employee_id, slot_date, slot_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		reason.Reason,
		reason.Note,
		reason.EmployeeID,
		reason.SlotDate,
		reason.SlotKey,
	).Scan(&reason.ID, &reason.CreatedAt)

	if err != nil {
		return fmt.Errorf("create cancellation reason: %w", err)
	}

	return nil
}

// List получает причины отмены за период, новые первыми
func (r *CancellationRepository) List(ctx context.Context, from, to *time.Time) ([]*model.CancellationReason, error) {
	query := `
		SELECT id, reason, note, employee_id, slot_date, slot_key, created_at
		FROM cancellation_reasons
		WHERE ($1::date IS NULL OR slot_date >= $1::date)
		  AND ($2::date IS NULL OR slot_date <= $2::date)
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list cancellation reasons: %w", err)
	}
	defer rows.Close()

	var reasons []*model.CancellationReason
	for rows.Next() {
		var reason model.CancellationReason
		err := rows.Scan(
			&reason.ID,
			&reason.Reason,
			&reason.Note,
			&reason.EmployeeID,
			&reason.SlotDate,
			&reason.SlotKey,
			&reason.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cancellation reason: %w", err)
		}
		reasons = append(reasons, &reason)
	}

	return reasons, rows.Err()
}
