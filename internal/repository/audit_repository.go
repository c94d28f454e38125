package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/assignment_board/internal/audit"
	"github.com/Freeeeeet/assignment_board/internal/repository/base"
)

// AuditRepository is an audit.Sink backed by the audit_log table.
type AuditRepository struct {
	*base.Repository
}

func NewAuditRepository(q base.Querier) *AuditRepository {
	return &AuditRepository{Repository: base.NewRepository(q)}
}

// Write сохраняет запись аудита
func (r *AuditRepository) Write(ctx context.Context, rec audit.Record) error {
	var before []byte
	if rec.Before != nil {
		b, err := json.Marshal(rec.Before)
		if err != nil {
			return fmt.Errorf("marshal audit before: %w", err)
		}
		before = b
	}

	after, err := json.Marshal(rec.After)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, occurred_at, actor_id, actor_label, action_kind, entity_kind, entity_ref, before, after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.ExecAffected(ctx, query,
		rec.ID,
		rec.OccurredAt,
		rec.ActorID,
		rec.ActorLabel,
		string(rec.ActionKind),
		rec.EntityKind,
		rec.EntityRef,
		before,
		after,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	return nil
}
