package audit

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Sink persists audit records. Implementations may fail; the dispatcher
// logs and drops the record.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes records to the application log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

func (s *LogSink) Write(_ context.Context, rec Record) error {
	s.logger.Info("Audit record",
		zap.String("id", rec.ID.String()),
		zap.String("actor_id", rec.ActorID),
		zap.String("actor_label", rec.ActorLabel),
		zap.String("action_kind", string(rec.ActionKind)),
		zap.String("entity_kind", rec.EntityKind),
		zap.String("entity_ref", rec.EntityRef),
		zap.Any("before", rec.Before),
		zap.Any("after", rec.After),
	)
	return nil
}
