package audit

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/Freeeeeet/assignment_board/internal/model"
	"go.uber.org/zap"
)

type refKey struct {
	kind model.RefKind
	id   int64
}

// Resolver turns ids into display names. A failed lookup yields the
// placeholder "<Kind> <id>" instead of an error. Not safe for concurrent
// use; create one per record or listing.
type Resolver struct {
	names  contract.NameRepo
	logger *zap.Logger
	cache  map[refKey]string
}

func NewResolver(names contract.NameRepo, logger *zap.Logger) *Resolver {
	return &Resolver{
		names:  names,
		logger: logger,
		cache:  make(map[refKey]string),
	}
}

// Name returns the display name of id.
func (r *Resolver) Name(ctx context.Context, kind model.RefKind, id int64) string {
	k := refKey{kind: kind, id: id}
	if name, ok := r.cache[k]; ok {
		return name
	}

	name, err := r.names.Name(ctx, kind, id)
	if err != nil || name == "" {
		if err != nil {
			r.logger.Debug("Name lookup failed, using placeholder",
				zap.String("kind", string(kind)),
				zap.Int64("id", id),
				zap.Error(err))
		}
		name = Placeholder(kind, id)
	}

	r.cache[k] = name
	return name
}

// OptionalName resolves id when present.
func (r *Resolver) OptionalName(ctx context.Context, kind model.RefKind, id *int64) (string, bool) {
	if id == nil {
		return "", false
	}
	return r.Name(ctx, kind, *id), true
}

// Placeholder is the deterministic stand-in for an unresolvable id.
func Placeholder(kind model.RefKind, id int64) string {
	return fmt.Sprintf("%s %d", kind, id)
}
