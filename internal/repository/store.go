package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/assignment_board/internal/contract"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL implementation of contract.Store.
type Store struct {
	pool  *pgxpool.Pool
	names *NameRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		names: NewNameRepository(pool),
	}
}

type txRepos struct {
	slots   *SlotRepository
	reasons *CancellationRepository
}

func (t *txRepos) Slots() contract.SlotRepo     { return t.slots }
func (t *txRepos) Reasons() contract.ReasonRepo { return t.reasons }

// WithTx выполняет fn в транзакции. Ошибка fn откатывает все изменения.
func (s *Store) WithTx(ctx context.Context, fn func(tx contract.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	repos := &txRepos{
		slots:   NewSlotRepository(tx),
		reasons: NewCancellationRepository(tx),
	}

	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *Store) Names() contract.NameRepo {
	return s.names
}

// Ping проверяет соединение с базой
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
