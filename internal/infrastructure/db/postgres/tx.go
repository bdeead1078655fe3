package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/effectivemobile/bank-cards/internal/core/ports"
)

// Transactor runs ledger mutations in READ COMMITTED transactions. Rows read
// through the bound repositories are locked until commit or rollback.
type Transactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

var _ ports.Transactor = (*Transactor)(nil)

func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context, repos ports.TxRepositories) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	repos := ports.TxRepositories{
		Cards: &CardRepository{q: tx, lock: true},
		Users: &UserRepository{q: tx, lock: true},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
