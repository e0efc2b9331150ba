package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"useropindexer/internal/model"
	"useropindexer/internal/storage"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS user_operation_events (
	user_op_hash    TEXT NOT NULL,
	sender          TEXT NOT NULL,
	paymaster       TEXT NOT NULL,
	nonce           NUMERIC(78,0) NOT NULL,
	success         BOOLEAN NOT NULL,
	actual_gas_cost NUMERIC(78,0) NOT NULL,
	actual_gas_used NUMERIC(78,0) NOT NULL,
	block_number    BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_op_hash, nonce)
)`

const insertSQL = `
INSERT INTO user_operation_events (
	user_op_hash, sender, paymaster, nonce, success, actual_gas_cost, actual_gas_used, block_number
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_op_hash, nonce) DO NOTHING`

// Store provides Postgres persistence for decoded events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database liveness.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the events table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Persist inserts one event, keyed on (user_op_hash, nonce). A row that
// already exists is left untouched and reported as a duplicate. Nonce and
// gas values go through NUMERIC(78,0) so 256-bit values never truncate.
func (s *Store) Persist(ctx context.Context, event model.UserOperationEvent) (storage.Outcome, error) {
	tag, err := s.pool.Exec(ctx, insertSQL,
		event.UserOpHash.Hex(),
		event.Sender.Hex(),
		event.Paymaster.Hex(),
		event.Nonce.String(),
		event.Success,
		event.ActualGasCost.String(),
		event.ActualGasUsed.String(),
		int64(event.BlockNumber),
	)
	if err != nil {
		return storage.OutcomeInserted, fmt.Errorf("insert event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.OutcomeDuplicate, nil
	}
	return storage.OutcomeInserted, nil
}
