package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS labyrinth_state (
	bucket TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  JSONB NOT NULL,
	PRIMARY KEY (bucket, key)
);
`

// Postgres is a Store over a single key/value table. Each domain record is
// one JSONB row keyed by (bucket, key); one pgx transaction per operation
// gives the commit-or-nothing guarantee.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to Postgres and ensures the state table exists.
// If databaseURL is empty, NewPostgres returns (nil, nil) so callers can
// fall back to the in-memory store.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Postgres{pool: pool}, nil
}

// Begin opens a pgx transaction.
func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRow(ctx,
		`SELECT value FROM labyrinth_state WHERE bucket = $1 AND key = $2`,
		bucket, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (t *pgTx) Put(ctx context.Context, bucket, key string, value []byte) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO labyrinth_state (bucket, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (bucket, key) DO UPDATE SET value = EXCLUDED.value`,
		bucket, key, value)
	return err
}

func (t *pgTx) Delete(ctx context.Context, bucket, key string) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM labyrinth_state WHERE bucket = $1 AND key = $2`,
		bucket, key)
	return err
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

var _ Store = (*Postgres)(nil)
