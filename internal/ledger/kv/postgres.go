package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key   BYTEA PRIMARY KEY,
	value BYTEA NOT NULL
);
CREATE TABLE IF NOT EXISTS kv_usage (
	id    SMALLINT PRIMARY KEY CHECK (id = 1),
	bytes BIGINT NOT NULL CHECK (bytes >= 0)
);
INSERT INTO kv_usage (id, bytes) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`

// PostgresBackend stores entries in PostgreSQL. Each batch runs in one SQL
// transaction together with the usage counter update.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend wraps db. Call Migrate before first use.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Migrate creates the tables if they do not exist.
func (p *PostgresBackend) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate kv schema: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select kv entry: %w", err)
	}
	return value, true, nil
}

func (p *PostgresBackend) Usage(ctx context.Context) (uint64, error) {
	var bytes int64
	if err := p.db.QueryRowContext(ctx, `SELECT bytes FROM kv_usage WHERE id = 1`).Scan(&bytes); err != nil {
		return 0, fmt.Errorf("select kv usage: %w", err)
	}
	return uint64(bytes), nil
}

func (p *PostgresBackend) Apply(ctx context.Context, batch *Batch) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kv transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var usage int64
	err = tx.QueryRowContext(ctx,
		`UPDATE kv_usage SET bytes = bytes + $1 WHERE id = 1 AND bytes + $1 >= 0 RETURNING bytes`,
		batch.UsageDelta,
	).Scan(&usage)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUsageUnderflow
	}
	if err != nil {
		return fmt.Errorf("update kv usage: %w", err)
	}

	var delKeys, putKeys, putValues pq.ByteaArray
	for _, op := range batch.Ops {
		if op.Delete {
			delKeys = append(delKeys, op.Key)
			continue
		}
		putKeys = append(putKeys, op.Key)
		putValues = append(putValues, op.Value)
	}

	if len(delKeys) > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ANY($1)`, delKeys); err != nil {
			return fmt.Errorf("delete kv entries: %w", err)
		}
	}
	if len(putKeys) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO kv_entries (key, value)
			SELECT k, v FROM unnest($1::bytea[], $2::bytea[]) AS t(k, v)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
		`, putKeys, putValues)
		if err != nil {
			return fmt.Errorf("upsert kv entries: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit kv transaction: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (p *PostgresBackend) Close() error {
	return nil
}
