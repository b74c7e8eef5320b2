package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresKV backs the store with a single key-value table, for
// deployments where the role terminals are separate hosts.
type PostgresKV struct {
	pool *pgxpool.Pool
}

// ConnectPostgres dials with retries; terminals often boot before the
// database container is ready.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresKV, error) {
	const (
		maxRetries = 10
		retryDelay = 2 * time.Second
		pingTTL    = 5 * time.Second
	)

	var lastErr error
	for i := 1; i <= maxRetries; i++ {
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, pingTTL)
			err = pool.Ping(pctx)
			cancel()
			if err == nil {
				kv := &PostgresKV{pool: pool}
				if err := kv.ensureSchema(ctx); err != nil {
					pool.Close()
					return nil, err
				}
				return kv, nil
			}
			pool.Close()
		}
		lastErr = err

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("postgres connect canceled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", maxRetries, lastErr)
}

func (p *PostgresKV) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS menuquick_kv (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure kv table: %w", err)
	}
	return nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, `SELECT value FROM menuquick_kv WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO menuquick_kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM menuquick_kv WHERE key=$1`, key); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Close() error {
	p.pool.Close()
	return nil
}
