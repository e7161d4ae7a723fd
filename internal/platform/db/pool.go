package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Pools holds one pool per named connection. It is built once at startup
// and only read afterwards.
type Pools map[string]*pgxpool.Pool

// OpenPools opens a pool for every configured connection. On failure the
// pools opened so far are closed.
func OpenPools(ctx context.Context, dsns map[string]string, maxConns, minConns int32) (Pools, error) {
	pools := make(Pools, len(dsns))
	for name, dsn := range dsns {
		pool, err := NewPool(ctx, dsn, maxConns, minConns)
		if err != nil {
			pools.Close()
			return nil, fmt.Errorf("connection %q: %w", name, err)
		}
		pools[name] = pool
	}
	return pools, nil
}

func (p Pools) Close() {
	for _, pool := range p {
		pool.Close()
	}
}
