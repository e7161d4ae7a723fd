package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownConnection is returned when a connection name has no configured pool.
var ErrUnknownConnection = errors.New("connection not configured")

// Acquire takes a connection from the named pool. The returned release func
// must be called once the operation is done.
func (p Pools) Acquire(ctx context.Context, connection string) (Querier, func(), error) {
	pool, ok := p[connection]
	if !ok || pool == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownConnection, connection)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire %s connection: %w", connection, err)
	}
	return conn, conn.Release, nil
}

// Has reports whether a pool is configured for connection.
func (p Pools) Has(connection string) bool {
	pool, ok := p[connection]
	return ok && pool != nil
}
