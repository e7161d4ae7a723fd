package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used by repositories. It is satisfied by
// *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Handle is a database connection resolved for one medical center. It lives
// for a single operation: the caller must Release it when done.
type Handle struct {
	MedicalCenterID int
	Connection      string
	Conn            Querier

	release func()
}

func NewHandle(medicalCenterID int, connection string, conn Querier, release func()) *Handle {
	return &Handle{
		MedicalCenterID: medicalCenterID,
		Connection:      connection,
		Conn:            conn,
		release:         release,
	}
}

// Release returns the connection to its pool. Safe to call more than once.
func (h *Handle) Release() {
	if h == nil || h.release == nil {
		return
	}
	h.release()
	h.release = nil
}
