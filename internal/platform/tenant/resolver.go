package tenant

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/db"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/metrics"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

// Resolver hands out a database handle for a medical center.
type Resolver interface {
	// Resolve returns a handle scoped to one operation. Callers must
	// Release it.
	Resolve(ctx context.Context, medicalCenterID int) (*db.Handle, error)
	// Tenants lists every known medical center in routing order.
	Tenants() []int
}

// Source acquires a connection by name. db.Pools satisfies it.
type Source interface {
	Acquire(ctx context.Context, connection string) (db.Querier, func(), error)
}

// PoolResolver resolves medical centers through a RoutingTable onto a
// connection Source.
type PoolResolver struct {
	routing RoutingTable
	source  Source
	logger  zerolog.Logger
}

func NewResolver(routing RoutingTable, source Source, logger zerolog.Logger) *PoolResolver {
	return &PoolResolver{routing: routing, source: source, logger: logger}
}

func (r *PoolResolver) Tenants() []int {
	return r.routing.Tenants()
}

func (r *PoolResolver) Resolve(ctx context.Context, medicalCenterID int) (*db.Handle, error) {
	if medicalCenterID <= 0 {
		medicalCenterID = reqctx.DefaultMedicalCenterID
	}
	name := r.routing.ConnectionName(medicalCenterID)

	conn, release, err := r.source.Acquire(ctx, name)
	if err != nil {
		if errors.Is(err, db.ErrUnknownConnection) {
			metrics.TenantResolutions.WithLabelValues(name, "unconfigured").Inc()
			r.logger.Error().
				Int("medical_center_id", medicalCenterID).
				Str("connection", name).
				Msg("no database configured for connection")
			return nil, rpc.Errorf(rpc.CodeConfiguration, "no database configured for connection %q", name)
		}
		metrics.TenantResolutions.WithLabelValues(name, "unavailable").Inc()
		return nil, rpc.Wrap(rpc.CodeUnavailable, err, "database unavailable")
	}

	metrics.TenantResolutions.WithLabelValues(name, "ok").Inc()
	r.logger.Debug().
		Int("medical_center_id", medicalCenterID).
		Str("connection", name).
		Msg("tenant resolved")
	return db.NewHandle(medicalCenterID, name, conn, release), nil
}
