package tenant

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/metrics"
)

const tracerName = "hospital/tenant"

// Result is the outcome of one tenant's task.
type Result[T any] struct {
	MedicalCenterID int
	Value           T
	Err             error
}

// FanOut runs fn once per tenant with at most limit tasks in flight and
// returns the results in the order of tenants. Per-tenant failures are
// reported in Result.Err; the returned error is set only when ctx is done,
// in which case tenants not yet started are skipped.
func FanOut[T any](ctx context.Context, operation string, tenants []int, limit int, fn func(ctx context.Context, medicalCenterID int) (T, error)) ([]Result[T], error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fanout."+operation,
		trace.WithAttributes(
			attribute.String("fanout.operation", operation),
			attribute.Int("fanout.tenants", len(tenants)),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.FanOutDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	results := make([]Result[T], len(tenants))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, id := range tenants {
		results[i].MedicalCenterID = id
	}
	for i, id := range tenants {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			v, err := fn(gctx, id)
			results[i].Value = v
			results[i].Err = err
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return results, err
	}
	return results, nil
}

// First runs fn across tenants and returns the first tenant, in tenant
// order, for which fn reported ok.
func First(ctx context.Context, operation string, tenants []int, limit int, fn func(ctx context.Context, medicalCenterID int) (bool, error)) (int, bool, error) {
	results, err := FanOut(ctx, operation, tenants, limit, fn)
	if err != nil {
		return 0, false, err
	}
	for _, r := range results {
		if r.Err == nil && r.Value {
			return r.MedicalCenterID, true, nil
		}
	}
	return 0, false, nil
}
