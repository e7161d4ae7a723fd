package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/metrics"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

// Metrics records request count and latency per route. The route template
// is used rather than the raw path to keep label cardinality bounded.
func Metrics(service string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = rpc.HTTPStatus(rpc.CodeOf(err))
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			metrics.RequestsTotal.WithLabelValues(service, method, route, strconv.Itoa(status)).Inc()
			metrics.RequestDuration.WithLabelValues(service, method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
