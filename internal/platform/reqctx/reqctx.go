// Package reqctx carries the medical center and caller role of one inbound
// request. The value is passed explicitly through every call that needs it
// and re-serialized as outbound headers on each hop between services.
package reqctx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/labstack/echo/v4"
)

const (
	HeaderMedicalCenter = "X-Centro-Medico"
	HeaderRole          = "X-Rol"

	DefaultMedicalCenterID = 1
	RoleAdmin              = "Admin"

	echoKey = "request_context"
)

// RequestContext is immutable; use WithTenant to derive a copy.
type RequestContext struct {
	MedicalCenterID int
	Role            string
}

// New builds a RequestContext, falling back to the default medical center
// for non-positive ids.
func New(medicalCenterID int, role string) RequestContext {
	if medicalCenterID <= 0 {
		medicalCenterID = DefaultMedicalCenterID
	}
	return RequestContext{MedicalCenterID: medicalCenterID, Role: strings.TrimSpace(role)}
}

// Parse builds a RequestContext from the string forms found in headers and
// token claims. A missing or malformed medical center is not an error: the
// request is routed to the default center.
func Parse(medicalCenter, role string) RequestContext {
	id, err := strconv.Atoi(strings.TrimSpace(medicalCenter))
	if err != nil {
		id = DefaultMedicalCenterID
	}
	return New(id, role)
}

// Extract reads the propagated headers of an inbound call.
func Extract(h http.Header) RequestContext {
	return Parse(h.Get(HeaderMedicalCenter), h.Get(HeaderRole))
}

func (rc RequestContext) IsAdmin() bool {
	return strings.EqualFold(rc.Role, RoleAdmin)
}

// WithTenant returns a copy scoped to another medical center, keeping the role.
func (rc RequestContext) WithTenant(medicalCenterID int) RequestContext {
	return New(medicalCenterID, rc.Role)
}

// Propagate returns the outbound headers for the next hop.
func (rc RequestContext) Propagate() http.Header {
	h := make(http.Header, 2)
	h.Set(HeaderMedicalCenter, strconv.Itoa(New(rc.MedicalCenterID, "").MedicalCenterID))
	if rc.Role != "" {
		h.Set(HeaderRole, rc.Role)
	}
	return h
}

// Apply copies the propagated headers onto an outgoing resty request.
func Apply(req *resty.Request, rc RequestContext) *resty.Request {
	for k, v := range rc.Propagate() {
		if len(v) > 0 {
			req.SetHeader(k, v[0])
		}
	}
	return req
}

// Middleware extracts the propagated headers once per request and stores the
// result on the echo context.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			Set(c, Extract(c.Request().Header))
			return next(c)
		}
	}
}

// Set stores rc on the echo context; used by the gateway's token middleware.
func Set(c echo.Context, rc RequestContext) {
	c.Set(echoKey, rc)
}

// FromEcho returns the RequestContext stored by Middleware or Set, extracting
// it from the request headers when neither ran.
func FromEcho(c echo.Context) RequestContext {
	if rc, ok := c.Get(echoKey).(RequestContext); ok {
		return rc
	}
	return Extract(c.Request().Header)
}
