package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
)

const userIDKey = "user_id"

// Claims is the token issued by the login service. id_centro_medico may be
// encoded as a number or a numeric string.
type Claims struct {
	jwt.RegisteredClaims
	MedicalCenterID json.Number `json:"id_centro_medico,omitempty"`
	Role            string      `json:"role,omitempty"`
	Username        string      `json:"unique_name,omitempty"`
}

// RequestContext derives the propagated request metadata from the claims.
func (c *Claims) RequestContext() reqctx.RequestContext {
	return reqctx.Parse(c.MedicalCenterID.String(), c.Role)
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	Skipper    func(echo.Context) bool
}

// JWTMiddleware validates the bearer token and stores the caller's
// RequestContext on the echo context for the handlers to forward.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(userIDKey, claims.Subject)
			reqctx.Set(c, claims.RequestContext())
			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development. Requests
// without a token act as an administrator of the default medical center
// unless the propagation headers say otherwise.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			role := h.Get(reqctx.HeaderRole)
			if role == "" {
				role = reqctx.RoleAdmin
			}
			c.Set(userIDKey, "dev-user")
			reqctx.Set(c, reqctx.Parse(h.Get(reqctx.HeaderMedicalCenter), role))
			return next(c)
		}
	}
}

// UserID returns the token subject stored by JWTMiddleware.
func UserID(c echo.Context) string {
	uid, _ := c.Get(userIDKey).(string)
	return uid
}
