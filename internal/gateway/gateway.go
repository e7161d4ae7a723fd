// Package gateway is the public REST surface. It authenticates callers,
// turns token claims into propagated headers and forwards each call to the
// owning service over the internal RPC transport.
package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/remote"
)

type Gateway struct {
	consultations  remote.Caller
	administration remote.Caller
	patients       remote.Caller
	logger         zerolog.Logger
}

func New(consultations, administration, patients remote.Caller, logger zerolog.Logger) *Gateway {
	return &Gateway{
		consultations:  consultations,
		administration: administration,
		patients:       patients,
		logger:         logger,
	}
}

// RegisterRoutes mounts the public endpoints on api, normally the /api group
// behind the token middleware.
func (g *Gateway) RegisterRoutes(api *echo.Group) {
	api.GET("/consultas", g.listConsultations)
	api.GET("/consultas/:id", g.getConsultation)
	api.POST("/consultas", g.createConsultation)
	api.PUT("/consultas/:id", g.updateConsultation)
	api.DELETE("/consultas/:id", g.deleteConsultation)

	g.crud(api, "/medicos", g.administration, "/v1/doctors")
	g.crud(api, "/especialidades", g.administration, "/v1/specialties")
	g.crud(api, "/pacientes", g.patients, "/v1/patients")
	g.crud(api, "/usuarios", g.administration, "/v1/users")
	api.GET("/usuarios/buscar/:nombreUsuario", g.findUser)

	api.POST("/reportes/consultas-por-medico", g.reportByDoctor)
	api.POST("/reportes/consultas-por-medico/excel", g.reportByDoctorExcel)
	api.POST("/reportes/estadisticas-consultas", g.statistics)
}

// crud forwards the five CRUD routes of a resource verbatim. The owning
// service validates the payload.
func (g *Gateway) crud(api *echo.Group, prefix string, target remote.Caller, upstream string) {
	api.GET(prefix, func(c echo.Context) error {
		return g.forward(c, target, http.MethodGet, upstream, nil, http.StatusOK)
	})
	api.GET(prefix+"/:id", func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		return g.forward(c, target, http.MethodGet, upstream+"/"+id, nil, http.StatusOK)
	})
	api.POST(prefix, func(c echo.Context) error {
		body, err := rawBody(c)
		if err != nil {
			return err
		}
		return g.forward(c, target, http.MethodPost, upstream, body, http.StatusCreated)
	})
	api.PUT(prefix+"/:id", func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		body, err := rawBody(c)
		if err != nil {
			return err
		}
		return g.forward(c, target, http.MethodPut, upstream+"/"+id, body, http.StatusOK)
	})
	api.DELETE(prefix+"/:id", func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		return g.forward(c, target, http.MethodDelete, upstream+"/"+id, nil, http.StatusOK)
	})
}

// forward calls the upstream service with the caller's RequestContext and
// relays the decoded JSON body. Upstream errors keep their code, so the
// error handler maps them onto the same status.
func (g *Gateway) forward(c echo.Context, target remote.Caller, method, path string, body interface{}, status int) error {
	var out json.RawMessage
	rc := reqctx.FromEcho(c)
	if err := target.Do(c.Request().Context(), rc, method, path, body, &out); err != nil {
		g.logger.Debug().Err(err).
			Str("method", method).
			Str("upstream", path).
			Int("medical_center_id", rc.MedicalCenterID).
			Msg("upstream call failed")
		return err
	}
	if len(out) == 0 {
		return c.NoContent(status)
	}
	return c.JSONBlob(status, out)
}

func (g *Gateway) findUser(c echo.Context) error {
	name := c.Param("nombreUsuario")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if strings.TrimSpace(name) == "" {
		return rpc.InvalidArgument("nombreUsuario is required")
	}
	return g.forward(c, g.administration, http.MethodGet, "/v1/users/by-username/"+url.PathEscape(name), nil, http.StatusOK)
}

func pathID(c echo.Context) (string, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return "", rpc.InvalidArgument("id must be a positive integer")
	}
	return strconv.Itoa(id), nil
}

func rawBody(c echo.Context) (json.RawMessage, error) {
	var body json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, rpc.InvalidArgument("invalid request body")
	}
	return body, nil
}
