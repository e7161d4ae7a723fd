package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/consultation"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

const consultationsPath = "/v1/consultations"

func (g *Gateway) listConsultations(c echo.Context) error {
	return g.forward(c, g.consultations, http.MethodGet, consultationsPath, nil, http.StatusOK)
}

func (g *Gateway) getConsultation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return g.forward(c, g.consultations, http.MethodGet, consultationsPath+"/"+id, nil, http.StatusOK)
}

func (g *Gateway) createConsultation(c echo.Context) error {
	in, err := bindConsultation(c)
	if err != nil {
		return err
	}
	return g.forward(c, g.consultations, http.MethodPost, consultationsPath, in, http.StatusCreated)
}

func (g *Gateway) updateConsultation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	in, err := bindConsultation(c)
	if err != nil {
		return err
	}
	return g.forward(c, g.consultations, http.MethodPut, consultationsPath+"/"+id, in, http.StatusOK)
}

func (g *Gateway) deleteConsultation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return g.forward(c, g.consultations, http.MethodDelete, consultationsPath+"/"+id, nil, http.StatusOK)
}

// bindConsultation rejects writes that cannot reference a patient or doctor
// before they reach the consultation service.
func bindConsultation(c echo.Context) (*consultation.Input, error) {
	var in consultation.Input
	if err := c.Bind(&in); err != nil {
		return nil, rpc.InvalidArgument("invalid request body")
	}
	if in.IDPaciente <= 0 {
		return nil, rpc.InvalidArgument("id_paciente is required")
	}
	if in.IDMedico <= 0 {
		return nil, rpc.InvalidArgument("id_medico is required")
	}
	return &in, nil
}
