package gateway

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/consultation"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

const reportPath = "/v1/reports/consultations-by-doctor"

// ReportFilters echoes the filters a report was generated with.
type ReportFilters struct {
	MedicoID    *int   `json:"medico_id"`
	FechaInicio string `json:"fecha_inicio,omitempty"`
	FechaFin    string `json:"fecha_fin,omitempty"`
	Motivo      string `json:"motivo,omitempty"`
	Diagnostico string `json:"diagnostico,omitempty"`
}

type ReportSummary struct {
	TotalConsultasGeneral int           `json:"total_consultas_general"`
	TotalMedicos          int           `json:"total_medicos"`
	FechaGeneracion       string        `json:"fecha_generacion"`
	Filtros               ReportFilters `json:"filtros"`
}

type ReportPatient struct {
	IDPaciente     int    `json:"id_paciente"`
	NombrePaciente string `json:"nombre_paciente"`
	IDCentroMedico int    `json:"id_centro_medico"`
}

type ReportRow struct {
	IDConsulta  int           `json:"id_consulta"`
	Fecha       string        `json:"fecha"`
	Hora        string        `json:"hora"`
	Motivo      string        `json:"motivo"`
	Diagnostico string        `json:"diagnostico"`
	Tratamiento string        `json:"tratamiento"`
	Paciente    ReportPatient `json:"paciente"`
}

type ReportDoctor struct {
	IDMedico           int         `json:"id_medico"`
	NombreMedico       string      `json:"nombre_medico"`
	IDEspecialidad     int         `json:"id_especialidad"`
	NombreEspecialidad string      `json:"nombre_especialidad"`
	TotalConsultas     int         `json:"total_consultas"`
	Consultas          []ReportRow `json:"consultas"`
}

// ReportResponse is the public shape of the by-doctor report.
type ReportResponse struct {
	Resumen ReportSummary  `json:"resumen"`
	Medicos []ReportDoctor `json:"medicos"`
}

func newReportResponse(req consultation.ReportRequest, r *consultation.Report) ReportResponse {
	resp := ReportResponse{
		Resumen: ReportSummary{
			TotalConsultasGeneral: r.TotalConsultasGeneral,
			TotalMedicos:          len(r.Medicos),
			FechaGeneracion:       r.FechaGeneracion,
			Filtros: ReportFilters{
				FechaInicio: req.FechaInicio,
				FechaFin:    req.FechaFin,
				Motivo:      req.Motivo,
				Diagnostico: req.Diagnostico,
			},
		},
		Medicos: make([]ReportDoctor, 0, len(r.Medicos)),
	}
	if req.IDMedico > 0 {
		id := req.IDMedico
		resp.Resumen.Filtros.MedicoID = &id
	}
	for _, m := range r.Medicos {
		d := ReportDoctor{
			IDMedico:           m.IDMedico,
			NombreMedico:       m.NombreMedico,
			IDEspecialidad:     m.IDEspecialidad,
			NombreEspecialidad: m.NombreEspecialidad,
			TotalConsultas:     m.TotalConsultas,
			Consultas:          make([]ReportRow, 0, len(m.Consultas)),
		}
		for _, c := range m.Consultas {
			d.Consultas = append(d.Consultas, ReportRow{
				IDConsulta:  c.IDConsultaMedica,
				Fecha:       c.Fecha,
				Hora:        c.Hora,
				Motivo:      c.Motivo,
				Diagnostico: c.Diagnostico,
				Tratamiento: c.Tratamiento,
				Paciente: ReportPatient{
					IDPaciente:     c.IDPaciente,
					NombrePaciente: c.NombrePaciente,
					IDCentroMedico: c.IDCentroMedico,
				},
			})
		}
		resp.Medicos = append(resp.Medicos, d)
	}
	return resp
}

func (g *Gateway) reportByDoctor(c echo.Context) error {
	req, err := bindReportRequest(c)
	if err != nil {
		return err
	}
	report, err := g.fetchReport(c.Request().Context(), reqctx.FromEcho(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newReportResponse(req, report))
}

// statistics only honors the date range of the request.
func (g *Gateway) statistics(c echo.Context) error {
	req, err := bindReportRequest(c)
	if err != nil {
		return err
	}
	req = consultation.ReportRequest{FechaInicio: req.FechaInicio, FechaFin: req.FechaFin}
	report, err := g.fetchReport(c.Request().Context(), reqctx.FromEcho(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, consultation.ComputeStatistics(report))
}

func (g *Gateway) fetchReport(ctx context.Context, rc reqctx.RequestContext, req consultation.ReportRequest) (*consultation.Report, error) {
	var report consultation.Report
	if err := g.consultations.Do(ctx, rc, http.MethodPost, reportPath, req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// bindReportRequest validates dates and their order before forwarding. An
// empty body means no filters.
func bindReportRequest(c echo.Context) (consultation.ReportRequest, error) {
	var req consultation.ReportRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return req, rpc.InvalidArgument("invalid request body")
		}
	}
	if _, err := req.Filter(); err != nil {
		return req, err
	}
	return req, nil
}
