package gateway

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/consultation"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	reportSheet     = "Consultas"
	summarySheet    = "Resumen"
)

var reportColumns = []struct {
	title string
	width float64
}{
	{"Médico", 28},
	{"Especialidad", 22},
	{"ID Consulta", 12},
	{"Fecha", 12},
	{"Hora", 10},
	{"Motivo", 30},
	{"Diagnóstico", 30},
	{"Tratamiento", 30},
	{"ID Paciente", 12},
	{"Paciente", 28},
	{"Centro Médico", 14},
}

func (g *Gateway) reportByDoctorExcel(c echo.Context) error {
	req, err := bindReportRequest(c)
	if err != nil {
		return err
	}
	report, err := g.fetchReport(c.Request().Context(), reqctx.FromEcho(c), req)
	if err != nil {
		return err
	}
	data, err := ReportWorkbook(report)
	if err != nil {
		return rpc.Internal(err, "render report workbook")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=reporte-consultas-por-medico.xlsx")
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// ReportWorkbook renders the by-doctor report as an XLSX file with one row
// per consultation and a summary sheet.
func ReportWorkbook(r *consultation.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(reportSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F5597"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, col := range reportColumns {
		if err := setCell(f, reportSheet, i+1, 1, col.title); err != nil {
			return nil, err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(reportSheet, name, name, col.width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(reportColumns), 1)
	if err := f.SetCellStyle(reportSheet, "A1", last, header); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	row := 2
	for _, m := range r.Medicos {
		for _, cm := range m.Consultas {
			values := []interface{}{
				m.NombreMedico, m.NombreEspecialidad,
				cm.IDConsultaMedica, cm.Fecha, cm.Hora,
				cm.Motivo, cm.Diagnostico, cm.Tratamiento,
				cm.IDPaciente, cm.NombrePaciente, cm.IDCentroMedico,
			}
			for col, v := range values {
				if err := setCell(f, reportSheet, col+1, row, v); err != nil {
					return nil, err
				}
			}
			row++
		}
	}

	if err := f.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	if err := writeSummary(f, r, header); err != nil {
		return nil, err
	}

	idx, err := f.GetSheetIndex(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("locate sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, r *consultation.Report, header int) error {
	st := consultation.ComputeStatistics(r)
	rows := [][]interface{}{
		{"Indicador", "Valor"},
		{"Fecha de generación", r.FechaGeneracion},
		{"Total de consultas", st.TotalConsultas},
		{"Total de médicos", st.TotalMedicos},
		{"Promedio por médico", st.PromedioConsultasPorMedico},
		{"Máximo por médico", st.MaxConsultasPorMedico},
	}
	if st.MedicoConMasConsultas != nil {
		rows = append(rows, []interface{}{"Médico con más consultas", *st.MedicoConMasConsultas})
	}
	for i, values := range rows {
		for col, v := range values {
			if err := setCell(f, summarySheet, col+1, i+1, v); err != nil {
				return err
			}
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", header); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return f.SetColWidth(summarySheet, "B", "B", 24)
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
