package consultation

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/metrics"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

const (
	PlaceholderDoctor    = "Médico no encontrado"
	PlaceholderSpecialty = "Sin especialidad"
	PlaceholderPatient   = "Paciente no encontrado"

	generatedAtLayout = "2006-01-02 15:04:05"
)

// DoctorInfo is what the report needs from the administration service.
type DoctorInfo struct {
	ID            int
	Name          string
	SpecialtyID   int
	SpecialtyName string
}

// Directory resolves display names for report rows.
type Directory interface {
	Doctor(ctx context.Context, rc reqctx.RequestContext, doctorID int) (*DoctorInfo, error)
	PatientName(ctx context.Context, rc reqctx.RequestContext, patientID int) (string, error)
}

// ReportRequest is the filter payload of the by-doctor report. Every field
// is optional.
type ReportRequest struct {
	IDMedico    int    `json:"id_medico,omitempty"`
	FechaInicio string `json:"fecha_inicio,omitempty"`
	FechaFin    string `json:"fecha_fin,omitempty"`
	Motivo      string `json:"motivo,omitempty"`
	Diagnostico string `json:"diagnostico,omitempty"`
}

// ReportFilter is a validated ReportRequest. Zero values disable a filter;
// the date range is inclusive on both ends.
type ReportFilter struct {
	DoctorID  int
	From      time.Time
	To        time.Time
	Reason    string
	Diagnosis string
}

func (r ReportRequest) Filter() (ReportFilter, error) {
	f := ReportFilter{
		DoctorID:  r.IDMedico,
		Reason:    strings.TrimSpace(r.Motivo),
		Diagnosis: strings.TrimSpace(r.Diagnostico),
	}
	if r.IDMedico < 0 {
		return f, rpc.InvalidArgument("id_medico must not be negative")
	}
	var err error
	if r.FechaInicio != "" {
		if f.From, err = ParseDate(r.FechaInicio); err != nil {
			return f, rpc.InvalidArgument("fecha_inicio must use the format yyyy-MM-dd")
		}
	}
	if r.FechaFin != "" {
		if f.To, err = ParseDate(r.FechaFin); err != nil {
			return f, rpc.InvalidArgument("fecha_fin must use the format yyyy-MM-dd")
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, rpc.InvalidArgument("fecha_inicio must not be after fecha_fin")
	}
	return f, nil
}

// Match reports whether c passes every active filter.
func (f ReportFilter) Match(c *Consultation) bool {
	if f.DoctorID != 0 && c.DoctorID != f.DoctorID {
		return false
	}
	if !f.From.IsZero() && c.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && c.Date.After(f.To) {
		return false
	}
	if f.Reason != "" && !containsFold(c.Reason, f.Reason) {
		return false
	}
	if f.Diagnosis != "" && !containsFold(c.Diagnosis, f.Diagnosis) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type ReportConsultation struct {
	IDConsultaMedica int    `json:"id_consulta_medica"`
	Fecha            string `json:"fecha"`
	Hora             string `json:"hora"`
	Motivo           string `json:"motivo"`
	Diagnostico      string `json:"diagnostico"`
	Tratamiento      string `json:"tratamiento"`
	IDPaciente       int    `json:"id_paciente"`
	NombrePaciente   string `json:"nombre_paciente"`
	IDCentroMedico   int    `json:"id_centro_medico"`
}

type DoctorReport struct {
	IDMedico           int                  `json:"id_medico"`
	NombreMedico       string               `json:"nombre_medico"`
	IDEspecialidad     int                  `json:"id_especialidad"`
	NombreEspecialidad string               `json:"nombre_especialidad"`
	TotalConsultas     int                  `json:"total_consultas"`
	Consultas          []ReportConsultation `json:"consultas"`
}

type Report struct {
	TotalConsultasGeneral int            `json:"total_consultas_general"`
	FechaGeneracion       string         `json:"fecha_generacion"`
	Medicos               []DoctorReport `json:"medicos"`
}

// ReportByDoctor groups the caller's consultations by doctor, in the order
// each doctor first appears. Administrators see every medical center. Failed
// name lookups degrade to placeholders; any other failure is Internal.
func (s *Service) ReportByDoctor(ctx context.Context, rc reqctx.RequestContext, f ReportFilter) (*Report, error) {
	rows, err := s.List(ctx, rc)
	if err != nil {
		return nil, rpc.Internal(err, "generate consultation report")
	}

	var order []int
	groups := make(map[int][]TenantConsultation)
	total := 0
	for _, row := range rows {
		if !f.Match(row.Consultation) {
			continue
		}
		if _, seen := groups[row.DoctorID]; !seen {
			order = append(order, row.DoctorID)
		}
		groups[row.DoctorID] = append(groups[row.DoctorID], row)
		total++
	}

	report := &Report{
		TotalConsultasGeneral: total,
		FechaGeneracion:       s.now().Format(generatedAtLayout),
		Medicos:               make([]DoctorReport, 0, len(order)),
	}
	for _, doctorID := range order {
		if err := ctx.Err(); err != nil {
			return nil, rpc.Internal(err, "generate consultation report")
		}
		report.Medicos = append(report.Medicos, s.doctorReport(ctx, rc, doctorID, groups[doctorID]))
	}
	return report, nil
}

func (s *Service) doctorReport(ctx context.Context, rc reqctx.RequestContext, doctorID int, rows []TenantConsultation) DoctorReport {
	dr := DoctorReport{
		IDMedico:           doctorID,
		NombreMedico:       PlaceholderDoctor,
		NombreEspecialidad: PlaceholderSpecialty,
		TotalConsultas:     len(rows),
		Consultas:          make([]ReportConsultation, 0, len(rows)),
	}

	if doctorID > 0 {
		if info, err := s.directory.Doctor(ctx, rc, doctorID); err == nil && info != nil {
			dr.NombreMedico = info.Name
			dr.IDEspecialidad = info.SpecialtyID
			if info.SpecialtyName != "" {
				dr.NombreEspecialidad = info.SpecialtyName
			}
		} else {
			metrics.ReportPlaceholders.WithLabelValues("doctor").Inc()
			s.logger.Warn().Err(err).Int("id_medico", doctorID).Msg("doctor lookup failed, using placeholder")
		}
	}

	for _, row := range rows {
		name, err := s.directory.PatientName(ctx, rc.WithTenant(row.MedicalCenterID), row.PatientID)
		if err != nil || name == "" {
			metrics.ReportPlaceholders.WithLabelValues("patient").Inc()
			s.logger.Warn().Err(err).
				Int("id_paciente", row.PatientID).
				Int("medical_center_id", row.MedicalCenterID).
				Msg("patient lookup failed, using placeholder")
			name = PlaceholderPatient
		}
		dr.Consultas = append(dr.Consultas, ReportConsultation{
			IDConsultaMedica: row.ID,
			Fecha:            row.Date.Format(DateLayout),
			Hora:             FormatTimeOfDay(row.Time),
			Motivo:           row.Reason,
			Diagnostico:      row.Diagnosis,
			Tratamiento:      row.Treatment,
			IDPaciente:       row.PatientID,
			NombrePaciente:   name,
			IDCentroMedico:   row.MedicalCenterID,
		})
	}
	return dr
}

type SpecialtyStatistics struct {
	IDEspecialidad     int    `json:"id_especialidad"`
	NombreEspecialidad string `json:"nombre_especialidad"`
	TotalMedicos       int    `json:"total_medicos"`
	TotalConsultas     int    `json:"total_consultas"`
}

type Statistics struct {
	TotalConsultas             int                   `json:"total_consultas"`
	TotalMedicos               int                   `json:"total_medicos"`
	FechaGeneracion            string                `json:"fecha_generacion"`
	PromedioConsultasPorMedico float64               `json:"promedio_consultas_por_medico"`
	MedicoConMasConsultas      *string               `json:"medico_con_mas_consultas"`
	MaxConsultasPorMedico      int                   `json:"max_consultas_por_medico"`
	Especialidades             []SpecialtyStatistics `json:"especialidades"`
}

// ComputeStatistics derives summary figures from a report. The average is
// rounded to two decimals and is 0 for an empty report. On ties the most
// active doctor is the first one in report order.
func ComputeStatistics(r *Report) Statistics {
	st := Statistics{
		TotalConsultas:  r.TotalConsultasGeneral,
		TotalMedicos:    len(r.Medicos),
		FechaGeneracion: r.FechaGeneracion,
		Especialidades:  []SpecialtyStatistics{},
	}
	if len(r.Medicos) == 0 {
		return st
	}

	avg := float64(r.TotalConsultasGeneral) / float64(len(r.Medicos))
	st.PromedioConsultasPorMedico = math.Round(avg*100) / 100

	top := 0
	for i, m := range r.Medicos {
		if m.TotalConsultas > r.Medicos[top].TotalConsultas {
			top = i
		}
	}
	name := r.Medicos[top].NombreMedico
	st.MedicoConMasConsultas = &name
	st.MaxConsultasPorMedico = r.Medicos[top].TotalConsultas

	type key struct {
		id   int
		name string
	}
	index := make(map[key]int)
	for _, m := range r.Medicos {
		k := key{m.IDEspecialidad, m.NombreEspecialidad}
		i, ok := index[k]
		if !ok {
			i = len(st.Especialidades)
			index[k] = i
			st.Especialidades = append(st.Especialidades, SpecialtyStatistics{
				IDEspecialidad:     k.id,
				NombreEspecialidad: k.name,
			})
		}
		st.Especialidades[i].TotalMedicos++
		st.Especialidades[i].TotalConsultas += m.TotalConsultas
	}
	sort.SliceStable(st.Especialidades, func(i, j int) bool {
		return st.Especialidades[i].TotalConsultas > st.Especialidades[j].TotalConsultas
	})
	return st
}
