package consultation

import (
	"fmt"
	"strings"
	"time"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

const DateLayout = "2006-01-02"

// Consultation is a row of consulta_medica. The medical center it belongs to
// is the database it lives in, not a column.
type Consultation struct {
	ID        int
	Date      time.Time
	Time      time.Duration // time of day
	Reason    string
	Diagnosis string
	Treatment string
	PatientID int
	DoctorID  int
}

// TenantConsultation is a Consultation tagged with the medical center whose
// database returned it.
type TenantConsultation struct {
	MedicalCenterID int
	*Consultation
}

// Input is the write payload for Create and Update.
type Input struct {
	Fecha       string `json:"fecha"`
	Hora        string `json:"hora"`
	Motivo      string `json:"motivo"`
	Diagnostico string `json:"diagnostico"`
	Tratamiento string `json:"tratamiento"`
	IDPaciente  int    `json:"id_paciente"`
	IDMedico    int    `json:"id_medico"`
}

// Parse validates the payload. Malformed dates and times are rejected, never
// defaulted.
func (in Input) Parse() (*Consultation, error) {
	if in.IDPaciente <= 0 {
		return nil, rpc.InvalidArgument("id_paciente must be a positive integer")
	}
	if in.IDMedico <= 0 {
		return nil, rpc.InvalidArgument("id_medico must be a positive integer")
	}
	date, err := ParseDate(in.Fecha)
	if err != nil {
		return nil, err
	}
	tod, err := ParseTimeOfDay(in.Hora)
	if err != nil {
		return nil, err
	}
	return &Consultation{
		Date:      date,
		Time:      tod,
		Reason:    in.Motivo,
		Diagnosis: in.Diagnostico,
		Treatment: in.Tratamiento,
		PatientID: in.IDPaciente,
		DoctorID:  in.IDMedico,
	}, nil
}

// Response is the wire shape of a stored consultation.
type Response struct {
	IDConsultaMedica int    `json:"id_consulta_medica"`
	Fecha            string `json:"fecha"`
	Hora             string `json:"hora"`
	Motivo           string `json:"motivo"`
	Diagnostico      string `json:"diagnostico"`
	Tratamiento      string `json:"tratamiento"`
	IDPaciente       int    `json:"id_paciente"`
	IDMedico         int    `json:"id_medico"`
	IDCentroMedico   int    `json:"id_centro_medico,omitempty"`
}

func (c *Consultation) ToResponse() Response {
	return Response{
		IDConsultaMedica: c.ID,
		Fecha:            c.Date.Format(DateLayout),
		Hora:             FormatTimeOfDay(c.Time),
		Motivo:           c.Reason,
		Diagnostico:      c.Diagnosis,
		Tratamiento:      c.Treatment,
		IDPaciente:       c.PatientID,
		IDMedico:         c.DoctorID,
	}
}

func (tc TenantConsultation) ToResponse() Response {
	r := tc.Consultation.ToResponse()
	r.IDCentroMedico = tc.MedicalCenterID
	return r
}

// ParseDate parses a yyyy-MM-dd date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, rpc.InvalidArgument("fecha %q must use the format yyyy-MM-dd", s)
	}
	return t, nil
}

// ParseTimeOfDay parses "hh:mm" or "hh:mm:ss" into an offset from midnight.
// The whole input must match one of the two layouts.
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeOfDayLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, rpc.InvalidArgument("hora %q must use the format hh:mm:ss", s)
}

var timeOfDayLayouts = []string{"15:04:05", "15:04"}

// FormatTimeOfDay renders an offset from midnight as hh:mm:ss.
func FormatTimeOfDay(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
