// Package patient serves the patients of each medical center. Every medical
// center keeps its patients in its own database; ids are only unique within
// one center.
package patient

import (
	"strings"
	"time"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

const DateLayout = "2006-01-02"

// Patient maps to the pacientes table.
type Patient struct {
	ID        int
	Name      string
	Cedula    string
	BirthDate time.Time
	Phone     string
	Address   string
}

// Input is the write payload for Create and Update.
type Input struct {
	Nombre          string `json:"nombre"`
	Cedula          string `json:"cedula"`
	FechaNacimiento string `json:"fecha_nacimiento"`
	Telefono        string `json:"telefono"`
	Direccion       string `json:"direccion"`
}

func (in Input) Parse() (*Patient, error) {
	p := &Patient{
		Name:    strings.TrimSpace(in.Nombre),
		Cedula:  strings.TrimSpace(in.Cedula),
		Phone:   strings.TrimSpace(in.Telefono),
		Address: strings.TrimSpace(in.Direccion),
	}
	if p.Name == "" {
		return nil, rpc.InvalidArgument("nombre is required")
	}
	if p.Cedula == "" {
		return nil, rpc.InvalidArgument("cedula is required")
	}
	birth, err := time.Parse(DateLayout, strings.TrimSpace(in.FechaNacimiento))
	if err != nil {
		return nil, rpc.InvalidArgument("fecha_nacimiento must use the format yyyy-MM-dd")
	}
	p.BirthDate = birth
	return p, nil
}

type Response struct {
	IDPaciente      int    `json:"id_paciente"`
	Nombre          string `json:"nombre"`
	Cedula          string `json:"cedula"`
	FechaNacimiento string `json:"fecha_nacimiento"`
	Telefono        string `json:"telefono"`
	Direccion       string `json:"direccion"`
	IDCentroMedico  int    `json:"id_centro_medico,omitempty"`
}

// TenantPatient tags a Patient with the medical center it was read from.
type TenantPatient struct {
	MedicalCenterID int
	*Patient
}

func (tp TenantPatient) ToResponse() Response {
	return Response{
		IDPaciente:      tp.ID,
		Nombre:          tp.Name,
		Cedula:          tp.Cedula,
		FechaNacimiento: tp.BirthDate.Format(DateLayout),
		Telefono:        tp.Phone,
		Direccion:       tp.Address,
		IDCentroMedico:  tp.MedicalCenterID,
	}
}
