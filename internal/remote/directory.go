package remote

import (
	"context"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/consultation"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
)

var (
	_ consultation.Validator = (*Validator)(nil)
	_ consultation.Directory = (*Directory)(nil)
)

// Directory resolves doctor and patient names for reports.
type Directory struct {
	patients *PatientsClient
	admin    *AdministrationClient
}

func NewDirectory(patients *PatientsClient, admin *AdministrationClient) *Directory {
	return &Directory{patients: patients, admin: admin}
}

func (d *Directory) Doctor(ctx context.Context, rc reqctx.RequestContext, doctorID int) (*consultation.DoctorInfo, error) {
	doc, err := d.admin.Doctor(ctx, rc, doctorID)
	if err != nil {
		return nil, err
	}
	info := &consultation.DoctorInfo{
		ID:            doc.ID,
		Name:          doc.Name,
		SpecialtyID:   doc.SpecialtyID,
		SpecialtyName: doc.SpecialtyName,
	}
	if info.SpecialtyName == "" && info.SpecialtyID > 0 {
		// Leave the placeholder to the report when the lookup fails.
		if sp, err := d.admin.Specialty(ctx, rc, info.SpecialtyID); err == nil {
			info.SpecialtyName = sp.Name
		}
	}
	return info, nil
}

func (d *Directory) PatientName(ctx context.Context, rc reqctx.RequestContext, patientID int) (string, error) {
	p, err := d.patients.Patient(ctx, rc, patientID)
	if err != nil {
		return "", err
	}
	return p.Nombre, nil
}
