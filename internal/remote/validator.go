package remote

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/metrics"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/tenant"
)

const (
	entityPatient = "patient"
	entityDoctor  = "doctor"

	outcomeFound       = "found"
	outcomeNotFound    = "not_found"
	outcomeUnavailable = "unavailable"
)

// Validator answers existence questions against the patient and
// administration services. Callers only see true or false; the difference
// between "absent" and "could not ask" is logged and counted.
type Validator struct {
	patients *PatientsClient
	admin    *AdministrationClient
	routing  tenant.RoutingTable
	limit    int
	logger   zerolog.Logger
}

func NewValidator(patients *PatientsClient, admin *AdministrationClient, routing tenant.RoutingTable, logger zerolog.Logger) *Validator {
	return &Validator{patients: patients, admin: admin, routing: routing, logger: logger}
}

// SetFanOutLimit bounds concurrent lookups during a patient search.
func (v *Validator) SetFanOutLimit(n int) {
	v.limit = n
}

func (v *Validator) PatientExists(ctx context.Context, rc reqctx.RequestContext, patientID int) bool {
	_, err := v.patients.Patient(ctx, rc, patientID)
	return v.record(entityPatient, rc.MedicalCenterID, patientID, err)
}

// FindPatientTenant asks every medical center of the routing table and
// returns the first one, in tenant order, that holds the patient.
func (v *Validator) FindPatientTenant(ctx context.Context, rc reqctx.RequestContext, patientID int) (int, bool) {
	id, ok, err := tenant.First(ctx, "find_patient", v.routing.Tenants(), v.limit,
		func(ctx context.Context, medicalCenterID int) (bool, error) {
			_, err := v.patients.Patient(ctx, rc.WithTenant(medicalCenterID), patientID)
			return v.record(entityPatient, medicalCenterID, patientID, err), nil
		})
	if err != nil {
		v.logger.Warn().Err(err).Int("id_paciente", patientID).Msg("patient search interrupted")
		return 0, false
	}
	if !ok {
		v.logger.Info().Int("id_paciente", patientID).Msg("patient not found in any medical center")
	}
	return id, ok
}

// DoctorExists checks the doctor within rc's medical center. The role is
// forwarded, so administrators are checked globally.
func (v *Validator) DoctorExists(ctx context.Context, rc reqctx.RequestContext, doctorID int) bool {
	_, err := v.admin.Doctor(ctx, rc, doctorID)
	return v.record(entityDoctor, rc.MedicalCenterID, doctorID, err)
}

func (v *Validator) record(entity string, medicalCenterID, id int, err error) bool {
	switch {
	case err == nil:
		metrics.CrossChecks.WithLabelValues(entity, outcomeFound).Inc()
		return true
	case rpc.IsNotFound(err):
		metrics.CrossChecks.WithLabelValues(entity, outcomeNotFound).Inc()
		v.logger.Debug().
			Str("entity", entity).
			Int("id", id).
			Int("medical_center_id", medicalCenterID).
			Msg("cross-service check: not found")
	default:
		metrics.CrossChecks.WithLabelValues(entity, outcomeUnavailable).Inc()
		v.logger.Warn().Err(err).
			Str("entity", entity).
			Int("id", id).
			Int("medical_center_id", medicalCenterID).
			Msg("cross-service check failed, treating as not found")
	}
	return false
}
