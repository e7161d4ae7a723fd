package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/tenant"
)

// Validator checks that the patient and doctor referenced by a consultation
// exist in their owning services. Every failure, including an unreachable
// service, is reported as "does not exist".
type Validator interface {
	// PatientExists looks the patient up in rc's medical center only.
	PatientExists(ctx context.Context, rc reqctx.RequestContext, patientID int) bool
	// FindPatientTenant searches every medical center and returns the first,
	// in tenant order, that holds the patient.
	FindPatientTenant(ctx context.Context, rc reqctx.RequestContext, patientID int) (int, bool)
	// DoctorExists looks the doctor up within rc's medical center, or
	// globally when rc is an administrator.
	DoctorExists(ctx context.Context, rc reqctx.RequestContext, doctorID int) bool
}

// Service orchestrates consultation operations across medical centers.
type Service struct {
	resolver  tenant.Resolver
	repos     RepoFactory
	validator Validator
	directory Directory
	logger    zerolog.Logger

	fanOutLimit int
	now         func() time.Time
}

func NewService(resolver tenant.Resolver, repos RepoFactory, validator Validator, directory Directory, logger zerolog.Logger) *Service {
	return &Service{
		resolver:  resolver,
		repos:     repos,
		validator: validator,
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// SetFanOutLimit bounds the number of medical centers queried concurrently
// by administrator requests. Zero means no bound.
func (s *Service) SetFanOutLimit(n int) {
	s.fanOutLimit = n
}

// withRepo resolves medicalCenterID, runs fn against its database and
// releases the handle.
func (s *Service) withRepo(ctx context.Context, medicalCenterID int, fn func(Repository) error) error {
	h, err := s.resolver.Resolve(ctx, medicalCenterID)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(s.repos(h))
}

// GetByID reads from the caller's medical center only, administrators
// included.
func (s *Service) GetByID(ctx context.Context, rc reqctx.RequestContext, id int) (*TenantConsultation, error) {
	var c *Consultation
	err := s.withRepo(ctx, rc.MedicalCenterID, func(repo Repository) error {
		var err error
		c, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &TenantConsultation{MedicalCenterID: rc.MedicalCenterID, Consultation: c}, nil
}

// List returns the caller's consultations. Administrators get every medical
// center's rows concatenated in tenant order; ids may repeat across centers.
func (s *Service) List(ctx context.Context, rc reqctx.RequestContext) ([]TenantConsultation, error) {
	if !rc.IsAdmin() {
		return s.listTenant(ctx, rc.MedicalCenterID)
	}

	results, err := tenant.FanOut(ctx, "list_consultations", s.resolver.Tenants(), s.fanOutLimit,
		func(ctx context.Context, id int) ([]TenantConsultation, error) {
			return s.listTenant(ctx, id)
		})
	if err != nil {
		return nil, err
	}

	var out []TenantConsultation
	for _, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("medical center %d: %w", r.MedicalCenterID, r.Err)
		}
		out = append(out, r.Value...)
	}
	return out, nil
}

func (s *Service) listTenant(ctx context.Context, medicalCenterID int) ([]TenantConsultation, error) {
	var rows []*Consultation
	err := s.withRepo(ctx, medicalCenterID, func(repo Repository) error {
		var err error
		rows, err = repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]TenantConsultation, 0, len(rows))
	for _, c := range rows {
		out = append(out, TenantConsultation{MedicalCenterID: medicalCenterID, Consultation: c})
	}
	return out, nil
}

// Create validates the referenced patient and doctor and stores the
// consultation in the patient's medical center.
func (s *Service) Create(ctx context.Context, rc reqctx.RequestContext, in Input) (*TenantConsultation, error) {
	c, err := in.Parse()
	if err != nil {
		return nil, err
	}

	target, err := s.writeTarget(ctx, rc, c)
	if err != nil {
		return nil, err
	}

	err = s.withRepo(ctx, target, func(repo Repository) error {
		return repo.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("medical_center_id", target).
		Int("id_consulta_medica", c.ID).
		Bool("admin", rc.IsAdmin()).
		Msg("consultation created")
	return &TenantConsultation{MedicalCenterID: target, Consultation: c}, nil
}

// Update validates like Create and rewrites the row in the patient's medical
// center. The row must already exist there; that is checked before the
// doctor lookup and, for ordinary callers, before the patient lookup.
func (s *Service) Update(ctx context.Context, rc reqctx.RequestContext, id int, in Input) (*TenantConsultation, error) {
	c, err := in.Parse()
	if err != nil {
		return nil, err
	}
	c.ID = id

	target := rc.MedicalCenterID
	if rc.IsAdmin() {
		if target, err = s.patientTarget(ctx, rc, c.PatientID); err != nil {
			return nil, err
		}
	}
	if err := s.withRepo(ctx, target, func(repo Repository) error {
		_, err := repo.GetByID(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}
	if !rc.IsAdmin() {
		if _, err := s.patientTarget(ctx, rc, c.PatientID); err != nil {
			return nil, err
		}
	}
	if err := s.checkDoctor(ctx, rc, c.DoctorID); err != nil {
		return nil, err
	}

	err = s.withRepo(ctx, target, func(repo Repository) error {
		return repo.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return &TenantConsultation{MedicalCenterID: target, Consultation: c}, nil
}

// Delete removes the row from the caller's medical center.
func (s *Service) Delete(ctx context.Context, rc reqctx.RequestContext, id int) error {
	return s.withRepo(ctx, rc.MedicalCenterID, func(repo Repository) error {
		return repo.Delete(ctx, id)
	})
}

// writeTarget runs the cross-service checks of a write and returns the
// medical center the row must be written to.
func (s *Service) writeTarget(ctx context.Context, rc reqctx.RequestContext, c *Consultation) (int, error) {
	target, err := s.patientTarget(ctx, rc, c.PatientID)
	if err != nil {
		return 0, err
	}
	if err := s.checkDoctor(ctx, rc, c.DoctorID); err != nil {
		return 0, err
	}
	return target, nil
}

// patientTarget checks the patient and returns its medical center. Ordinary
// callers always write to their own center; administrators write to
// wherever the patient lives.
func (s *Service) patientTarget(ctx context.Context, rc reqctx.RequestContext, patientID int) (int, error) {
	if rc.IsAdmin() {
		found, ok := s.validator.FindPatientTenant(ctx, rc, patientID)
		if !ok {
			return 0, rpc.NotFound("patient %d not found", patientID)
		}
		return found, nil
	}
	if !s.validator.PatientExists(ctx, rc, patientID) {
		return 0, rpc.NotFound("patient %d not found", patientID)
	}
	return rc.MedicalCenterID, nil
}

func (s *Service) checkDoctor(ctx context.Context, rc reqctx.RequestContext, doctorID int) error {
	if !s.validator.DoctorExists(ctx, rc, doctorID) {
		return rpc.NotFound("doctor %d not found", doctorID)
	}
	if err := ctx.Err(); err != nil {
		return rpc.Wrap(rpc.CodeUnavailable, err, "request cancelled")
	}
	return nil
}
