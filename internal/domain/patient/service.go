package patient

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/tenant"
)

type Service struct {
	resolver    tenant.Resolver
	repos       RepoFactory
	logger      zerolog.Logger
	fanOutLimit int
}

func NewService(resolver tenant.Resolver, repos RepoFactory, logger zerolog.Logger) *Service {
	return &Service{resolver: resolver, repos: repos, logger: logger}
}

func (s *Service) SetFanOutLimit(n int) {
	s.fanOutLimit = n
}

func (s *Service) withRepo(ctx context.Context, medicalCenterID int, fn func(Repository) error) error {
	h, err := s.resolver.Resolve(ctx, medicalCenterID)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(s.repos(h))
}

// Get reads from the caller's medical center only. Cross-center lookups are
// done by callers, one medical center per request.
func (s *Service) Get(ctx context.Context, rc reqctx.RequestContext, id int) (*TenantPatient, error) {
	var p *Patient
	err := s.withRepo(ctx, rc.MedicalCenterID, func(repo Repository) error {
		var err error
		p, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &TenantPatient{MedicalCenterID: rc.MedicalCenterID, Patient: p}, nil
}

// List returns the caller's patients; administrators get every medical
// center in tenant order.
func (s *Service) List(ctx context.Context, rc reqctx.RequestContext) ([]TenantPatient, error) {
	if !rc.IsAdmin() {
		return s.listTenant(ctx, rc.MedicalCenterID)
	}

	results, err := tenant.FanOut(ctx, "list_patients", s.resolver.Tenants(), s.fanOutLimit, s.listTenant)
	if err != nil {
		return nil, err
	}
	var out []TenantPatient
	for _, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("medical center %d: %w", r.MedicalCenterID, r.Err)
		}
		out = append(out, r.Value...)
	}
	return out, nil
}

func (s *Service) listTenant(ctx context.Context, medicalCenterID int) ([]TenantPatient, error) {
	var rows []*Patient
	err := s.withRepo(ctx, medicalCenterID, func(repo Repository) error {
		var err error
		rows, err = repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]TenantPatient, 0, len(rows))
	for _, p := range rows {
		out = append(out, TenantPatient{MedicalCenterID: medicalCenterID, Patient: p})
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, rc reqctx.RequestContext, in Input) (*TenantPatient, error) {
	p, err := in.Parse()
	if err != nil {
		return nil, err
	}
	err = s.withRepo(ctx, rc.MedicalCenterID, func(repo Repository) error {
		return repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("medical_center_id", rc.MedicalCenterID).Int("id_paciente", p.ID).Msg("patient created")
	return &TenantPatient{MedicalCenterID: rc.MedicalCenterID, Patient: p}, nil
}

func (s *Service) Update(ctx context.Context, rc reqctx.RequestContext, id int, in Input) (*TenantPatient, error) {
	p, err := in.Parse()
	if err != nil {
		return nil, err
	}
	p.ID = id
	err = s.withRepo(ctx, rc.MedicalCenterID, func(repo Repository) error {
		return repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return &TenantPatient{MedicalCenterID: rc.MedicalCenterID, Patient: p}, nil
}

func (s *Service) Delete(ctx context.Context, rc reqctx.RequestContext, id int) error {
	return s.withRepo(ctx, rc.MedicalCenterID, func(repo Repository) error {
		return repo.Delete(ctx, id)
	})
}
