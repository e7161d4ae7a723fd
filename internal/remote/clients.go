// Package remote talks to the sibling services on behalf of the consultation
// service: typed lookups, the existence checks run before every write, and
// the name directory used by reports.
package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/admin"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/patient"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
)

// Caller is the transport used by the typed clients. *rpc.Client satisfies it.
type Caller interface {
	Do(ctx context.Context, rc reqctx.RequestContext, method, path string, body, result interface{}) error
}

// AdministrationClient reads doctors and specialties. Scoping by medical
// center happens on the administration side from the propagated headers.
type AdministrationClient struct {
	c Caller
}

func NewAdministrationClient(c Caller) *AdministrationClient {
	return &AdministrationClient{c: c}
}

func (a *AdministrationClient) Doctor(ctx context.Context, rc reqctx.RequestContext, id int) (*admin.Doctor, error) {
	var d admin.Doctor
	if err := a.c.Do(ctx, rc, http.MethodGet, fmt.Sprintf("/v1/doctors/%d", id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (a *AdministrationClient) Specialty(ctx context.Context, rc reqctx.RequestContext, id int) (*admin.Specialty, error) {
	var s admin.Specialty
	if err := a.c.Do(ctx, rc, http.MethodGet, fmt.Sprintf("/v1/specialties/%d", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PatientsClient reads patients from the medical center named by rc.
type PatientsClient struct {
	c Caller
}

func NewPatientsClient(c Caller) *PatientsClient {
	return &PatientsClient{c: c}
}

func (p *PatientsClient) Patient(ctx context.Context, rc reqctx.RequestContext, id int) (*patient.Response, error) {
	var resp patient.Response
	if err := p.c.Do(ctx, rc, http.MethodGet, fmt.Sprintf("/v1/patients/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
