package patient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/db"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/tenant"
)

type mockRepo struct {
	mu       sync.Mutex
	patients map[int]*Patient
	nextID   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[int]*Patient), nextID: 1}
}

func (m *mockRepo) GetByID(_ context.Context, id int) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, rpc.NotFound("patient %d not found", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context) ([]*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Patient
	for _, p := range m.patients {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID
	m.nextID++
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return rpc.NotFound("patient %d not found", p.ID)
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return rpc.NotFound("patient %d not found", id)
	}
	delete(m.patients, id)
	return nil
}

type mockResolver struct {
	routing tenant.RoutingTable
	repos   map[string]*mockRepo
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		routing: tenant.DefaultRoutingTable(),
		repos: map[string]*mockRepo{
			tenant.ConnPrimary:   newMockRepo(),
			tenant.ConnGuayaquil: newMockRepo(),
			tenant.ConnCuenca:    newMockRepo(),
		},
	}
}

func (r *mockResolver) Resolve(_ context.Context, id int) (*db.Handle, error) {
	return db.NewHandle(id, r.routing.ConnectionName(id), nil, nil), nil
}

func (r *mockResolver) Tenants() []int { return r.routing.Tenants() }

func (r *mockResolver) factory(h *db.Handle) Repository {
	return r.repos[h.Connection]
}

func (r *mockResolver) repo(id int) *mockRepo {
	return r.repos[r.routing.ConnectionName(id)]
}

func newTestService() (*Service, *mockResolver) {
	res := newMockResolver()
	return NewService(res, res.factory, zerolog.Nop()), res
}

func validInput() Input {
	return Input{Nombre: "Luis Paz", Cedula: "0102030405", FechaNacimiento: "1990-06-15", Telefono: "0991234567"}
}

func TestCreate_StoresInCallerCenter(t *testing.T) {
	svc, res := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, reqctx.New(2, ""), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 1 || p.MedicalCenterID != 2 {
		t.Errorf("unexpected patient %+v", p)
	}
	if len(res.repo(2).patients) != 1 || len(res.repo(1).patients) != 0 {
		t.Error("expected the patient only in center 2")
	}

	if _, err := svc.Get(ctx, reqctx.New(2, ""), 1); err != nil {
		t.Errorf("expected patient readable in center 2: %v", err)
	}
	if _, err := svc.Get(ctx, reqctx.New(1, reqctx.RoleAdmin), 1); !rpc.IsNotFound(err) {
		t.Errorf("expected not found in center 1 even for admin, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"missing name", func(in *Input) { in.Nombre = " " }},
		{"missing cedula", func(in *Input) { in.Cedula = "" }},
		{"bad birth date", func(in *Input) { in.FechaNacimiento = "15-06-1990" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, res := newTestService()
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), reqctx.New(1, ""), in)
			if rpc.CodeOf(err) != rpc.CodeInvalidArgument {
				t.Fatalf("expected invalid argument, got %v", err)
			}
			if len(res.repo(1).patients) != 0 {
				t.Error("nothing should be stored")
			}
		})
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	rc := reqctx.New(3, "")
	svc.Create(ctx, rc, validInput())

	in := validInput()
	in.Direccion = "Av. Solano"
	p, err := svc.Update(ctx, rc, 1, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Address != "Av. Solano" {
		t.Errorf("expected updated address, got %q", p.Address)
	}

	if _, err := svc.Update(ctx, reqctx.New(1, ""), 1, in); !rpc.IsNotFound(err) {
		t.Errorf("expected not found in another center, got %v", err)
	}

	if err := svc.Delete(ctx, rc, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, rc, 1); !rpc.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestList_AdminAllCenters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.Create(ctx, reqctx.New(3, ""), validInput())
	svc.Create(ctx, reqctx.New(1, ""), validInput())
	svc.Create(ctx, reqctx.New(2, ""), validInput())

	own, err := svc.List(ctx, reqctx.New(2, "Medico"))
	if err != nil || len(own) != 1 {
		t.Fatalf("expected 1 patient for center 2, got %d (%v)", len(own), err)
	}

	all, err := svc.List(ctx, reqctx.New(2, "ADMIN"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 patients, got %d", len(all))
	}
	for i, want := range []int{1, 2, 3} {
		if all[i].MedicalCenterID != want || all[i].ID != 1 {
			t.Errorf("row %d: expected center %d id 1, got center %d id %d", i, want, all[i].MedicalCenterID, all[i].ID)
		}
	}
}

func TestHandler_GetCarriesCenter(t *testing.T) {
	svc, _ := newTestService()
	svc.Create(context.Background(), reqctx.New(2, ""), validInput())

	e := echo.New()
	e.HTTPErrorHandler = rpc.ErrorHandler(zerolog.Nop())
	e.Use(reqctx.Middleware())
	NewHandler(svc).RegisterRoutes(e.Group("/v1"))

	req := httptest.NewRequest(http.MethodGet, "/v1/patients/1", nil)
	req.Header.Set(reqctx.HeaderMedicalCenter, "2")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"fecha_nacimiento":"1990-06-15"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/patients/1", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without center header, got %d", rec.Code)
	}
}

func TestHandler_CreateBadBody(t *testing.T) {
	svc, _ := newTestService()
	e := echo.New()
	e.HTTPErrorHandler = rpc.ErrorHandler(zerolog.Nop())
	NewHandler(svc).RegisterRoutes(e.Group("/v1"))

	req := httptest.NewRequest(http.MethodPost, "/v1/patients", strings.NewReader(`{"nombre":"A"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
