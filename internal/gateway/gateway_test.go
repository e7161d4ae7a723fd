package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/consultation"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/auth"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

type call struct {
	method string
	path   string
	rc     reqctx.RequestContext
	body   string
}

type reply struct {
	status int
	body   string
}

// upstream records every call and answers from a fixed table keyed by
// "METHOD path". Unknown routes answer 404.
type upstream struct {
	mu      sync.Mutex
	calls   []call
	replies map[string]reply
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	u.calls = append(u.calls, call{r.Method, r.URL.Path, reqctx.Extract(r.Header), string(body)})
	rep, ok := u.replies[r.Method+" "+r.URL.Path]
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"code":"not_found","message":"no route"}`)
		return
	}
	w.WriteHeader(rep.status)
	io.WriteString(w, rep.body)
}

func (u *upstream) recorded() []call {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]call(nil), u.calls...)
}

var testKey = []byte("gateway-test-key")

type fixture struct {
	e             *echo.Echo
	consultations *upstream
	admin         *upstream
	patients      *upstream
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		consultations: &upstream{replies: map[string]reply{}},
		admin:         &upstream{replies: map[string]reply{}},
		patients:      &upstream{replies: map[string]reply{}},
	}
	client := func(u *upstream) *rpc.Client {
		srv := httptest.NewServer(u)
		t.Cleanup(srv.Close)
		return rpc.NewClient(srv.URL, 2*time.Second)
	}
	gw := New(client(f.consultations), client(f.admin), client(f.patients), zerolog.Nop())

	f.e = echo.New()
	f.e.HTTPErrorHandler = rpc.ErrorHandler(zerolog.Nop())
	api := f.e.Group("/api", auth.JWTMiddleware(auth.JWTConfig{SigningKey: testKey}))
	gw.RegisterRoutes(api)
	return f
}

func token(t *testing.T, center interface{}, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":              "user-1",
		"id_centro_medico": center,
		"role":             role,
		"exp":              time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func (f *fixture) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) rpc.ErrorBody {
	t.Helper()
	var eb rpc.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &eb); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return eb
}

const validConsulta = `{"fecha":"2024-01-05","hora":"10:00:00","motivo":"Control","diagnostico":"Sano","tratamiento":"Ninguno","id_paciente":7,"id_medico":20}`

func TestCreateConsulta_ForwardsClaimsAsHeaders(t *testing.T) {
	f := newFixture(t)
	f.consultations.replies["POST /v1/consultations"] = reply{http.StatusCreated, `{"id_consulta_medica":5,"id_paciente":7,"id_medico":20,"id_centro_medico":2}`}

	rec := f.do(t, http.MethodPost, "/api/consultas", validConsulta, token(t, "2", "Admin"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"id_consulta_medica":5`) {
		t.Errorf("expected upstream body relayed, got %s", rec.Body.String())
	}

	calls := f.consultations.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected 1 upstream call, got %d", len(calls))
	}
	if calls[0].rc.MedicalCenterID != 2 || !calls[0].rc.IsAdmin() {
		t.Errorf("expected center 2 and admin role propagated, got %+v", calls[0].rc)
	}
	var in consultation.Input
	if err := json.Unmarshal([]byte(calls[0].body), &in); err != nil || in.IDPaciente != 7 || in.Motivo != "Control" {
		t.Errorf("unexpected forwarded body %s", calls[0].body)
	}
}

func TestCreateConsulta_RejectsMissingReferences(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero patient", strings.Replace(validConsulta, `"id_paciente":7`, `"id_paciente":0`, 1)},
		{"negative doctor", strings.Replace(validConsulta, `"id_medico":20`, `"id_medico":-1`, 1)},
		{"malformed", `{"id_paciente":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/consultas", tt.body, token(t, 1, ""))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if eb := decodeError(t, rec); eb.Code != rpc.CodeInvalidArgument {
				t.Errorf("expected invalid_argument, got %q", eb.Code)
			}
			if n := len(f.consultations.recorded()); n != 0 {
				t.Errorf("expected no upstream call, got %d", n)
			}
		})
	}
}

func TestTokenRequired(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/consultas", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if eb := decodeError(t, rec); eb.Code != rpc.CodePermissionDenied {
		t.Errorf("expected permission_denied, got %q", eb.Code)
	}
}

func TestMissingCenterClaimDefaults(t *testing.T) {
	f := newFixture(t)
	f.consultations.replies["GET /v1/consultations"] = reply{http.StatusOK, `[]`}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()})
	s, _ := tok.SignedString(testKey)
	rec := f.do(t, http.MethodGet, "/api/consultas", "", s)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rc := f.consultations.recorded()[0].rc; rc.MedicalCenterID != reqctx.DefaultMedicalCenterID || rc.IsAdmin() {
		t.Errorf("expected default ordinary context, got %+v", rc)
	}
}

func TestUpstreamErrorsKeepStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{"not found", http.StatusNotFound, `{"code":"not_found","message":"consultation 9 not found"}`, http.StatusNotFound},
		{"invalid", http.StatusBadRequest, `{"code":"invalid_argument","message":"bad"}`, http.StatusBadRequest},
		{"denied", http.StatusForbidden, `{"code":"permission_denied","message":"no"}`, http.StatusForbidden},
		{"unavailable", http.StatusServiceUnavailable, `{"code":"unavailable","message":"down"}`, http.StatusServiceUnavailable},
		{"configuration", http.StatusInternalServerError, `{"code":"configuration","message":"no dsn"}`, http.StatusInternalServerError},
		{"no body", http.StatusBadGateway, ``, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.consultations.replies["GET /v1/consultations/9"] = reply{tt.status, tt.body}
			rec := f.do(t, http.MethodGet, "/api/consultas/9", "", token(t, 3, ""))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUnreachableUpstream(t *testing.T) {
	down := rpc.NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	gw := New(down, down, down, zerolog.Nop())
	e := echo.New()
	e.HTTPErrorHandler = rpc.ErrorHandler(zerolog.Nop())
	gw.RegisterRoutes(e.Group("/api", auth.DevAuthMiddleware()))

	req := httptest.NewRequest(http.MethodGet, "/api/pacientes", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCrudRoutesForward(t *testing.T) {
	f := newFixture(t)
	f.admin.replies["GET /v1/doctors/10"] = reply{http.StatusOK, `{"id_empleado":10,"nombre":"Dra. Vera"}`}
	f.admin.replies["POST /v1/specialties"] = reply{http.StatusCreated, `{"id_especialidad":4,"nombre":"Cardiología"}`}
	f.admin.replies["DELETE /v1/doctors/10"] = reply{http.StatusOK, `{"exito":true}`}
	f.patients.replies["PUT /v1/patients/3"] = reply{http.StatusOK, `{"id_paciente":3,"nombre":"Ana"}`}
	bearer := token(t, 1, "Medico")

	tests := []struct {
		method, path, body string
		want               int
		target             *upstream
		upstreamPath       string
	}{
		{http.MethodGet, "/api/medicos/10", "", http.StatusOK, f.admin, "/v1/doctors/10"},
		{http.MethodPost, "/api/especialidades", `{"nombre":"Cardiología"}`, http.StatusCreated, f.admin, "/v1/specialties"},
		{http.MethodDelete, "/api/medicos/10", "", http.StatusOK, f.admin, "/v1/doctors/10"},
		{http.MethodPut, "/api/pacientes/3", `{"nombre":"Ana"}`, http.StatusOK, f.patients, "/v1/patients/3"},
	}
	for _, tt := range tests {
		before := len(tt.target.recorded())
		rec := f.do(t, tt.method, tt.path, tt.body, bearer)
		if rec.Code != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, rec.Code)
			continue
		}
		calls := tt.target.recorded()
		if len(calls) != before+1 {
			t.Errorf("%s %s: expected one upstream call", tt.method, tt.path)
			continue
		}
		last := calls[len(calls)-1]
		if last.method != tt.method || last.path != tt.upstreamPath || last.rc.Role != "Medico" {
			t.Errorf("%s %s: unexpected upstream call %+v", tt.method, tt.path, last)
		}
		if tt.body != "" && !strings.Contains(last.body, `"nombre"`) {
			t.Errorf("%s %s: body not forwarded: %q", tt.method, tt.path, last.body)
		}
	}
}

func TestUserRoutesForward(t *testing.T) {
	f := newFixture(t)
	f.admin.replies["GET /v1/users"] = reply{http.StatusOK, `[{"id_usuario":1,"nombre_usuario":"ana.perez","rol":"Usuario"}]`}
	f.admin.replies["GET /v1/users/by-username/ana.perez"] = reply{http.StatusOK, `{"id_usuario":1,"nombre_usuario":"ana.perez"}`}
	f.admin.replies["POST /v1/users"] = reply{http.StatusCreated, `{"id_usuario":2,"nombre_usuario":"luis"}`}
	bearer := token(t, 1, reqctx.RoleAdmin)

	if rec := f.do(t, http.MethodGet, "/api/usuarios", "", bearer); rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/api/usuarios/buscar/ana.perez", "", bearer)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id_usuario":1`) {
		t.Fatalf("search: unexpected %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/api/usuarios", `{"nombre_usuario":"luis","contrasena":"secreto1"}`, bearer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}

	calls := f.admin.recorded()
	if len(calls) != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", len(calls))
	}
	if calls[1].path != "/v1/users/by-username/ana.perez" {
		t.Errorf("unexpected search path %q", calls[1].path)
	}
	if !calls[2].rc.IsAdmin() || !strings.Contains(calls[2].body, `"contrasena"`) {
		t.Errorf("unexpected create call %+v", calls[2])
	}

	if rec := f.do(t, http.MethodGet, "/api/usuarios/buscar/nadie", "", bearer); rec.Code != http.StatusNotFound {
		t.Errorf("expected upstream 404 to pass through, got %d", rec.Code)
	}
}

func TestBadPathID(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/consultas/abc", "/api/pacientes/0", "/api/medicos/-2"} {
		rec := f.do(t, http.MethodGet, path, "", token(t, 1, ""))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func sampleReport() *consultation.Report {
	return &consultation.Report{
		TotalConsultasGeneral: 3,
		FechaGeneracion:       "2024-02-01 09:30:00",
		Medicos: []consultation.DoctorReport{
			{
				IDMedico: 20, NombreMedico: "Dr. Mora", IDEspecialidad: 5, NombreEspecialidad: "Pediatría", TotalConsultas: 2,
				Consultas: []consultation.ReportConsultation{
					{IDConsultaMedica: 1, Fecha: "2024-01-05", Hora: "10:00:00", Motivo: "Fiebre", IDPaciente: 7, NombrePaciente: "Luis Paz", IDCentroMedico: 2},
					{IDConsultaMedica: 2, Fecha: "2024-01-06", Hora: "11:30:00", Motivo: "Control", IDPaciente: 30, NombrePaciente: "Paciente no encontrado", IDCentroMedico: 3},
				},
			},
			{
				IDMedico: 10, NombreMedico: "Dra. Vera", IDEspecialidad: 4, NombreEspecialidad: "Cardiología", TotalConsultas: 1,
				Consultas: []consultation.ReportConsultation{
					{IDConsultaMedica: 3, Fecha: "2024-01-07", Hora: "08:15:00", Motivo: "Dolor", IDPaciente: 3, NombrePaciente: "Ana", IDCentroMedico: 3},
				},
			},
		},
	}
}

func (f *fixture) serveReport(t *testing.T) {
	t.Helper()
	b, err := json.Marshal(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	f.consultations.replies["POST "+reportPath] = reply{http.StatusOK, string(b)}
}

func TestReportByDoctor_Reshapes(t *testing.T) {
	f := newFixture(t)
	f.serveReport(t)

	rec := f.do(t, http.MethodPost, "/api/reportes/consultas-por-medico",
		`{"id_medico":20,"fecha_inicio":"2024-01-01","fecha_fin":"2024-01-31"}`, token(t, 3, "Admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Resumen.TotalConsultasGeneral != 3 || resp.Resumen.TotalMedicos != 2 {
		t.Errorf("unexpected summary %+v", resp.Resumen)
	}
	if resp.Resumen.Filtros.MedicoID == nil || *resp.Resumen.Filtros.MedicoID != 20 || resp.Resumen.Filtros.FechaFin != "2024-01-31" {
		t.Errorf("expected filters echoed, got %+v", resp.Resumen.Filtros)
	}
	p := resp.Medicos[0].Consultas[1].Paciente
	if p.IDPaciente != 30 || p.IDCentroMedico != 3 || p.NombrePaciente != "Paciente no encontrado" {
		t.Errorf("unexpected patient %+v", p)
	}

	calls := f.consultations.recorded()
	var fwd consultation.ReportRequest
	json.Unmarshal([]byte(calls[0].body), &fwd)
	if fwd.IDMedico != 20 || fwd.FechaInicio != "2024-01-01" || calls[0].rc.MedicalCenterID != 3 {
		t.Errorf("unexpected forwarded request %+v (%+v)", fwd, calls[0].rc)
	}
}

func TestReportByDoctor_ValidatesFilters(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad start", `{"fecha_inicio":"01/01/2024"}`},
		{"bad end", `{"fecha_fin":"2024-13-01"}`},
		{"reversed", `{"fecha_inicio":"2024-02-01","fecha_fin":"2024-01-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.serveReport(t)
			for _, path := range []string{"/api/reportes/consultas-por-medico", "/api/reportes/estadisticas-consultas", "/api/reportes/consultas-por-medico/excel"} {
				rec := f.do(t, http.MethodPost, path, tt.body, token(t, 1, ""))
				if rec.Code != http.StatusBadRequest {
					t.Errorf("%s: expected 400, got %d", path, rec.Code)
				}
			}
			if n := len(f.consultations.recorded()); n != 0 {
				t.Errorf("expected no upstream call, got %d", n)
			}
		})
	}
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	f.serveReport(t)

	rec := f.do(t, http.MethodPost, "/api/reportes/estadisticas-consultas",
		`{"fecha_inicio":"2024-01-01","motivo":"Fiebre","id_medico":10}`, token(t, 1, "Admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var st consultation.Statistics
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.TotalConsultas != 3 || st.TotalMedicos != 2 || st.PromedioConsultasPorMedico != 1.5 {
		t.Errorf("unexpected statistics %+v", st)
	}
	if st.MedicoConMasConsultas == nil || *st.MedicoConMasConsultas != "Dr. Mora" || st.MaxConsultasPorMedico != 2 {
		t.Errorf("unexpected top doctor in %+v", st)
	}
	if len(st.Especialidades) != 2 || st.Especialidades[0].NombreEspecialidad != "Pediatría" {
		t.Errorf("unexpected specialties %+v", st.Especialidades)
	}

	var fwd consultation.ReportRequest
	json.Unmarshal([]byte(f.consultations.recorded()[0].body), &fwd)
	if fwd.Motivo != "" || fwd.IDMedico != 0 || fwd.FechaInicio != "2024-01-01" {
		t.Errorf("expected only the date range forwarded, got %+v", fwd)
	}
}

func TestReportExcel(t *testing.T) {
	f := newFixture(t)
	f.serveReport(t)

	rec := f.do(t, http.MethodPost, "/api/reportes/consultas-por-medico/excel", "", token(t, 1, "Admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), ".xlsx") {
		t.Errorf("expected attachment disposition, got %q", rec.Header().Get(echo.HeaderContentDisposition))
	}

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(reportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Médico" || rows[2][9] != "Paciente no encontrado" || rows[3][0] != "Dra. Vera" {
		t.Errorf("unexpected rows %v", rows)
	}
	if rows[2][10] != "3" {
		t.Errorf("expected medical center of the patient row, got %q", rows[2][10])
	}
	if idx, _ := wb.GetSheetIndex("Sheet1"); idx != -1 {
		t.Error("expected the default sheet removed")
	}
	if v, _ := wb.GetCellValue(summarySheet, "B3"); v != "3" {
		t.Errorf("expected total consultations in summary, got %q", v)
	}
}

func TestReportWorkbook_Empty(t *testing.T) {
	data, err := ReportWorkbook(&consultation.Report{FechaGeneracion: "2024-02-01 09:30:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	rows, _ := wb.GetRows(reportSheet)
	if len(rows) != 1 {
		t.Errorf("expected only the header row, got %d", len(rows))
	}
	if v, _ := wb.GetCellValue(summarySheet, "A7"); v != "" {
		t.Errorf("expected no top doctor row for an empty report, got %q", v)
	}
}
