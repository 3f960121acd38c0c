package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/encounters/internal/config"
	"github.com/ehr/encounters/internal/domain/encounter"
	"github.com/ehr/encounters/internal/platform/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "test",
		StoreDriver:     config.DriverMemory,
		CORSOrigins:     []string{"*"},
		BodyLimit:       "1K",
		MetricsEnabled:  true,
		ShutdownTimeout: time.Second,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	st := &store{repo: encounter.NewMemoryRepo()}
	return newServer(cfg, zerolog.Nop(), st)
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, testConfig())
	rec := do(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK {
		t.Error("expected ok=true")
	}
	if _, err := time.Parse(time.RFC3339Nano, body.Time); err != nil {
		t.Errorf("time is not RFC3339: %q", body.Time)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestHealthDB_OnlyWithDatabase(t *testing.T) {
	e := newTestServer(t, testConfig())
	rec := do(e, http.MethodGet, "/health/db", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for memory store, got %d", rec.Code)
	}
}

func TestEncounterWorkflow(t *testing.T) {
	e := newTestServer(t, testConfig())

	rec := do(e, http.MethodPost, "/encounters", `{"patientName":"Ana Silva","status":"Triage"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var enc encounter.Encounter
	if err := json.Unmarshal(rec.Body.Bytes(), &enc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if enc.ID != 1 {
		t.Fatalf("expected id 1, got %d", enc.ID)
	}

	steps := []struct {
		body string
		code int
	}{
		{`{"status":"In-Care"}`, http.StatusOK},
		{`{"status":"Awaiting-Exam"}`, http.StatusBadRequest},
		{`{"status":"Awaiting-Exam","examType":"X-Ray"}`, http.StatusOK},
		{`{"status":"Discharged"}`, http.StatusConflict},
		{`{"status":"In-Exam","examType":"X-Ray"}`, http.StatusOK},
		{`{"status":"Awaiting-Result"}`, http.StatusOK},
		{`{"status":"Discharged"}`, http.StatusOK},
		{`{"status":"Triage"}`, http.StatusConflict},
	}
	for i, s := range steps {
		rec := do(e, http.MethodPatch, "/encounters/1/status", s.body)
		if rec.Code != s.code {
			t.Fatalf("step %d %s: expected %d, got %d: %s", i, s.body, s.code, rec.Code, rec.Body.String())
		}
	}

	rec = do(e, http.MethodGet, "/encounters/1", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &enc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if enc.CurrentStatus != encounter.StatusDischarged {
		t.Errorf("expected Discharged, got %s", enc.CurrentStatus)
	}
	if len(enc.History) != 6 {
		t.Errorf("expected 6 history entries, got %d", len(enc.History))
	}
}

func TestErrorBodies(t *testing.T) {
	e := newTestServer(t, testConfig())

	rec := do(e, http.MethodGet, "/encounters/42", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "encounter not found" {
		t.Errorf("unexpected message %q", msg)
	}

	rec = do(e, http.MethodPost, "/encounters", `{"patientName":"Al","status":"Triage"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "patient name") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestBodyLimit(t *testing.T) {
	e := newTestServer(t, testConfig())
	big := `{"patientName":"Ana Silva","status":"Triage","notes":"` + strings.Repeat("x", 2048) + `"}`

	rec := do(e, http.MethodPost, "/encounters", big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 2
	e := newTestServer(t, cfg)

	body := `{"patientName":"Ana Silva","status":"Triage"}`
	for i := 0; i < 2; i++ {
		if rec := do(e, http.MethodPost, "/encounters", body); rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i+1, rec.Code)
		}
	}
	rec := do(e, http.MethodPost, "/encounters", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/encounters", ""); rec.Code != http.StatusOK {
		t.Errorf("reads should not be limited, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(t, testConfig())
	do(e, http.MethodPost, "/encounters", `{"patientName":"Ana Silva","status":"Triage"}`)
	do(e, http.MethodPatch, "/encounters/1/status", `{"status":"Admitted"}`)

	rec := do(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := rec.Body.String()
	for _, want := range []string{
		`encounters_created_total{status="Triage"} 1`,
		`encounter_requests_rejected_total{operation="transition",reason="conflict"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	e := newTestServer(t, cfg)

	if rec := do(e, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when metrics are disabled, got %d", rec.Code)
	}
}

func TestUIAndSecurityHeaders(t *testing.T) {
	e := newTestServer(t, testConfig())

	rec := do(e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "script-src 'self'") {
		t.Errorf("UI should allow its own scripts, got %q", csp)
	}

	rec = do(e, http.MethodGet, "/encounters", "")
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.HasPrefix(csp, "default-src 'none'") {
		t.Errorf("API should deny all content, got %q", csp)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("API responses should not be cached")
	}
}

func TestOpenAPIDocument(t *testing.T) {
	e := newTestServer(t, testConfig())
	rec := do(e, http.MethodGet, "/openapi.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, s := range encounter.Statuses() {
		if !strings.Contains(rec.Body.String(), `"`+string(s)+`"`) {
			t.Errorf("document missing status %s", s)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Errorf("expected %q, got %q", version, out.String())
	}
}
