package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pico/config"
	"pico/metrics"
	"pico/server"
)

type stubCatalog struct {
	names     []string
	reloadErr error
	reloads   int
}

func (s *stubCatalog) Size() int       { return len(s.names) }
func (s *stubCatalog) Names() []string { return s.names }
func (s *stubCatalog) Reload() error {
	s.reloads++
	return s.reloadErr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pico.lua")
	src := `
		return {
			DB = "app.db",
			ROUTES = {
				["/ping"] = { GET = { SQL = "ping" } },
				["/users/:id"] = { GET = { SQL = "get_user" } },
			},
		}
	`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	t.Cleanup(cfg.Close)
	return cfg
}

func newTestAdmin(t *testing.T, cat *stubCatalog) http.Handler {
	t.Helper()
	srv := New(":0", testConfig(t), cat, server.NewHub(), metrics.New().Registry())
	return srv.Handler
}

func TestHealth(t *testing.T) {
	handler := newTestAdmin(t, &stubCatalog{names: []string{"ping", "get_user"}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["routes"] != float64(2) {
		t.Errorf("expected 2 routes, got %v", body["routes"])
	}
	if body["functions"] != float64(2) {
		t.Errorf("expected 2 functions, got %v", body["functions"])
	}
}

func TestRoutes(t *testing.T) {
	handler := newTestAdmin(t, &stubCatalog{names: []string{"ping"}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/routes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := rec.Body.String()
	if !strings.Contains(out, "/users/:id") {
		t.Errorf("expected parameterized route in dump: %s", out)
	}
	if !strings.Contains(out, `"ping"`) {
		t.Errorf("expected function list in dump: %s", out)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestAdmin(t, &stubCatalog{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("expected runtime metrics in exposition: %s", rec.Body.String())
	}
}

func TestReload(t *testing.T) {
	cat := &stubCatalog{names: []string{"ping"}}
	handler := newTestAdmin(t, cat)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cat.reloads != 1 {
		t.Errorf("expected one reload, got %d", cat.reloads)
	}
}

func TestReloadFailure(t *testing.T) {
	cat := &stubCatalog{reloadErr: errors.New("disk gone")}
	handler := newTestAdmin(t, cat)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
