package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestHealth(t *testing.T) {
	st := newTestStack(t, newTestConfig("http://localhost:3001", "http://localhost:3002"))
	st.health.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC) }

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := st.health.Health(c); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["name"] != "api-gateway" {
		t.Errorf("name = %q, want %q", body["name"], "api-gateway")
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want %q", body["status"], "healthy")
	}
	if body["timestamp"] != "2024-01-02T03:04:05.006Z" {
		t.Errorf("timestamp = %q, want %q", body["timestamp"], "2024-01-02T03:04:05.006Z")
	}
}

func TestStatus(t *testing.T) {
	st := newTestStack(t, newTestConfig("http://localhost:3001", "http://localhost:3002"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/gateway/status", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := st.health.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Status      string `json:"status"`
		Version     string `json:"version"`
		Environment string `json:"environment"`
		Routes      []struct {
			Name     string   `json:"name"`
			Contexts []string `json:"contexts"`
			Target   string   `json:"target"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "ok" || body.Version != "test" || body.Environment != "test" {
		t.Errorf("body = %+v", body)
	}
	if len(body.Routes) != 2 {
		t.Fatalf("len(routes) = %d, want 2", len(body.Routes))
	}
	if body.Routes[1].Name != "catalog-service" || body.Routes[1].Target != "http://localhost:3002" {
		t.Errorf("routes[1] = %+v", body.Routes[1])
	}
	if len(body.Routes[0].Contexts) != 2 {
		t.Errorf("routes[0].contexts = %v, want 2 entries", body.Routes[0].Contexts)
	}
}
