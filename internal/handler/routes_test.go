package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"api-gateway-go/internal/auth"
	"api-gateway-go/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := newTestConfig(upstream.URL, upstream.URL)
	st := newTestStack(t, cfg)
	m := metrics.New(st.table.Contexts()...)

	e := echo.New()
	RegisterRoutes(e, cfg, m, st.proxy, st.health)

	token := bearer(t, auth.Identity{UserID: "u-1"})

	tests := []struct {
		name       string
		method     string
		path       string
		token      bool
		wantStatus int
	}{
		{"GET /health", http.MethodGet, "/health", false, http.StatusOK},
		{"GET /gateway/status", http.MethodGet, "/gateway/status", false, http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", false, http.StatusOK},
		{"public login", http.MethodPost, "/api/v1/auth/login", false, http.StatusOK},
		{"protected without token", http.MethodGet, "/api/v1/users/me", false, http.StatusUnauthorized},
		{"protected with token", http.MethodGet, "/api/v1/users/me", true, http.StatusOK},
		{"DELETE catalog", http.MethodDelete, "/api/v1/catalog/items/7", true, http.StatusOK},
		{"unknown with token", http.MethodGet, "/unknown", true, http.StatusNotFound},
		{"root is public but unrouted", http.MethodGet, "/", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.token {
				req.Header.Set("Authorization", token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	cfg := newTestConfig("http://localhost:3001", "http://localhost:3002")
	cfg.Metrics.Enabled = false
	st := newTestStack(t, cfg)

	e := echo.New()
	RegisterRoutes(e, cfg, metrics.New(), st.proxy, st.health)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// Falls through to the proxy, which requires a token.
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if strings.Contains(rec.Body.String(), "api_gateway_") {
		t.Error("metrics exposition served while disabled")
	}
}
