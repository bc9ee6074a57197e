package handler

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"api-gateway-go/internal/auth"
	"api-gateway-go/internal/client"
	"api-gateway-go/internal/config"
	"api-gateway-go/internal/route"
	"api-gateway-go/internal/service"
)

const testSecret = "handler-test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(userTarget, catalogTarget string) *config.Config {
	return &config.Config{
		Environment: "test",
		Gateway:     config.GatewayConfig{Name: "api-gateway"},
		Auth: config.AuthConfig{
			JWTSecret:   testSecret,
			PublicPaths: []string{"/api/v1/auth/login", "/api/v1/auth/register", "/health", "/"},
		},
		Upstream: config.UpstreamConfig{TimeoutMS: 2000, IdleConnections: 10},
		Routes: []config.RouteConfig{
			{Name: "user-service", Context: []string{"/api/v1/users", "/api/v1/auth"}, Target: userTarget},
			{Name: "catalog-service", Context: []string{"/api/v1/catalog"}, Target: catalogTarget},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testStack struct {
	table  *route.Table
	proxy  *ProxyHandler
	health *HealthHandler
}

func newTestStack(t *testing.T, cfg *config.Config) *testStack {
	t.Helper()
	logger := discardLogger()
	tbl, err := route.NewTableFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewTableFromConfig: %v", err)
	}
	uc := client.NewUpstreamClient(cfg, logger, nil)
	p := service.NewPipeline(
		auth.NewAuthenticator(cfg, logger),
		route.NewRouter(tbl),
		service.NewProxyService(uc, cfg, logger),
		logger,
		nil,
	)
	return &testStack{
		table:  tbl,
		proxy:  NewProxyHandler(p, logger),
		health: NewHealthHandler(cfg, tbl, "test"),
	}
}

func refusedTarget(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return "http://" + addr
}

// malformedTarget returns a base URL whose server answers every request
// with bytes that are not an HTTP response.
func malformedTarget(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				_, _ = http.ReadRequest(bufio.NewReader(c))
				_, _ = c.Write([]byte("definitely not http\r\n\r\n"))
			}(conn)
		}
	}()
	return "http://" + ln.Addr().String()
}

func bearer(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := auth.Issue(testSecret, "", id, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + tok
}
