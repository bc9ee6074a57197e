package service

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"api-gateway-go/internal/auth"
	"api-gateway-go/internal/client"
	"api-gateway-go/internal/config"
	"api-gateway-go/internal/route"
)

const testSecret = "test-secret-key-for-unit-tests"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestConfig returns a config with both services pointing at the given targets.
func newTestConfig(userTarget, catalogTarget string, timeoutMS int) *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{Name: "api-gateway"},
		Auth: config.AuthConfig{
			JWTSecret: testSecret,
			PublicPaths: []string{
				"/api/v1/auth/login",
				"/api/v1/auth/register",
				"/api/v1/auth/logout",
				"/health",
				"/",
			},
		},
		Upstream: config.UpstreamConfig{TimeoutMS: timeoutMS, IdleConnections: 10},
		Routes: []config.RouteConfig{
			{Name: "user-service", Context: []string{"/api/v1/users", "/api/v1/auth"}, Target: userTarget},
			{Name: "catalog-service", Context: []string{"/api/v1/catalog"}, Target: catalogTarget},
		},
	}
}

func newTestProxyService(cfg *config.Config) *ProxyService {
	logger := discardLogger()
	return NewProxyService(client.NewUpstreamClient(cfg, logger, nil), cfg, logger)
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	logger := discardLogger()
	tbl, err := route.NewTable(cfg.Routes)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return NewPipeline(
		auth.NewAuthenticator(cfg, logger),
		route.NewRouter(tbl),
		newTestProxyService(cfg),
		logger,
		nil,
	)
}

// refusedTarget returns a base URL on which nothing is listening.
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

func mustToken(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := auth.Issue(testSecret, "", id, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}
