// Package service implements the gateway pipeline: authentication, routing,
// upstream dispatch and response relay.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"api-gateway-go/internal/auth"
	"api-gateway-go/internal/client"
	"api-gateway-go/internal/config"
	"api-gateway-go/internal/model"
	"api-gateway-go/internal/route"
)

// Headers injected on every forwarded request.
const (
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderForwardedProto = "X-Forwarded-Proto"
	HeaderForwardedHost  = "X-Forwarded-Host"
	HeaderGatewayName    = "X-Gateway-Name"
	HeaderServiceName    = "X-Service-Name"
	HeaderUserID         = "X-User-Id"
	HeaderUserEmail      = "X-User-Email"
	HeaderUserRole       = "X-User-Role"
)

// strippedRequestHeaders are regenerated for the outbound connection.
// Accept-Encoding is left to the transport, which decodes compressed bodies
// itself since Content-Encoding is not relayed back.
var strippedRequestHeaders = []string{
	"Host",
	"Content-Length",
	"Accept-Encoding",
}

// ProxyService builds and dispatches forwarded requests.
type ProxyService struct {
	client      *client.UpstreamClient
	gatewayName string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client:      c,
		gatewayName: cfg.Gateway.Name,
		timeout:     cfg.Upstream.Timeout(),
		logger:      logger.With("component", "proxy_service"),
	}
}

// BuildRequest derives the upstream request from in and the matched route.
// The identity attached to ctx, if any, is carried in the X-User-* headers.
func (s *ProxyService) BuildRequest(ctx context.Context, in *model.InboundRequest, m *route.Match) *model.ForwardedRequest {
	header := in.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	for _, h := range strippedRequestHeaders {
		header.Del(h)
	}

	header.Set(HeaderForwardedFor, in.ClientIP)
	header.Set(HeaderForwardedProto, in.Scheme)
	header.Set(HeaderForwardedHost, in.Host)
	header.Set(HeaderGatewayName, s.gatewayName)
	header.Set(HeaderServiceName, m.Route.Name)

	if id, ok := auth.IdentityFrom(ctx); ok {
		header.Set(HeaderUserID, id.UserID)
		header.Set(HeaderUserEmail, id.Email)
		if id.Role != "" {
			header.Set(HeaderUserRole, id.Role)
		}
	}

	var body []byte
	if hasBody(in.Method) {
		body = in.Body
		if body == nil {
			body = []byte{}
		}
	}

	return &model.ForwardedRequest{
		URL:     buildURL(m.Route.Target, m.Path, in.RawQuery),
		Method:  in.Method,
		Header:  header,
		Body:    body,
		Timeout: s.timeout,
	}
}

// Forward sends fr to the upstream for route in a single attempt.
func (s *ProxyService) Forward(ctx context.Context, fr *model.ForwardedRequest, m *route.Match) (*model.UpstreamResponse, error) {
	s.logger.Debug("forwarding request",
		"service", m.Route.Name,
		"method", fr.Method,
		"url", fr.URL,
	)

	resp, err := s.client.Do(ctx, m.Route.Name, fr)
	if err != nil {
		return nil, &DispatchError{
			Kind:   classify(err),
			Route:  m.Route.Name,
			Target: m.Route.Target,
			Cause:  err,
		}
	}
	return resp, nil
}

// hasBody reports whether method carries a request body upstream.
func hasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return false
	}
	return true
}

// buildURL concatenates target and path without normalising either.
func buildURL(target, path, rawQuery string) string {
	u := target + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// classify maps a transport error to a dispatch kind.
func classify(err error) DispatchKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return DispatchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return DispatchTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return DispatchUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return DispatchUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return DispatchUnreachable
	}

	return DispatchOther
}
