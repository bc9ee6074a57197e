package handler

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"api-gateway-go/internal/auth"
	"api-gateway-go/internal/model"
	"api-gateway-go/internal/route"
	"api-gateway-go/internal/service"
)

// Error codes returned in the "error" field of gateway-generated responses.
const (
	errRouteNotFound = "ROUTE_NOT_FOUND"
	errServiceError  = "SERVICE_ERROR"
	errAccessDenied  = "Access denied"
	errServerConfig  = "Server configuration error"
)

// ProxyHandler runs every non-reserved request through the gateway pipeline.
type ProxyHandler struct {
	pipeline *service.Pipeline
	logger   *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(p *service.Pipeline, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		pipeline: p,
		logger:   logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request to the matched backend and relays its response.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		h.logger.Warn("reading request body", "err", err, "path", req.URL.Path)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "BAD_REQUEST",
			"message": "Could not read request body",
		})
	}

	in := &model.InboundRequest{
		Method:   req.Method,
		Path:     req.URL.EscapedPath(),
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
		Body:     body,
		ClientIP: c.RealIP(),
		Scheme:   scheme(req),
		Host:     hostname(req.Host),
	}

	reply, err := h.pipeline.Execute(req.Context(), in)
	if err != nil {
		return h.mapError(c, in.Path, err)
	}
	return writeReply(c, reply)
}

// writeReply emits the relayed status, headers and body exactly once.
func writeReply(c echo.Context, reply *model.Reply) error {
	header := c.Response().Header()
	for key, vals := range reply.Header {
		header[key] = append([]string(nil), vals...)
	}

	if reply.Body.Structured {
		return c.JSON(reply.StatusCode, reply.Body.Document)
	}

	c.Response().WriteHeader(reply.StatusCode)
	if len(reply.Body.Raw) == 0 {
		return nil
	}
	_, err := c.Response().Write(reply.Body.Raw)
	return err
}

func (h *ProxyHandler) mapError(c echo.Context, path string, err error) error {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   errAccessDenied,
			"message": "No token provided",
		})

	case errors.Is(err, auth.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   errAccessDenied,
			"message": "Invalid or expired token",
		})

	case errors.Is(err, auth.ErrServerMisconfigured):
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   errServerConfig,
			"message": "Token verification is not configured",
		})
	}

	var nf *route.NotFoundError
	if errors.As(err, &nf) {
		available := nf.Available
		if available == nil {
			available = []string{}
		}
		return c.JSON(http.StatusNotFound, map[string]any{
			"error":           errRouteNotFound,
			"message":         "No route found for " + path,
			"availableRoutes": available,
		})
	}

	if errors.Is(err, service.ErrUpstreamUnreachable) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error":   errServiceError,
			"message": "Service unavailable - cannot connect to target service",
			"service": path,
		})
	}

	if errors.Is(err, service.ErrUpstreamTimeout) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error":   errServiceError,
			"message": "Service unavailable - upstream request timed out",
			"service": path,
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error":   errServiceError,
		"message": "Internal gateway error",
	})
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// hostname strips the port from a Host header value.
func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
