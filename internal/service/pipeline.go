package service

import (
	"context"
	"errors"
	"log/slog"

	"api-gateway-go/internal/auth"
	"api-gateway-go/internal/metrics"
	"api-gateway-go/internal/model"
	"api-gateway-go/internal/route"
)

// Pipeline runs Authenticating → Routing → Dispatching → Relaying for each
// inbound request. It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	auth    *auth.Authenticator
	router  *route.Router
	proxy   *ProxyService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPipeline creates a Pipeline. The metrics parameter is optional.
func NewPipeline(a *auth.Authenticator, r *route.Router, p *ProxyService, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		auth:    a,
		router:  r,
		proxy:   p,
		logger:  logger.With("component", "pipeline"),
		metrics: m,
	}
}

// Execute produces exactly one outcome for in: a reply to relay, or a
// *StageError naming the stage that failed.
func (p *Pipeline) Execute(ctx context.Context, in *model.InboundRequest) (*model.Reply, error) {
	id, err := p.auth.Authenticate(in.Path, in.Header.Get("Authorization"))
	if err != nil {
		return nil, p.fail(ctx, StageAuthenticating, in, err)
	}
	if id != nil {
		ctx = auth.WithIdentity(ctx, id)
	}

	match, err := p.router.Route(in.Path)
	if err != nil {
		return nil, p.fail(ctx, StageRouting, in, err)
	}

	fr := p.proxy.BuildRequest(ctx, in, match)
	resp, err := p.proxy.Forward(ctx, fr, match)
	if err != nil {
		return nil, p.fail(ctx, StageDispatching, in, err)
	}

	reply := Relay(resp)
	p.logger.Debug("request completed",
		"method", in.Method,
		"path", in.Path,
		"service", match.Route.Name,
		"upstream_path", match.Path,
		"status", reply.StatusCode,
	)
	return reply, nil
}

func (p *Pipeline) fail(ctx context.Context, stage Stage, in *model.InboundRequest, err error) error {
	kind := FailureKind(err)
	level := slog.LevelWarn
	if stage == StageDispatching || errors.Is(err, auth.ErrServerMisconfigured) {
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, "request failed",
		"stage", string(stage),
		"kind", kind,
		"method", in.Method,
		"path", in.Path,
		"err", err,
	)
	if p.metrics != nil {
		p.metrics.PipelineFailures.WithLabelValues(kind).Inc()
	}
	return &StageError{Stage: stage, Err: err}
}

// FailureKind returns a bounded label describing err.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, auth.ErrServerMisconfigured):
		return "server_misconfigured"
	case errors.Is(err, route.ErrRouteNotFound):
		return "route_not_found"
	case errors.Is(err, ErrUpstreamUnreachable):
		return "upstream_unreachable"
	case errors.Is(err, ErrUpstreamTimeout):
		return "upstream_timeout"
	default:
		return "upstream_error"
	}
}
