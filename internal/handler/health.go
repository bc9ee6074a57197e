package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"api-gateway-go/internal/config"
	"api-gateway-go/internal/route"
)

// Version is a string type for dependency injection of the build version.
type Version string

// isoMillis matches the timestamp layout clients of the health endpoint expect.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	table   *route.Table
	version Version
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, t *route.Table, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, table: t, version: v, now: time.Now}
}

// Health returns a liveness response. It never touches the pipeline.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":      h.cfg.Gateway.Name,
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(isoMillis),
	})
}

type routeStatus struct {
	Name     string   `json:"name"`
	Contexts []string `json:"contexts"`
	Target   string   `json:"target"`
}

// Status returns gateway build and routing information.
func (h *HealthHandler) Status(c echo.Context) error {
	routes := make([]routeStatus, 0)
	for _, r := range h.table.Routes() {
		routes = append(routes, routeStatus{Name: r.Name, Contexts: r.Contexts, Target: r.Target})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     string(h.version),
		"environment": h.cfg.Environment,
		"routes":      routes,
	})
}
