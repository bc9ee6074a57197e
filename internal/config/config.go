// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/api-gateway/config.toml",
	"configs/config.toml",
}

// InsecureDefaultSecret is the well-known placeholder secret. It is never
// substituted for a missing secret; configuring it only raises a startup warning.
const InsecureDefaultSecret = "your-default-secret"

// EnvDevelopment is the default environment name.
const EnvDevelopment = "development"

// defaultPublicPaths are reachable without a bearer token. "/" only matches the root itself.
var defaultPublicPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/register",
	"/api/v1/auth/logout",
	"/health",
	"/",
}

// reservedPaths are served by the gateway itself and never proxied.
var reservedPaths = []string{"/health", "/gateway/status"}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config    string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host      string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port      int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	Env       string `kong:"name='env',help='Environment name, controls log verbosity (overrides config).',env='APP_ENV'"`
	JWTSecret string `kong:"name='jwt-secret',help='Token signing secret (overrides config).',env='JWT_SECRET'"`
	LogLevel  string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`

	Serve ServeCmd `kong:"cmd,default='1',help='Run the gateway.'"`
	Token TokenCmd `kong:"cmd,help='Print a signed token for local testing.'"`
}

// ServeCmd runs the gateway server.
type ServeCmd struct{}

// TokenCmd mints a bearer token signed with the configured secret.
type TokenCmd struct {
	UserID string        `kong:"name='user-id',required,help='Subject id placed in the userId claim.'"`
	Email  string        `kong:"required,help='Email claim.'"`
	Role   string        `kong:"help='Optional role claim.'"`
	TTL    time.Duration `kong:"name='ttl',default='24h',help='Token lifetime.'"`
}

// Config is the top-level application configuration.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Gateway     GatewayConfig  `toml:"gateway"`
	Auth        AuthConfig     `toml:"auth"`
	Upstream    UpstreamConfig `toml:"upstream"`
	Routes      []RouteConfig  `toml:"routes"`
	Log         LogConfig      `toml:"log"`
	Metrics     MetricsConfig  `toml:"metrics"`

	filePath       string // resolved config file path (unexported)
	insecureSecret bool   // placeholder secret configured
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string          `toml:"host"`
	Port             int             `toml:"port"` // 0 means "use default" (3000)
	BodyMaxBytes     int64           `toml:"body_max_bytes"`
	CORSAllowOrigins []string        `toml:"cors_allow_origins"`
	RateLimit        RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// GatewayConfig identifies the gateway to upstream services.
type GatewayConfig struct {
	Name string `toml:"name"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret   string   `toml:"jwt_secret"`
	Issuer      string   `toml:"issuer"` // empty disables the issuer check
	PublicPaths []string `toml:"public_paths"`
}

// UpstreamConfig holds upstream connection settings.
type UpstreamConfig struct {
	TimeoutMS       int `toml:"timeout_ms"`
	IdleConnections int `toml:"idle_connections"`
}

// Timeout returns the per-request upstream deadline.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMS) * time.Millisecond
}

// RouteConfig is one entry of the static routing table.
type RouteConfig struct {
	Name        string          `toml:"name"`
	Context     []string        `toml:"context"`
	Target      string          `toml:"target"`
	PathRewrite []RewriteConfig `toml:"path_rewrite"`
}

// RewriteConfig is a single pattern/replacement pair, applied in declaration order.
type RewriteConfig struct {
	Pattern     string `toml:"pattern"`
	Replacement string `toml:"replacement"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultRoutes returns the built-in routing table used when the config file declares none.
func DefaultRoutes() []RouteConfig {
	return []RouteConfig{
		{
			Name:    "user-service",
			Context: []string{"/api/v1/users", "/api/v1/auth"},
			Target:  "http://localhost:3001",
		},
		{
			Name:    "catalog-service",
			Context: []string{"/api/v1/catalog"},
			Target:  "http://localhost:3002",
		},
	}
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/api-gateway/config.toml then configs/config.toml, and falls back to
// built-in defaults if neither exists.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Env != "" {
		c.Environment = cli.Env
	}
	if cli.JWTSecret != "" {
		c.Auth.JWTSecret = cli.JWTSecret
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

// setDefaults fills zero-valued fields with sensible defaults.
// Integer zero means "unset" because TOML cannot distinguish an explicit 0
// from an omitted key. Negative values are left alone for validate to reject.
func (c *Config) setDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	dev := c.IsDevelopment()

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if len(c.Server.CORSAllowOrigins) == 0 {
		c.Server.CORSAllowOrigins = []string{"*"}
	}
	if c.Gateway.Name == "" {
		c.Gateway.Name = "api-gateway"
	}
	if c.Auth.PublicPaths == nil {
		c.Auth.PublicPaths = append([]string(nil), defaultPublicPaths...)
	}
	c.insecureSecret = c.Auth.JWTSecret == InsecureDefaultSecret
	if c.Upstream.TimeoutMS == 0 {
		c.Upstream.TimeoutMS = 5000
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if len(c.Routes) == 0 {
		c.Routes = DefaultRoutes()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
		if dev {
			c.Log.Level = "debug"
		}
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
		if dev {
			c.Log.Format = "text"
		}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutMS < 0 {
		return fmt.Errorf("upstream.timeout_ms must be non-negative; got %d", c.Upstream.TimeoutMS)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	for _, p := range c.Auth.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("auth.public_paths entry must start with '/'; got %q", p)
		}
	}

	if err := c.validateRoutes(); err != nil {
		return err
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// The metrics endpoint must not shadow a proxied context.
	if c.Metrics.Enabled {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		reserved := append([]string(nil), reservedPaths...)
		for _, r := range c.Routes {
			reserved = append(reserved, r.Context...)
		}
		for _, r := range reserved {
			if strings.HasPrefix(p, r) {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, r)
			}
		}
	}

	return nil
}

func (c *Config) validateRoutes() error {
	seen := make(map[string]bool, len(c.Routes))
	for i, r := range c.Routes {
		if r.Name == "" {
			return fmt.Errorf("routes[%d].name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("routes[%d].name %q is duplicated", i, r.Name)
		}
		seen[r.Name] = true

		if len(r.Context) == 0 {
			return fmt.Errorf("routes[%d] (%s) needs at least one context", i, r.Name)
		}
		for _, ctx := range r.Context {
			if !strings.HasPrefix(ctx, "/") {
				return fmt.Errorf("routes[%d] (%s) context must start with '/'; got %q", i, r.Name, ctx)
			}
		}

		u, err := url.Parse(r.Target)
		if err != nil {
			return fmt.Errorf("routes[%d] (%s) target is not a valid URL: %w", i, r.Name, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("routes[%d] (%s) target must be an absolute http(s) URL; got %q", i, r.Name, r.Target)
		}

		for j, rw := range r.PathRewrite {
			if rw.Pattern == "" {
				return fmt.Errorf("routes[%d] (%s) path_rewrite[%d].pattern is required", i, r.Name, j)
			}
		}
	}
	return nil
}

// IsDevelopment reports whether the gateway runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// InsecureSecret reports whether the placeholder signing secret is configured.
func (c *Config) InsecureSecret() bool {
	return c.insecureSecret
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}

// WarnSecret logs when the signing secret is the well-known placeholder or missing.
func (c *Config) WarnSecret(logger *slog.Logger) {
	switch {
	case c.insecureSecret:
		logger.Warn("using insecure default signing secret; set JWT_SECRET before deploying",
			"environment", c.Environment,
		)
	case c.Auth.JWTSecret == "":
		logger.Error("no signing secret configured; protected routes will fail with 500",
			"environment", c.Environment,
		)
	}
}
