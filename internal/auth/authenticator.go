// Package auth verifies bearer tokens at the gateway edge and carries the
// resulting identity through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"api-gateway-go/internal/config"
)

// Sentinel errors returned by Authenticate.
var (
	// ErrMissingToken indicates an absent or non-Bearer Authorization header.
	ErrMissingToken = errors.New("no token provided")

	// ErrInvalidToken indicates a bad signature, an expired token, or unusable claims.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrServerMisconfigured indicates that no signing secret is configured.
	ErrServerMisconfigured = errors.New("signing secret is not configured")
)

const bearerPrefix = "Bearer "

// hmacMethods restricts verification to shared-secret algorithms.
var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Identity is the caller identity decoded from a verified token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Authenticator gates non-public paths on a valid bearer token.
type Authenticator struct {
	secret      []byte
	publicPaths []string
	parser      *jwt.Parser
	logger      *slog.Logger
}

// NewAuthenticator creates an Authenticator from the auth config section.
func NewAuthenticator(cfg *config.Config, logger *slog.Logger) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(hmacMethods),
		jwt.WithJSONNumber(),
	}
	if cfg.Auth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Auth.Issuer))
	}
	return &Authenticator{
		secret:      []byte(cfg.Auth.JWTSecret),
		publicPaths: append([]string(nil), cfg.Auth.PublicPaths...),
		parser:      jwt.NewParser(opts...),
		logger:      logger.With("component", "authenticator"),
	}
}

// IsPublic reports whether path bypasses verification. The root entry "/"
// matches only the root path; every other entry is a prefix.
func (a *Authenticator) IsPublic(path string) bool {
	for _, p := range a.publicPaths {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Authenticate verifies the Authorization header for path.
// A public path yields (nil, nil).
func (a *Authenticator) Authenticate(path, authorization string) (*Identity, error) {
	if a.IsPublic(path) {
		return nil, nil
	}

	token, ok := strings.CutPrefix(authorization, bearerPrefix)
	if !ok || token == "" {
		return nil, ErrMissingToken
	}

	if len(a.secret) == 0 {
		a.logger.Error("signing secret is not configured", "path", path)
		return nil, ErrServerMisconfigured
	}

	claims := &Claims{}
	if _, err := a.parser.ParseWithClaims(token, claims, a.keyFunc); err != nil {
		a.logger.Debug("token rejected", "path", path, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id := claims.Identity()
	if id.UserID == "" {
		return nil, fmt.Errorf("%w: token has no subject claim", ErrInvalidToken)
	}
	return id, nil
}

func (a *Authenticator) keyFunc(_ *jwt.Token) (any, error) {
	return a.secret, nil
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached to ctx, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
