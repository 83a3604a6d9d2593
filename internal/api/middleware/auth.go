package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/taskwatch/internal/api/shared"
	"github.com/phrazzld/taskwatch/internal/config"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/redact"
)

// defaultLeeway tolerates clock drift between the token issuer and this service.
const defaultLeeway = 2 * time.Minute

// AuthMiddleware verifies HS256 bearer tokens issued with the shared secret.
// The chat transport is the only client; its identity is the token subject.
type AuthMiddleware struct {
	signingKey []byte
	leeway     time.Duration
	timeFunc   func() time.Time
	logger     *slog.Logger
}

// NewAuthMiddleware creates an AuthMiddleware for the configured secret.
func NewAuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AuthMiddleware")
	}
	return &AuthMiddleware{
		signingKey: []byte(cfg.JWTSecret),
		leeway:     defaultLeeway,
		timeFunc:   time.Now,
		logger:     logger.With(slog.String("component", "auth_middleware")),
	}
}

// WithClock replaces the validation clock. Used by tests.
func (m *AuthMiddleware) WithClock(now func() time.Time) *AuthMiddleware {
	m.timeFunc = now
	return m
}

// Authenticate validates the bearer token in the Authorization header and
// stores its subject in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContextOrDefault(r.Context(), m.logger)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		subject, err := m.validate(token)
		if err != nil {
			log.Debug("bearer token rejected", slog.String("error", redact.Error(err)))
			if errors.Is(err, jwt.ErrTokenExpired) {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
				return
			}
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.WithSubject(r.Context(), subject)))
	})
}

func (m *AuthMiddleware) validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			return m.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.timeFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
