package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/taskwatch/internal/api/shared"
	"github.com/phrazzld/taskwatch/internal/config"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-very-long-shared-secret-for-tests-only"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	now := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	valid := jwt.RegisteredClaims{
		Subject:   "chat-bridge",
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-10 * time.Minute))
	noSubject := valid
	noSubject.Subject = ""
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name            string
		authHeader      string
		expectedStatus  int
		expectedSubject string
		expectedBody    string
	}{
		{
			name:            "valid token",
			authHeader:      "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid),
			expectedStatus:  http.StatusOK,
			expectedSubject: "chat-bridge",
		},
		{
			name:           "missing header",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Authorization header required",
		},
		{
			name:           "wrong scheme",
			authHeader:     "Basic abc",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid authorization format",
		},
		{
			name:           "expired token",
			authHeader:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Token expired",
		},
		{
			name:           "wrong secret",
			authHeader:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("another-secret-that-is-long-enough!!"), valid),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid token",
		},
		{
			name:           "wrong algorithm",
			authHeader:     "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), valid),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid token",
		},
		{
			name:           "missing subject",
			authHeader:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid token",
		},
		{
			name:           "missing expiry",
			authHeader:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid token",
		},
		{
			name:           "garbage token",
			authHeader:     "Bearer not.a.jwt",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, l := logger.NewTestLogger(t)
			mw := NewAuthMiddleware(config.AuthConfig{JWTSecret: testSecret}, l).
				WithClock(func() time.Time { return now })

			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = shared.GetSubject(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedSubject, subject)
			if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestNewAuthMiddlewarePanicsWithoutLogger(t *testing.T) {
	assert.Panics(t, func() {
		NewAuthMiddleware(config.AuthConfig{JWTSecret: testSecret}, nil)
	})
}

func TestTraceMiddleware(t *testing.T) {
	buf, l := logger.NewTestLogger(t)

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	NewTraceMiddleware(l)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, traceID, 32)
	logger.AssertLogContains(t, buf, `"trace_id":"`+traceID+`"`)
	logger.AssertLogContains(t, buf, "inside handler")
}
