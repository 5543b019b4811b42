package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/credentials"
	"github.com/rohits-web03/radiologix/internal/logging"
)

type stubVerifier map[string]error

var bob = &credentials.Identity{ID: "u1", Email: "bob@x.com", Name: "Bob"}

func (s stubVerifier) Verify(_ context.Context, token string) (*credentials.Identity, error) {
	err, ok := s[token]
	if !ok {
		return nil, common.ErrMalformedOrTamperedToken
	}
	if err != nil {
		return nil, err
	}
	return bob, nil
}

func protected(t *testing.T, log *slog.Logger) http.Handler {
	t.Helper()
	verifier := stubVerifier{
		"good":    nil,
		"expired": common.ErrExpiredToken,
		"gone":    common.ErrUnknownSubject,
		"broken":  errors.New("db down"),
	}
	return Auth(verifier, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(id.Email))
	}))
}

func TestAuth(t *testing.T) {
	h := protected(t, logging.Discard())

	tests := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"bearer", "Bearer good", "", http.StatusOK},
		{"lowercase scheme", "bearer good", "", http.StatusOK},
		{"cookie fallback", "", "good", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", "good", http.StatusUnauthorized},
		{"malformed", "Bearer nope", "", http.StatusUnauthorized},
		{"expired", "Bearer expired", "", http.StatusUnauthorized},
		{"unknown subject", "Bearer gone", "", http.StatusUnauthorized},
		{"resolver failure", "Bearer broken", "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			switch tt.status {
			case http.StatusOK:
				assert.Equal(t, bob.Email, rec.Body.String())
			case http.StatusUnauthorized:
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				assert.JSONEq(t, `{"success":false,"message":"Could not validate credentials"}`, rec.Body.String())
			}
		})
	}
}

func TestAuth_FailureKindsAreIndistinguishable(t *testing.T) {
	h := protected(t, logging.Discard())

	var bodies []string
	for _, tok := range []string{"nope", "expired", "gone"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		bodies = append(bodies, rec.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[1], bodies[2])
}

func TestAuth_LogsFailureKind(t *testing.T) {
	var buf bytes.Buffer
	h := protected(t, slog.New(slog.NewTextHandler(&buf, nil)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), "kind=expired")
	assert.NotContains(t, buf.String(), "Bearer expired")
}

func TestAuth_OptionsPassesThrough(t *testing.T) {
	h := protected(t, logging.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestIdentityFrom(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	got, ok := IdentityFrom(WithIdentity(context.Background(), bob))
	require.True(t, ok)
	assert.Equal(t, bob, got)
}

func TestLoggerAndRecover(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(log)(Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scans", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "panic=boom")
	assert.Contains(t, buf.String(), "status=500")
	assert.Contains(t, buf.String(), "path=/api/scans")
}
