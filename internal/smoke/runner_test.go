package smoke_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohits-web03/radiologix/internal/api"
	"github.com/rohits-web03/radiologix/internal/config"
	"github.com/rohits-web03/radiologix/internal/credentials"
	"github.com/rohits-web03/radiologix/internal/logging"
	"github.com/rohits-web03/radiologix/internal/repositories"
	"github.com/rohits-web03/radiologix/internal/scans"
	"github.com/rohits-web03/radiologix/internal/smoke"
	"github.com/rohits-web03/radiologix/internal/tokens"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{MaxUploadBytes: 1 << 20, AllowedOrigins: []string{"*"}}

	store := repositories.NewMemory()
	users, err := credentials.NewService(store, credentials.WithCost(bcrypt.MinCost))
	require.NoError(t, err)
	tok, err := tokens.NewService([]byte("smoke-secret"), time.Hour, users)
	require.NoError(t, err)

	srv := httptest.NewServer(api.SetupRouter(api.Deps{
		Config:      cfg,
		Log:         logging.Discard(),
		Credentials: users,
		Tokens:      tok,
		Scans:       scans.NewService(store),
		Store:       store,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	srv := newServer(t)

	r := smoke.NewRunner(srv.URL, srv.Client(), logging.Discard())
	assert.NoError(t, r.Run(context.Background()))

	// A second run registers a fresh user and passes again.
	assert.NoError(t, r.Run(context.Background()))
}

func TestRun_ReportsFailingStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Radiologix API - Advanced Radiology Solutions"}`))
	}))
	defer srv.Close()

	err := smoke.NewRunner(srv.URL, srv.Client(), logging.Discard()).Run(context.Background())
	require.Error(t, err)

	var stepErr *smoke.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "health", stepErr.Step)
}
