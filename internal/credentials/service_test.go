package credentials_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/credentials"
	"github.com/rohits-web03/radiologix/internal/models"
	"github.com/rohits-web03/radiologix/internal/repositories"
)

func newService(t *testing.T) (*credentials.Service, *repositories.MemoryStore) {
	t.Helper()
	store := repositories.NewMemory()
	svc, err := credentials.NewService(store, credentials.WithCost(bcrypt.MinCost))
	require.NoError(t, err)
	return svc, store
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	store := repositories.NewMemory()
	svc, err := credentials.NewService(store,
		credentials.WithCost(bcrypt.MinCost),
		credentials.WithClock(func() time.Time { return created }),
	)
	require.NoError(t, err)

	id, err := svc.Register(context.Background(), "  A@X.com ", "A", "pw1")
	require.NoError(t, err)

	assert.NotEmpty(t, id.ID)
	assert.Equal(t, "a@x.com", id.Email)
	assert.Equal(t, "A", id.Name)
	assert.Equal(t, created, id.CreatedAt)

	stored, err := store.GetUserByID(context.Background(), id.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "pw1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw1")))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "A", "pw1")
	require.NoError(t, err)

	for _, tc := range []struct{ email, name, password string }{
		{"a@x.com", "A", "pw1"},
		{"a@x.com", "Someone Else", "other"},
		{"A@X.COM", "Upper", "pw2"},
	} {
		_, err := svc.Register(ctx, tc.email, tc.name, tc.password)
		assert.ErrorIs(t, err, common.ErrDuplicateCredential, "email %q", tc.email)
	}

	// The failed attempts must not replace the original password.
	_, err = svc.VerifyLogin(ctx, "a@x.com", "pw1")
	assert.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	tests := []struct {
		name                  string
		email, user, password string
	}{
		{"empty email", "", "A", "pw"},
		{"bad email", "not-an-email", "A", "pw"},
		{"display name in email", "A <a@x.com>", "A", "pw"},
		{"empty name", "a@x.com", "  ", "pw"},
		{"empty password", "a@x.com", "A", ""},
		{"long password", "a@x.com", "A", strings.Repeat("x", 73)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.user, tt.password)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "race@x.com", "R", "pw")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, common.ErrDuplicateCredential):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dupes)
}

func TestVerifyLogin_RoundTrip(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.com", "A", "pw1")
	require.NoError(t, err)

	got, err := svc.VerifyLogin(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, got.ID)
	assert.Equal(t, registered.Email, got.Email)

	got, err = svc.VerifyLogin(ctx, " A@x.COM", "pw1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, got.ID)
}

func TestVerifyLogin_Failures(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "A", "pw1")
	require.NoError(t, err)

	for _, wrong := range []string{"", "pw", "pw2", "PW1", "pw1 "} {
		_, err := svc.VerifyLogin(ctx, "a@x.com", wrong)
		assert.ErrorIs(t, err, common.ErrInvalidCredentials, "password %q", wrong)
	}

	_, unknownErr := svc.VerifyLogin(ctx, "nobody@x.com", "pw1")
	_, wrongErr := svc.VerifyLogin(ctx, "a@x.com", "nope")
	assert.ErrorIs(t, unknownErr, common.ErrInvalidCredentials)
	assert.Equal(t, wrongErr, unknownErr, "unknown email and wrong password must be indistinguishable")
}

func TestFindByID(t *testing.T) {
	t.Parallel()
	svc, store := newService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.com", "A", "pw1")
	require.NoError(t, err)

	got, err := svc.FindByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, registered, got)

	require.NoError(t, store.DeleteUser(ctx, registered.ID))
	_, err = svc.FindByID(ctx, registered.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

type failingStore struct{}

func (failingStore) CreateUser(context.Context, *models.User) error { return errors.New("db down") }
func (failingStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("db down")
}
func (failingStore) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, errors.New("db down")
}

func TestService_StoreErrorsAreNotCredentialErrors(t *testing.T) {
	t.Parallel()
	svc, err := credentials.NewService(failingStore{}, credentials.WithCost(bcrypt.MinCost))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Register(ctx, "a@x.com", "A", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrDuplicateCredential)

	_, err = svc.VerifyLogin(ctx, "a@x.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = svc.FindByID(ctx, "id")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}
