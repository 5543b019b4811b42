package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/config"
	"github.com/rohits-web03/radiologix/internal/logging"
	"github.com/rohits-web03/radiologix/internal/models"
)

// newMongoStore connects to MONGODB_TEST_URI with a throwaway database that is
// dropped when the test ends.
func newMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := "radiologix_test_" + uuid.NewString()[:8]
	cfg := config.MongoConfig{ConnectTimeout: 5 * time.Second, MaxPoolSize: 10, RetryAttempts: 1}
	store, err := OpenMongo(ctx, uri, dbName, cfg, logging.Discard())
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.client.Database(dbName).Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestMongo_EnsureIndexes(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()

	// Idempotent on an existing database.
	require.NoError(t, store.EnsureIndexes(ctx))

	names := func(specs []bson.M) []string {
		var out []string
		for _, s := range specs {
			out = append(out, s["name"].(string))
		}
		return out
	}

	cur, err := store.users.Indexes().List(ctx)
	require.NoError(t, err)
	var userIdx []bson.M
	require.NoError(t, cur.All(ctx, &userIdx))
	assert.Subset(t, names(userIdx), []string{"email_1", "id_1"})

	cur, err = store.scans.Indexes().List(ctx)
	require.NoError(t, err)
	var scanIdx []bson.M
	require.NoError(t, cur.All(ctx, &scanIdx))
	assert.Subset(t, names(scanIdx), []string{"id_1", "user_id_1_created_at_-1"})
}

func TestMongo_Users(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()

	u := &models.User{
		ID:           uuid.NewString(),
		Email:        "a@x.com",
		Name:         "A",
		PasswordHash: "hash",
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateUser(ctx, u))

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, store.CreateUser(ctx, &dup), common.ErrAlreadyExists)

	got, err := store.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

	got, err = store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = store.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMongo_Scans(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		r := &models.ScanReport{
			ID:        uuid.NewString(),
			UserID:    "alice",
			ScanType:  "CT",
			ImageData: "aGVsbG8=",
			AIReport:  "report",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.CreateScan(ctx, r))
		ids = append(ids, r.ID)
	}
	foreign := &models.ScanReport{ID: uuid.NewString(), UserID: "bob", ScanType: "MRI", ImageData: "aGVsbG8=", AIReport: "report", CreatedAt: base}
	require.NoError(t, store.CreateScan(ctx, foreign))

	list, err := store.ListScansByUser(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)

	all, err := store.ListScansByUser(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.ListScansByUser(ctx, "carol", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	got, err := store.GetScanForUser(ctx, ids[0], "alice")
	require.NoError(t, err)
	assert.Equal(t, "CT", got.ScanType)

	_, err = store.GetScanForUser(ctx, foreign.ID, "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetScanForUser(ctx, foreign.ID, "bob")
	assert.NoError(t, err)

	require.NoError(t, store.Ping(ctx))
}
