package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/models"
)

func TestMemory_Users(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u := &models.User{ID: "u-1", Email: "a@x.com", Name: "A", PasswordHash: "hash"}
	require.NoError(t, m.CreateUser(ctx, u))

	assert.ErrorIs(t, m.CreateUser(ctx, &models.User{ID: "u-2", Email: "a@x.com"}), common.ErrAlreadyExists)
	assert.ErrorIs(t, m.CreateUser(ctx, &models.User{ID: "u-1", Email: "b@x.com"}), common.ErrAlreadyExists)

	got, err := m.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	// returned records are copies
	got.Name = "changed"
	again, err := m.GetUserByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)

	_, err = m.GetUserByEmail(ctx, "b@x.com")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, m.DeleteUser(ctx, "u-1"))
	_, err = m.GetUserByID(ctx, "u-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = m.GetUserByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, m.DeleteUser(ctx, "u-1"), common.ErrNotFound)

	// the email is free again after deletion
	assert.NoError(t, m.CreateUser(ctx, &models.User{ID: "u-3", Email: "a@x.com"}))
}

func TestMemory_Scans(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.CreateScan(ctx, &models.ScanReport{
			ID:        fmt.Sprintf("s-%d", i),
			UserID:    "owner",
			ScanType:  "xray",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, m.CreateScan(ctx, &models.ScanReport{ID: "other-scan", UserID: "other", CreatedAt: base}))
	assert.ErrorIs(t, m.CreateScan(ctx, &models.ScanReport{ID: "s-0", UserID: "owner"}), common.ErrAlreadyExists)

	list, err := m.ListScansByUser(ctx, "owner", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"s-2", "s-1", "s-0"}, []string{list[0].ID, list[1].ID, list[2].ID})

	limited, err := m.ListScansByUser(ctx, "owner", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	empty, err := m.ListScansByUser(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	got, err := m.GetScanForUser(ctx, "s-1", "owner")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)

	_, err = m.GetScanForUser(ctx, "other-scan", "owner")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = m.GetScanForUser(ctx, "missing", "owner")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
