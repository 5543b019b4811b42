package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/models"
)

// MemoryStore is a thread-safe in-memory Store for tests and local runs.
// Records are copied on the way in and out.
type MemoryStore struct {
	mu sync.RWMutex

	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User

	scans map[string]*models.ScanReport
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[string]*models.User),
		scans:        make(map[string]*models.ScanReport),
	}
}

// ---------- Users ----------

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usersByEmail[u.Email]; exists {
		return common.ErrAlreadyExists
	}
	if _, exists := m.usersByID[u.ID]; exists {
		return common.ErrAlreadyExists
	}

	cp := *u
	m.usersByEmail[u.Email] = &cp
	m.usersByID[u.ID] = &cp
	return nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.usersByID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// DeleteUser removes a user record. Tokens already issued for it stop
// resolving.
func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.usersByID[id]
	if !ok {
		return common.ErrNotFound
	}
	delete(m.usersByID, id)
	delete(m.usersByEmail, u.Email)
	return nil
}

// ---------- Scan reports ----------

func (m *MemoryStore) CreateScan(_ context.Context, s *models.ScanReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.scans[s.ID]; exists {
		return common.ErrAlreadyExists
	}
	cp := *s
	m.scans[s.ID] = &cp
	return nil
}

func (m *MemoryStore) ListScansByUser(_ context.Context, userID string, limit int) ([]models.ScanReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ScanReport, 0)
	for _, s := range m.scans {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetScanForUser(_ context.Context, id, userID string) (*models.ScanReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scans[id]
	if !ok || s.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close(context.Context) error { return nil }
