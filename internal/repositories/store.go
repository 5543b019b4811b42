// Package repositories holds the storage backends for users and scan reports.
// Open picks a backend from the scheme of the configured database URL.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/rohits-web03/radiologix/internal/config"
	"github.com/rohits-web03/radiologix/internal/models"
)

var ErrUnsupportedDatabase = errors.New("unsupported database url")

// Store is implemented by every backend.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Scan reports
	CreateScan(ctx context.Context, s *models.ScanReport) error
	ListScansByUser(ctx context.Context, userID string, limit int) ([]models.ScanReport, error)
	GetScanForUser(ctx context.Context, id, userID string) (*models.ScanReport, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*GormStore)(nil)
	_ Store = (*MongoStore)(nil)
)

// Open connects to the backend named by cfg.DatabaseURL.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (Store, error) {
	scheme, err := Backend(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return NewMemory(), nil
	case "postgres":
		return OpenPostgres(cfg.DatabaseURL, log)
	case "mongodb":
		return OpenMongo(ctx, cfg.DatabaseURL, cfg.DatabaseName, cfg.Mongo, log)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDatabase, scheme)
}

// Backend maps a database URL to the backend that serves it.
func Backend(rawURL string) (string, error) {
	if rawURL == "" {
		return "memory", nil
	}
	// libpq keyword/value DSN, e.g. "host=db user=app dbname=radiologix"
	if !strings.Contains(rawURL, "://") && strings.Contains(rawURL, "=") {
		return "postgres", nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedDatabase, err)
	}

	switch u.Scheme {
	case "memory":
		return "memory", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mongodb", "mongodb+srv":
		return "mongodb", nil
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedDatabase, u.Scheme)
	}
}
