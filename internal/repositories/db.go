package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

// GormStore keeps users and scan reports in PostgreSQL through GORM.
type GormStore struct {
	db *gorm.DB
}

// gormConfig is shared by OpenPostgres and tests so both issue the same SQL.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	}
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string, log *slog.Logger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// Run migrations
	if err := db.AutoMigrate(&models.User{}, &models.ScanReport{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	log.Info("connected to postgres")
	return NewGormStore(db), nil
}

// NewGormStore wraps an already opened connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ---------- Users ----------

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&u).Error; err != nil {
		return nil, translateLookup(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if !isUUID(id) {
		return nil, common.ErrNotFound
	}
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, translateLookup(err)
	}
	return &u, nil
}

// ---------- Scan reports ----------

func (s *GormStore) CreateScan(ctx context.Context, r *models.ScanReport) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *GormStore) ListScansByUser(ctx context.Context, userID string, limit int) ([]models.ScanReport, error) {
	out := make([]models.ScanReport, 0)
	if !isUUID(userID) {
		return out, nil
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (s *GormStore) GetScanForUser(ctx context.Context, id, userID string) (*models.ScanReport, error) {
	if !isUUID(id) || !isUUID(userID) {
		return nil, common.ErrNotFound
	}
	var r models.ScanReport
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&r).Error; err != nil {
		return nil, translateLookup(err)
	}
	return &r, nil
}

// ---------- Lifecycle ----------

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUUID guards lookups on uuid columns; postgres rejects other strings with a
// cast error instead of returning no rows.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func translateLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
