// Package scans stores the scan reports users upload. Every operation is
// scoped to the owning user; a report owned by someone else looks exactly
// like a missing one.
package scans

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/models"
	"github.com/rohits-web03/radiologix/internal/utils"
)

const (
	// ListLimit caps how many reports List returns.
	ListLimit = 1000

	maxScanTypeLen = 64
)

type Store interface {
	CreateScan(ctx context.Context, s *models.ScanReport) error
	ListScansByUser(ctx context.Context, userID string, limit int) ([]models.ScanReport, error)
	GetScanForUser(ctx context.Context, id, userID string) (*models.ScanReport, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateReport returns the analysis text attached to a new report. No
// image analysis is performed.
func GenerateReport(scanType string) string {
	return fmt.Sprintf("AI Analysis for %s scan: This is a placeholder AI-generated report. "+
		"The image shows normal anatomical structures with no apparent abnormalities detected. "+
		"Further clinical correlation is recommended.", scanType)
}

// Create stores a new report for ownerID.
func (s *Service) Create(ctx context.Context, ownerID, scanType, imageData string) (*models.ScanReport, error) {
	scanType = strings.TrimSpace(scanType)
	if scanType == "" {
		return nil, fmt.Errorf("%w: scan_type is required", common.ErrValidation)
	}
	if utf8.RuneCountInString(scanType) > maxScanTypeLen {
		return nil, fmt.Errorf("%w: scan_type must be at most %d characters", common.ErrValidation, maxScanTypeLen)
	}
	imageData = strings.TrimSpace(imageData)
	if err := ValidateImageData(imageData); err != nil {
		return nil, err
	}

	report := &models.ScanReport{
		ID:        utils.NewID(),
		UserID:    ownerID,
		ScanType:  scanType,
		ImageData: imageData,
		AIReport:  GenerateReport(scanType),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateScan(ctx, report); err != nil {
		return nil, fmt.Errorf("create scan: %w", err)
	}
	return report, nil
}

// List returns the owner's reports, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.ScanReport, error) {
	out, err := s.store.ListScansByUser(ctx, ownerID, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return out, nil
}

// Get returns one report. Missing and foreign reports both fail with
// common.ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.ScanReport, error) {
	r, err := s.store.GetScanForUser(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return r, nil
}

// ValidateImageData accepts standard base64, optionally wrapped in a
// data:<mime>;base64, URL.
func ValidateImageData(data string) error {
	if data == "" {
		return fmt.Errorf("%w: image_data is required", common.ErrValidation)
	}

	payload := data
	if strings.HasPrefix(data, "data:") {
		header, rest, ok := strings.Cut(data, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return fmt.Errorf("%w: image_data must be a base64 data URL", common.ErrValidation)
		}
		payload = rest
	}

	if payload == "" {
		return fmt.Errorf("%w: image_data is empty", common.ErrValidation)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return fmt.Errorf("%w: image_data is not valid base64", common.ErrValidation)
	}
	return nil
}

// EncodeDataURL wraps raw image bytes in a base64 data URL.
func EncodeDataURL(contentType string, raw []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}
