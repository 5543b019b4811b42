package models

import (
	"time"
)

type ScanReport struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey" bson:"id"`
	UserID    string    `json:"user_id" gorm:"type:uuid;index:idx_scan_reports_owner;not null" bson:"user_id"` // owner
	ScanType  string    `json:"scan_type" gorm:"not null" bson:"scan_type"`
	ImageData string    `json:"image_data" gorm:"type:text;not null" bson:"image_data"` // base64 or data URL
	AIReport  string    `json:"ai_report" gorm:"type:text;not null" bson:"ai_report"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_scan_reports_owner;not null" bson:"created_at"`
}
