package models

import (
	"time"
)

// User is the stored credential record. PasswordHash never leaves the
// credentials package.
type User struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey" bson:"id"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null" bson:"email"`
	Name         string    `json:"name" gorm:"not null" bson:"name"`
	PasswordHash string    `json:"-" gorm:"not null" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null" bson:"created_at"`
}
