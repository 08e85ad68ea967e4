package models

import (
	"time"

	"gorm.io/gorm"
)

// Base carries the standard ID, timestamp and soft-delete columns with
// snake_case JSON keys. DeletedAt never appears in responses.
type Base struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
