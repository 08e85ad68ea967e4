package models

import (
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Workspace{},
		&WorkspaceMember{},
		&Project{},
		&Issue{},
		&Comment{},
	)
}
