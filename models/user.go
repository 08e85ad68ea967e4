package models

// User represents a user account in the system
type User struct {
	Base

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Username     string `gorm:"not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
}
