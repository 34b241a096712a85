package models

import (
	"time"
)

// User is an identity record. Admin status is never granted through the
// API; it is seeded at startup or set directly in storage.
type User struct {
	UserID       uint64 `gorm:"primaryKey;autoIncrement" json:"user_id"`
	Username     string `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Name         string `gorm:"size:255" json:"name"`
	IsAdmin      bool   `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
