package types

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model   `json:"-"`
	UserID       string    `gorm:"uniqueIndex" json:"user_id"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	Username     string    `gorm:"uniqueIndex" json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
