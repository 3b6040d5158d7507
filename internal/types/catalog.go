package types

import (
	"time"

	"gorm.io/gorm"
)

type Region struct {
	gorm.Model `json:"-"`
	RegionID   string    `gorm:"uniqueIndex" json:"region_id"`
	Code       string    `gorm:"uniqueIndex" json:"code"`
	Name       string    `gorm:"uniqueIndex" json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Category struct {
	gorm.Model  `json:"-"`
	CategoryID  string    `gorm:"uniqueIndex" json:"category_id"`
	Name        string    `gorm:"uniqueIndex" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
