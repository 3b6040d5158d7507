package types

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Listing lifecycle states. Active listings may return to draft, every
// other transition only moves forward.
const (
	ListingStatusDraft    = "draft"
	ListingStatusActive   = "active"
	ListingStatusSold     = "sold"
	ListingStatusArchived = "archived"
)

// Listing represents an item offered for sale on the marketplace
type Listing struct {
	gorm.Model  `json:"-"`
	ListingID   string          `gorm:"uniqueIndex" json:"listing_id"`
	SellerID    string          `gorm:"index" json:"seller_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"` // draft, active, sold, archived
	RegionID    string          `gorm:"index" json:"region_id"`
	CategoryID  string          `gorm:"index" json:"category_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
