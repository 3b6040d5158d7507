package swaps

import (
	"time"

	"gorm.io/gorm"
)

// Swap is anchored on the recipient's listing so the recipient can query
// proposals made against their items.
type Swap struct {
	gorm.Model     `json:"-"`
	SwapID         string    `gorm:"uniqueIndex" json:"swap_id"`
	ListingID      string    `gorm:"index" json:"listing_id"`
	InitiatorID    string    `gorm:"index" json:"initiator_id"`
	CounterpartyID string    `gorm:"index" json:"counterparty_id"`
	Status         string    `json:"status"` // proposed, accepted, rejected, completed, cancelled
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
