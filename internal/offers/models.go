package offers

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Offer struct {
	gorm.Model `json:"-"`
	OfferID    string          `gorm:"uniqueIndex" json:"offer_id"`
	ListingID  string          `gorm:"index" json:"listing_id"`
	BuyerID    string          `gorm:"index" json:"buyer_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Status     string          `json:"status"` // pending, accepted, rejected, withdrawn, expired
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Negotiation is the single channel attached to an offer. LastMessage holds
// only the most recent note, it is overwritten rather than appended.
type Negotiation struct {
	gorm.Model    `json:"-"`
	NegotiationID string    `gorm:"uniqueIndex" json:"negotiation_id"`
	OfferID       string    `gorm:"uniqueIndex" json:"offer_id"`
	ListingID     string    `gorm:"index" json:"listing_id"`
	Status        string    `json:"status"` // open, closed, cancelled
	LastMessage   string    `json:"last_message"`
	ChannelID     string    `gorm:"index" json:"channel_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
