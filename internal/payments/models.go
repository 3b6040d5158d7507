package payments

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction records a checkout against the payment provider. Listing
// and buyer references are plain IDs so a transaction survives deletion
// of either side. ClientSecret is kept for idempotent replays and never
// serialized outside the checkout response.
type Transaction struct {
	gorm.Model              `json:"-"`
	TransactionID           string          `gorm:"uniqueIndex" json:"transaction_id"`
	Amount                  decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Currency                string          `json:"currency"`
	Status                  string          `json:"status"` // pending, succeeded, failed, refunded
	Provider                string          `json:"provider"`
	ProviderPaymentIntentID string          `gorm:"index" json:"provider_payment_intent_id"`
	ClientSecret            string          `json:"-"`
	ListingID               string          `gorm:"index" json:"listing_id"`
	BuyerID                 string          `gorm:"index" json:"buyer_id"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

type IdempotencyRecord struct {
	gorm.Model
	IdempotencyKey string    `gorm:"uniqueIndex" json:"idempotency_key"`
	ResourceID     string    `json:"resource_id"`
	ResourceType   string    `json:"resource_type"`
	ExpiresAt      time.Time `json:"expires_at"`
}
