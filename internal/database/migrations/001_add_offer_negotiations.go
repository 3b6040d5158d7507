package migrations

import (
	"github.com/vintagehub/market-api/internal/offers"
	"gorm.io/gorm"
)

func AddOfferNegotiations(db *gorm.DB) error {
	if err := db.AutoMigrate(&offers.Offer{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&offers.Negotiation{}); err != nil {
		return err
	}

	return nil
}
