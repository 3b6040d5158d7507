package offers

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetOfferByOfferID(offerID string) (*Offer, error) {
	var offer Offer
	err := d.db.Where("offer_id = ?", offerID).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

func (d *Database) GetListingByListingID(listingID string) (*types.Listing, error) {
	var listing types.Listing
	err := d.db.Where("listing_id = ?", listingID).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

func (d *Database) GetNegotiationByOfferID(offerID string) (*Negotiation, error) {
	var negotiation Negotiation
	err := d.db.Where("offer_id = ?", offerID).First(&negotiation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &negotiation, nil
}

// ListOffers returns offers newest first. Status and listing filters are
// optional. When userID is set, results are limited to offers where the
// user is the buyer or owns the listing.
func (d *Database) ListOffers(status, listingID, userID string) ([]Offer, error) {
	offers := make([]Offer, 0)

	query := d.db.Order("created_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if listingID != "" {
		query = query.Where("listing_id = ?", listingID)
	}
	if userID != "" {
		sellerListings := d.db.Model(&types.Listing{}).Select("listing_id").Where("seller_id = ?", userID)
		query = query.Where("buyer_id = ? OR listing_id IN (?)", userID, sellerListings)
	}

	if err := query.Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// CreateOfferWithNegotiation writes an offer and its negotiation channel
// in a single transaction.
func (d *Database) CreateOfferWithNegotiation(offer *Offer, negotiation *Negotiation) error {
	// Start transaction
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(offer).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create offer: %w", err)
	}

	if err := tx.Create(negotiation).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create negotiation: %w", err)
	}

	return tx.Commit().Error
}

// SaveOfferAndNegotiation persists an amended offer together with its
// negotiation in a single transaction. The negotiation may be nil when
// the offer has no channel.
func (d *Database) SaveOfferAndNegotiation(offer *Offer, negotiation *Negotiation) error {
	// Start transaction
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Save(offer).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save offer: %w", err)
	}

	if negotiation != nil {
		if err := tx.Save(negotiation).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save negotiation: %w", err)
		}
	}

	return tx.Commit().Error
}

func (d *Database) SaveNegotiation(negotiation *Negotiation) error {
	return d.db.Save(negotiation).Error
}

// ListStalePendingOffers returns pending offers with no activity since the
// cutoff, oldest first.
func (d *Database) ListStalePendingOffers(cutoff time.Time) ([]Offer, error) {
	offers := make([]Offer, 0)
	if err := d.db.Where("status = ? AND updated_at < ?", StatusPending, cutoff).
		Order("updated_at asc").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}
