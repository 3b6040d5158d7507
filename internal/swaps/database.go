package swaps

import (
	"errors"

	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateSwap(swap *Swap) error {
	return d.db.Create(swap).Error
}

func (d *Database) GetSwapBySwapID(swapID string) (*Swap, error) {
	var swap Swap
	err := d.db.Where("swap_id = ?", swapID).First(&swap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &swap, nil
}

func (d *Database) UpdateSwap(swap *Swap) error {
	return d.db.Save(swap).Error
}

func (d *Database) ListSwaps(status, userID string) ([]Swap, error) {
	swaps := make([]Swap, 0)

	query := d.db.Order("created_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if userID != "" {
		query = query.Where("initiator_id = ? OR counterparty_id = ?", userID, userID)
	}

	if err := query.Find(&swaps).Error; err != nil {
		return nil, err
	}
	return swaps, nil
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

func (d *Database) GetUserByUserID(userID string) (*types.User, error) {
	var user types.User
	err := d.db.Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
