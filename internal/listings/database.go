package listings

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

func (d *Database) CreateListing(listing *types.Listing) error {
	return d.db.Create(listing).Error
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

func (d *Database) ListListings(regionID, categoryID, status string) ([]types.Listing, error) {
	listings := make([]types.Listing, 0)

	query := d.db.Order("created_at desc")
	if regionID != "" {
		query = query.Where("region_id = ?", regionID)
	}
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (d *Database) UpdateListing(listing *types.Listing) error {
	return d.db.Save(listing).Error
}

func (d *Database) DeleteListing(listing *types.Listing) error {
	return d.db.Delete(listing).Error
}

func (d *Database) GetRegionByRegionID(regionID string) (*types.Region, error) {
	var region types.Region
	err := d.db.Where("region_id = ?", regionID).First(&region).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &region, nil
}

func (d *Database) GetCategoryByCategoryID(categoryID string) (*types.Category, error) {
	var category types.Category
	err := d.db.Where("category_id = ?", categoryID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}
