package catalog

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

func (d *Database) ListRegions() ([]types.Region, error) {
	regions := make([]types.Region, 0)
	if err := d.db.Order("name asc").Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

func (d *Database) ListCategories() ([]types.Category, error) {
	categories := make([]types.Category, 0)
	if err := d.db.Order("name asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (d *Database) GetRegionByCode(code string) (*types.Region, error) {
	var region types.Region
	err := d.db.Where("code = ?", code).First(&region).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &region, nil
}

func (d *Database) GetCategoryByName(name string) (*types.Category, error) {
	var category types.Category
	err := d.db.Where("name = ?", name).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (d *Database) CreateRegion(region *types.Region) error {
	return d.db.Create(region).Error
}

func (d *Database) CreateCategory(category *types.Category) error {
	return d.db.Create(category).Error
}
