package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/config"
	"github.com/vintagehub/market-api/internal/database/migrations"
	"github.com/vintagehub/market-api/internal/swaps"
	"github.com/vintagehub/market-api/internal/types"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddOfferNegotiations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddTransactions(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.User{},
		&types.Region{},
		&types.Category{},
		&types.Listing{},
		&swaps.Swap{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
