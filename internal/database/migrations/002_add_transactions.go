package migrations

import (
	"github.com/vintagehub/market-api/internal/payments"
	"gorm.io/gorm"
)

// AddTransactions creates the transactions table and required indexes
func AddTransactions(db *gorm.DB) error {
	// Create the transactions table
	if err := db.AutoMigrate(&payments.Transaction{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&payments.IdempotencyRecord{}); err != nil {
		return err
	}

	// Add indexes for better query performance
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Composite index for buyer history queries
		`CREATE INDEX IF NOT EXISTS idx_transactions_buyer_status
		 ON transactions(buyer_id, status)`,

		// Composite index for listing and status (common query pattern)
		`CREATE INDEX IF NOT EXISTS idx_transactions_listing_status
		 ON transactions(listing_id, status)`,

		// Index for created_at timestamp (useful for time-based queries)
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at
		 ON transactions(created_at)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
