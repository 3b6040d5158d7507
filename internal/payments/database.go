package payments

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

func (d *Database) CreateTransaction(transaction *Transaction) error {
	return d.db.Create(transaction).Error
}

// CreateTransactionWithIdempotency creates a transaction and its
// idempotency record in a single transaction.
func (d *Database) CreateTransactionWithIdempotency(transaction *Transaction, idempotencyKey string) error {
	// Begin transaction
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(transaction).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	record := IdempotencyRecord{
		IdempotencyKey: idempotencyKey,
		ResourceID:     transaction.TransactionID,
		ResourceType:   "transaction",
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}

	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create idempotency record: %w", err)
	}

	return tx.Commit().Error
}

// GetIdempotencyRecord retrieves an idempotency record by key
func (d *Database) GetIdempotencyRecord(key string) (*IdempotencyRecord, error) {
	var record IdempotencyRecord
	if err := d.db.Where("idempotency_key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (d *Database) GetTransactionByTransactionID(transactionID string) (*Transaction, error) {
	var transaction Transaction
	if err := d.db.Where("transaction_id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

func (d *Database) GetTransactionByProviderIntentID(intentID string) (*Transaction, error) {
	var transaction Transaction
	if err := d.db.Where("provider_payment_intent_id = ?", intentID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

func (d *Database) UpdateTransaction(transaction *Transaction) error {
	return d.db.Save(transaction).Error
}

func (d *Database) ListTransactions(status, listingID, buyerID string) ([]Transaction, error) {
	transactions := make([]Transaction, 0)

	query := d.db.Order("created_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if listingID != "" {
		query = query.Where("listing_id = ?", listingID)
	}
	if buyerID != "" {
		query = query.Where("buyer_id = ?", buyerID)
	}

	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (d *Database) GetListingByListingID(listingID string) (*types.Listing, error) {
	var listing types.Listing
	if err := d.db.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}
