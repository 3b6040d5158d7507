package payments

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/types"
	"github.com/vintagehub/market-api/pkg/response"
)

const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

var (
	ErrListingNotFound     = errors.New("listing not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotBuyer            = errors.New("user is not the transaction buyer")
)

type CheckoutRequest struct {
	ListingID string            `json:"listing_id"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency" binding:"omitempty,len=3"`
	Metadata  map[string]string `json:"metadata"`
}

type CheckoutResponse struct {
	Provider        string       `json:"provider"`
	ClientSecret    string       `json:"client_secret"`
	PaymentIntentID string       `json:"payment_intent_id"`
	Transaction     *Transaction `json:"transaction"`
}

// WebhookAck is returned to the provider for every delivery. Action names
// what was done with the event: set_status_<status>, no_status_change or
// transaction_not_found.
type WebhookAck struct {
	Received      bool   `json:"received"`
	Verified      bool   `json:"verified"`
	Action        string `json:"action,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Note          string `json:"note,omitempty"`
}

type Service struct {
	db      *Database
	gateway *Gateway
}

func NewService(gormDB *gorm.DB, gateway *Gateway) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		gateway: gateway,
	}
}

// Checkout creates a provider payment intent and records a pending
// transaction referencing it. The listing reference is optional, direct
// amount checkouts are allowed. A repeated Idempotency-Key within its
// window replays the recorded transaction instead of charging again.
func (s *Service) Checkout(buyerID string, req *CheckoutRequest, idempotencyKey string) (*CheckoutResponse, error) {
	logger := log.With().
		Str("buyer_id", buyerID).
		Str("service", "payments").
		Logger()

	if idempotencyKey != "" {
		record, err := s.db.GetIdempotencyRecord(idempotencyKey)
		if err != nil {
			return nil, err
		}
		if record != nil && record.ExpiresAt.After(time.Now()) {
			existing, err := s.db.GetTransactionByTransactionID(record.ResourceID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				logger.Info().
					Str("transaction_id", existing.TransactionID).
					Msg("replaying idempotent checkout")
				return &CheckoutResponse{
					Provider:        existing.Provider,
					ClientSecret:    existing.ClientSecret,
					PaymentIntentID: existing.ProviderPaymentIntentID,
					Transaction:     existing,
				}, nil
			}
		}
	}

	var listing *types.Listing
	if req.ListingID != "" {
		var err error
		listing, err = s.db.GetListingByListingID(req.ListingID)
		if err != nil {
			return nil, err
		}
		if listing == nil {
			return nil, ErrListingNotFound
		}
	}

	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	amountCents := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]string)
	}
	if listing != nil {
		if _, ok := metadata["listing_id"]; !ok {
			metadata["listing_id"] = listing.ListingID
		}
	}
	if _, ok := metadata["buyer_id"]; !ok {
		metadata["buyer_id"] = buyerID
	}

	intent, err := s.gateway.CreateIntent(amountCents, strings.ToLower(currency), metadata)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create payment intent")
		return nil, err
	}

	transaction := &Transaction{
		TransactionID:           "TXN_" + uuid.New().String(),
		Amount:                  req.Amount,
		Currency:                strings.ToUpper(currency),
		Status:                  StatusPending,
		Provider:                s.gateway.Provider(),
		ProviderPaymentIntentID: intent.IntentID,
		ClientSecret:            intent.ClientSecret,
		BuyerID:                 buyerID,
	}
	if listing != nil {
		transaction.ListingID = listing.ListingID
	}

	if idempotencyKey != "" {
		err = s.db.CreateTransactionWithIdempotency(transaction, idempotencyKey)
	} else {
		err = s.db.CreateTransaction(transaction)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to create transaction")
		return nil, err
	}

	logger.Info().
		Str("transaction_id", transaction.TransactionID).
		Str("payment_intent_id", intent.IntentID).
		Str("provider", intent.Provider).
		Msg("checkout created")

	return &CheckoutResponse{
		Provider:        intent.Provider,
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.IntentID,
		Transaction:     transaction,
	}, nil
}

// ApplyProviderEvent applies a provider webhook event to the transaction
// matching its payment intent. Status writes are unconditional overwrites,
// the provider's event is treated as the source of truth.
func (s *Service) ApplyProviderEvent(payload []byte, signature string) (*WebhookAck, error) {
	verified, event := s.gateway.VerifyWebhook(payload, signature)

	logger := log.With().
		Str("event_type", event.Type).
		Str("service", "payments").
		Logger()

	intentID := event.Data.Object.ID
	if intentID == "" {
		intentID = event.Data.Object.PaymentIntent
	}

	newStatus := ""
	switch event.Type {
	case "payment_intent.succeeded":
		newStatus = StatusSucceeded
	case "payment_intent.payment_failed", "charge.failed":
		newStatus = StatusFailed
	case "charge.refunded", "charge.refund.updated":
		newStatus = StatusRefunded
	}

	ack := &WebhookAck{
		Received: true,
		Verified: verified,
		Note:     "Processed webhook event",
	}

	if intentID == "" {
		return ack, nil
	}

	transaction, err := s.db.GetTransactionByProviderIntentID(intentID)
	if err != nil {
		return nil, err
	}

	switch {
	case transaction != nil && newStatus != "":
		transaction.Status = newStatus
		if err := s.db.UpdateTransaction(transaction); err != nil {
			logger.Error().Err(err).Msg("failed to update transaction")
			return nil, err
		}
		ack.Action = "set_status_" + newStatus
		ack.TransactionID = transaction.TransactionID

		logger.Info().
			Str("transaction_id", transaction.TransactionID).
			Str("status", newStatus).
			Bool("verified", verified).
			Msg("webhook applied")
	case transaction != nil:
		ack.Action = "no_status_change"
		ack.TransactionID = transaction.TransactionID
	default:
		ack.Action = "transaction_not_found"
	}

	return ack, nil
}

// GetTransaction returns a transaction visible to its buyer only.
func (s *Service) GetTransaction(transactionID, userID string) (*Transaction, error) {
	transaction, err := s.db.GetTransactionByTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, ErrTransactionNotFound
	}
	if transaction.BuyerID != userID {
		return nil, ErrNotBuyer
	}
	return transaction, nil
}

// ListTransactions returns the caller's transactions, optionally filtered
// by status and listing.
func (s *Service) ListTransactions(status, listingID, buyerID string) ([]Transaction, error) {
	return s.db.ListTransactions(status, listingID, buyerID)
}

type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CheckoutHandler creates a payment intent and pending transaction for
// the authenticated buyer. An optional Idempotency-Key header makes the
// call safe to retry.
func (h *GinHandlers) CheckoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")

		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.Checkout(userID, &req, c.GetHeader("Idempotency-Key"))
		switch {
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(c, "Amount must be greater than 0")
		default:
			response.Handle(c, result, err)
		}
	}
}

// ListTransactionsHandler returns the authenticated buyer's transactions.
func (h *GinHandlers) ListTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")

		transactions, err := h.service.ListTransactions(c.Query("status"), c.Query("listing_id"), userID)
		response.Handle(c, transactions, err)
	}
}

// GetTransactionHandler returns a single transaction for its buyer.
func (h *GinHandlers) GetTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		transactionID := c.Param("transaction_id")

		transaction, err := h.service.GetTransaction(transactionID, userID)
		switch {
		case errors.Is(err, ErrTransactionNotFound):
			response.NotFound(c, "Transaction not found")
		case errors.Is(err, ErrNotBuyer):
			response.Forbidden(c, "Not authorized to view transaction")
		default:
			response.Handle(c, transaction, err)
		}
	}
}

// WebhookHandler receives provider payment events. It always acknowledges
// with 200 so the provider does not retry deliveries we have already
// recorded an outcome for.
func (h *GinHandlers) WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			response.BadRequest(c, "Unable to read request body")
			return
		}

		ack, err := h.service.ApplyProviderEvent(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.OK(c, ack)
	}
}
