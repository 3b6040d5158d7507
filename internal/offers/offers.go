package offers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/types"
	"github.com/vintagehub/market-api/pkg/response"
)

// Offer statuses
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusWithdrawn = "withdrawn"
	StatusExpired   = "expired"
)

// Negotiation statuses
const (
	NegotiationOpen      = "open"
	NegotiationClosed    = "closed"
	NegotiationCancelled = "cancelled"
)

var (
	ErrOfferNotFound    = errors.New("offer not found")
	ErrListingNotFound  = errors.New("listing not found")
	ErrOwnListing       = errors.New("cannot offer on own listing")
	ErrListingNotActive = errors.New("listing is not active")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrNotAParty        = errors.New("not a party to this offer")
	ErrNotModifiable    = errors.New("offer is in a terminal status")
	ErrNotNegotiable    = errors.New("offer is not negotiable")
	ErrEmptyPost        = errors.New("nothing to post")
)

// CreateOfferRequest is the payload for opening an offer on a listing
type CreateOfferRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CounterOfferRequest carries the amended amount for a counter
type CounterOfferRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PostNegotiationRequest posts a message and/or counter amount into an
// offer's negotiation channel
type PostNegotiationRequest struct {
	Message       string           `json:"message"`
	CounterAmount *decimal.Decimal `json:"counter_amount"`
}

// Service handles the offer lifecycle and its negotiation channels
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: NewDatabase(gormDB)}
}

// GetDB exposes the offers database for the background expiry processor
func (s *Service) GetDB() *Database {
	return s.db
}

// CreateOffer opens a pending offer on an active listing. The buyer must
// not own the listing. The offer and its negotiation channel are written
// in one transaction.
func (s *Service) CreateOffer(listingID, buyerID string, amount decimal.Decimal) (*Offer, error) {
	listing, err := s.db.GetListingByListingID(listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if listing.SellerID == buyerID {
		return nil, ErrOwnListing
	}
	if listing.Status != types.ListingStatusActive {
		return nil, ErrListingNotActive
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	offer := &Offer{
		OfferID:   "OFR_" + uuid.New().String(),
		ListingID: listing.ListingID,
		BuyerID:   buyerID,
		Amount:    amount,
		Status:    StatusPending,
	}
	negotiation := &Negotiation{
		NegotiationID: "NEG_" + uuid.New().String(),
		OfferID:       offer.OfferID,
		ListingID:     listing.ListingID,
		Status:        NegotiationOpen,
		LastMessage:   fmt.Sprintf("Offer created at %s", amount.StringFixed(2)),
	}

	if err := s.db.CreateOfferWithNegotiation(offer, negotiation); err != nil {
		return nil, err
	}

	return offer, nil
}

// Counter amends a pending offer's amount in place. Either party may
// counter; the offer stays pending so the other side can respond.
func (s *Service) Counter(offerID, userID string, amount decimal.Decimal) (*Offer, error) {
	offer, listing, err := s.loadOfferWithListing(offerID)
	if err != nil {
		return nil, err
	}
	if userID != offer.BuyerID && userID != listing.SellerID {
		return nil, ErrNotAParty
	}
	if offer.Status != StatusPending {
		return nil, ErrNotModifiable
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	offer.Amount = amount

	role := "Buyer"
	if userID == listing.SellerID {
		role = "Seller"
	}
	note := fmt.Sprintf("%s countered to %s", role, amount.StringFixed(2))

	negotiation, err := s.db.GetNegotiationByOfferID(offer.OfferID)
	if err != nil {
		return nil, err
	}
	if negotiation == nil {
		negotiation = &Negotiation{
			NegotiationID: "NEG_" + uuid.New().String(),
			OfferID:       offer.OfferID,
			ListingID:     listing.ListingID,
			Status:        NegotiationOpen,
			LastMessage:   note,
		}
	} else {
		negotiation.LastMessage = note
	}

	if err := s.db.SaveOfferAndNegotiation(offer, negotiation); err != nil {
		return nil, err
	}

	return offer, nil
}

// Accept marks a pending offer accepted and closes its negotiation.
func (s *Service) Accept(offerID, userID string) (*Offer, error) {
	return s.decide(offerID, userID, StatusAccepted)
}

// Decline marks a pending offer rejected and closes its negotiation.
func (s *Service) Decline(offerID, userID string) (*Offer, error) {
	return s.decide(offerID, userID, StatusRejected)
}

func (s *Service) decide(offerID, userID, outcome string) (*Offer, error) {
	offer, listing, err := s.loadOfferWithListing(offerID)
	if err != nil {
		return nil, err
	}
	if userID != offer.BuyerID && userID != listing.SellerID {
		return nil, ErrNotAParty
	}
	if offer.Status != StatusPending {
		return nil, ErrNotModifiable
	}

	offer.Status = outcome

	negotiation, err := s.db.GetNegotiationByOfferID(offer.OfferID)
	if err != nil {
		return nil, err
	}
	if negotiation != nil {
		negotiation.Status = NegotiationClosed
		if outcome == StatusAccepted {
			negotiation.LastMessage = "Offer accepted"
		} else {
			negotiation.LastMessage = "Offer declined"
		}
	}

	if err := s.db.SaveOfferAndNegotiation(offer, negotiation); err != nil {
		return nil, err
	}

	return offer, nil
}

// GetOffer returns an offer, visible only to its buyer or the listing's
// seller.
func (s *Service) GetOffer(offerID, userID string) (*Offer, error) {
	offer, listing, err := s.loadOfferWithListing(offerID)
	if err != nil {
		return nil, err
	}
	if userID != offer.BuyerID && userID != listing.SellerID {
		return nil, ErrNotAParty
	}
	return offer, nil
}

// ListOffers returns offers newest first, optionally filtered by status
// and listing. When userID is set the result is restricted to offers
// where the user is the buyer or the listing's seller.
func (s *Service) ListOffers(status, listingID, userID string) ([]Offer, error) {
	return s.db.ListOffers(status, listingID, userID)
}

// Negotiations returns the negotiation channel for an offer as a list of
// zero or one entries. Only a party to the offer may view it.
func (s *Service) Negotiations(offerID, userID string) ([]Negotiation, error) {
	offer, listing, err := s.loadOfferWithListing(offerID)
	if err != nil {
		return nil, err
	}
	if userID != offer.BuyerID && userID != listing.SellerID {
		return nil, ErrNotAParty
	}

	negotiation, err := s.db.GetNegotiationByOfferID(offer.OfferID)
	if err != nil {
		return nil, err
	}
	if negotiation == nil {
		return []Negotiation{}, nil
	}
	return []Negotiation{*negotiation}, nil
}

// PostNegotiation records a message and/or counter amount on a pending
// offer's negotiation channel. A counter updates the offer amount in
// place, same as Counter.
func (s *Service) PostNegotiation(offerID, userID string, req *PostNegotiationRequest) (*Negotiation, error) {
	offer, listing, err := s.loadOfferWithListing(offerID)
	if err != nil {
		return nil, err
	}
	if userID != offer.BuyerID && userID != listing.SellerID {
		return nil, ErrNotAParty
	}
	if offer.Status != StatusPending {
		return nil, ErrNotNegotiable
	}

	var parts []string
	if req.Message != "" {
		parts = append(parts, strings.TrimSpace(req.Message))
	}

	countered := false
	if req.CounterAmount != nil {
		if !req.CounterAmount.IsPositive() {
			return nil, ErrInvalidAmount
		}
		offer.Amount = *req.CounterAmount
		countered = true
		parts = append(parts, fmt.Sprintf("Countered to %s", req.CounterAmount.StringFixed(2)))
	}

	if len(parts) == 0 {
		return nil, ErrEmptyPost
	}

	note := strings.Join(parts, " | ")

	negotiation, err := s.db.GetNegotiationByOfferID(offer.OfferID)
	if err != nil {
		return nil, err
	}
	if negotiation == nil {
		negotiation = &Negotiation{
			NegotiationID: "NEG_" + uuid.New().String(),
			OfferID:       offer.OfferID,
			ListingID:     listing.ListingID,
			Status:        NegotiationOpen,
			LastMessage:   note,
		}
	} else {
		negotiation.Status = NegotiationOpen
		negotiation.LastMessage = note
	}

	if countered {
		if err := s.db.SaveOfferAndNegotiation(offer, negotiation); err != nil {
			return nil, err
		}
	} else if err := s.db.SaveNegotiation(negotiation); err != nil {
		return nil, err
	}

	return negotiation, nil
}

func (s *Service) loadOfferWithListing(offerID string) (*Offer, *types.Listing, error) {
	offer, err := s.db.GetOfferByOfferID(offerID)
	if err != nil {
		return nil, nil, err
	}
	if offer == nil {
		return nil, nil, ErrOfferNotFound
	}

	listing, err := s.db.GetListingByListingID(offer.ListingID)
	if err != nil {
		return nil, nil, err
	}
	if listing == nil {
		return nil, nil, ErrListingNotFound
	}

	return offer, listing, nil
}

// GinHandlers contains HTTP handlers for offer and negotiation endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for offer endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateOfferHandler handles POST requests to open an offer on a listing
// URL parameter: listing_id
func (h *GinHandlers) CreateOfferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOfferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		offer, err := h.service.CreateOffer(c.Param("listing_id"), c.GetString("userID"), req.Amount)
		switch {
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrOwnListing):
			response.Forbidden(c, "Cannot create offer on your own listing")
		case errors.Is(err, ErrListingNotActive):
			response.BadRequest(c, "Cannot create offer on inactive listing")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(c, "Amount must be greater than 0")
		default:
			response.Handle(c, offer, err)
		}
	}
}

// ListOffersHandler handles GET requests for offers
// Query parameters: status, listing_id, mine
func (h *GinHandlers) ListOffersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""
		if c.Query("mine") == "true" {
			userID = c.GetString("userID")
		}

		offers, err := h.service.ListOffers(c.Query("status"), c.Query("listing_id"), userID)
		response.Handle(c, offers, err)
	}
}

// GetOfferHandler handles GET requests for a single offer
// URL parameter: offer_id
func (h *GinHandlers) GetOfferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		offer, err := h.service.GetOffer(c.Param("offer_id"), c.GetString("userID"))
		switch {
		case errors.Is(err, ErrOfferNotFound):
			response.NotFound(c, "Offer not found")
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrNotAParty):
			response.Forbidden(c, "Not authorized to view offer")
		default:
			response.Handle(c, offer, err)
		}
	}
}

// CounterOfferHandler handles POST requests to counter a pending offer
// URL parameter: offer_id
func (h *GinHandlers) CounterOfferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CounterOfferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		offer, err := h.service.Counter(c.Param("offer_id"), c.GetString("userID"), req.Amount)
		switch {
		case errors.Is(err, ErrOfferNotFound):
			response.NotFound(c, "Offer not found")
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrNotAParty):
			response.Forbidden(c, "Not a party to this offer")
		case errors.Is(err, ErrNotModifiable):
			response.BadRequest(c, "Offer is not modifiable in current status")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(c, "Amount must be greater than 0")
		default:
			response.Handle(c, offer, err)
		}
	}
}

// AcceptOfferHandler handles POST requests to accept a pending offer
// URL parameter: offer_id
func (h *GinHandlers) AcceptOfferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		offer, err := h.service.Accept(c.Param("offer_id"), c.GetString("userID"))
		switch {
		case errors.Is(err, ErrOfferNotFound):
			response.NotFound(c, "Offer not found")
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrNotAParty):
			response.Forbidden(c, "Not a party to this offer")
		case errors.Is(err, ErrNotModifiable):
			response.BadRequest(c, "Only pending offers can be accepted")
		default:
			response.Handle(c, offer, err)
		}
	}
}

// DeclineOfferHandler handles POST requests to decline a pending offer
// URL parameter: offer_id
func (h *GinHandlers) DeclineOfferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		offer, err := h.service.Decline(c.Param("offer_id"), c.GetString("userID"))
		switch {
		case errors.Is(err, ErrOfferNotFound):
			response.NotFound(c, "Offer not found")
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrNotAParty):
			response.Forbidden(c, "Not a party to this offer")
		case errors.Is(err, ErrNotModifiable):
			response.BadRequest(c, "Only pending offers can be declined")
		default:
			response.Handle(c, offer, err)
		}
	}
}

// GetNegotiationsHandler handles GET requests for an offer's negotiation
// URL parameter: offer_id
func (h *GinHandlers) GetNegotiationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		negotiations, err := h.service.Negotiations(c.Param("offer_id"), c.GetString("userID"))
		switch {
		case errors.Is(err, ErrOfferNotFound):
			response.NotFound(c, "Offer not found")
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrNotAParty):
			response.Forbidden(c, "Not a party to this negotiation")
		default:
			response.Handle(c, negotiations, err)
		}
	}
}

// PostNegotiationHandler handles POST requests into an offer's negotiation
// URL parameter: offer_id
func (h *GinHandlers) PostNegotiationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PostNegotiationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		negotiation, err := h.service.PostNegotiation(c.Param("offer_id"), c.GetString("userID"), &req)
		switch {
		case errors.Is(err, ErrOfferNotFound):
			response.NotFound(c, "Offer not found")
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrNotAParty):
			response.Forbidden(c, "Not a party to this negotiation")
		case errors.Is(err, ErrNotNegotiable):
			response.BadRequest(c, "Offer is not negotiable in current status")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(c, "Counter must be > 0")
		case errors.Is(err, ErrEmptyPost):
			response.BadRequest(c, "Provide message or counter_amount")
		default:
			response.Handle(c, negotiation, err)
		}
	}
}
