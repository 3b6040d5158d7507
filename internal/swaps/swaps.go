package swaps

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/pkg/response"
)

// Swap statuses. Completed and cancelled exist in the lifecycle but no
// decision endpoint drives a swap into them.
const (
	StatusProposed  = "proposed"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	ErrProposerListingNotFound  = errors.New("proposer listing not found")
	ErrRecipientListingNotFound = errors.New("recipient listing not found")
	ErrNotOwner                 = errors.New("proposer listing not owned by user")
	ErrOwnListing               = errors.New("cannot swap with own listing")
	ErrProposerNotFound         = errors.New("proposer user not found")
	ErrRecipientNotFound        = errors.New("recipient user not found")
	ErrSwapNotFound             = errors.New("swap not found")
	ErrNotParticipant           = errors.New("not a participant in this swap")
	ErrNotCounterparty          = errors.New("only the counterparty can decide")
	ErrNotDecidable             = errors.New("swap is not decidable")
)

// ProposeSwapRequest is the payload for proposing a swap between two listings
type ProposeSwapRequest struct {
	ProposerListingID  string `json:"proposer_listing_id" binding:"required"`
	RecipientListingID string `json:"recipient_listing_id" binding:"required"`
	Notes              string `json:"notes"`
}

// Service handles swap proposals and decisions
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: NewDatabase(gormDB)}
}

// Propose creates a swap proposal. The initiator must own the proposer
// listing and must not own the recipient listing. The counterparty is
// resolved from the recipient listing's owner.
func (s *Service) Propose(initiatorID string, req *ProposeSwapRequest) (*Swap, error) {
	logger := log.With().
		Str("initiator_id", initiatorID).
		Str("service", "swaps").
		Logger()

	proposerListing, err := s.db.GetListingByListingID(req.ProposerListingID)
	if err != nil {
		return nil, err
	}
	if proposerListing == nil {
		return nil, ErrProposerListingNotFound
	}

	recipientListing, err := s.db.GetListingByListingID(req.RecipientListingID)
	if err != nil {
		return nil, err
	}
	if recipientListing == nil {
		return nil, ErrRecipientListingNotFound
	}

	if proposerListing.SellerID != initiatorID {
		return nil, ErrNotOwner
	}
	if recipientListing.SellerID == initiatorID {
		return nil, ErrOwnListing
	}

	proposerUser, err := s.db.GetUserByUserID(initiatorID)
	if err != nil {
		return nil, err
	}
	if proposerUser == nil {
		return nil, ErrProposerNotFound
	}

	recipientUser, err := s.db.GetUserByUserID(recipientListing.SellerID)
	if err != nil {
		return nil, err
	}
	if recipientUser == nil {
		return nil, ErrRecipientNotFound
	}

	swap := &Swap{
		SwapID:         "SWP_" + uuid.New().String(),
		ListingID:      recipientListing.ListingID,
		InitiatorID:    initiatorID,
		CounterpartyID: recipientUser.UserID,
		Status:         StatusProposed,
		Notes:          req.Notes,
	}

	if err := s.db.CreateSwap(swap); err != nil {
		logger.Error().Err(err).Msg("failed to create swap")
		return nil, err
	}

	logger.Info().
		Str("swap_id", swap.SwapID).
		Str("listing_id", swap.ListingID).
		Str("counterparty_id", swap.CounterpartyID).
		Msg("swap proposal created")

	return swap, nil
}

// Accept marks a proposed swap accepted. Only the counterparty may accept.
func (s *Service) Accept(swapID, userID string) (*Swap, error) {
	return s.decide(swapID, userID, StatusAccepted)
}

// Decline marks a proposed swap rejected. Only the counterparty may decline.
func (s *Service) Decline(swapID, userID string) (*Swap, error) {
	return s.decide(swapID, userID, StatusRejected)
}

func (s *Service) decide(swapID, userID, outcome string) (*Swap, error) {
	logger := log.With().
		Str("swap_id", swapID).
		Str("service", "swaps").
		Logger()

	swap, err := s.db.GetSwapBySwapID(swapID)
	if err != nil {
		return nil, err
	}
	if swap == nil {
		return nil, ErrSwapNotFound
	}

	if userID != swap.CounterpartyID {
		return nil, ErrNotCounterparty
	}
	if swap.Status != StatusProposed {
		return nil, ErrNotDecidable
	}

	swap.Status = outcome

	if err := s.db.UpdateSwap(swap); err != nil {
		logger.Error().Err(err).Msg("failed to update swap")
		return nil, err
	}

	logger.Info().Str("status", swap.Status).Msg("swap decided")

	return swap, nil
}

// GetSwap returns a swap, visible only to its initiator or counterparty.
func (s *Service) GetSwap(swapID, userID string) (*Swap, error) {
	swap, err := s.db.GetSwapBySwapID(swapID)
	if err != nil {
		return nil, err
	}
	if swap == nil {
		return nil, ErrSwapNotFound
	}
	if userID != swap.InitiatorID && userID != swap.CounterpartyID {
		return nil, ErrNotParticipant
	}
	return swap, nil
}

// ListSwaps returns swaps newest first, optionally filtered by status.
// When userID is set the result is restricted to swaps where the user is
// initiator or counterparty.
func (s *Service) ListSwaps(status, userID string) ([]Swap, error) {
	return s.db.ListSwaps(status, userID)
}

// GinHandlers contains HTTP handlers for swap endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for swap endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ProposeSwapHandler handles POST requests to propose a swap
func (h *GinHandlers) ProposeSwapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProposeSwapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		swap, err := h.service.Propose(c.GetString("userID"), &req)
		switch {
		case errors.Is(err, ErrProposerListingNotFound):
			response.NotFound(c, "Proposer listing not found")
		case errors.Is(err, ErrRecipientListingNotFound):
			response.NotFound(c, "Recipient listing not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c, "You must own the proposer listing")
		case errors.Is(err, ErrOwnListing):
			response.BadRequest(c, "Cannot propose swap with your own listing")
		case errors.Is(err, ErrProposerNotFound):
			response.NotFound(c, "Proposer user not found")
		case errors.Is(err, ErrRecipientNotFound):
			response.NotFound(c, "Recipient user not found")
		default:
			response.Handle(c, swap, err)
		}
	}
}

// ListSwapsHandler handles GET requests for swaps
// Query parameters: status, mine
func (h *GinHandlers) ListSwapsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""
		if c.Query("mine") == "true" {
			userID = c.GetString("userID")
		}

		swaps, err := h.service.ListSwaps(c.Query("status"), userID)
		response.Handle(c, swaps, err)
	}
}

// GetSwapHandler handles GET requests for a single swap
// URL parameter: swap_id
func (h *GinHandlers) GetSwapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		swap, err := h.service.GetSwap(c.Param("swap_id"), c.GetString("userID"))
		switch {
		case errors.Is(err, ErrSwapNotFound):
			response.NotFound(c, "Swap not found")
		case errors.Is(err, ErrNotParticipant):
			response.Forbidden(c, "Not authorized to view swap")
		default:
			response.Handle(c, swap, err)
		}
	}
}

// AcceptSwapHandler handles POST requests to accept a proposed swap
// URL parameter: swap_id
func (h *GinHandlers) AcceptSwapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		swap, err := h.service.Accept(c.Param("swap_id"), c.GetString("userID"))
		h.respondDecision(c, swap, err)
	}
}

// DeclineSwapHandler handles POST requests to decline a proposed swap
// URL parameter: swap_id
func (h *GinHandlers) DeclineSwapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		swap, err := h.service.Decline(c.Param("swap_id"), c.GetString("userID"))
		h.respondDecision(c, swap, err)
	}
}

func (h *GinHandlers) respondDecision(c *gin.Context, swap *Swap, err error) {
	switch {
	case errors.Is(err, ErrSwapNotFound):
		response.NotFound(c, "Swap not found")
	case errors.Is(err, ErrNotCounterparty):
		response.Forbidden(c, "Only the recipient can decide this swap")
	case errors.Is(err, ErrNotDecidable):
		response.BadRequest(c, "Only proposed swaps can be decided")
	default:
		response.Handle(c, swap, err)
	}
}
