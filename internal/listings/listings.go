package listings

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/types"
	"github.com/vintagehub/market-api/pkg/response"
)

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrRegionNotFound    = errors.New("region not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrNotOwner          = errors.New("not the listing owner")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// statusRank orders listing states for the forward-only transition rule.
// The single exception is active back to draft, which unpublishes a listing.
var statusRank = map[string]int{
	types.ListingStatusDraft:    0,
	types.ListingStatusActive:   1,
	types.ListingStatusSold:     2,
	types.ListingStatusArchived: 3,
}

func transitionAllowed(from, to string) bool {
	if from == to {
		return true
	}
	if from == types.ListingStatusActive && to == types.ListingStatusDraft {
		return true
	}
	return statusRank[to] > statusRank[from]
}

type CreateListingRequest struct {
	Title       string          `json:"title" binding:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	RegionID    string          `json:"region_id" binding:"required"`
	CategoryID  string          `json:"category_id" binding:"required"`
}

type UpdateListingRequest struct {
	Title       *string          `json:"title" binding:"omitempty,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency" binding:"omitempty,len=3"`
	Status      *string          `json:"status" binding:"omitempty,oneof=draft active sold archived"`
	RegionID    *string          `json:"region_id"`
	CategoryID  *string          `json:"category_id"`
}

type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: NewDatabase(gormDB)}
}

// CreateListing creates a listing owned by sellerID. The region and
// category must exist. New listings start out active.
func (s *Service) CreateListing(sellerID string, req *CreateListingRequest) (*types.Listing, error) {
	region, err := s.db.GetRegionByRegionID(req.RegionID)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, ErrRegionNotFound
	}

	category, err := s.db.GetCategoryByCategoryID(req.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	listing := &types.Listing{
		ListingID:   "LST_" + uuid.New().String(),
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    currency,
		Status:      types.ListingStatusActive,
		RegionID:    region.RegionID,
		CategoryID:  category.CategoryID,
	}

	if err := s.db.CreateListing(listing); err != nil {
		return nil, err
	}

	return listing, nil
}

// GetListing returns a single listing by its public ID.
func (s *Service) GetListing(listingID string) (*types.Listing, error) {
	listing, err := s.db.GetListingByListingID(listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}

// ListListings returns listings newest first, optionally filtered by
// region, category and status.
func (s *Service) ListListings(regionID, categoryID, status string) ([]types.Listing, error) {
	return s.db.ListListings(regionID, categoryID, status)
}

// UpdateListing applies a partial update. Only the owner may update, and
// status changes must follow the forward-only transition rule.
func (s *Service) UpdateListing(listingID, userID string, req *UpdateListingRequest) (*types.Listing, error) {
	listing, err := s.db.GetListingByListingID(listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if listing.SellerID != userID {
		return nil, ErrNotOwner
	}

	if req.RegionID != nil && *req.RegionID != "" {
		region, err := s.db.GetRegionByRegionID(*req.RegionID)
		if err != nil {
			return nil, err
		}
		if region == nil {
			return nil, ErrRegionNotFound
		}
		listing.RegionID = *req.RegionID
	}

	if req.CategoryID != nil && *req.CategoryID != "" {
		category, err := s.db.GetCategoryByCategoryID(*req.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, ErrCategoryNotFound
		}
		listing.CategoryID = *req.CategoryID
	}

	if req.Status != nil && *req.Status != "" {
		if !transitionAllowed(listing.Status, *req.Status) {
			return nil, ErrInvalidTransition
		}
		listing.Status = *req.Status
	}

	if req.Title != nil {
		listing.Title = *req.Title
	}
	if req.Description != nil {
		listing.Description = *req.Description
	}
	if req.Price != nil {
		listing.Price = *req.Price
	}
	if req.Currency != nil {
		listing.Currency = *req.Currency
	}

	if err := s.db.UpdateListing(listing); err != nil {
		return nil, err
	}

	return listing, nil
}

// DeleteListing removes a listing. Only the owner may delete.
func (s *Service) DeleteListing(listingID, userID string) error {
	listing, err := s.db.GetListingByListingID(listingID)
	if err != nil {
		return err
	}
	if listing == nil {
		return ErrListingNotFound
	}
	if listing.SellerID != userID {
		return ErrNotOwner
	}

	return s.db.DeleteListing(listing)
}

// GinHandlers contains HTTP handlers for listing endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for listing endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListListingsHandler handles GET requests for the public listing feed
// Query parameters: region, category, status
func (h *GinHandlers) ListListingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listings, err := h.service.ListListings(c.Query("region"), c.Query("category"), c.Query("status"))
		response.Handle(c, listings, err)
	}
}

// GetListingHandler handles GET requests for a single listing
// URL parameter: listing_id
func (h *GinHandlers) GetListingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, err := h.service.GetListing(c.Param("listing_id"))
		if errors.Is(err, ErrListingNotFound) {
			response.NotFound(c, "Listing not found")
			return
		}
		response.Handle(c, listing, err)
	}
}

// CreateListingHandler handles POST requests to create a listing
func (h *GinHandlers) CreateListingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		listing, err := h.service.CreateListing(c.GetString("userID"), &req)
		switch {
		case errors.Is(err, ErrRegionNotFound):
			response.NotFound(c, "Region not found")
		case errors.Is(err, ErrCategoryNotFound):
			response.NotFound(c, "Category not found")
		default:
			response.Handle(c, listing, err)
		}
	}
}

// UpdateListingHandler handles PATCH requests to update a listing
// URL parameter: listing_id
func (h *GinHandlers) UpdateListingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateListingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		listing, err := h.service.UpdateListing(c.Param("listing_id"), c.GetString("userID"), &req)
		switch {
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c, "Not the owner")
		case errors.Is(err, ErrRegionNotFound):
			response.NotFound(c, "Region not found")
		case errors.Is(err, ErrCategoryNotFound):
			response.NotFound(c, "Category not found")
		case errors.Is(err, ErrInvalidTransition):
			response.BadRequest(c, "Invalid status transition")
		default:
			response.Handle(c, listing, err)
		}
	}
}

// DeleteListingHandler handles DELETE requests to remove a listing
// URL parameter: listing_id
func (h *GinHandlers) DeleteListingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID := c.Param("listing_id")

		err := h.service.DeleteListing(listingID, c.GetString("userID"))
		switch {
		case errors.Is(err, ErrListingNotFound):
			response.NotFound(c, "Listing not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c, "Not the owner")
		default:
			response.Handle(c, gin.H{"listing_id": listingID, "deleted": true}, err)
		}
	}
}
