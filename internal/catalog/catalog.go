package catalog

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/types"
	"github.com/vintagehub/market-api/pkg/response"
)

// Default reference data installed by the seed command.
var (
	defaultRegions = []types.Region{
		{Code: "NA", Name: "North America"},
		{Code: "EU", Name: "Europe"},
		{Code: "AS", Name: "Asia"},
		{Code: "SA", Name: "South America"},
		{Code: "AF", Name: "Africa"},
		{Code: "OC", Name: "Oceania"},
	}
	defaultCategories = []types.Category{
		{Name: "Clothing", Description: "All vintage clothing items"},
		{Name: "Footwear", Description: "Shoes, boots, sneakers"},
		{Name: "Accessories", Description: "Bags, belts, hats, jewelry"},
		{Name: "Furniture", Description: "Chairs, tables, storage, home furnishings"},
		{Name: "Electronics", Description: "Vintage electronics and media"},
		{Name: "Collectibles", Description: "Collectible items and curios"},
	}
)

type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: NewDatabase(gormDB)}
}

// ListRegions returns all regions ordered by name.
func (s *Service) ListRegions() ([]types.Region, error) {
	return s.db.ListRegions()
}

// ListCategories returns all categories ordered by name.
func (s *Service) ListCategories() ([]types.Category, error) {
	return s.db.ListCategories()
}

// SeedDefaults inserts any default regions and categories that are missing
// and reports how many of each were created. Safe to run repeatedly.
func (s *Service) SeedDefaults() (int, int, error) {
	regionsInserted := 0
	for _, region := range defaultRegions {
		existing, err := s.db.GetRegionByCode(region.Code)
		if err != nil {
			return regionsInserted, 0, err
		}
		if existing != nil {
			continue
		}

		region.RegionID = "RGN_" + uuid.New().String()
		if err := s.db.CreateRegion(&region); err != nil {
			return regionsInserted, 0, err
		}
		regionsInserted++
	}

	categoriesInserted := 0
	for _, category := range defaultCategories {
		existing, err := s.db.GetCategoryByName(category.Name)
		if err != nil {
			return regionsInserted, categoriesInserted, err
		}
		if existing != nil {
			continue
		}

		category.CategoryID = "CAT_" + uuid.New().String()
		if err := s.db.CreateCategory(&category); err != nil {
			return regionsInserted, categoriesInserted, err
		}
		categoriesInserted++
	}

	return regionsInserted, categoriesInserted, nil
}

// GinHandlers contains HTTP handlers for reference data endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for reference data endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListRegionsHandler handles GET requests for all regions
func (h *GinHandlers) ListRegionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		regions, err := h.service.ListRegions()
		response.Handle(c, regions, err)
	}
}

// ListCategoriesHandler handles GET requests for all categories
func (h *GinHandlers) ListCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := h.service.ListCategories()
		response.Handle(c, categories, err)
	}
}
