package listings

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vintagehub/market-api/internal/types"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Region{}, &types.Category{}, &types.Listing{}))

	require.NoError(t, db.Create(&types.Region{RegionID: "RGN_eu", Code: "EU", Name: "Europe"}).Error)
	require.NoError(t, db.Create(&types.Region{RegionID: "RGN_na", Code: "NA", Name: "North America"}).Error)
	require.NoError(t, db.Create(&types.Category{CategoryID: "CAT_denim", Name: "Denim"}).Error)
	require.NoError(t, db.Create(&types.Category{CategoryID: "CAT_cameras", Name: "Cameras"}).Error)

	return NewService(db), db
}

func createTestListing(t *testing.T, service *Service, sellerID string) *types.Listing {
	t.Helper()

	listing, err := service.CreateListing(sellerID, &CreateListingRequest{
		Title:      "Levi's 501 Selvedge Jeans",
		Price:      decimal.NewFromFloat(120.50),
		RegionID:   "RGN_eu",
		CategoryID: "CAT_denim",
	})
	require.NoError(t, err)
	return listing
}

func TestCreateListing(t *testing.T) {
	service, _ := newTestService(t)

	listing, err := service.CreateListing("USR_seller", &CreateListingRequest{
		Title:       "Polaroid SX-70 Land Camera",
		Description: "Fully refurbished, new bellows",
		Price:       decimal.NewFromFloat(245.00),
		Currency:    "eur",
		RegionID:    "RGN_eu",
		CategoryID:  "CAT_cameras",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(listing.ListingID, "LST_"))
	assert.Equal(t, "USR_seller", listing.SellerID)
	assert.Equal(t, types.ListingStatusActive, listing.Status)
	assert.Equal(t, "eur", listing.Currency)

	// Currency defaults to USD when omitted
	defaulted := createTestListing(t, service, "USR_seller")
	assert.Equal(t, "USD", defaulted.Currency)
}

func TestCreateListingValidation(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.CreateListing("USR_seller", &CreateListingRequest{
		Title:      "Ghost Region",
		Price:      decimal.NewFromInt(10),
		RegionID:   "RGN_missing",
		CategoryID: "CAT_denim",
	})
	assert.ErrorIs(t, err, ErrRegionNotFound)

	_, err = service.CreateListing("USR_seller", &CreateListingRequest{
		Title:      "Ghost Category",
		Price:      decimal.NewFromInt(10),
		RegionID:   "RGN_eu",
		CategoryID: "CAT_missing",
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestGetListing(t *testing.T) {
	service, _ := newTestService(t)
	listing := createTestListing(t, service, "USR_seller")

	found, err := service.GetListing(listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, listing.ListingID, found.ListingID)

	_, err = service.GetListing("LST_missing")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{types.ListingStatusDraft, types.ListingStatusActive, true},
		{types.ListingStatusActive, types.ListingStatusDraft, true},
		{types.ListingStatusActive, types.ListingStatusSold, true},
		{types.ListingStatusActive, types.ListingStatusArchived, true},
		{types.ListingStatusSold, types.ListingStatusArchived, true},
		{types.ListingStatusSold, types.ListingStatusActive, false},
		{types.ListingStatusArchived, types.ListingStatusDraft, false},
		{types.ListingStatusArchived, types.ListingStatusActive, false},
		{types.ListingStatusSold, types.ListingStatusSold, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, transitionAllowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestUpdateListing(t *testing.T) {
	service, _ := newTestService(t)
	listing := createTestListing(t, service, "USR_seller")

	title := "Levi's 501 Big E"
	price := decimal.NewFromFloat(199.99)
	status := types.ListingStatusDraft
	updated, err := service.UpdateListing(listing.ListingID, "USR_seller", &UpdateListingRequest{
		Title:  &title,
		Price:  &price,
		Status: &status,
	})
	require.NoError(t, err)
	assert.Equal(t, "Levi's 501 Big E", updated.Title)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, types.ListingStatusDraft, updated.Status)

	// Republish, sell, then try to resurrect
	status = types.ListingStatusActive
	_, err = service.UpdateListing(listing.ListingID, "USR_seller", &UpdateListingRequest{Status: &status})
	require.NoError(t, err)

	status = types.ListingStatusSold
	_, err = service.UpdateListing(listing.ListingID, "USR_seller", &UpdateListingRequest{Status: &status})
	require.NoError(t, err)

	status = types.ListingStatusActive
	_, err = service.UpdateListing(listing.ListingID, "USR_seller", &UpdateListingRequest{Status: &status})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := service.GetListing(listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, types.ListingStatusSold, stored.Status)
}

func TestUpdateListingAuthorization(t *testing.T) {
	service, _ := newTestService(t)
	listing := createTestListing(t, service, "USR_seller")

	title := "Hijacked"
	_, err := service.UpdateListing(listing.ListingID, "USR_stranger", &UpdateListingRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = service.UpdateListing("LST_missing", "USR_seller", &UpdateListingRequest{Title: &title})
	assert.ErrorIs(t, err, ErrListingNotFound)

	missingRegion := "RGN_missing"
	_, err = service.UpdateListing(listing.ListingID, "USR_seller", &UpdateListingRequest{RegionID: &missingRegion})
	assert.ErrorIs(t, err, ErrRegionNotFound)
}

func TestListListings(t *testing.T) {
	service, _ := newTestService(t)

	createTestListing(t, service, "USR_seller")
	_, err := service.CreateListing("USR_seller", &CreateListingRequest{
		Title:      "Polaroid SX-70 Land Camera",
		Price:      decimal.NewFromFloat(245.00),
		RegionID:   "RGN_na",
		CategoryID: "CAT_cameras",
	})
	require.NoError(t, err)

	all, err := service.ListListings("", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	euOnly, err := service.ListListings("RGN_eu", "", "")
	require.NoError(t, err)
	require.Len(t, euOnly, 1)
	assert.Equal(t, "CAT_denim", euOnly[0].CategoryID)

	cameras, err := service.ListListings("", "CAT_cameras", "")
	require.NoError(t, err)
	assert.Len(t, cameras, 1)

	drafts, err := service.ListListings("", "", types.ListingStatusDraft)
	require.NoError(t, err)
	assert.Len(t, drafts, 0)
}

func TestDeleteListing(t *testing.T) {
	service, _ := newTestService(t)
	listing := createTestListing(t, service, "USR_seller")

	err := service.DeleteListing(listing.ListingID, "USR_stranger")
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, service.DeleteListing(listing.ListingID, "USR_seller"))

	_, err = service.GetListing(listing.ListingID)
	assert.ErrorIs(t, err, ErrListingNotFound)

	err = service.DeleteListing(listing.ListingID, "USR_seller")
	assert.ErrorIs(t, err, ErrListingNotFound)
}
