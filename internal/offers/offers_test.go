package offers

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
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
	require.NoError(t, db.AutoMigrate(&types.Listing{}, &Offer{}, &Negotiation{}))

	return NewService(db), db
}

func seedListing(t *testing.T, db *gorm.DB, sellerID, status string) *types.Listing {
	t.Helper()

	listing := &types.Listing{
		ListingID:  "LST_" + uuid.New().String(),
		SellerID:   sellerID,
		Title:      "Harris Tweed Overcoat",
		Price:      decimal.NewFromInt(100),
		Currency:   "USD",
		Status:     status,
		RegionID:   "RGN_test",
		CategoryID: "CAT_test",
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func TestCreateOffer(t *testing.T) {
	service, db := newTestService(t)
	listing := seedListing(t, db, "USR_seller", types.ListingStatusActive)

	offer, err := service.CreateOffer(listing.ListingID, "USR_buyer", decimal.NewFromInt(80))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(offer.OfferID, "OFR_"))
	assert.Equal(t, StatusPending, offer.Status)
	assert.True(t, offer.Amount.Equal(decimal.NewFromInt(80)))

	negotiations, err := service.Negotiations(offer.OfferID, "USR_buyer")
	require.NoError(t, err)
	require.Len(t, negotiations, 1)
	assert.Equal(t, NegotiationOpen, negotiations[0].Status)
	assert.Equal(t, "Offer created at 80.00", negotiations[0].LastMessage)
	assert.Equal(t, offer.OfferID, negotiations[0].OfferID)
}

func TestCreateOfferValidation(t *testing.T) {
	service, db := newTestService(t)

	_, err := service.CreateOffer("LST_missing", "USR_buyer", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrListingNotFound)

	active := seedListing(t, db, "USR_seller", types.ListingStatusActive)
	_, err = service.CreateOffer(active.ListingID, "USR_seller", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrOwnListing)

	draft := seedListing(t, db, "USR_seller", types.ListingStatusDraft)
	_, err = service.CreateOffer(draft.ListingID, "USR_buyer", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrListingNotActive)

	_, err = service.CreateOffer(active.ListingID, "USR_buyer", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = service.CreateOffer(active.ListingID, "USR_buyer", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNegotiationFlow(t *testing.T) {
	service, db := newTestService(t)
	listing := seedListing(t, db, "USR_seller", types.ListingStatusActive)

	offer, err := service.CreateOffer(listing.ListingID, "USR_buyer", decimal.NewFromInt(80))
	require.NoError(t, err)

	countered, err := service.Counter(offer.OfferID, "USR_seller", decimal.NewFromInt(90))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, countered.Status)
	assert.True(t, countered.Amount.Equal(decimal.NewFromInt(90)))

	negotiations, err := service.Negotiations(offer.OfferID, "USR_seller")
	require.NoError(t, err)
	require.Len(t, negotiations, 1)
	assert.Equal(t, "Seller countered to 90.00", negotiations[0].LastMessage)

	countered, err = service.Counter(offer.OfferID, "USR_buyer", decimal.NewFromInt(85))
	require.NoError(t, err)
	assert.True(t, countered.Amount.Equal(decimal.NewFromInt(85)))

	negotiations, err = service.Negotiations(offer.OfferID, "USR_buyer")
	require.NoError(t, err)
	assert.Equal(t, "Buyer countered to 85.00", negotiations[0].LastMessage)

	accepted, err := service.Accept(offer.OfferID, "USR_buyer")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)

	negotiations, err = service.Negotiations(offer.OfferID, "USR_buyer")
	require.NoError(t, err)
	assert.Equal(t, NegotiationClosed, negotiations[0].Status)
	assert.Equal(t, "Offer accepted", negotiations[0].LastMessage)
}

func TestCounterAuthorization(t *testing.T) {
	service, db := newTestService(t)
	listing := seedListing(t, db, "USR_seller", types.ListingStatusActive)

	offer, err := service.CreateOffer(listing.ListingID, "USR_buyer", decimal.NewFromInt(80))
	require.NoError(t, err)

	_, err = service.Counter(offer.OfferID, "USR_stranger", decimal.NewFromInt(95))
	assert.ErrorIs(t, err, ErrNotAParty)

	// The failed counter must not have touched the offer
	stored, err := service.GetOffer(offer.OfferID, "USR_buyer")
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(80)))

	_, err = service.GetOffer(offer.OfferID, "USR_stranger")
	assert.ErrorIs(t, err, ErrNotAParty)
}

func TestDecisionsAreFinal(t *testing.T) {
	service, db := newTestService(t)
	listing := seedListing(t, db, "USR_seller", types.ListingStatusActive)

	offer, err := service.CreateOffer(listing.ListingID, "USR_buyer", decimal.NewFromInt(80))
	require.NoError(t, err)

	_, err = service.Decline(offer.OfferID, "USR_seller")
	require.NoError(t, err)

	_, err = service.Accept(offer.OfferID, "USR_buyer")
	assert.ErrorIs(t, err, ErrNotModifiable)

	_, err = service.Counter(offer.OfferID, "USR_seller", decimal.NewFromInt(90))
	assert.ErrorIs(t, err, ErrNotModifiable)

	_, err = service.Decline(offer.OfferID, "USR_seller")
	assert.ErrorIs(t, err, ErrNotModifiable)

	stored, err := service.GetOffer(offer.OfferID, "USR_seller")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, stored.Status)

	negotiations, err := service.Negotiations(offer.OfferID, "USR_seller")
	require.NoError(t, err)
	require.Len(t, negotiations, 1)
	assert.Equal(t, NegotiationClosed, negotiations[0].Status)
	assert.Equal(t, "Offer declined", negotiations[0].LastMessage)
}

func TestPostNegotiation(t *testing.T) {
	service, db := newTestService(t)
	listing := seedListing(t, db, "USR_seller", types.ListingStatusActive)

	offer, err := service.CreateOffer(listing.ListingID, "USR_buyer", decimal.NewFromInt(80))
	require.NoError(t, err)

	negotiation, err := service.PostNegotiation(offer.OfferID, "USR_seller", &PostNegotiationRequest{
		Message: "  Can you meet in the middle?  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Can you meet in the middle?", negotiation.LastMessage)
	assert.Equal(t, NegotiationOpen, negotiation.Status)

	// A message alone leaves the amount untouched
	stored, err := service.GetOffer(offer.OfferID, "USR_buyer")
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(80)))

	counter := decimal.NewFromInt(85)
	negotiation, err = service.PostNegotiation(offer.OfferID, "USR_buyer", &PostNegotiationRequest{
		Message:       "Best I can do",
		CounterAmount: &counter,
	})
	require.NoError(t, err)
	assert.Equal(t, "Best I can do | Countered to 85.00", negotiation.LastMessage)

	stored, err = service.GetOffer(offer.OfferID, "USR_buyer")
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(counter))

	_, err = service.PostNegotiation(offer.OfferID, "USR_buyer", &PostNegotiationRequest{})
	assert.ErrorIs(t, err, ErrEmptyPost)

	bad := decimal.NewFromInt(-1)
	_, err = service.PostNegotiation(offer.OfferID, "USR_buyer", &PostNegotiationRequest{CounterAmount: &bad})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = service.PostNegotiation(offer.OfferID, "USR_stranger", &PostNegotiationRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrNotAParty)

	_, err = service.Accept(offer.OfferID, "USR_seller")
	require.NoError(t, err)

	_, err = service.PostNegotiation(offer.OfferID, "USR_buyer", &PostNegotiationRequest{Message: "wait"})
	assert.ErrorIs(t, err, ErrNotNegotiable)
}

func TestListOffers(t *testing.T) {
	service, db := newTestService(t)
	mine := seedListing(t, db, "USR_seller", types.ListingStatusActive)
	other := seedListing(t, db, "USR_other_seller", types.ListingStatusActive)

	first, err := service.CreateOffer(mine.ListingID, "USR_buyer", decimal.NewFromInt(40))
	require.NoError(t, err)
	_, err = service.CreateOffer(other.ListingID, "USR_buyer", decimal.NewFromInt(50))
	require.NoError(t, err)
	_, err = service.CreateOffer(other.ListingID, "USR_second_buyer", decimal.NewFromInt(60))
	require.NoError(t, err)

	all, err := service.ListOffers("", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Seller sees offers on their listings only
	sellerSide, err := service.ListOffers("", "", "USR_seller")
	require.NoError(t, err)
	require.Len(t, sellerSide, 1)
	assert.Equal(t, first.OfferID, sellerSide[0].OfferID)

	// Buyer sees the offers they opened
	buyerSide, err := service.ListOffers("", "", "USR_buyer")
	require.NoError(t, err)
	assert.Len(t, buyerSide, 2)

	pending, err := service.ListOffers(StatusPending, other.ListingID, "")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestExpireStaleOffers(t *testing.T) {
	service, db := newTestService(t)
	listing := seedListing(t, db, "USR_seller", types.ListingStatusActive)

	stale, err := service.CreateOffer(listing.ListingID, "USR_buyer", decimal.NewFromInt(70))
	require.NoError(t, err)
	fresh, err := service.CreateOffer(listing.ListingID, "USR_second_buyer", decimal.NewFromInt(75))
	require.NoError(t, err)

	// Backdate the first offer past the TTL
	backdated := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, db.Model(&Offer{}).
		Where("offer_id = ?", stale.OfferID).
		UpdateColumn("updated_at", backdated).Error)

	processor := NewProcessor(service.GetDB())
	require.NoError(t, processor.expireStaleOffers())

	expired, err := service.GetOffer(stale.OfferID, "USR_buyer")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, expired.Status)

	negotiations, err := service.Negotiations(stale.OfferID, "USR_buyer")
	require.NoError(t, err)
	require.Len(t, negotiations, 1)
	assert.Equal(t, NegotiationCancelled, negotiations[0].Status)
	assert.Equal(t, "Offer expired", negotiations[0].LastMessage)

	untouched, err := service.GetOffer(fresh.OfferID, "USR_second_buyer")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, untouched.Status)
}
