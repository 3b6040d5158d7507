package swaps

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

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
	require.NoError(t, db.AutoMigrate(&types.User{}, &types.Listing{}, &Swap{}))

	return NewService(db), db
}

func seedUser(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()

	require.NoError(t, db.Create(&types.User{
		UserID:   userID,
		Email:    fmt.Sprintf("%s@example.com", userID),
		Username: userID,
		IsActive: true,
	}).Error)
}

func seedListing(t *testing.T, db *gorm.DB, sellerID string) *types.Listing {
	t.Helper()

	listing := &types.Listing{
		ListingID: "LST_" + uuid.New().String(),
		SellerID:  sellerID,
		Title:     "Eames Lounge Chair",
		Price:     decimal.NewFromInt(900),
		Currency:  "USD",
		Status:    types.ListingStatusActive,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func TestProposeSwap(t *testing.T) {
	service, db := newTestService(t)
	seedUser(t, db, "USR_alice")
	seedUser(t, db, "USR_bob")
	aliceListing := seedListing(t, db, "USR_alice")
	bobListing := seedListing(t, db, "USR_bob")

	swap, err := service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  aliceListing.ListingID,
		RecipientListingID: bobListing.ListingID,
		Notes:              "My chair for your camera?",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(swap.SwapID, "SWP_"))
	assert.Equal(t, StatusProposed, swap.Status)
	assert.Equal(t, bobListing.ListingID, swap.ListingID)
	assert.Equal(t, "USR_alice", swap.InitiatorID)
	assert.Equal(t, "USR_bob", swap.CounterpartyID)
	assert.Equal(t, "My chair for your camera?", swap.Notes)
}

func TestProposeSwapValidation(t *testing.T) {
	service, db := newTestService(t)
	seedUser(t, db, "USR_alice")
	seedUser(t, db, "USR_bob")
	aliceListing := seedListing(t, db, "USR_alice")
	aliceOther := seedListing(t, db, "USR_alice")
	bobListing := seedListing(t, db, "USR_bob")

	_, err := service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  "LST_missing",
		RecipientListingID: bobListing.ListingID,
	})
	assert.ErrorIs(t, err, ErrProposerListingNotFound)

	_, err = service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  aliceListing.ListingID,
		RecipientListingID: "LST_missing",
	})
	assert.ErrorIs(t, err, ErrRecipientListingNotFound)

	// Proposer listing must belong to the initiator
	_, err = service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  bobListing.ListingID,
		RecipientListingID: aliceListing.ListingID,
	})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  aliceListing.ListingID,
		RecipientListingID: aliceOther.ListingID,
	})
	assert.ErrorIs(t, err, ErrOwnListing)

	// Both sides must resolve to existing users
	ghostListing := seedListing(t, db, "USR_ghost")
	_, err = service.Propose("USR_ghost", &ProposeSwapRequest{
		ProposerListingID:  ghostListing.ListingID,
		RecipientListingID: bobListing.ListingID,
	})
	assert.ErrorIs(t, err, ErrProposerNotFound)

	phantomListing := seedListing(t, db, "USR_phantom")
	_, err = service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  aliceListing.ListingID,
		RecipientListingID: phantomListing.ListingID,
	})
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestDecideSwap(t *testing.T) {
	service, db := newTestService(t)
	seedUser(t, db, "USR_alice")
	seedUser(t, db, "USR_bob")
	aliceListing := seedListing(t, db, "USR_alice")
	bobListing := seedListing(t, db, "USR_bob")

	swap, err := service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  aliceListing.ListingID,
		RecipientListingID: bobListing.ListingID,
	})
	require.NoError(t, err)

	// The initiator cannot decide their own proposal
	_, err = service.Accept(swap.SwapID, "USR_alice")
	assert.ErrorIs(t, err, ErrNotCounterparty)

	accepted, err := service.Accept(swap.SwapID, "USR_bob")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)

	_, err = service.Decline(swap.SwapID, "USR_bob")
	assert.ErrorIs(t, err, ErrNotDecidable)

	_, err = service.Accept("SWP_missing", "USR_bob")
	assert.ErrorIs(t, err, ErrSwapNotFound)

	declined, err := service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  aliceListing.ListingID,
		RecipientListingID: bobListing.ListingID,
	})
	require.NoError(t, err)

	decidedDown, err := service.Decline(declined.SwapID, "USR_bob")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, decidedDown.Status)
}

func TestGetSwap(t *testing.T) {
	service, db := newTestService(t)
	seedUser(t, db, "USR_alice")
	seedUser(t, db, "USR_bob")
	aliceListing := seedListing(t, db, "USR_alice")
	bobListing := seedListing(t, db, "USR_bob")

	swap, err := service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  aliceListing.ListingID,
		RecipientListingID: bobListing.ListingID,
	})
	require.NoError(t, err)

	for _, userID := range []string{"USR_alice", "USR_bob"} {
		found, err := service.GetSwap(swap.SwapID, userID)
		require.NoError(t, err)
		assert.Equal(t, swap.SwapID, found.SwapID)
	}

	_, err = service.GetSwap(swap.SwapID, "USR_stranger")
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = service.GetSwap("SWP_missing", "USR_alice")
	assert.ErrorIs(t, err, ErrSwapNotFound)
}

func TestListSwaps(t *testing.T) {
	service, db := newTestService(t)
	seedUser(t, db, "USR_alice")
	seedUser(t, db, "USR_bob")
	seedUser(t, db, "USR_carol")
	aliceListing := seedListing(t, db, "USR_alice")
	bobListing := seedListing(t, db, "USR_bob")
	carolListing := seedListing(t, db, "USR_carol")

	first, err := service.Propose("USR_alice", &ProposeSwapRequest{
		ProposerListingID:  aliceListing.ListingID,
		RecipientListingID: bobListing.ListingID,
	})
	require.NoError(t, err)
	_, err = service.Propose("USR_bob", &ProposeSwapRequest{
		ProposerListingID:  bobListing.ListingID,
		RecipientListingID: carolListing.ListingID,
	})
	require.NoError(t, err)

	_, err = service.Accept(first.SwapID, "USR_bob")
	require.NoError(t, err)

	all, err := service.ListSwaps("", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	accepted, err := service.ListSwaps(StatusAccepted, "")
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, first.SwapID, accepted[0].SwapID)

	// Participation covers both sides of a swap
	aliceSwaps, err := service.ListSwaps("", "USR_alice")
	require.NoError(t, err)
	assert.Len(t, aliceSwaps, 1)

	bobSwaps, err := service.ListSwaps("", "USR_bob")
	require.NoError(t, err)
	assert.Len(t, bobSwaps, 2)

	carolProposed, err := service.ListSwaps(StatusProposed, "USR_carol")
	require.NoError(t, err)
	assert.Len(t, carolProposed, 1)
}
