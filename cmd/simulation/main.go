package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vintagehub/market-api/internal/auth"
	"github.com/vintagehub/market-api/internal/catalog"
	"github.com/vintagehub/market-api/internal/config"
	"github.com/vintagehub/market-api/internal/database"
	"github.com/vintagehub/market-api/internal/listings"
	"github.com/vintagehub/market-api/internal/offers"
	"github.com/vintagehub/market-api/internal/payments"
	"github.com/vintagehub/market-api/internal/swaps"
	"github.com/vintagehub/market-api/internal/types"
	"github.com/vintagehub/market-api/internal/users"
	"github.com/vintagehub/market-api/pkg/middleware"
)

const (
	numSellers        = 4
	numBuyers         = 6
	minListings       = 12
	maxListings       = 36
	numWorkers        = 4
	serverAddress     = "http://localhost:8080"
	simPassword       = "simulation-pass-1"
	mockWebhookSecret = "whsec_mock"
)

var itemTitles = []string{
	"Levi's 501 Selvedge Jeans",
	"Polaroid SX-70 Land Camera",
	"Eames Lounge Chair Replica",
	"Harris Tweed Overcoat",
	"Technics SL-1200 Turntable",
	"Le Creuset Dutch Oven",
	"Omega Seamaster Watch",
	"Persian Heriz Rug",
	"Leather Doctor's Bag",
	"Mid-Century Teak Sideboard",
	"Royal Typewriter QDL",
	"Hermès Silk Scarf",
}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simUser is a registered account driven by the simulation
type simUser struct {
	UserID   string
	Email    string
	Username string
	Token    string
}

// simListing tracks a created listing and which seller owns it
type simListing struct {
	ListingID    string
	SellerIdx    int
	Price        float64
	CategoryName string
}

// simOffer tracks an open offer and the parties on each side
type simOffer struct {
	OfferID    string
	ListingIdx int
	BuyerIdx   int
	Amount     float64
}

// simulationClient handles HTTP communication with the marketplace API
type simulationClient struct {
	baseURL string
	client  *http.Client
	stats   map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
func newSimulationClient() *simulationClient {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	return &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"register":       {name: "Register User"},
			"login":          {name: "Login"},
			"catalog":        {name: "Fetch Catalog"},
			"create_listing": {name: "Create Listing"},
			"create_offer":   {name: "Create Offer"},
			"negotiate":      {name: "Post Negotiation"},
			"counter":        {name: "Counter Offer"},
			"decide":         {name: "Decide Offer"},
			"checkout":       {name: "Checkout"},
			"webhook":        {name: "Payment Webhook"},
		},
	}
}

// post sends an authenticated JSON POST and returns the raw response body
func (sc *simulationClient) post(path, token string, payload interface{}) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest("POST", sc.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// get sends an authenticated GET and returns the raw response body
func (sc *simulationClient) get(path, token string) ([]byte, int, error) {
	req, err := http.NewRequest("GET", sc.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// registerUser creates an account and logs it in, returning the user with
// a usable access token
func (sc *simulationClient) registerUser(role string, idx int) (*simUser, error) {
	start := time.Now()

	// Suffix keeps reruns against the same database from colliding
	suffix := uuid.New().String()[:8]
	email := fmt.Sprintf("%s%d_%s@simulation.local", role, idx, suffix)
	username := fmt.Sprintf("sim_%s_%d_%s", role, idx, suffix)

	respBody, status, err := sc.post("/api/v1/auth/register", "", auth.RegisterRequest{
		Email:    email,
		Username: username,
		Password: simPassword,
		FullName: fmt.Sprintf("Simulated %s %d", role, idx),
	})
	sc.stats["register"].addDuration(time.Since(start))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("register failed with status %d: %s", status, string(respBody))
	}

	var registered struct {
		Success bool       `json:"success"`
		Data    types.User `json:"data"`
	}
	if err := json.Unmarshal(respBody, &registered); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if registered.Data.UserID == "" {
		return nil, fmt.Errorf("no user ID in response: %s", string(respBody))
	}

	loginStart := time.Now()
	respBody, status, err = sc.post("/api/v1/auth/login", "", auth.LoginRequest{
		Email:    email,
		Password: simPassword,
	})
	sc.stats["login"].addDuration(time.Since(loginStart))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("login failed with status %d: %s", status, string(respBody))
	}

	var loggedIn struct {
		Success bool           `json:"success"`
		Data    auth.TokenPair `json:"data"`
	}
	if err := json.Unmarshal(respBody, &loggedIn); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if loggedIn.Data.AccessToken == "" {
		return nil, fmt.Errorf("no access token in response: %s", string(respBody))
	}

	return &simUser{
		UserID:   registered.Data.UserID,
		Email:    email,
		Username: username,
		Token:    loggedIn.Data.AccessToken,
	}, nil
}

// fetchCatalog retrieves the seeded regions and categories
func (sc *simulationClient) fetchCatalog() ([]types.Region, []types.Category, error) {
	start := time.Now()
	defer func() {
		sc.stats["catalog"].addDuration(time.Since(start))
	}()

	respBody, status, err := sc.get("/api/v1/regions", "")
	if err != nil {
		return nil, nil, err
	}
	if status != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch regions failed with status %d: %s", status, string(respBody))
	}

	var regionsResp struct {
		Success bool           `json:"success"`
		Data    []types.Region `json:"data"`
	}
	if err := json.Unmarshal(respBody, &regionsResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	respBody, status, err = sc.get("/api/v1/categories", "")
	if err != nil {
		return nil, nil, err
	}
	if status != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch categories failed with status %d: %s", status, string(respBody))
	}

	var categoriesResp struct {
		Success bool             `json:"success"`
		Data    []types.Category `json:"data"`
	}
	if err := json.Unmarshal(respBody, &categoriesResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	if len(regionsResp.Data) == 0 || len(categoriesResp.Data) == 0 {
		return nil, nil, fmt.Errorf("catalog is empty, seeding did not run")
	}

	return regionsResp.Data, categoriesResp.Data, nil
}

// createListing publishes a new listing for the given seller
func (sc *simulationClient) createListing(seller *simUser, region types.Region, category types.Category) (*types.Listing, error) {
	start := time.Now()
	defer func() {
		sc.stats["create_listing"].addDuration(time.Since(start))
	}()

	price := float64(rand.Intn(45000)+1500) / 100

	respBody, status, err := sc.post("/api/v1/listings", seller.Token, listings.CreateListingRequest{
		Title:       itemTitles[rand.Intn(len(itemTitles))],
		Description: fmt.Sprintf("Simulated stock offered by %s", seller.Username),
		Price:       decimal.NewFromFloat(price),
		Currency:    "USD",
		RegionID:    region.RegionID,
		CategoryID:  category.CategoryID,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("create listing failed with status %d: %s", status, string(respBody))
	}

	var result struct {
		Success bool          `json:"success"`
		Data    types.Listing `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if result.Data.ListingID == "" {
		return nil, fmt.Errorf("no listing ID in response: %s", string(respBody))
	}

	return &result.Data, nil
}

// createOffer opens an offer on a listing for the given buyer
func (sc *simulationClient) createOffer(buyer *simUser, listingID string, amount float64) (*offers.Offer, error) {
	start := time.Now()
	defer func() {
		sc.stats["create_offer"].addDuration(time.Since(start))
	}()

	respBody, status, err := sc.post(
		fmt.Sprintf("/api/v1/listings/%s/offers", listingID),
		buyer.Token,
		offers.CreateOfferRequest{Amount: decimal.NewFromFloat(amount)},
	)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("create offer failed with status %d: %s", status, string(respBody))
	}

	var result struct {
		Success bool         `json:"success"`
		Data    offers.Offer `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if result.Data.OfferID == "" {
		return nil, fmt.Errorf("no offer ID in response: %s", string(respBody))
	}

	return &result.Data, nil
}

// postNegotiation sends a message into an offer's negotiation channel
func (sc *simulationClient) postNegotiation(user *simUser, offerID, message string) error {
	start := time.Now()
	defer func() {
		sc.stats["negotiate"].addDuration(time.Since(start))
	}()

	respBody, status, err := sc.post(
		fmt.Sprintf("/api/v1/offers/%s/negotiations", offerID),
		user.Token,
		offers.PostNegotiationRequest{Message: message},
	)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("post negotiation failed with status %d: %s", status, string(respBody))
	}
	return nil
}

// counterOffer amends a pending offer's amount as the given party
func (sc *simulationClient) counterOffer(user *simUser, offerID string, amount float64) error {
	start := time.Now()
	defer func() {
		sc.stats["counter"].addDuration(time.Since(start))
	}()

	respBody, status, err := sc.post(
		fmt.Sprintf("/api/v1/offers/%s/counter", offerID),
		user.Token,
		offers.CounterOfferRequest{Amount: decimal.NewFromFloat(amount)},
	)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("counter offer failed with status %d: %s", status, string(respBody))
	}
	return nil
}

// decideOffer accepts or declines a pending offer as the given party
func (sc *simulationClient) decideOffer(user *simUser, offerID, decision string) error {
	start := time.Now()
	defer func() {
		sc.stats["decide"].addDuration(time.Since(start))
	}()

	respBody, status, err := sc.post(
		fmt.Sprintf("/api/v1/offers/%s/%s", offerID, decision),
		user.Token,
		nil,
	)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("decide offer failed with status %d: %s", status, string(respBody))
	}
	return nil
}

// checkout creates a payment intent and pending transaction for a listing
func (sc *simulationClient) checkout(buyer *simUser, listingID string, amount float64) (*payments.CheckoutResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["checkout"].addDuration(time.Since(start))
	}()

	body, err := json.Marshal(payments.CheckoutRequest{
		ListingID: listingID,
		Amount:    decimal.NewFromFloat(amount),
		Currency:  "USD",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", sc.baseURL+"/api/v1/transactions/checkout", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", buyer.Token))
	req.Header.Set("Idempotency-Key", uuid.New().String())

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("checkout failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Success bool                      `json:"success"`
		Data    payments.CheckoutResponse `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if result.Data.PaymentIntentID == "" {
		return nil, fmt.Errorf("no payment intent in response: %s", string(respBody))
	}

	return &result.Data, nil
}

// sendPaymentWebhook delivers a signed mock provider event for an intent
func (sc *simulationClient) sendPaymentWebhook(eventType, intentID string) (*payments.WebhookAck, error) {
	start := time.Now()
	defer func() {
		sc.stats["webhook"].addDuration(time.Since(start))
	}()

	payload, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id": intentID,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, []byte(mockWebhookSecret))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest("POST", sc.baseURL+"/api/v1/webhooks/payments", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webhook failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Success bool                `json:"success"`
		Data    payments.WebhookAck `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	return &result.Data, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the marketplace simulation
// It starts a local API server and simulates sellers listing items, buyers
// negotiating offers and payments settling through the webhook
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	simClient := newSimulationClient()

	// Register participants
	sellers := make([]*simUser, 0, numSellers)
	for i := 0; i < numSellers; i++ {
		seller, err := simClient.registerUser("seller", i)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to register seller")
		}
		sellers = append(sellers, seller)
	}

	buyers := make([]*simUser, 0, numBuyers)
	for i := 0; i < numBuyers; i++ {
		buyer, err := simClient.registerUser("buyer", i)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to register buyer")
		}
		buyers = append(buyers, buyer)
	}

	log.Info().
		Int("sellers", len(sellers)).
		Int("buyers", len(buyers)).
		Msg("Participants registered")

	// Fetch seeded reference data
	regions, categories, err := simClient.fetchCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch catalog")
	}

	// Generate random number of listings to publish
	targetListings := rand.Intn(maxListings-minListings) + minListings
	log.Info().Int("target_listings", targetListings).Msg("Starting simulation")

	// Collect statistics during processing
	stats := struct {
		TotalListings    int
		TotalOffers      int
		Countered        int
		Accepted         int
		Declined         int
		LeftPending      int
		CheckedOut       int
		PaymentsApplied  int
		FailedOffers     int
		FailedDecisions  int
		FailedCheckouts  int
		FailedWebhooks   int
		TotalValue       float64
		StartTime        time.Time
		Categories       map[string]int
	}{
		StartTime:  time.Now(),
		Categories: make(map[string]int),
	}

	// Publish listings concurrently
	listingsChan := make(chan simListing, targetListings)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			publishListings(workerID, targetListings/numWorkers, simClient, sellers, regions, categories, listingsChan)
		}(i)
	}

	wg.Wait()
	close(listingsChan)

	var createdListings []simListing
	for listing := range listingsChan {
		createdListings = append(createdListings, listing)
		stats.Categories[listing.CategoryName]++
	}
	stats.TotalListings = len(createdListings)

	log.Info().Int("listings_created", stats.TotalListings).Msg("All listings published")

	if stats.TotalListings == 0 {
		log.Fatal().Msg("No listings created, aborting simulation")
	}

	// Buyers open offers on random listings
	var openOffers []simOffer
	for buyerIdx, buyer := range buyers {
		numOffers := rand.Intn(len(createdListings)/2+1) + 1
		for i := 0; i < numOffers; i++ {
			listingIdx := rand.Intn(len(createdListings))
			target := createdListings[listingIdx]

			// Open below asking price, leaving room to negotiate
			amount := target.Price * (0.70 + rand.Float64()*0.25)
			amount = math.Round(amount*100) / 100

			offer, err := simClient.createOffer(buyer, target.ListingID, amount)
			if err != nil {
				log.Error().Err(err).
					Str("listing_id", target.ListingID).
					Msg("Failed to create offer")
				stats.FailedOffers++
				continue
			}

			openOffers = append(openOffers, simOffer{
				OfferID:    offer.OfferID,
				ListingIdx: listingIdx,
				BuyerIdx:   buyerIdx,
				Amount:     amount,
			})
			stats.TotalOffers++

			log.Info().
				Str("offer_id", offer.OfferID).
				Str("listing_id", target.ListingID).
				Float64("amount", amount).
				Msg("Offer created")
		}
	}

	// Negotiate roughly half the offers before deciding
	for i := range openOffers {
		if rand.Float64() > 0.5 {
			continue
		}

		offer := &openOffers[i]
		listing := createdListings[offer.ListingIdx]
		seller := sellers[listing.SellerIdx]
		buyer := buyers[offer.BuyerIdx]

		if err := simClient.postNegotiation(buyer, offer.OfferID, "Would you take a little less?"); err != nil {
			log.Error().Err(err).Str("offer_id", offer.OfferID).Msg("Failed to post negotiation")
		}

		// Seller counters between the offer and the asking price
		counter := offer.Amount + (listing.Price-offer.Amount)*0.5
		counter = math.Round(counter*100) / 100

		if err := simClient.counterOffer(seller, offer.OfferID, counter); err != nil {
			log.Error().Err(err).Str("offer_id", offer.OfferID).Msg("Failed to counter offer")
			continue
		}
		offer.Amount = counter
		stats.Countered++

		log.Info().
			Str("offer_id", offer.OfferID).
			Float64("counter", counter).
			Msg("Offer countered")
	}

	// Sellers decide offers, leaving a few pending
	var acceptedOffers []simOffer
	for _, offer := range openOffers {
		listing := createdListings[offer.ListingIdx]
		seller := sellers[listing.SellerIdx]

		roll := rand.Float64()
		switch {
		case roll < 0.60:
			if err := simClient.decideOffer(seller, offer.OfferID, "accept"); err != nil {
				log.Error().Err(err).Str("offer_id", offer.OfferID).Msg("Failed to accept offer")
				stats.FailedDecisions++
				continue
			}
			acceptedOffers = append(acceptedOffers, offer)
			stats.Accepted++
		case roll < 0.85:
			if err := simClient.decideOffer(seller, offer.OfferID, "decline"); err != nil {
				log.Error().Err(err).Str("offer_id", offer.OfferID).Msg("Failed to decline offer")
				stats.FailedDecisions++
				continue
			}
			stats.Declined++
		default:
			stats.LeftPending++
		}
	}

	log.Info().
		Int("accepted", stats.Accepted).
		Int("declined", stats.Declined).
		Int("pending", stats.LeftPending).
		Msg("All offers decided")

	// Buyers check out their accepted offers and the mock provider confirms
	for _, offer := range acceptedOffers {
		listing := createdListings[offer.ListingIdx]
		buyer := buyers[offer.BuyerIdx]

		checkoutResp, err := simClient.checkout(buyer, listing.ListingID, offer.Amount)
		if err != nil {
			log.Error().Err(err).Str("offer_id", offer.OfferID).Msg("Failed to checkout")
			stats.FailedCheckouts++
			continue
		}
		stats.CheckedOut++
		stats.TotalValue += offer.Amount

		log.Info().
			Str("transaction_id", checkoutResp.Transaction.TransactionID).
			Str("payment_intent_id", checkoutResp.PaymentIntentID).
			Float64("amount", offer.Amount).
			Msg("Checkout created")

		ack, err := simClient.sendPaymentWebhook("payment_intent.succeeded", checkoutResp.PaymentIntentID)
		if err != nil {
			log.Error().Err(err).Str("payment_intent_id", checkoutResp.PaymentIntentID).Msg("Failed to deliver webhook")
			stats.FailedWebhooks++
			continue
		}
		if ack.Action == "set_status_succeeded" {
			stats.PaymentsApplied++
		}

		log.Info().
			Str("transaction_id", ack.TransactionID).
			Str("action", ack.Action).
			Bool("verified", ack.Verified).
			Msg("Payment confirmed")
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🛍️  MARKETPLACE SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
📊 Marketplace Statistics
------------------------
Listings:         %d
Offers:           %d
Countered:        %d
Accepted:         %d
Declined:         %d
Left Pending:     %d
Checked Out:      %d
Payments Applied: %d
Failed Offers:    %d
Failed Decisions: %d
Failed Checkouts: %d
Failed Webhooks:  %d
Total Value:      $%.2f
Duration:         %v

📈 Category Distribution
----------------------
`, stats.TotalListings, stats.TotalOffers, stats.Countered, stats.Accepted,
		stats.Declined, stats.LeftPending, stats.CheckedOut, stats.PaymentsApplied,
		stats.FailedOffers, stats.FailedDecisions, stats.FailedCheckouts, stats.FailedWebhooks,
		stats.TotalValue, duration.Round(time.Millisecond))

	// Print category distribution with simple ASCII bar chart
	maxCategoryCount := 0
	for _, count := range stats.Categories {
		if count > maxCategoryCount {
			maxCategoryCount = count
		}
	}

	for category, count := range stats.Categories {
		barLength := int(float64(count) / float64(maxCategoryCount) * 20)
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-14s: %s (%d)\n", category, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	// Success rate calculation
	successRate := 0.0
	if stats.TotalOffers > 0 {
		successRate = float64(stats.Accepted) / float64(stats.TotalOffers) * 100
	}
	log.Info().
		Float64("acceptance_rate", successRate).
		Int("total_offers", stats.TotalOffers).
		Int("payments_applied", stats.PaymentsApplied).
		Float64("total_value", stats.TotalValue).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// publishListings generates and submits random listings to the API
// Runs as a worker goroutine, sending created listings to listingsChan
func publishListings(
	workerID, numListings int,
	simClient *simulationClient,
	sellers []*simUser,
	regions []types.Region,
	categories []types.Category,
	listingsChan chan<- simListing,
) {
	for i := 0; i < numListings; i++ {
		sellerIdx := rand.Intn(len(sellers))
		seller := sellers[sellerIdx]
		region := regions[rand.Intn(len(regions))]
		category := categories[rand.Intn(len(categories))]

		listing, err := simClient.createListing(seller, region, category)
		if err != nil {
			log.Error().Err(err).
				Str("worker_id", fmt.Sprintf("%d", workerID)).
				Str("seller", seller.Username).
				Msg("Failed to create listing")
			continue
		}

		price, _ := listing.Price.Float64()
		listingsChan <- simListing{
			ListingID:    listing.ListingID,
			SellerIdx:    sellerIdx,
			Price:        price,
			CategoryName: category.Name,
		}

		log.Info().
			Str("worker_id", fmt.Sprintf("%d", workerID)).
			Str("listing_id", listing.ListingID).
			Str("title", listing.Title).
			Str("category", category.Name).
			Float64("price", price).
			Msg("Listing published")

		// Random sleep between listings
		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
}

// startServer initializes and starts the marketplace API server in mock
// payment mode so checkouts and webhooks work without provider keys
func startServer() error {
	os.Setenv("MARKET_AUTH_JWT_SECRET", "simulation-secret-key")
	os.Setenv("MARKET_PAYMENTS_PROVIDER", "mock")
	os.Setenv("MARKET_DATABASE_PATH", "simulation.db")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	authService := auth.NewService(db, cfg.Auth)
	usersService := users.NewService(db)
	catalogService := catalog.NewService(db)
	listingsService := listings.NewService(db)
	offersService := offers.NewService(db)
	swapsService := swaps.NewService(db)
	paymentsGateway := payments.NewGateway(cfg.Payments)
	paymentsService := payments.NewService(db, paymentsGateway)

	if _, _, err := catalogService.SeedDefaults(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	usersHandlers := users.NewGinHandlers(usersService)
	catalogHandlers := catalog.NewGinHandlers(catalogService)
	listingsHandlers := listings.NewGinHandlers(listingsService)
	offersHandlers := offers.NewGinHandlers(offersService)
	swapsHandlers := swaps.NewGinHandlers(swapsService)
	paymentsHandlers := payments.NewGinHandlers(paymentsService)

	// Setup routes
	setupRoutes(router, authService,
		authHandlers, usersHandlers, catalogHandlers,
		listingsHandlers, offersHandlers, swapsHandlers, paymentsHandlers)

	// Start the server
	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
func setupRoutes(
	router *gin.Engine,
	authService *auth.Service,
	authHandlers *auth.GinHandlers,
	usersHandlers *users.GinHandlers,
	catalogHandlers *catalog.GinHandlers,
	listingsHandlers *listings.GinHandlers,
	offersHandlers *offers.GinHandlers,
	swapsHandlers *swaps.GinHandlers,
	paymentsHandlers *payments.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandlers.RegisterHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
			authGroup.POST("/refresh", authHandlers.RefreshHandler())

			me := authGroup.Group("")
			me.Use(middleware.RequireAuth(authService))
			{
				me.GET("/me", authHandlers.MeHandler())
			}
		}

		// User routes
		usersGroup := v1.Group("/users")
		{
			usersGroup.GET("/:user_id", usersHandlers.GetUserHandler())

			profile := usersGroup.Group("")
			profile.Use(middleware.RequireAuth(authService))
			{
				profile.PATCH("/me", usersHandlers.UpdateProfileHandler())
			}
		}

		// Catalog routes
		v1.GET("/regions", catalogHandlers.ListRegionsHandler())
		v1.GET("/categories", catalogHandlers.ListCategoriesHandler())

		// Listing routes
		listingsGroup := v1.Group("/listings")
		{
			listingsGroup.GET("", listingsHandlers.ListListingsHandler())
			listingsGroup.GET("/:listing_id", listingsHandlers.GetListingHandler())

			listingOps := listingsGroup.Group("")
			listingOps.Use(middleware.RequireAuth(authService))
			{
				listingOps.POST("", listingsHandlers.CreateListingHandler())
				listingOps.PATCH("/:listing_id", listingsHandlers.UpdateListingHandler())
				listingOps.DELETE("/:listing_id", listingsHandlers.DeleteListingHandler())
				listingOps.POST("/:listing_id/offers", offersHandlers.CreateOfferHandler())
			}
		}

		// Offer routes
		offersGroup := v1.Group("/offers")
		offersGroup.Use(middleware.RequireAuth(authService))
		{
			offersGroup.GET("", offersHandlers.ListOffersHandler())
			offersGroup.GET("/:offer_id", offersHandlers.GetOfferHandler())
			offersGroup.POST("/:offer_id/counter", offersHandlers.CounterOfferHandler())
			offersGroup.POST("/:offer_id/accept", offersHandlers.AcceptOfferHandler())
			offersGroup.POST("/:offer_id/decline", offersHandlers.DeclineOfferHandler())
			offersGroup.GET("/:offer_id/negotiations", offersHandlers.GetNegotiationsHandler())
			offersGroup.POST("/:offer_id/negotiations", offersHandlers.PostNegotiationHandler())
		}

		// Swap routes
		swapsGroup := v1.Group("/swaps")
		swapsGroup.Use(middleware.RequireAuth(authService))
		{
			swapsGroup.POST("", swapsHandlers.ProposeSwapHandler())
			swapsGroup.GET("", swapsHandlers.ListSwapsHandler())
			swapsGroup.GET("/:swap_id", swapsHandlers.GetSwapHandler())
			swapsGroup.POST("/:swap_id/accept", swapsHandlers.AcceptSwapHandler())
			swapsGroup.POST("/:swap_id/decline", swapsHandlers.DeclineSwapHandler())
		}

		// Transaction routes
		transactionsGroup := v1.Group("/transactions")
		transactionsGroup.Use(middleware.RequireAuth(authService))
		{
			transactionsGroup.POST("/checkout", paymentsHandlers.CheckoutHandler())
			transactionsGroup.GET("", paymentsHandlers.ListTransactionsHandler())
			transactionsGroup.GET("/:transaction_id", paymentsHandlers.GetTransactionHandler())
		}

		// Webhook routes
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/payments", paymentsHandlers.WebhookHandler())
		}
	}
}
