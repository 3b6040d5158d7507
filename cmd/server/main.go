package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/vintagehub/market-api/internal/auth"
	"github.com/vintagehub/market-api/internal/catalog"
	"github.com/vintagehub/market-api/internal/config"
	"github.com/vintagehub/market-api/internal/database"
	"github.com/vintagehub/market-api/internal/listings"
	"github.com/vintagehub/market-api/internal/offers"
	"github.com/vintagehub/market-api/internal/payments"
	"github.com/vintagehub/market-api/internal/swaps"
	"github.com/vintagehub/market-api/internal/users"
	"github.com/vintagehub/market-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the marketplace API server with graceful shutdown
// support. It sets up all required services, database connections and routes.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(db, cfg.Auth)
	authHandlers := auth.NewGinHandlers(authService)

	usersService := users.NewService(db)
	usersHandlers := users.NewGinHandlers(usersService)

	catalogService := catalog.NewService(db)
	catalogHandlers := catalog.NewGinHandlers(catalogService)

	listingsService := listings.NewService(db)
	listingsHandlers := listings.NewGinHandlers(listingsService)

	offersService := offers.NewService(db)
	offersHandlers := offers.NewGinHandlers(offersService)

	swapsService := swaps.NewService(db)
	swapsHandlers := swaps.NewGinHandlers(swapsService)

	paymentsGateway := payments.NewGateway(cfg.Payments)
	paymentsService := payments.NewService(db, paymentsGateway)
	paymentsHandlers := payments.NewGinHandlers(paymentsService)

	// Create and start offer expiry processor
	offersProcessor := offers.NewProcessor(offersService.GetDB())
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go offersProcessor.Start(processorCtx)

	// Seed reference data
	regionsAdded, categoriesAdded, err := catalogService.SeedDefaults()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to seed catalog")
	}
	zlog.Info().
		Int("regions_added", regionsAdded).
		Int("categories_added", categoriesAdded).
		Msg("Catalog seeded")

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, authService,
		authHandlers, usersHandlers, catalogHandlers,
		listingsHandlers, offersHandlers, swapsHandlers, paymentsHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public registration and token endpoints
// - Catalog routes: Public reference data
// - Listing routes: Public reads, authenticated writes
// - Offer, swap and transaction routes: Protected by JWT authentication
// - Webhook routes: Public, verified by provider signature
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
	// Health check
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Healthy"})
	})

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

		// Webhook routes (verified by provider signature, not JWT)
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/payments", paymentsHandlers.WebhookHandler())
		}
	}
}
