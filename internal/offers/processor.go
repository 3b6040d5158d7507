package offers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor expires stale pending offers in the background. An offer with
// no activity for the TTL moves to expired and its negotiation channel is
// cancelled.
type Processor struct {
	db           *Database
	processDelay time.Duration // Time between expiry sweeps
	offerTTL     time.Duration // Inactivity window before a pending offer expires
}

func NewProcessor(db *Database) *Processor {
	return &Processor{
		db:           db,
		processDelay: 10 * time.Minute,
		offerTTL:     7 * 24 * time.Hour,
	}
}

// Start begins the offer expiry loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "offer_expiry").Logger()
	logger.Info().Msg("starting offer expiry processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down offer expiry processor")
			return
		case <-ticker.C:
			if err := p.expireStaleOffers(); err != nil {
				logger.Error().Err(err).Msg("failed to expire stale offers")
			}
		}
	}
}

func (p *Processor) expireStaleOffers() error {
	logger := log.With().Str("component", "offer_expiry").Logger()

	cutoff := time.Now().Add(-p.offerTTL)
	stale, err := p.db.ListStalePendingOffers(cutoff)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}

	logger.Info().Int("stale_count", len(stale)).Msg("expiring stale offers")

	for i := range stale {
		offer := &stale[i]
		offer.Status = StatusExpired

		negotiation, err := p.db.GetNegotiationByOfferID(offer.OfferID)
		if err != nil {
			logger.Error().
				Err(err).
				Str("offer_id", offer.OfferID).
				Msg("failed to load negotiation")
			continue
		}
		if negotiation != nil {
			negotiation.Status = NegotiationCancelled
			negotiation.LastMessage = "Offer expired"
		}

		if err := p.db.SaveOfferAndNegotiation(offer, negotiation); err != nil {
			logger.Error().
				Err(err).
				Str("offer_id", offer.OfferID).
				Msg("failed to expire offer")
			continue
		}

		logger.Info().
			Str("offer_id", offer.OfferID).
			Msg("offer expired")
	}

	return nil
}
