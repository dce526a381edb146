package auction

import (
	"fmt"
	"math/rand"
	"time"

	"gem-auction/internal/auctionerrors"
	"gem-auction/internal/events"
	"gem-auction/internal/models"
	"gem-auction/internal/repository"
	"gem-auction/utils"
)

// BidService validates and atomically applies bids against the current
// auction state. Concurrent bidders race on the auction row's version; the
// loser of a conditional write is retried here a bounded number of times
// with fresh state before StaleState is surfaced to the caller.
type BidService struct {
	store      repository.AuctionStore
	dispatcher events.Dispatcher

	maxAttempts int
	retryDelay  time.Duration // upper bound for the jittered backoff between attempts
}

// NewBidService creates a new BidService instance
func NewBidService(store repository.AuctionStore, dispatcher events.Dispatcher) *BidService {
	return &BidService{
		store:       store,
		dispatcher:  dispatcher,
		maxAttempts: 3,
		retryDelay:  25 * time.Millisecond,
	}
}

// PlaceBid validates and applies a bid. On success it returns the recorded
// bid and the auction state after the update. On rejection the returned
// auction is the freshest state read, so the caller always learns the
// current price without an extra round-trip.
func (s *BidService) PlaceBid(auctionID, bidderID, bidderDisplayName string, amount float64) (models.Bid, models.Auction, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, models.Auction{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidRequest)
	}
	if amount <= 0 {
		return models.Bid{}, models.Auction{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidRequest)
	}

	var a models.Auction
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var err error
		a, err = s.store.GetAuction(auctionID)
		if err != nil {
			return models.Bid{}, models.Auction{}, fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
		}

		if err := validateBid(a, bidderID, amount); err != nil {
			return models.Bid{}, a, err
		}

		matched, err := s.store.ApplyBid(auctionID, a.Version, amount)
		if err != nil {
			return models.Bid{}, a, fmt.Errorf("service: failed to apply bid on auction %s: %w", auctionID, err)
		}
		if matched {
			return s.recordAcceptedBid(a, bidderID, bidderDisplayName, amount)
		}

		// Another bid won the race; re-read and re-validate against the
		// new price after a short jittered pause.
		if attempt < s.maxAttempts && s.retryDelay > 0 {
			time.Sleep(jitter(s.retryDelay))
		}
	}

	fresh, err := s.store.GetAuction(auctionID)
	if err != nil {
		fresh = a
	}
	return models.Bid{}, fresh, fmt.Errorf("service: %w - current price is %.2f", auctionerrors.ErrStaleState, fresh.CurrentPrice)
}

// validateBid checks business rules against a freshly read auction row.
func validateBid(a models.Auction, bidderID string, amount float64) error {
	if a.Status != models.StatusActive {
		return fmt.Errorf("service: %w - auction %s is %s", auctionerrors.ErrAuctionNotActive, a.AuctionID, a.Status)
	}
	if !time.Now().UTC().Before(a.EndsAt) {
		return fmt.Errorf("service: %w - auction %s deadline has passed", auctionerrors.ErrAuctionNotActive, a.AuctionID)
	}
	if bidderID == a.SellerID {
		return fmt.Errorf("service: %w", auctionerrors.ErrSelfBid)
	}
	if minimum := a.CurrentPrice + a.MinIncrement; amount < minimum {
		return fmt.Errorf("service: %w - minimum acceptable bid is %.2f", auctionerrors.ErrBidTooLow, minimum)
	}
	return nil
}

// recordAcceptedBid appends the audit-trail row for a bid whose price
// update already landed, then emits the price-updated event. The price
// update is never re-applied: only the append is retried, and the event
// waits for the append to be durable.
func (s *BidService) recordAcceptedBid(observed models.Auction, bidderID, bidderDisplayName string, amount float64) (models.Bid, models.Auction, error) {
	bid := models.Bid{
		BidID:             utils.GenerateID(),
		AuctionID:         observed.AuctionID,
		BidderID:          bidderID,
		BidderDisplayName: bidderDisplayName,
		Amount:            amount,
		CreatedAt:         time.Now().UTC(),
	}

	updated := observed
	updated.CurrentPrice = amount
	updated.BidCount++
	updated.Version++

	var appendErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if appendErr = s.store.AppendBid(bid); appendErr == nil {
			break
		}
		utils.Warn("bid append failed, retrying", map[string]any{
			"auction_id": bid.AuctionID,
			"bid_id":     bid.BidID,
			"attempt":    attempt,
			"error":      appendErr.Error(),
		})
		if attempt < s.maxAttempts && s.retryDelay > 0 {
			time.Sleep(jitter(s.retryDelay))
		}
	}
	if appendErr != nil {
		// The price update is durable but the audit row is not; surface
		// the failure instead of emitting an event for an unrecorded bid.
		return models.Bid{}, updated, fmt.Errorf("service: failed to append bid for auction %s: %w", bid.AuctionID, appendErr)
	}

	if err := s.dispatcher.Dispatch(events.NewPriceUpdated(updated, bid)); err != nil {
		utils.Warn("failed to dispatch price updated event", map[string]any{
			"auction_id": bid.AuctionID,
			"error":      err.Error(),
		})
	}

	return bid, updated, nil
}

// jitter returns a random duration in [d/2, d].
func jitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// GetAuction returns the current auction state.
func (s *BidService) GetAuction(auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidRequest)
	}
	a, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// GetBidsForAuction returns the append-only audit trail for an auction.
func (s *BidService) GetBidsForAuction(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidRequest)
	}
	bids, err := s.store.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetWinningBid returns the currently leading bid: highest amount, ties
// broken by earliest creation time.
func (s *BidService) GetWinningBid(auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidRequest)
	}
	bids, err := s.store.GetBidsByAuction(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	winner, ok := selectWinner(bids)
	if !ok {
		return models.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrNoBids)
	}
	return winner, nil
}
