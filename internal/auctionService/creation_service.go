package auction

import (
	"errors"
	"fmt"
	"time"

	"gem-auction/internal/auctionerrors"
	"gem-auction/internal/catalog"
	"gem-auction/internal/events"
	"gem-auction/internal/models"
	"gem-auction/internal/repository"
	"gem-auction/utils"
)

// CreateAuctionInput carries a seller's listing request.
type CreateAuctionInput struct {
	SellerID      string
	ItemID        string
	StartingPrice float64
	MinIncrement  float64
	ReservePrice  float64
	Currency      string
	Duration      time.Duration
	Channels      []string
}

// CreationService opens auctions: it validates the request, snapshots the
// item from the catalog, writes the initial row and emits the created
// event. It also owns the seller-initiated cancellation path, which uses
// the same status-guarded transition as settlement.
type CreationService struct {
	store      repository.AuctionStore
	catalog    catalog.Catalog
	dispatcher events.Dispatcher

	minDuration time.Duration
	maxDuration time.Duration
}

// NewCreationService creates a new CreationService instance. Duration
// bounds cap runaway listings; zero values fall back to 1 minute and 30
// days.
func NewCreationService(store repository.AuctionStore, cat catalog.Catalog, dispatcher events.Dispatcher, minDuration, maxDuration time.Duration) *CreationService {
	if minDuration <= 0 {
		minDuration = time.Minute
	}
	if maxDuration <= 0 {
		maxDuration = 30 * 24 * time.Hour
	}
	return &CreationService{
		store:       store,
		catalog:     cat,
		dispatcher:  dispatcher,
		minDuration: minDuration,
		maxDuration: maxDuration,
	}
}

// CreateAuction validates the listing request and writes the auction row.
// The item snapshot is read from the catalog exactly once, here; catalog
// edits made after this point never reach the running auction.
func (s *CreationService) CreateAuction(in CreateAuctionInput) (models.Auction, error) {
	if err := s.validateCreate(in); err != nil {
		return models.Auction{}, err
	}

	owns, err := s.catalog.IsOwner(in.SellerID, in.ItemID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrItemNotFound) {
			return models.Auction{}, fmt.Errorf("service: %w", err)
		}
		return models.Auction{}, fmt.Errorf("service: failed to check ownership of item %s: %w", in.ItemID, err)
	}
	if !owns {
		return models.Auction{}, fmt.Errorf("service: %w - seller %s, item %s", auctionerrors.ErrNotOwner, in.SellerID, in.ItemID)
	}

	item, err := s.catalog.GetItem(in.ItemID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to read item %s: %w", in.ItemID, err)
	}

	now := time.Now().UTC()
	a := models.Auction{
		AuctionID:     utils.GenerateID(),
		SellerID:      in.SellerID,
		Item:          item.Snapshot(),
		StartingPrice: in.StartingPrice,
		MinIncrement:  in.MinIncrement,
		ReservePrice:  in.ReservePrice,
		Currency:      in.Currency,
		CurrentPrice:  in.StartingPrice,
		BidCount:      0,
		Status:        models.StatusActive,
		StartsAt:      now,
		EndsAt:        now.Add(in.Duration),
		Version:       0,
		Channels:      in.Channels,
		CreatedAt:     now,
	}

	if err := s.store.CreateAuction(a); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction for item %s: %w", in.ItemID, err)
	}

	// State is durable; a dispatch failure is a delivery gap, not a
	// creation failure.
	if err := s.dispatcher.Dispatch(events.NewCreated(a)); err != nil {
		utils.Warn("failed to dispatch created event", map[string]any{
			"auction_id": a.AuctionID,
			"error":      err.Error(),
		})
	}

	return a, nil
}

// validateCreate checks field-level rules before any collaborator call.
func (s *CreationService) validateCreate(in CreateAuctionInput) error {
	if in.SellerID == "" || in.ItemID == "" {
		return fmt.Errorf("service: %w - missing sellerID or itemID", auctionerrors.ErrInvalidRequest)
	}
	if in.StartingPrice <= 0 {
		return fmt.Errorf("service: %w - non-positive starting price", auctionerrors.ErrInvalidRequest)
	}
	if in.MinIncrement <= 0 {
		return fmt.Errorf("service: %w - non-positive minimum increment", auctionerrors.ErrInvalidRequest)
	}
	if in.ReservePrice < 0 {
		return fmt.Errorf("service: %w - negative reserve price", auctionerrors.ErrInvalidRequest)
	}
	if in.Currency == "" {
		return fmt.Errorf("service: %w - missing currency", auctionerrors.ErrInvalidRequest)
	}
	if in.Duration < s.minDuration || in.Duration > s.maxDuration {
		return fmt.Errorf("service: %w - duration %s outside [%s, %s]", auctionerrors.ErrInvalidRequest, in.Duration, s.minDuration, s.maxDuration)
	}
	return nil
}

// CancelAuction transitions an active auction to cancelled on behalf of
// its seller. The status guard rejects the transition once the auction is
// terminal, so a cancellation racing the settlement sweep cannot
// double-terminate the row.
func (s *CreationService) CancelAuction(auctionID, sellerID string) (models.Auction, error) {
	if auctionID == "" || sellerID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing auctionID or sellerID", auctionerrors.ErrInvalidRequest)
	}

	a, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
	}
	if a.SellerID != sellerID {
		return models.Auction{}, fmt.Errorf("service: %w - seller %s does not own auction %s", auctionerrors.ErrNotOwner, sellerID, auctionID)
	}

	claimed, err := s.store.ClaimStatus(auctionID, models.StatusActive, models.StatusCancelled)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to cancel auction %s: %w", auctionID, err)
	}
	if !claimed {
		return models.Auction{}, fmt.Errorf("service: %w - auction %s is already terminal", auctionerrors.ErrAuctionNotActive, auctionID)
	}

	a.Status = models.StatusCancelled
	a.Version++

	utils.Info("auction cancelled", map[string]any{
		"auction_id": auctionID,
		"seller_id":  sellerID,
	})
	return a, nil
}
