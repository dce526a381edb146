package helpers

import (
	"time"

	model "gem-auction/internal/models"
)

// Request/Response DTOs
type CreateAuctionRequest struct {
	SellerID        string   `json:"seller_id" binding:"required"`
	ItemID          string   `json:"item_id" binding:"required"`
	StartingPrice   float64  `json:"starting_price" binding:"required,gt=0"`
	MinIncrement    float64  `json:"min_increment" binding:"required,gt=0"`
	ReservePrice    float64  `json:"reserve_price" binding:"omitempty,gte=0"`
	Currency        string   `json:"currency" binding:"required,len=3"`
	DurationMinutes int      `json:"duration_minutes" binding:"required,gt=0"`
	Channels        []string `json:"channels"`
}

type PlaceBidRequest struct {
	BidderID          string  `json:"bidder_id" binding:"required"`
	BidderDisplayName string  `json:"bidder_display_name"`
	Amount            float64 `json:"amount" binding:"required,gt=0"`
}

type CancelAuctionRequest struct {
	SellerID string `json:"seller_id" binding:"required"`
}

type AuctionResponse struct {
	AuctionID     string             `json:"auction_id"`
	SellerID      string             `json:"seller_id"`
	Item          model.ItemSnapshot `json:"item"`
	StartingPrice float64            `json:"starting_price"`
	MinIncrement  float64            `json:"min_increment"`
	Currency      string             `json:"currency"`
	CurrentPrice  float64            `json:"current_price"`
	BidCount      int                `json:"bid_count"`
	Status        string             `json:"status"`
	StartsAt      string             `json:"starts_at"`
	EndsAt        string             `json:"ends_at"`
	WinnerID      *string            `json:"winner_id,omitempty"`
}

type BidResponse struct {
	BidID             string  `json:"bid_id"`
	AuctionID         string  `json:"auction_id"`
	BidderID          string  `json:"bidder_id"`
	BidderDisplayName string  `json:"bidder_display_name"`
	Amount            float64 `json:"amount"`
	CurrentPrice      float64 `json:"current_price"`
	BidCount          int     `json:"bid_count"`
	CreatedAt         string  `json:"created_at"`
}

type SweepResponse struct {
	Candidates int `json:"candidates"`
	Settled    int `json:"settled"`
	Skipped    int `json:"skipped"`
	Reemitted  int `json:"reemitted"`
}

// NewAuctionResponse maps an auction model to its API shape.
func NewAuctionResponse(a model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:     a.AuctionID,
		SellerID:      a.SellerID,
		Item:          a.Item,
		StartingPrice: a.StartingPrice,
		MinIncrement:  a.MinIncrement,
		Currency:      a.Currency,
		CurrentPrice:  a.CurrentPrice,
		BidCount:      a.BidCount,
		Status:        string(a.Status),
		StartsAt:      a.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:        a.EndsAt.UTC().Format(time.RFC3339),
		WinnerID:      a.WinnerID,
	}
}

// NewBidResponse maps an accepted bid and the resulting auction state to
// the API shape.
func NewBidResponse(b model.Bid, a model.Auction) BidResponse {
	return BidResponse{
		BidID:             b.BidID,
		AuctionID:         b.AuctionID,
		BidderID:          b.BidderID,
		BidderDisplayName: b.BidderDisplayName,
		Amount:            b.Amount,
		CurrentPrice:      a.CurrentPrice,
		BidCount:          a.BidCount,
		CreatedAt:         b.CreatedAt.UTC().Format(time.RFC3339),
	}
}
