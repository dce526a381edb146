// Package events defines the outcome events the engine hands off to the
// notification boundary, and the dispatcher contract that consumes them.
// Delivery is at-least-once; the engine's own state is durable before any
// event is handed off, and a hand-off failure never rolls state back.
package events

import (
	"time"

	model "gem-auction/internal/models"
)

// EventType identifies the auction lifecycle moment an event describes.
type EventType string

const (
	TypeCreated      EventType = "created"
	TypePriceUpdated EventType = "price_updated"
	TypeSettled      EventType = "settled"
)

// Event is the envelope handed to the dispatcher.
type Event struct {
	Type      EventType `json:"type"`
	AuctionID string    `json:"auction_id"`
	Channels  []string  `json:"channels,omitempty"`
	Payload   any       `json:"payload"`
}

// CreatedPayload announces a new listing.
type CreatedPayload struct {
	Item          model.ItemSnapshot `json:"item"`
	SellerID      string             `json:"seller_id"`
	StartingPrice float64            `json:"starting_price"`
	MinIncrement  float64            `json:"min_increment"`
	Currency      string             `json:"currency"`
	EndsAt        time.Time          `json:"ends_at"`
}

// PriceUpdatedPayload announces an accepted bid.
type PriceUpdatedPayload struct {
	NewPrice          float64 `json:"new_price"`
	BidCount          int     `json:"bid_count"`
	BidderID          string  `json:"bidder_id"`
	BidderDisplayName string  `json:"bidder_display_name"`
	Currency          string  `json:"currency"`
}

// SettledPayload announces the outcome of a settled auction. WinnerID is
// nil when no bids were recorded or the reserve was not met.
type SettledPayload struct {
	WinnerID      *string `json:"winner_id"`
	WinningAmount float64 `json:"winning_amount,omitempty"`
	BidCount      int     `json:"bid_count"`
	Currency      string  `json:"currency"`
}

// Dispatcher is the notification boundary. Implementations deliver events
// at-least-once; callers treat errors as delivery gaps to be closed by
// reconciliation, never as reasons to undo a state transition.
type Dispatcher interface {
	Dispatch(evt Event) error
}

// NewCreated builds the created event for a freshly written auction.
func NewCreated(a model.Auction) Event {
	return Event{
		Type:      TypeCreated,
		AuctionID: a.AuctionID,
		Channels:  a.Channels,
		Payload: CreatedPayload{
			Item:          a.Item,
			SellerID:      a.SellerID,
			StartingPrice: a.StartingPrice,
			MinIncrement:  a.MinIncrement,
			Currency:      a.Currency,
			EndsAt:        a.EndsAt,
		},
	}
}

// NewPriceUpdated builds the price-updated event for an accepted bid.
func NewPriceUpdated(a model.Auction, bid model.Bid) Event {
	return Event{
		Type:      TypePriceUpdated,
		AuctionID: a.AuctionID,
		Channels:  a.Channels,
		Payload: PriceUpdatedPayload{
			NewPrice:          bid.Amount,
			BidCount:          a.BidCount,
			BidderID:          bid.BidderID,
			BidderDisplayName: bid.BidderDisplayName,
			Currency:          a.Currency,
		},
	}
}

// NewSettled builds the settled event for a terminal auction.
func NewSettled(a model.Auction, winnerID *string, winningAmount float64) Event {
	return Event{
		Type:      TypeSettled,
		AuctionID: a.AuctionID,
		Channels:  a.Channels,
		Payload: SettledPayload{
			WinnerID:      winnerID,
			WinningAmount: winningAmount,
			BidCount:      a.BidCount,
			Currency:      a.Currency,
		},
	}
}
