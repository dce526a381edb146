package models

import "time"

// AuctionStatus is the lifecycle state of an auction. Transitions are
// one-way: active -> ended (sweeper) or active -> cancelled (seller).
type AuctionStatus string

const (
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusCancelled AuctionStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s AuctionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// ItemSnapshot is an immutable copy of a gemstone's descriptive attributes,
// taken from the catalog at listing time. Later catalog edits never reach a
// running auction.
type ItemSnapshot struct {
	ItemID            string  `json:"item_id"`
	Shape             string  `json:"shape"`
	WeightCarats      float64 `json:"weight_carats"`
	ColorGrade        string  `json:"color_grade"`
	ClarityGrade      string  `json:"clarity_grade"`
	CutGrade          string  `json:"cut_grade"`
	CertificateLab    string  `json:"certificate_lab"`
	CertificateNumber string  `json:"certificate_number"`
	ImageURL          string  `json:"image_url"`
}

// Auction is a timed, single-item bidding session. CurrentPrice, BidCount,
// Status and WinnerID are the only mutable fields, and every mutation goes
// through a conditional store write keyed on Version or Status.
type Auction struct {
	AuctionID     string        `json:"auction_id"`
	SellerID      string        `json:"seller_id"`
	Item          ItemSnapshot  `json:"item"`
	StartingPrice float64       `json:"starting_price"`
	MinIncrement  float64       `json:"min_increment"`
	ReservePrice  float64       `json:"reserve_price"` // 0 means no reserve
	Currency      string        `json:"currency"`
	CurrentPrice  float64       `json:"current_price"`
	BidCount      int           `json:"bid_count"`
	Status        AuctionStatus `json:"status"`
	StartsAt      time.Time     `json:"starts_at"`
	EndsAt        time.Time     `json:"ends_at"`
	WinnerID      *string       `json:"winner_id,omitempty"`
	Version       int64         `json:"version"`
	Channels      []string      `json:"channels,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Bid is an immutable, append-only offer against an auction. Bid rows form
// the audit trail the sweeper uses to determine the winner.
type Bid struct {
	BidID             string    `json:"bid_id"`
	AuctionID         string    `json:"auction_id"`
	BidderID          string    `json:"bidder_id"`
	BidderDisplayName string    `json:"bidder_display_name"`
	Amount            float64   `json:"amount"`
	CreatedAt         time.Time `json:"created_at"`
}

// SweepReport summarizes a single settlement sweep invocation.
type SweepReport struct {
	Candidates int `json:"candidates"`
	Settled    int `json:"settled"`
	Skipped    int `json:"skipped"`
	Reemitted  int `json:"reemitted"`
}
