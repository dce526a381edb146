package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrNoBids           = errors.New("no bids found for auction")
	ErrStoreUnavailable = errors.New("auction store unavailable")
)

// business logic errors
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrItemNotFound     = errors.New("item not found in catalog")
	ErrNotOwner         = errors.New("seller does not own item")
	ErrSelfBid          = errors.New("seller cannot bid on own auction")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrStaleState       = errors.New("auction state changed, retry with current price")
)
