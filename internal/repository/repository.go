package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gem-auction/internal/auctionerrors"
	model "gem-auction/internal/models"
)

// AuctionStore defines the durable record store for auctions and bids.
//
// ApplyBid and ClaimStatus are conditional writes: they succeed only when
// the row still matches the observed version or status, and report a clean
// miss as (false, nil). All cross-process mutual exclusion in the engine is
// expressed through these two methods; no caller holds locks across them.
type AuctionStore interface {
	CreateAuction(a model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	// ListDue returns auctions with status=active and endsAt <= now.
	ListDue(now time.Time) ([]model.Auction, error)
	// ApplyBid sets currentPrice=amount, increments bidCount and version,
	// guarded by version == observedVersion AND status == active.
	ApplyBid(auctionID string, observedVersion int64, amount float64) (bool, error)
	// ClaimStatus transitions status from -> to, guarded by status == from.
	ClaimStatus(auctionID string, from, to model.AuctionStatus) (bool, error)
	// SetWinner records the winner on an already-claimed terminal row.
	SetWinner(auctionID, winnerID string) error
	AppendBid(bid model.Bid) error
	GetBidsByAuction(auctionID string) ([]model.Bid, error)
	// ListUnreconciled returns ended auctions whose settled event has not
	// been recorded as emitted.
	ListUnreconciled() ([]model.Auction, error)
	MarkSettlementEmitted(auctionID string) error
}

// MemoryStore is a concurrency-safe in-memory implementation of
// AuctionStore. The mutex only protects the maps of this one process; the
// conditional-write semantics are what callers rely on, exactly as with the
// Postgres implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction // key: auctionID
	bids     map[string][]model.Bid   // key: auctionID -> bids in append order
	emitted  map[string]bool          // key: auctionID -> settled event recorded
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[string]model.Auction),
		bids:     make(map[string][]model.Bid),
		emitted:  make(map[string]bool),
	}
}

// CreateAuction writes a new auction row
func (s *MemoryStore) CreateAuction(a model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[a.AuctionID]; ok {
		return fmt.Errorf("create auction %s: duplicate id", a.AuctionID)
	}
	s.auctions[a.AuctionID] = a
	return nil
}

// GetAuction returns a copy of the auction row
func (s *MemoryStore) GetAuction(auctionID string) (model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// ListDue returns active auctions whose deadline has passed
func (s *MemoryStore) ListDue(now time.Time) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []model.Auction
	for _, a := range s.auctions {
		if a.Status == model.StatusActive && !a.EndsAt.After(now) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].EndsAt.Before(due[j].EndsAt) })
	return due, nil
}

// ApplyBid performs the conditional price update for an accepted bid.
func (s *MemoryStore) ApplyBid(auctionID string, observedVersion int64, amount float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return false, fmt.Errorf("apply bid on auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Version != observedVersion || a.Status != model.StatusActive {
		return false, nil
	}

	a.CurrentPrice = amount
	a.BidCount++
	a.Version++
	s.auctions[auctionID] = a
	return true, nil
}

// ClaimStatus performs the conditional status transition.
func (s *MemoryStore) ClaimStatus(auctionID string, from, to model.AuctionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return false, fmt.Errorf("claim auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status != from {
		return false, nil
	}

	a.Status = to
	a.Version++
	s.auctions[auctionID] = a
	return true, nil
}

// SetWinner records the winning bidder on a settled auction. The row is
// already terminal when this runs, so no guard beyond existence is needed.
func (s *MemoryStore) SetWinner(auctionID, winnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return fmt.Errorf("set winner on auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	w := winnerID
	a.WinnerID = &w
	s.auctions[auctionID] = a
	return nil
}

// AppendBid appends an immutable bid row to the audit trail
func (s *MemoryStore) AppendBid(bid model.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], bid)
	return nil
}

// GetBidsByAuction returns all bids for an auction in append order
func (s *MemoryStore) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return append([]model.Bid(nil), s.bids[auctionID]...), nil
}

// ListUnreconciled returns ended auctions with no recorded settled event
func (s *MemoryStore) ListUnreconciled() ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var gaps []model.Auction
	for id, a := range s.auctions {
		if a.Status == model.StatusEnded && !s.emitted[id] {
			gaps = append(gaps, a)
		}
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].EndsAt.Before(gaps[j].EndsAt) })
	return gaps, nil
}

// MarkSettlementEmitted records that the settled event for an auction was
// handed off to the dispatcher.
func (s *MemoryStore) MarkSettlementEmitted(auctionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return fmt.Errorf("mark settlement for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	s.emitted[auctionID] = true
	return nil
}
