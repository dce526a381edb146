package auction

import (
	"time"

	"gem-auction/internal/events"
	"gem-auction/internal/models"
	"gem-auction/internal/repository"
	"gem-auction/utils"
)

// Sweeper settles overdue auctions. It is safe to run concurrently with
// itself and across process instances: the status claim is a conditional
// write, and only the invocation whose claim lands proceeds to settle an
// auction. Re-running over already-ended auctions is a no-op.
type Sweeper struct {
	store      repository.AuctionStore
	dispatcher events.Dispatcher
}

// NewSweeper creates a new Sweeper instance
func NewSweeper(store repository.AuctionStore, dispatcher events.Dispatcher) *Sweeper {
	return &Sweeper{store: store, dispatcher: dispatcher}
}

// RunSettlementSweep claims and settles every auction whose deadline has
// passed. Per-auction failures are logged and skipped; the sweep is
// unattended and one bad row must not halt the rest.
func (s *Sweeper) RunSettlementSweep() models.SweepReport {
	var report models.SweepReport

	due, err := s.store.ListDue(time.Now().UTC())
	if err != nil {
		utils.Error("sweep: failed to list due auctions", map[string]any{"error": err.Error()})
		return report
	}
	report.Candidates = len(due)

	for _, a := range due {
		claimed, err := s.store.ClaimStatus(a.AuctionID, models.StatusActive, models.StatusEnded)
		if err != nil {
			utils.Error("sweep: claim failed", map[string]any{"auction_id": a.AuctionID, "error": err.Error()})
			report.Skipped++
			continue
		}
		if !claimed {
			// Another invocation owns this auction now.
			report.Skipped++
			continue
		}

		if err := s.settle(a); err != nil {
			utils.Error("sweep: settlement failed", map[string]any{"auction_id": a.AuctionID, "error": err.Error()})
			report.Skipped++
			continue
		}
		report.Settled++
	}

	if report.Candidates > 0 {
		utils.Info("settlement sweep finished", map[string]any{
			"candidates": report.Candidates,
			"settled":    report.Settled,
			"skipped":    report.Skipped,
		})
	}
	return report
}

// settle determines the outcome of a claimed auction and emits its settled
// event. The row is already terminal, so no further conditional write is
// needed: no other writer can mutate a non-active row.
func (s *Sweeper) settle(a models.Auction) error {
	bids, err := s.store.GetBidsByAuction(a.AuctionID)
	if err != nil {
		return err
	}

	a.Status = models.StatusEnded
	a.BidCount = len(bids)

	var winnerID *string
	var winningAmount float64
	if winner, ok := selectWinner(bids); ok && reserveMet(a, winner.Amount) {
		if err := s.store.SetWinner(a.AuctionID, winner.BidderID); err != nil {
			return err
		}
		id := winner.BidderID
		winnerID = &id
		winningAmount = winner.Amount
	}

	if err := s.dispatcher.Dispatch(events.NewSettled(a, winnerID, winningAmount)); err != nil {
		// The auction stays ended with no emission record; the
		// reconciliation pass re-emits it.
		utils.Warn("sweep: settled event dispatch failed", map[string]any{
			"auction_id": a.AuctionID,
			"error":      err.Error(),
		})
		return nil
	}

	if err := s.store.MarkSettlementEmitted(a.AuctionID); err != nil {
		utils.Warn("sweep: failed to record settled emission", map[string]any{
			"auction_id": a.AuctionID,
			"error":      err.Error(),
		})
	}
	return nil
}

// ReconcileSettlementEvents re-emits the settled event for every ended
// auction with no recorded emission. Delivery is at-least-once: a crash
// between dispatch and record produces a duplicate on the next pass, never
// silence.
func (s *Sweeper) ReconcileSettlementEvents() int {
	gaps, err := s.store.ListUnreconciled()
	if err != nil {
		utils.Error("reconcile: failed to list unreconciled auctions", map[string]any{"error": err.Error()})
		return 0
	}

	reemitted := 0
	for _, a := range gaps {
		bids, err := s.store.GetBidsByAuction(a.AuctionID)
		if err != nil {
			utils.Error("reconcile: failed to read bids", map[string]any{"auction_id": a.AuctionID, "error": err.Error()})
			continue
		}

		a.BidCount = len(bids)
		var winnerID *string
		var winningAmount float64
		if winner, ok := selectWinner(bids); ok && reserveMet(a, winner.Amount) {
			id := winner.BidderID
			winnerID = &id
			winningAmount = winner.Amount
		}

		if err := s.dispatcher.Dispatch(events.NewSettled(a, winnerID, winningAmount)); err != nil {
			utils.Warn("reconcile: settled event dispatch failed", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		if err := s.store.MarkSettlementEmitted(a.AuctionID); err != nil {
			utils.Warn("reconcile: failed to record settled emission", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		reemitted++
	}

	if reemitted > 0 {
		utils.Info("settlement reconciliation finished", map[string]any{"reemitted": reemitted})
	}
	return reemitted
}

// selectWinner picks the bid with the maximum amount, ties broken by the
// earliest CreatedAt: the first bidder to reach the amount wins.
func selectWinner(bids []models.Bid) (models.Bid, bool) {
	if len(bids) == 0 {
		return models.Bid{}, false
	}
	winner := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > winner.Amount || (b.Amount == winner.Amount && b.CreatedAt.Before(winner.CreatedAt)) {
			winner = b
		}
	}
	return winner, true
}

// reserveMet reports whether the amount satisfies the auction's reserve
// price. A zero reserve means no reserve.
func reserveMet(a models.Auction, amount float64) bool {
	return a.ReservePrice == 0 || amount >= a.ReservePrice
}
