package handler

import (
	"fmt"
	"net/http"
	"time"

	auction "gem-auction/internal/auctionService"
	model "gem-auction/internal/models"
	"gem-auction/services/auction/helpers"
	"gem-auction/utils"

	"github.com/gin-gonic/gin"
)

type CreationServiceInterface interface {
	CreateAuction(in auction.CreateAuctionInput) (model.Auction, error)
	CancelAuction(auctionID, sellerID string) (model.Auction, error)
}

type BidServiceInterface interface {
	PlaceBid(auctionID, bidderID, bidderDisplayName string, amount float64) (model.Bid, model.Auction, error)
	GetAuction(auctionID string) (model.Auction, error)
	GetBidsForAuction(auctionID string) ([]model.Bid, error)
	GetWinningBid(auctionID string) (model.Bid, error)
}

type SweeperInterface interface {
	RunSettlementSweep() model.SweepReport
	ReconcileSettlementEvents() int
}

type AuctionHandler struct {
	creation CreationServiceInterface
	bids     BidServiceInterface
	sweeper  SweeperInterface
}

func NewAuctionHandler(creation CreationServiceInterface, bids BidServiceInterface, sweeper SweeperInterface) *AuctionHandler {
	return &AuctionHandler{creation: creation, bids: bids, sweeper: sweeper}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	a, err := h.creation.CreateAuction(auction.CreateAuctionInput{
		SellerID:      req.SellerID,
		ItemID:        req.ItemID,
		StartingPrice: req.StartingPrice,
		MinIncrement:  req.MinIncrement,
		ReservePrice:  req.ReservePrice,
		Currency:      req.Currency,
		Duration:      time.Duration(req.DurationMinutes) * time.Minute,
		Channels:      req.Channels,
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("CreateAuctionHandler: failed to create auction", map[string]any{
			"seller_id": req.SellerID,
			"item_id":   req.ItemID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(a), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id":     a.AuctionID,
		"seller_id":      a.SellerID,
		"item_id":        a.Item.ItemID,
		"starting_price": a.StartingPrice,
		"ends_at":        a.EndsAt.UTC().Format(time.RFC3339),
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, a, err := h.bids.PlaceBid(auctionID, req.BidderID, req.BidderDisplayName, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		if helpers.IsRetryableRejection(err) {
			// The rejection carries the fresh price so the bidder can
			// resubmit without another read.
			utils.JSONRejection(c, status, err, message, a.CurrentPrice, a.MinIncrement)
		} else {
			utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		}
		utils.Warn("PlaceBidHandler: bid rejected", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"amount":     req.Amount,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid, a), "bid accepted")
	helpers.LogSuccess("PlaceBidHandler", "bid accepted", map[string]any{
		"auction_id": auctionID,
		"bid_id":     bid.BidID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount,
		"bid_count":  a.BidCount,
	})
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.CancelAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CancelAuctionHandler", err)
		return
	}

	a, err := h.creation.CancelAuction(auctionID, req.SellerID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("CancelAuctionHandler: cancellation rejected", map[string]any{
			"auction_id": auctionID,
			"seller_id":  req.SellerID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(a), "auction cancelled")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled", map[string]any{
		"auction_id": auctionID,
		"seller_id":  req.SellerID,
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	a, err := h.bids.GetAuction(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(a), "auction retrieved successfully")
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	bids, err := h.bids.GetBidsForAuction(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// GetWinningBidHandler handles GET /auctions/:auction_id/winning
func (h *AuctionHandler) GetWinningBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	bid, err := h.bids.GetWinningBid(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Info("GetWinningBidHandler: no winning bid", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, bid, "winning bid retrieved successfully")
}

// RunSweepHandler handles POST /sweeps — the on-demand settlement trigger
// for operators; the same sweep also runs on the configured interval.
func (h *AuctionHandler) RunSweepHandler(c *gin.Context) {
	report := h.sweeper.RunSettlementSweep()
	report.Reemitted = h.sweeper.ReconcileSettlementEvents()

	utils.JSONResponse(c, http.StatusOK, helpers.SweepResponse{
		Candidates: report.Candidates,
		Settled:    report.Settled,
		Skipped:    report.Skipped,
		Reemitted:  report.Reemitted,
	}, "settlement sweep completed")
	helpers.LogSuccess("RunSweepHandler", "settlement sweep completed", map[string]any{
		"candidates": report.Candidates,
		"settled":    report.Settled,
		"skipped":    report.Skipped,
		"reemitted":  report.Reemitted,
	})
}
