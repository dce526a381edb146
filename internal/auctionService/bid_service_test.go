package auction

import (
	"errors"
	"testing"
	"time"

	"gem-auction/internal/auctionerrors"
	"gem-auction/internal/events"
	model "gem-auction/internal/models"
	"gem-auction/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openAuction(version int64, price float64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:     "a1",
		SellerID:      "seller1",
		StartingPrice: 500,
		MinIncrement:  50,
		Currency:      "USD",
		CurrentPrice:  price,
		BidCount:      int(version),
		Status:        model.StatusActive,
		StartsAt:      now.Add(-time.Minute),
		EndsAt:        now.Add(10 * time.Minute),
		Version:       version,
	}
}

func newTestBidService(store repository.AuctionStore, dispatcher events.Dispatcher) *BidService {
	svc := NewBidService(store, dispatcher)
	svc.retryDelay = 0 // no backoff in tests
	return svc
}

// Tests PlaceBid validation rejections
func TestBidService_PlaceBid_Rejections(t *testing.T) {
	expired := openAuction(0, 500)
	expired.EndsAt = time.Now().UTC().Add(-time.Second)

	cancelled := openAuction(0, 500)
	cancelled.Status = model.StatusCancelled

	tests := []struct {
		name          string
		auctionID     string
		bidderID      string
		amount        float64
		mockSetup     func(store *repository.MockAuctionStore)
		expectedError error
	}{
		{
			name:          "empty_auctionID",
			auctionID:     "",
			bidderID:      "user1",
			amount:        560,
			mockSetup:     func(store *repository.MockAuctionStore) {},
			expectedError: auctionerrors.ErrInvalidRequest,
		},
		{
			name:          "empty_bidderID",
			auctionID:     "a1",
			bidderID:      "",
			amount:        560,
			mockSetup:     func(store *repository.MockAuctionStore) {},
			expectedError: auctionerrors.ErrInvalidRequest,
		},
		{
			name:          "non_positive_amount",
			auctionID:     "a1",
			bidderID:      "user1",
			amount:        0,
			mockSetup:     func(store *repository.MockAuctionStore) {},
			expectedError: auctionerrors.ErrInvalidRequest,
		},
		{
			name:      "bid_below_increment_floor",
			auctionID: "a1",
			bidderID:  "user1",
			amount:    549,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction("a1").Return(openAuction(0, 500), nil)
			},
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "seller_bids_own_auction",
			auctionID: "a1",
			bidderID:  "seller1",
			amount:    560,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction("a1").Return(openAuction(0, 500), nil)
			},
			expectedError: auctionerrors.ErrSelfBid,
		},
		{
			name:      "auction_cancelled",
			auctionID: "a1",
			bidderID:  "user1",
			amount:    560,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction("a1").Return(cancelled, nil)
			},
			expectedError: auctionerrors.ErrAuctionNotActive,
		},
		{
			name:      "deadline_passed",
			auctionID: "a1",
			bidderID:  "user1",
			amount:    560,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction("a1").Return(expired, nil)
			},
			expectedError: auctionerrors.ErrAuctionNotActive,
		},
		{
			name:      "auction_not_found",
			auctionID: "missing",
			bidderID:  "user1",
			amount:    560,
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetAuction("missing").Return(model.Auction{}, auctionerrors.ErrAuctionNotFound)
			},
			expectedError: auctionerrors.ErrAuctionNotFound,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockStore := repository.NewMockAuctionStore(ctrl)
			service := newTestBidService(mockStore, events.NewMockDispatcher(ctrl))
			tc.mockSetup(mockStore)

			_, _, err := service.PlaceBid(tc.auctionID, tc.bidderID, "Bidder", tc.amount)

			require.Error(t, err)
			require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
		})
	}
}

// A rejection must hand the caller the fresh auction state so it can retry
// without another read.
func TestBidService_PlaceBid_RejectionCarriesCurrentPrice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := repository.NewMockAuctionStore(ctrl)
	mockDispatcher := events.NewMockDispatcher(ctrl)
	service := newTestBidService(mockStore, mockDispatcher)

	mockStore.EXPECT().GetAuction("a1").Return(openAuction(2, 600), nil)

	_, a, err := service.PlaceBid("a1", "user1", "Bidder", 620)

	require.True(t, errors.Is(err, auctionerrors.ErrBidTooLow))
	require.Equal(t, 600.0, a.CurrentPrice)
	require.Equal(t, 50.0, a.MinIncrement)
}

func TestBidService_PlaceBid_Accepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := repository.NewMockAuctionStore(ctrl)
	mockDispatcher := events.NewMockDispatcher(ctrl)
	service := newTestBidService(mockStore, mockDispatcher)

	mockStore.EXPECT().GetAuction("a1").Return(openAuction(0, 500), nil)
	mockStore.EXPECT().ApplyBid("a1", int64(0), 560.0).Return(true, nil)
	mockStore.EXPECT().AppendBid(gomock.Any()).Return(nil)
	mockDispatcher.EXPECT().Dispatch(gomock.Any()).DoAndReturn(func(evt events.Event) error {
		require.Equal(t, events.TypePriceUpdated, evt.Type)
		require.Equal(t, "a1", evt.AuctionID)
		payload := evt.Payload.(events.PriceUpdatedPayload)
		require.Equal(t, 560.0, payload.NewPrice)
		require.Equal(t, 1, payload.BidCount)
		require.Equal(t, "user1", payload.BidderID)
		return nil
	})

	bid, a, err := service.PlaceBid("a1", "user1", "Bidder One", 560)

	require.NoError(t, err)
	_, parseErr := uuid.Parse(bid.BidID)
	require.NoError(t, parseErr, "BidID should be a valid UUID")
	require.Equal(t, "a1", bid.AuctionID)
	require.Equal(t, "user1", bid.BidderID)
	require.Equal(t, 560.0, bid.Amount)
	require.WithinDuration(t, time.Now().UTC(), bid.CreatedAt, 2*time.Second)

	require.Equal(t, 560.0, a.CurrentPrice)
	require.Equal(t, 1, a.BidCount)
	require.Equal(t, int64(1), a.Version)
}

// A lost conditional write is retried with fresh state; the bid is
// accepted on the next attempt when it still clears the new floor.
func TestBidService_PlaceBid_StaleThenAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := repository.NewMockAuctionStore(ctrl)
	mockDispatcher := events.NewMockDispatcher(ctrl)
	service := newTestBidService(mockStore, mockDispatcher)

	gomock.InOrder(
		mockStore.EXPECT().GetAuction("a1").Return(openAuction(0, 500), nil),
		mockStore.EXPECT().ApplyBid("a1", int64(0), 700.0).Return(false, nil),
		mockStore.EXPECT().GetAuction("a1").Return(openAuction(1, 560), nil),
		mockStore.EXPECT().ApplyBid("a1", int64(1), 700.0).Return(true, nil),
		mockStore.EXPECT().AppendBid(gomock.Any()).Return(nil),
		mockDispatcher.EXPECT().Dispatch(gomock.Any()).Return(nil),
	)

	bid, a, err := service.PlaceBid("a1", "user2", "Bidder Two", 700)

	require.NoError(t, err)
	require.Equal(t, 700.0, bid.Amount)
	require.Equal(t, 700.0, a.CurrentPrice)
	require.Equal(t, 2, a.BidCount)
	require.Equal(t, int64(2), a.Version)
}

// After the retry budget is exhausted the caller gets StaleState plus the
// freshest price, never an unbounded retry loop.
func TestBidService_PlaceBid_StaleStateAfterRetryBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := repository.NewMockAuctionStore(ctrl)
	mockDispatcher := events.NewMockDispatcher(ctrl)
	service := newTestBidService(mockStore, mockDispatcher)

	gomock.InOrder(
		mockStore.EXPECT().GetAuction("a1").Return(openAuction(0, 500), nil),
		mockStore.EXPECT().ApplyBid("a1", int64(0), 900.0).Return(false, nil),
		mockStore.EXPECT().GetAuction("a1").Return(openAuction(1, 560), nil),
		mockStore.EXPECT().ApplyBid("a1", int64(1), 900.0).Return(false, nil),
		mockStore.EXPECT().GetAuction("a1").Return(openAuction(2, 620), nil),
		mockStore.EXPECT().ApplyBid("a1", int64(2), 900.0).Return(false, nil),
		mockStore.EXPECT().GetAuction("a1").Return(openAuction(3, 680), nil),
	)

	_, a, err := service.PlaceBid("a1", "user2", "Bidder Two", 900)

	require.True(t, errors.Is(err, auctionerrors.ErrStaleState))
	require.Equal(t, 680.0, a.CurrentPrice)
}

// The audit-trail append is retried alone after a successful price update;
// the price update is never re-applied.
func TestBidService_PlaceBid_AppendRetriedNotPriceUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := repository.NewMockAuctionStore(ctrl)
	mockDispatcher := events.NewMockDispatcher(ctrl)
	service := newTestBidService(mockStore, mockDispatcher)

	gomock.InOrder(
		mockStore.EXPECT().GetAuction("a1").Return(openAuction(0, 500), nil),
		mockStore.EXPECT().ApplyBid("a1", int64(0), 560.0).Return(true, nil),
		mockStore.EXPECT().AppendBid(gomock.Any()).Return(errors.New("transient write failure")),
		mockStore.EXPECT().AppendBid(gomock.Any()).Return(nil),
		mockDispatcher.EXPECT().Dispatch(gomock.Any()).Return(nil),
	)

	bid, a, err := service.PlaceBid("a1", "user1", "Bidder One", 560)

	require.NoError(t, err)
	require.Equal(t, 560.0, bid.Amount)
	require.Equal(t, 1, a.BidCount)
}

// When the append never lands no event is emitted: the audit row must be
// durable before the price-updated hand-off.
func TestBidService_PlaceBid_AppendExhaustedEmitsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := repository.NewMockAuctionStore(ctrl)
	mockDispatcher := events.NewMockDispatcher(ctrl)
	service := newTestBidService(mockStore, mockDispatcher)

	mockStore.EXPECT().GetAuction("a1").Return(openAuction(0, 500), nil)
	mockStore.EXPECT().ApplyBid("a1", int64(0), 560.0).Return(true, nil)
	mockStore.EXPECT().AppendBid(gomock.Any()).Return(errors.New("store down")).Times(3)

	_, _, err := service.PlaceBid("a1", "user1", "Bidder One", 560)

	require.Error(t, err)
}

// Tests GetWinningBid
func TestBidService_GetWinningBid(t *testing.T) {
	now := time.Now().UTC()
	bids := []model.Bid{
		{BidID: "b1", AuctionID: "a1", BidderID: "A", Amount: 100, CreatedAt: now},
		{BidID: "b2", AuctionID: "a1", BidderID: "B", Amount: 120, CreatedAt: now.Add(time.Second)},
		{BidID: "b3", AuctionID: "a1", BidderID: "C", Amount: 120, CreatedAt: now.Add(2 * time.Second)},
	}

	tests := []struct {
		name          string
		auctionID     string
		mockSetup     func(store *repository.MockAuctionStore)
		expectedError error
		wantBidder    string
	}{
		{
			name:      "highest_amount_earliest_tie_wins",
			auctionID: "a1",
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetBidsByAuction("a1").Return(bids, nil)
			},
			wantBidder: "B",
		},
		{
			name:      "no_bids",
			auctionID: "a1",
			mockSetup: func(store *repository.MockAuctionStore) {
				store.EXPECT().GetBidsByAuction("a1").Return(nil, nil)
			},
			expectedError: auctionerrors.ErrNoBids,
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			mockSetup:     func(store *repository.MockAuctionStore) {},
			expectedError: auctionerrors.ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockStore := repository.NewMockAuctionStore(ctrl)
			service := newTestBidService(mockStore, events.NewMockDispatcher(ctrl))
			tc.mockSetup(mockStore)

			bid, err := service.GetWinningBid(tc.auctionID)

			if tc.expectedError != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantBidder, bid.BidderID)
			require.Equal(t, 120.0, bid.Amount)
		})
	}
}
