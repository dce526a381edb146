package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	auction "gem-auction/internal/auctionService"
	"gem-auction/internal/catalog"
	"gem-auction/internal/events"
	model "gem-auction/internal/models"
	"gem-auction/internal/repository"
	"gem-auction/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// TestEnv bundles the router with the store so tests can seed state the
// API does not expose, like overdue auctions for sweep scenarios.
type TestEnv struct {
	Router *gin.Engine
	Store  *repository.MemoryStore
}

// SetupTestEnv initializes the full engine on the in-memory store, seeded
// with the given catalog items.
func SetupTestEnv(items ...catalog.Item) TestEnv {
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	cat := catalog.NewStaticCatalog()
	for _, item := range items {
		cat.AddItem(item)
	}

	dispatcher := events.NewLogDispatcher()
	creation := auction.NewCreationService(store, cat, dispatcher, time.Minute, 30*24*time.Hour)
	bids := auction.NewBidService(store, dispatcher)
	sweeper := auction.NewSweeper(store, dispatcher)

	return TestEnv{
		Router: server.SetupRouter(creation, bids, sweeper),
		Store:  store,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		if w.Code == 200 || w.Code == 201 {
			if data, ok := resp["data"].(map[string]any); ok {
				resp = data
			}
		}
	}

	return resp, w
}

func gemstone(itemID, ownerID string) catalog.Item {
	return catalog.Item{
		ItemID:            itemID,
		OwnerID:           ownerID,
		Shape:             "round",
		WeightCarats:      1.02,
		ColorGrade:        "F",
		ClarityGrade:      "VS1",
		CutGrade:          "Excellent",
		CertificateLab:    "GIA",
		CertificateNumber: "2201234567",
	}
}

// seedOverdueAuction writes an active auction past its deadline directly
// into the store, bypassing the creation service's minimum duration.
func seedOverdueAuction(t *testing.T, store *repository.MemoryStore, id string, reserve float64, bids []model.Bid) {
	t.Helper()
	now := time.Now().UTC()

	current := 500.0
	for _, b := range bids {
		if b.Amount > current {
			current = b.Amount
		}
	}

	require.NoError(t, store.CreateAuction(model.Auction{
		AuctionID:     id,
		SellerID:      "seller1",
		Item:          model.ItemSnapshot{ItemID: "stone1", Shape: "round", WeightCarats: 1.02},
		StartingPrice: 500,
		MinIncrement:  50,
		ReservePrice:  reserve,
		Currency:      "USD",
		CurrentPrice:  current,
		BidCount:      len(bids),
		Status:        model.StatusActive,
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(-time.Minute),
		Version:       int64(len(bids)),
		CreatedAt:     now.Add(-time.Hour),
	}))
	for _, b := range bids {
		b.AuctionID = id
		require.NoError(t, store.AppendBid(b))
	}
}
