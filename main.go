package main

import (
	"fmt"
	"os"
	"time"

	auction "gem-auction/internal/auctionService"
	"gem-auction/internal/catalog"
	"gem-auction/internal/config"
	"gem-auction/internal/events"
	"gem-auction/internal/repository"
	"gem-auction/internal/server"
	"gem-auction/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	dispatcher, closeDispatcher, err := buildDispatcher(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dispatcher: %v\n", err)
		os.Exit(1)
	}
	defer closeDispatcher()

	cat := catalog.NewStaticCatalog()
	prepopulateCatalog(cat)

	creationSvc := auction.NewCreationService(store, cat, dispatcher, cfg.MinAuctionDuration, cfg.MaxAuctionDuration)
	bidSvc := auction.NewBidService(store, dispatcher)
	sweeper := auction.NewSweeper(store, dispatcher)

	go runSweepLoop(sweeper, cfg.SweepInterval)

	router := server.SetupRouter(creationSvc, bidSvc, sweeper)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	fmt.Printf("Starting auction engine on %s...\n", addr)
	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}

// buildStore selects Postgres when POSTGRES_URL is set, the in-memory
// store otherwise.
func buildStore(cfg *config.Config) (repository.AuctionStore, func(), error) {
	if cfg.PostgresURL == "" {
		utils.Info("using in-memory auction store", nil)
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := repository.ConnectDB(cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	if err := repository.RunMigrations(db, cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, nil, err
	}
	utils.Info("using postgres auction store", nil)
	store := repository.NewPostgresStore(db)
	return store, func() { store.Close() }, nil
}

// buildDispatcher selects NATS when NATS_URL is set, the log-only
// dispatcher otherwise.
func buildDispatcher(cfg *config.Config) (events.Dispatcher, func(), error) {
	if cfg.NATSURL == "" {
		utils.Info("using log-only event dispatcher", nil)
		return events.NewLogDispatcher(), func() {}, nil
	}

	d, err := events.NewNATSDispatcher(cfg.NATSURL)
	if err != nil {
		return nil, nil, err
	}
	utils.Info("using NATS event dispatcher", map[string]any{"url": cfg.NATSURL})
	return d, d.Close, nil
}

// runSweepLoop settles overdue auctions on a fixed interval and closes
// event-delivery gaps after every pass.
func runSweepLoop(sweeper *auction.Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		sweeper.RunSettlementSweep()
		sweeper.ReconcileSettlementEvents()
	}
}

// prepopulateCatalog seeds sample gemstones for development runs
func prepopulateCatalog(cat *catalog.StaticCatalog) {
	items := []catalog.Item{
		{ItemID: "stone1", OwnerID: "seller1", Shape: "round", WeightCarats: 1.02, ColorGrade: "F", ClarityGrade: "VS1", CutGrade: "Excellent", CertificateLab: "GIA", CertificateNumber: "2201234567", ImageURL: "https://cdn.example.com/stones/stone1.jpg"},
		{ItemID: "stone2", OwnerID: "seller1", Shape: "princess", WeightCarats: 0.71, ColorGrade: "G", ClarityGrade: "VVS2", CutGrade: "Very Good", CertificateLab: "IGI", CertificateNumber: "458812399", ImageURL: "https://cdn.example.com/stones/stone2.jpg"},
		{ItemID: "stone3", OwnerID: "seller2", Shape: "oval", WeightCarats: 1.55, ColorGrade: "D", ClarityGrade: "IF", CutGrade: "Excellent", CertificateLab: "GIA", CertificateNumber: "6305577810", ImageURL: "https://cdn.example.com/stones/stone3.jpg"},
	}

	for _, item := range items {
		cat.AddItem(item)
	}
}
