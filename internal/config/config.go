package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. Every field maps to an
// environment variable; unset variables fall back to development defaults
// so the engine runs with an in-memory store and a log-only dispatcher
// out of the box.
type Config struct {
	ServerPort int

	// PostgresURL selects the Postgres store when non-empty; otherwise the
	// in-memory store is used.
	PostgresURL   string
	MigrationsDir string

	// NATSURL selects the NATS dispatcher when non-empty; otherwise events
	// are logged only.
	NATSURL string

	SweepInterval time.Duration

	MinAuctionDuration time.Duration
	MaxAuctionDuration time.Duration
}

// Load reads configuration from the environment, consulting a .env file
// first if one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		ServerPort:         8080,
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		MigrationsDir:      getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		NATSURL:            os.Getenv("NATS_URL"),
		SweepInterval:      time.Minute,
		MinAuctionDuration: time.Minute,
		MaxAuctionDuration: 30 * 24 * time.Hour,
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.ServerPort = p
	}

	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL_SECONDS %q", v)
		}
		cfg.SweepInterval = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("MIN_AUCTION_DURATION_MINUTES"); v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil || mins <= 0 {
			return nil, fmt.Errorf("invalid MIN_AUCTION_DURATION_MINUTES %q", v)
		}
		cfg.MinAuctionDuration = time.Duration(mins) * time.Minute
	}

	if v := os.Getenv("MAX_AUCTION_DURATION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("invalid MAX_AUCTION_DURATION_DAYS %q", v)
		}
		cfg.MaxAuctionDuration = time.Duration(days) * 24 * time.Hour
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
