package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gem-auction/internal/auctionerrors"
	model "gem-auction/internal/models"

	"github.com/lib/pq"
)

// PostgresStore implements AuctionStore on PostgreSQL. The conditional
// writes are expressed as UPDATE ... WHERE guards; a zero RowsAffected is a
// clean miss, mirroring MemoryStore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectDB opens and pings a Postgres connection with pool settings tuned
// for short request-scoped queries.
func ConnectDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// RunMigrations applies every .sql file in migrationsDir in name order.
func RunMigrations(db *sql.DB, migrationsDir string) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const auctionColumns = `auction_id, seller_id,
	item_id, shape, weight_carats, color_grade, clarity_grade, cut_grade,
	certificate_lab, certificate_number, image_url,
	starting_price, min_increment, reserve_price, currency,
	current_price, bid_count, status, starts_at, ends_at, winner_id,
	version, channels, created_at`

func (s *PostgresStore) CreateAuction(a model.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
                $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err := s.db.Exec(query,
		a.AuctionID, a.SellerID,
		a.Item.ItemID, a.Item.Shape, a.Item.WeightCarats, a.Item.ColorGrade,
		a.Item.ClarityGrade, a.Item.CutGrade, a.Item.CertificateLab,
		a.Item.CertificateNumber, a.Item.ImageURL,
		a.StartingPrice, a.MinIncrement, a.ReservePrice, a.Currency,
		a.CurrentPrice, a.BidCount, string(a.Status), a.StartsAt, a.EndsAt,
		nullableString(a.WinnerID), a.Version, pq.Array(a.Channels), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create auction %s: %w: %v", a.AuctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetAuction(auctionID string) (model.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE auction_id = $1`
	a, err := s.scanAuction(s.db.QueryRow(query, auctionID))
	if err == sql.ErrNoRows {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	return a, nil
}

func (s *PostgresStore) ListDue(now time.Time) ([]model.Auction, error) {
	query := `SELECT ` + auctionColumns + `
        FROM auctions
        WHERE status = 'active' AND ends_at <= $1
        ORDER BY ends_at`

	rows, err := s.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("list due auctions: %w: %v", auctionerrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return s.collectAuctions(rows)
}

func (s *PostgresStore) ApplyBid(auctionID string, observedVersion int64, amount float64) (bool, error) {
	query := `
        UPDATE auctions
        SET current_price = $1, bid_count = bid_count + 1, version = version + 1
        WHERE auction_id = $2 AND version = $3 AND status = 'active'`

	res, err := s.db.Exec(query, amount, auctionID, observedVersion)
	if err != nil {
		return false, fmt.Errorf("apply bid on auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	matched, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply bid on auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	return matched == 1, nil
}

func (s *PostgresStore) ClaimStatus(auctionID string, from, to model.AuctionStatus) (bool, error) {
	query := `
        UPDATE auctions
        SET status = $1, version = version + 1
        WHERE auction_id = $2 AND status = $3`

	res, err := s.db.Exec(query, string(to), auctionID, string(from))
	if err != nil {
		return false, fmt.Errorf("claim auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	matched, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	return matched == 1, nil
}

func (s *PostgresStore) SetWinner(auctionID, winnerID string) error {
	res, err := s.db.Exec(`UPDATE auctions SET winner_id = $1 WHERE auction_id = $2`, winnerID, auctionID)
	if err != nil {
		return fmt.Errorf("set winner on auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	matched, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set winner on auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	if matched == 0 {
		return fmt.Errorf("set winner on auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return nil
}

func (s *PostgresStore) AppendBid(bid model.Bid) error {
	query := `
        INSERT INTO bids (bid_id, auction_id, bidder_id, bidder_display_name, amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.Exec(query, bid.BidID, bid.AuctionID, bid.BidderID, bid.BidderDisplayName, bid.Amount, bid.CreatedAt)
	if err != nil {
		return fmt.Errorf("append bid for auction %s: %w: %v", bid.AuctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	query := `
        SELECT bid_id, auction_id, bidder_id, bidder_display_name, amount, created_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY created_at, bid_id`

	rows, err := s.db.Query(query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.BidderDisplayName, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("get bids for auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	return bids, nil
}

func (s *PostgresStore) ListUnreconciled() ([]model.Auction, error) {
	query := `SELECT ` + auctionColumns + `
        FROM auctions
        WHERE status = 'ended' AND settlement_emitted = FALSE
        ORDER BY ends_at`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list unreconciled auctions: %w: %v", auctionerrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return s.collectAuctions(rows)
}

func (s *PostgresStore) MarkSettlementEmitted(auctionID string) error {
	res, err := s.db.Exec(`UPDATE auctions SET settlement_emitted = TRUE WHERE auction_id = $1`, auctionID)
	if err != nil {
		return fmt.Errorf("mark settlement for auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	matched, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark settlement for auction %s: %w: %v", auctionID, auctionerrors.ErrStoreUnavailable, err)
	}
	if matched == 0 {
		return fmt.Errorf("mark settlement for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanAuction(row rowScanner) (model.Auction, error) {
	var a model.Auction
	var status string
	var winnerID sql.NullString
	var channels pq.StringArray

	err := row.Scan(
		&a.AuctionID, &a.SellerID,
		&a.Item.ItemID, &a.Item.Shape, &a.Item.WeightCarats, &a.Item.ColorGrade,
		&a.Item.ClarityGrade, &a.Item.CutGrade, &a.Item.CertificateLab,
		&a.Item.CertificateNumber, &a.Item.ImageURL,
		&a.StartingPrice, &a.MinIncrement, &a.ReservePrice, &a.Currency,
		&a.CurrentPrice, &a.BidCount, &status, &a.StartsAt, &a.EndsAt, &winnerID,
		&a.Version, &channels, &a.CreatedAt,
	)
	if err != nil {
		return model.Auction{}, err
	}

	a.Status = model.AuctionStatus(status)
	if winnerID.Valid {
		w := winnerID.String
		a.WinnerID = &w
	}
	a.Channels = []string(channels)
	return a, nil
}

func (s *PostgresStore) collectAuctions(rows *sql.Rows) ([]model.Auction, error) {
	var auctions []model.Auction
	for rows.Next() {
		a, err := s.scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction row: %w: %v", auctionerrors.ErrStoreUnavailable, err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auction rows: %w: %v", auctionerrors.ErrStoreUnavailable, err)
	}
	return auctions, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
