package listing

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// PriceRecord is the most recent price snapshot for a SKU
type PriceRecord struct {
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	ChangedAt time.Time `json:"changed_at"`
}

// PriceRepository reads the price_logs table
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repo", "price").Logger(),
	}
}

// GetLatest retrieves the most recent price record for a SKU,
// or nil if the SKU has no price history
func (r *PriceRepository) GetLatest(sku string) (*PriceRecord, error) {
	query := `SELECT price, currency, changed_at FROM price_logs
		WHERE sku = ?
		ORDER BY changed_at DESC
		LIMIT 1`

	var rec PriceRecord
	var changedAt string
	err := r.db.QueryRow(query, sku).Scan(&rec.Price, &rec.Currency, &changedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, changedAt); err == nil {
		rec.ChangedAt = t
	}

	return &rec, nil
}
