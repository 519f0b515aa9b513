package listing

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// StockLogRepository appends inventory movement entries
type StockLogRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStockLogRepository creates a new stock log repository
func NewStockLogRepository(db *sql.DB, log zerolog.Logger) *StockLogRepository {
	return &StockLogRepository{
		db:  db,
		log: log.With().Str("repo", "stock_log").Logger(),
	}
}

// Append records an inventory delta with a human-readable reason
func (r *StockLogRepository) Append(sku string, delta int, reason string) error {
	query := `INSERT INTO stock_logs (sku, quantity_change, reason, changed_at)
		VALUES (?, ?, ?, ?)`

	_, err := r.db.Exec(query, sku, delta, reason, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append stock log: %w", err)
	}

	r.log.Debug().
		Str("sku", sku).
		Int("delta", delta).
		Msg("Stock log appended")

	return nil
}

// InventorySyncRepository enqueues cross-channel inventory notifications.
// The queue is consumed by the inventory synchronization worker, which
// decrements stock on the other channels for the same SKU.
type InventorySyncRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewInventorySyncRepository creates a new inventory sync repository
func NewInventorySyncRepository(db *sql.DB, log zerolog.Logger) *InventorySyncRepository {
	return &InventorySyncRepository{
		db:  db,
		log: log.With().Str("repo", "inventory_sync").Logger(),
	}
}

// Enqueue adds a pending sync notification. Fire-and-forget from the
// pipeline's point of view.
func (r *InventorySyncRepository) Enqueue(sku string, platform domain.Platform, listingID string) error {
	query := `INSERT INTO inventory_sync_queue
		(sku, trigger_platform, trigger_listing_id, status, created_at)
		VALUES (?, ?, ?, 'pending', ?)`

	_, err := r.db.Exec(query, sku, string(platform), listingID, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to enqueue inventory sync: %w", err)
	}

	r.log.Info().
		Str("sku", sku).
		Str("platform", string(platform)).
		Str("listing_id", listingID).
		Msg("Inventory sync queued")

	return nil
}
