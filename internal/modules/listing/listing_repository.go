package listing

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// PayloadParts is the denormalized listing copy for one (SKU, platform)
type PayloadParts struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	CategoryID    string                `json:"category_id"`
	Images        []string              `json:"images"`
	ItemSpecifics []domain.ItemSpecific `json:"item_specifics"`
}

// RecordUpdate carries the fields written on a listing record after a
// dispatch attempt
type RecordUpdate struct {
	AccountID    string
	ListingID    string
	Status       domain.ListingStatus
	ErrorMessage string
	ListedAt     *time.Time
}

// Repository handles listing_data database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new listing repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "listing").Logger(),
	}
}

// FindActiveForSKU returns the (platform, account) pairs currently holding
// an active listing for the SKU
func (r *Repository) FindActiveForSKU(sku string) ([]domain.ActiveListing, error) {
	query := `SELECT platform, account_id FROM listing_data
		WHERE sku = ? AND status = ?`

	rows, err := r.db.Query(query, sku, string(domain.ListingActive))
	if err != nil {
		return nil, fmt.Errorf("failed to find active listings: %w", err)
	}
	defer rows.Close()

	var active []domain.ActiveListing
	for rows.Next() {
		var a domain.ActiveListing
		var platform string
		if err := rows.Scan(&platform, &a.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan active listing: %w", err)
		}
		a.Platform = domain.Platform(platform)
		active = append(active, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active listings: %w", err)
	}

	return active, nil
}

// GetPayloadParts retrieves the listing copy for one (SKU, platform),
// or nil if no listing data exists
func (r *Repository) GetPayloadParts(sku string, platform domain.Platform) (*PayloadParts, error) {
	query := `SELECT title, description, category_id, image_urls, item_specifics
		FROM listing_data WHERE sku = ? AND platform = ?`

	var parts PayloadParts
	var imagesJSON, specificsJSON string
	err := r.db.QueryRow(query, sku, string(platform)).Scan(
		&parts.Title, &parts.Description, &parts.CategoryID, &imagesJSON, &specificsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payload parts: %w", err)
	}

	if imagesJSON != "" {
		if err := json.Unmarshal([]byte(imagesJSON), &parts.Images); err != nil {
			return nil, fmt.Errorf("invalid image_urls json for sku %s: %w", sku, err)
		}
	}
	if specificsJSON != "" {
		if err := json.Unmarshal([]byte(specificsJSON), &parts.ItemSpecifics); err != nil {
			return nil, fmt.Errorf("invalid item_specifics json for sku %s: %w", sku, err)
		}
	}

	return &parts, nil
}

// Upsert writes listing outcome fields for one (SKU, platform)
func (r *Repository) Upsert(sku string, platform domain.Platform, update RecordUpdate) error {
	now := time.Now().Format(time.RFC3339)

	var listedAt interface{}
	if update.ListedAt != nil {
		listedAt = update.ListedAt.Format(time.RFC3339)
	}

	query := `INSERT INTO listing_data
		(sku, platform, account_id, listing_id, status, error_message, listed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (sku, platform) DO UPDATE SET
			account_id = excluded.account_id,
			listing_id = excluded.listing_id,
			status = excluded.status,
			error_message = excluded.error_message,
			listed_at = COALESCE(excluded.listed_at, listing_data.listed_at),
			updated_at = excluded.updated_at`

	_, err := r.db.Exec(query,
		sku, string(platform), update.AccountID,
		nullString(update.ListingID), string(update.Status),
		nullString(update.ErrorMessage), listedAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert listing record: %w", err)
	}

	r.log.Info().
		Str("sku", sku).
		Str("platform", string(platform)).
		Str("status", string(update.Status)).
		Msg("Listing record updated")

	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
