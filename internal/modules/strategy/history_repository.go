package strategy

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// HistoryRepository reads trailing sales history
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new sales history repository
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "sales_history").Logger(),
	}
}

// GetSince retrieves sales records for one (platform, account) newer
// than the given time
func (r *HistoryRepository) GetSince(platform domain.Platform, accountID string, since time.Time) ([]domain.SalesHistoryRecord, error) {
	query := `SELECT platform, account_id, profit_margin, days_to_sell, sold_at
		FROM sales_history
		WHERE platform = ? AND account_id = ? AND sold_at >= ?
		ORDER BY sold_at DESC`

	rows, err := r.db.Query(query, string(platform), accountID, since.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to get sales history: %w", err)
	}
	defer rows.Close()

	var records []domain.SalesHistoryRecord
	for rows.Next() {
		var rec domain.SalesHistoryRecord
		var p, soldAt string
		if err := rows.Scan(&p, &rec.AccountID, &rec.ProfitMargin, &rec.DaysToSell, &soldAt); err != nil {
			return nil, fmt.Errorf("failed to scan sales history record: %w", err)
		}
		rec.Platform = domain.Platform(p)
		if t, err := time.Parse(time.RFC3339, soldAt); err == nil {
			rec.SoldAt = t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales history: %w", err)
	}

	return records, nil
}
