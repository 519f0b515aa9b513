package execution

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogRepository appends to the append-only execution log. Lives on the
// audit database, separate from the operational one.
type LogRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewLogRepository creates a new execution log repository
func NewLogRepository(db *sql.DB, log zerolog.Logger) *LogRepository {
	return &LogRepository{
		db:  db,
		log: log.With().Str("repo", "execution_log").Logger(),
	}
}

// Append records one dispatch attempt, success or failure
func (r *LogRepository) Append(result domain.ExecutionResult) error {
	query := `INSERT INTO execution_logs
		(id, sku, platform, account_id, success, listing_id,
		 error_type, error_code, error_message, retry_count, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		uuid.NewString(), result.SKU, string(result.Platform), result.AccountID,
		boolToInt(result.Success), result.ListingID,
		string(result.ErrorType), result.ErrorCode, result.ErrorMessage,
		result.RetryCount, result.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append execution log: %w", err)
	}

	return nil
}

// RecentForSKU retrieves the newest attempts for a SKU, for operator review
func (r *LogRepository) RecentForSKU(sku string, limit int) ([]domain.ExecutionResult, error) {
	query := `SELECT sku, platform, account_id, success, listing_id,
			error_type, error_code, error_message, retry_count, executed_at
		FROM execution_logs
		WHERE sku = ?
		ORDER BY executed_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, sku, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution logs: %w", err)
	}
	defer rows.Close()

	var results []domain.ExecutionResult
	for rows.Next() {
		var res domain.ExecutionResult
		var platform, errorType, executedAt string
		var success int

		err := rows.Scan(&res.SKU, &platform, &res.AccountID, &success,
			&res.ListingID, &errorType, &res.ErrorCode, &res.ErrorMessage,
			&res.RetryCount, &executedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		res.Platform = domain.Platform(platform)
		res.Success = success == 1
		res.ErrorType = domain.ErrorType(errorType)
		res.Timestamp = parseTime(executedAt)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate execution logs: %w", err)
	}

	return results, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
