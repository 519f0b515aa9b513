package execution

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// QueueUpdate carries the mutable fields of a queue item
type QueueUpdate struct {
	Status       domain.QueueStatus
	RetryCount   *int
	NextRetryAt  *time.Time
	ErrorCode    *string
	ErrorMessage *string
}

// QueueRepository handles execution_queue database operations
type QueueRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db *sql.DB, log zerolog.Logger) *QueueRepository {
	return &QueueRepository{
		db:  db,
		log: log.With().Str("repo", "execution_queue").Logger(),
	}
}

// Insert adds a new retry queue item
func (r *QueueRepository) Insert(item domain.ExecutionQueueItem) error {
	now := time.Now().Format(time.RFC3339)

	query := `INSERT INTO execution_queue
		(id, sku, platform, account_id, status, retry_count, next_retry_at,
		 error_code, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		item.ID, item.SKU, string(item.Platform), item.AccountID,
		string(item.Status), item.RetryCount, item.NextRetryAt.Format(time.RFC3339),
		item.ErrorCode, item.ErrorMessage, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert queue item: %w", err)
	}

	r.log.Info().
		Str("sku", item.SKU).
		Str("platform", string(item.Platform)).
		Time("next_retry_at", item.NextRetryAt).
		Msg("Retry queue item created")

	return nil
}

// Update mutates a queue item's status and retry bookkeeping
func (r *QueueRepository) Update(id string, update QueueUpdate) error {
	query := `UPDATE execution_queue SET
			status = ?,
			retry_count = COALESCE(?, retry_count),
			next_retry_at = COALESCE(?, next_retry_at),
			error_code = COALESCE(?, error_code),
			error_message = COALESCE(?, error_message),
			updated_at = ?
		WHERE id = ?`

	var nextRetryAt interface{}
	if update.NextRetryAt != nil {
		nextRetryAt = update.NextRetryAt.Format(time.RFC3339)
	}

	result, err := r.db.Exec(query,
		string(update.Status), nullIntPtr(update.RetryCount), nextRetryAt,
		nullStringPtr(update.ErrorCode), nullStringPtr(update.ErrorMessage),
		time.Now().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("no queue item found for id %s", id)
	}

	return nil
}

// SelectDue retrieves up to limit retry-pending items whose next retry
// time has passed, oldest-due first. Terminal items are never selected.
func (r *QueueRepository) SelectDue(limit int) ([]domain.ExecutionQueueItem, error) {
	query := `SELECT id, sku, platform, account_id, status, retry_count,
			next_retry_at, error_code, error_message, created_at, updated_at
		FROM execution_queue
		WHERE status = ? AND next_retry_at <= ?
		ORDER BY next_retry_at ASC
		LIMIT ?`

	rows, err := r.db.Query(query,
		string(domain.QueueRetryPending), time.Now().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due queue items: %w", err)
	}
	defer rows.Close()

	var items []domain.ExecutionQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue items: %w", err)
	}

	return items, nil
}

// HasProcessing reports whether any item for the SKU is currently
// processing. This is the single-flight guard.
func (r *QueueRepository) HasProcessing(sku string) (bool, error) {
	query := `SELECT 1 FROM execution_queue WHERE sku = ? AND status = ? LIMIT 1`

	var one int
	err := r.db.QueryRow(query, sku, string(domain.QueueProcessing)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check processing items: %w", err)
	}

	return true, nil
}

// RequeueStale resets items stuck in processing since before the cutoff
// back to retry_pending without touching their retry count. Covers
// crashes between dispatch and state update.
func (r *QueueRepository) RequeueStale(cutoff time.Time) (int, error) {
	query := `UPDATE execution_queue
		SET status = ?, next_retry_at = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?`

	now := time.Now().Format(time.RFC3339)
	result, err := r.db.Exec(query,
		string(domain.QueueRetryPending), now, now,
		string(domain.QueueProcessing), cutoff.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale items: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected > 0 {
		r.log.Warn().Int64("count", affected).Msg("Requeued stale processing items")
	}

	return int(affected), nil
}

// List retrieves queue items, newest first, for the operational API
func (r *QueueRepository) List(limit int) ([]domain.ExecutionQueueItem, error) {
	query := `SELECT id, sku, platform, account_id, status, retry_count,
			next_retry_at, error_code, error_message, created_at, updated_at
		FROM execution_queue
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}
	defer rows.Close()

	var items []domain.ExecutionQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue items: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQueueItem(row rowScanner) (domain.ExecutionQueueItem, error) {
	var item domain.ExecutionQueueItem
	var platform, status, nextRetryAt, createdAt, updatedAt string

	err := row.Scan(&item.ID, &item.SKU, &platform, &item.AccountID, &status,
		&item.RetryCount, &nextRetryAt, &item.ErrorCode, &item.ErrorMessage,
		&createdAt, &updatedAt)
	if err != nil {
		return domain.ExecutionQueueItem{}, err
	}

	item.Platform = domain.Platform(platform)
	item.Status = domain.QueueStatus(status)
	item.NextRetryAt = parseTime(nextRetryAt)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)

	return item, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullIntPtr(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullStringPtr(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
