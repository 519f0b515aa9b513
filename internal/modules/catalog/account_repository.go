package catalog

import (
	"database/sql"
	"fmt"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// AccountRepository handles seller account database operations
type AccountRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		db:  db,
		log: log.With().Str("repo", "account").Logger(),
	}
}

// ListActive retrieves all active seller accounts across platforms.
// Ordering is fixed so candidate generation order is reproducible.
func (r *AccountRepository) ListActive() ([]domain.Account, error) {
	query := `SELECT id, platform, name, active FROM accounts
		WHERE active = 1
		ORDER BY platform ASC, id ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var platform string
		if err := rows.Scan(&a.ID, &platform, &a.Name, &a.Active); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Platform = domain.Platform(platform)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// ListByPlatform retrieves active accounts for one platform
func (r *AccountRepository) ListByPlatform(platform domain.Platform) ([]string, error) {
	query := `SELECT id FROM accounts WHERE platform = ? AND active = 1 ORDER BY id ASC`

	rows, err := r.db.Query(query, string(platform))
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for platform: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account ids: %w", err)
	}

	return ids, nil
}
