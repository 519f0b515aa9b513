package strategy

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// DecisionRepository persists strategy decisions. The execution engine
// reads the most recent decision per SKU to know where to list.
type DecisionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sql.DB, log zerolog.Logger) *DecisionRepository {
	return &DecisionRepository{
		db:  db,
		log: log.With().Str("repo", "strategy_decision").Logger(),
	}
}

// Create inserts a decision with its full annotated candidate list
func (r *DecisionRepository) Create(decision Decision) error {
	candidatesJSON, err := json.Marshal(decision.Candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}

	var platform, accountID interface{}
	var score interface{}
	if decision.Recommendation != nil {
		platform = string(decision.Recommendation.Platform)
		accountID = decision.Recommendation.AccountID
		score = decision.Recommendation.Score
	}

	query := `INSERT INTO strategy_decisions
		(sku, status, recommended_platform, recommended_account_id, strategy_score, candidates, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		decision.SKU, string(decision.Status), platform, accountID, score,
		string(candidatesJSON), decision.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create strategy decision: %w", err)
	}

	return nil
}

// LatestRecommendation is the destination recorded by the newest
// successful decision for a SKU
type LatestRecommendation struct {
	Platform  domain.Platform `json:"platform"`
	AccountID string          `json:"account_id"`
}

// GetLatest retrieves the most recent recommendation for a SKU, or nil
// if no successful decision exists
func (r *DecisionRepository) GetLatest(sku string) (*LatestRecommendation, error) {
	query := `SELECT recommended_platform, recommended_account_id
		FROM strategy_decisions
		WHERE sku = ? AND recommended_platform IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var platform, accountID string
	err := r.db.QueryRow(query, sku).Scan(&platform, &accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest recommendation: %w", err)
	}

	return &LatestRecommendation{
		Platform:  domain.Platform(platform),
		AccountID: accountID,
	}, nil
}
