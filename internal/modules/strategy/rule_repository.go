package strategy

import (
	"database/sql"
	"fmt"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// RuleRepository reads operator strategy rules
type RuleRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sql.DB, log zerolog.Logger) *RuleRepository {
	return &RuleRepository{
		db:  db,
		log: log.With().Str("repo", "strategy_rule").Logger(),
	}
}

// ListActive retrieves all active strategy rules
func (r *RuleRepository) ListActive() ([]domain.StrategyRule, error) {
	query := `SELECT id, rule_type, platform, account_id, category,
			min_price, max_price, score_factor, active
		FROM strategy_rules
		WHERE active = 1
		ORDER BY id ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategy rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.StrategyRule
	for rows.Next() {
		var rule domain.StrategyRule
		var ruleType, platform string
		var minPrice, maxPrice, scoreFactor sql.NullFloat64

		err := rows.Scan(&rule.ID, &ruleType, &platform, &rule.AccountID,
			&rule.Category, &minPrice, &maxPrice, &scoreFactor, &rule.Active)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy rule: %w", err)
		}

		rule.RuleType = domain.RuleType(ruleType)
		rule.Platform = domain.Platform(platform)
		if minPrice.Valid {
			rule.MinPrice = &minPrice.Float64
		}
		if maxPrice.Valid {
			rule.MaxPrice = &maxPrice.Float64
		}
		if scoreFactor.Valid {
			rule.ScoreFactor = &scoreFactor.Float64
		}

		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategy rules: %w", err)
	}

	return rules, nil
}
