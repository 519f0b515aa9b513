package strategy

import (
	"testing"
	"time"

	"github.com/aristath/crosslister/internal/database"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestDecisionRepository_CreateAndGetLatest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDecisionRepository(db.Conn(), zerolog.Nop())

	score := 120.0
	decision := Decision{
		SKU:    "SKU-001",
		Status: DecisionSuccess,
		Recommendation: &Recommendation{
			Platform:  domain.PlatformAmazonJP,
			AccountID: "amz-jp-1",
			Score:     score,
		},
		Candidates: []domain.ListingCandidate{
			{Platform: domain.PlatformAmazonJP, AccountID: "amz-jp-1", StrategyScore: &score},
			{Platform: domain.PlatformCoupang, AccountID: "coupang-1", IsExcluded: true,
				ExclusionReason: "condition Used not allowed on this platform"},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(decision))

	rec, err := repo.GetLatest("SKU-001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.PlatformAmazonJP, rec.Platform)
	assert.Equal(t, "amz-jp-1", rec.AccountID)
}

func TestDecisionRepository_GetLatestIgnoresNoCandidateRuns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDecisionRepository(db.Conn(), zerolog.Nop())

	// Older successful run, newer run with no recommendation
	success := Decision{
		SKU:    "SKU-001",
		Status: DecisionSuccess,
		Recommendation: &Recommendation{
			Platform: domain.PlatformEbay, AccountID: "ebay-main", Score: 76,
		},
		CreatedAt: time.Now().Add(-time.Hour),
	}
	noCandidates := Decision{
		SKU:       "SKU-001",
		Status:    DecisionNoCandidates,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(success))
	require.NoError(t, repo.Create(noCandidates))

	rec, err := repo.GetLatest("SKU-001")
	require.NoError(t, err)
	require.NotNil(t, rec, "runs without a recommendation do not shadow older ones")
	assert.Equal(t, domain.PlatformEbay, rec.Platform)
}

func TestDecisionRepository_GetLatestUnknownSKU(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDecisionRepository(db.Conn(), zerolog.Nop())

	rec, err := repo.GetLatest("SKU-MISSING")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRuleRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRuleRepository(db.Conn(), zerolog.Nop())

	_, err := db.Conn().Exec(`INSERT INTO strategy_rules
		(rule_type, platform, account_id, category, min_price, max_price, score_factor, active)
		VALUES
		('BLACKLIST', 'coupang', '', '', NULL, NULL, NULL, 1),
		('PRICE_MAX', 'ebay', '', '', NULL, 10000, NULL, 1),
		('WHITELIST', 'amazon_jp', '', 'cameras', NULL, NULL, 1.2, 0)`)
	require.NoError(t, err)

	rules, err := repo.ListActive()
	require.NoError(t, err)
	require.Len(t, rules, 2, "inactive rules are filtered out")

	assert.Equal(t, domain.RuleBlacklist, rules[0].RuleType)
	assert.Equal(t, domain.PlatformCoupang, rules[0].Platform)
	assert.Nil(t, rules[0].MaxPrice)

	assert.Equal(t, domain.RulePriceMax, rules[1].RuleType)
	require.NotNil(t, rules[1].MaxPrice)
	assert.Equal(t, 10000.0, *rules[1].MaxPrice)
}

func TestHistoryRepository_GetSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepository(db.Conn(), zerolog.Nop())

	recent := time.Now().Add(-5 * 24 * time.Hour).Format(time.RFC3339)
	old := time.Now().Add(-90 * 24 * time.Hour).Format(time.RFC3339)
	_, err := db.Conn().Exec(`INSERT INTO sales_history
		(platform, account_id, profit_margin, days_to_sell, sold_at)
		VALUES
		('ebay', 'ebay-main', 0.35, 5, ?),
		('ebay', 'ebay-main', 0.20, 10, ?),
		('ebay', 'ebay-other', 0.10, 30, ?)`, recent, old, recent)
	require.NoError(t, err)

	since := time.Now().Add(-30 * 24 * time.Hour)
	records, err := repo.GetSince(domain.PlatformEbay, "ebay-main", since)

	require.NoError(t, err)
	require.Len(t, records, 1, "only recent sales for the requested account")
	assert.Equal(t, 0.35, records[0].ProfitMargin)
	assert.Equal(t, 5.0, records[0].DaysToSell)
}
