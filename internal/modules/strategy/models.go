package strategy

import (
	"time"

	"github.com/aristath/crosslister/internal/domain"
)

// DecisionStatus is the outcome class of one decision run
type DecisionStatus string

const (
	DecisionSuccess      DecisionStatus = "SUCCESS"
	DecisionNoCandidates DecisionStatus = "NO_CANDIDATES"
	DecisionError        DecisionStatus = "ERROR"
)

// Exclusion reason codes, used as tally keys. The human-readable reason
// on each candidate carries the specifics.
const (
	ReasonInsufficientStock   = "insufficient_stock"
	ReasonPriorityBelowFloor  = "priority_below_floor"
	ReasonPlatformDuplicate   = "platform_duplicate"
	ReasonPlatformPolicy      = "platform_policy"
	ReasonRuleBlacklist       = "rule_blacklist"
	ReasonRulePriceMin        = "rule_price_min"
	ReasonRulePriceMax        = "rule_price_max"
	ReasonRuleCategoryAccount = "rule_category_account"
	ReasonRuleWhitelist       = "rule_whitelist"
)

// Recommendation is the winning (platform, account) pair
type Recommendation struct {
	Platform  domain.Platform `json:"platform"`
	AccountID string          `json:"account_id"`
	Score     float64         `json:"score"`
}

// Decision is the full annotated result of one strategy run.
// Candidates holds every evaluated pairing, survivors ranked first,
// so operators can audit why a destination was not chosen.
type Decision struct {
	SKU            string                    `json:"sku"`
	Status         DecisionStatus            `json:"status"`
	Recommendation *Recommendation           `json:"recommendation,omitempty"`
	Candidates     []domain.ListingCandidate `json:"candidates"`
	ExclusionTally map[string]int            `json:"exclusion_tally"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// Config holds the tunables of the strategy engine
type Config struct {
	MinStockQuantity int
	MinPriorityScore float64
	HistoryWindow    time.Duration
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		MinStockQuantity: 1,
		MinPriorityScore: 0,
		HistoryWindow:    30 * 24 * time.Hour,
	}
}
