package domain

import "time"

// Platform identifies a marketplace
type Platform string

const (
	PlatformEbay     Platform = "ebay"
	PlatformAmazonUS Platform = "amazon_us"
	PlatformAmazonJP Platform = "amazon_jp"
	PlatformAmazonAU Platform = "amazon_au"
	PlatformCoupang  Platform = "coupang"
)

// AllPlatforms returns every supported marketplace in a stable order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformEbay,
		PlatformAmazonUS,
		PlatformAmazonJP,
		PlatformAmazonAU,
		PlatformCoupang,
	}
}

// Condition represents a product condition accepted by marketplaces
type Condition string

const (
	ConditionNew         Condition = "New"
	ConditionUsed        Condition = "Used"
	ConditionRefurbished Condition = "Refurbished"
)

// ExecutionStatus is the listing lifecycle status on the product record
type ExecutionStatus string

const (
	StatusStrategyDetermined ExecutionStatus = "strategy_determined"
	StatusListed             ExecutionStatus = "listed"
	StatusRetryPending       ExecutionStatus = "api_retry_pending"
	StatusListingFailed      ExecutionStatus = "listing_failed"
)

// QueueStatus is the lifecycle state of a retry queue item
type QueueStatus string

const (
	QueueRetryPending QueueStatus = "retry_pending"
	QueueProcessing   QueueStatus = "processing"
	QueueCompleted    QueueStatus = "completed"
	QueueFailed       QueueStatus = "failed"
)

// ErrorType classifies a dispatch failure
type ErrorType string

const (
	ErrorTemporary ErrorType = "temporary"
	ErrorFatal     ErrorType = "fatal"
)

// ListingStatus is the status on the per-platform listing record
type ListingStatus string

const (
	ListingActive ListingStatus = "Active"
	ListingError  ListingStatus = "Error"
)

// ProductCandidate is a catalog product eligible for listing.
// Owned by the catalog; read-only to the pipeline.
type ProductCandidate struct {
	SKU           string    `json:"sku"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	Quantity      int       `json:"quantity"`
	Condition     Condition `json:"condition"`
	Category      string    `json:"category"`
	Images        []string  `json:"images"`
	PriorityScore float64   `json:"priority_score"`
	StockQuantity int       `json:"stock_quantity"`
}

// Account represents a seller account on a platform
type Account struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	Name     string   `json:"name"`
	Active   bool     `json:"active"`
}

// ListingCandidate is one (platform, account) pairing evaluated for a SKU.
// Created fresh on every decision run; never persisted as its own entity.
type ListingCandidate struct {
	Platform        Platform `json:"platform"`
	AccountID       string   `json:"account_id"`
	IsExcluded      bool     `json:"is_excluded"`
	ExclusionReason string   `json:"exclusion_reason,omitempty"`
	ExcludedByRule  *int64   `json:"excluded_by_rule,omitempty"`
	StrategyScore   *float64 `json:"strategy_score,omitempty"`
}

// RuleType enumerates user strategy rule kinds
type RuleType string

const (
	RuleBlacklist               RuleType = "BLACKLIST"
	RuleWhitelist               RuleType = "WHITELIST"
	RulePriceMin                RuleType = "PRICE_MIN"
	RulePriceMax                RuleType = "PRICE_MAX"
	RuleCategoryAccountSpecific RuleType = "CATEGORY_ACCOUNT_SPECIFIC"
)

// StrategyRule is a user-defined listing constraint.
// Empty scope fields match any value.
type StrategyRule struct {
	ID          int64    `json:"id"`
	RuleType    RuleType `json:"rule_type"`
	Platform    Platform `json:"platform,omitempty"`
	AccountID   string   `json:"account_id,omitempty"`
	Category    string   `json:"category,omitempty"`
	MinPrice    *float64 `json:"min_price,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	ScoreFactor *float64 `json:"score_factor,omitempty"`
	Active      bool     `json:"active"`
}

// Matches reports whether the rule's scope applies to a candidate
// for a product in the given category.
func (r StrategyRule) Matches(platform Platform, accountID, category string) bool {
	if r.Platform != "" && r.Platform != platform {
		return false
	}
	if r.AccountID != "" && r.AccountID != accountID {
		return false
	}
	if r.Category != "" && r.Category != category {
		return false
	}
	return true
}

// SalesHistoryRecord holds trailing sales facts for one (platform, account)
type SalesHistoryRecord struct {
	Platform     Platform  `json:"platform"`
	AccountID    string    `json:"account_id"`
	ProfitMargin float64   `json:"profit_margin"`
	DaysToSell   float64   `json:"days_to_sell"`
	SoldAt       time.Time `json:"sold_at"`
}

// ExecutionResult is the outcome of one dispatch attempt
type ExecutionResult struct {
	SKU          string    `json:"sku"`
	Platform     Platform  `json:"platform"`
	AccountID    string    `json:"account_id"`
	Success      bool      `json:"success"`
	ListingID    string    `json:"listing_id,omitempty"`
	ErrorType    ErrorType `json:"error_type,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RetryCount   int       `json:"retry_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// ExecutionQueueItem is a pending retry for a failed dispatch
type ExecutionQueueItem struct {
	ID           string      `json:"id"`
	SKU          string      `json:"sku"`
	Platform     Platform    `json:"platform"`
	AccountID    string      `json:"account_id"`
	Status       QueueStatus `json:"status"`
	RetryCount   int         `json:"retry_count"`
	NextRetryAt  time.Time   `json:"next_retry_at"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsTerminal reports whether the queue item can never be retried again
func (i ExecutionQueueItem) IsTerminal() bool {
	return i.Status == QueueCompleted || i.Status == QueueFailed
}

// ActiveListing is a (platform, account) pair currently holding a live
// listing for a SKU
type ActiveListing struct {
	Platform  Platform `json:"platform"`
	AccountID string   `json:"account_id"`
}
