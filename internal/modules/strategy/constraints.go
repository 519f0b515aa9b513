package strategy

import (
	"fmt"

	"github.com/aristath/crosslister/internal/domain"
)

// applySystemConstraints runs the hard, order-independent exclusions over
// every candidate: stock floor, priority floor, one-active-listing-per-
// platform, and the static platform policy table. Exclusion reasons are
// recorded on the candidate and tallied for observability.
func applySystemConstraints(
	cfg Config,
	product domain.ProductCandidate,
	candidates []domain.ListingCandidate,
	activeListings []domain.ActiveListing,
	tally map[string]int,
) []domain.ListingCandidate {
	activePlatforms := make(map[domain.Platform]bool, len(activeListings))
	for _, a := range activeListings {
		activePlatforms[a.Platform] = true
	}

	for i := range candidates {
		c := &candidates[i]
		if c.IsExcluded {
			continue
		}

		if product.StockQuantity < cfg.MinStockQuantity {
			exclude(c, tally, ReasonInsufficientStock,
				fmt.Sprintf("stock quantity %d below minimum %d",
					product.StockQuantity, cfg.MinStockQuantity))
			continue
		}

		if product.PriorityScore < cfg.MinPriorityScore {
			exclude(c, tally, ReasonPriorityBelowFloor,
				fmt.Sprintf("priority score %.1f below floor %.1f",
					product.PriorityScore, cfg.MinPriorityScore))
			continue
		}

		// One platform, one active listing, regardless of account
		if activePlatforms[c.Platform] {
			exclude(c, tally, ReasonPlatformDuplicate,
				fmt.Sprintf("platform %s already holds an active listing for this SKU", c.Platform))
			continue
		}

		if ok, reason := PolicyFor(c.Platform).Allows(product); !ok {
			exclude(c, tally, ReasonPlatformPolicy, reason)
			continue
		}
	}

	return candidates
}

// exclude marks a candidate with its reason and bumps the tally
func exclude(c *domain.ListingCandidate, tally map[string]int, code, reason string) {
	c.IsExcluded = true
	c.ExclusionReason = reason
	tally[code]++
}

// excludeByRule marks a candidate excluded by a specific user rule
func excludeByRule(c *domain.ListingCandidate, tally map[string]int, code, reason string, ruleID int64) {
	exclude(c, tally, code, reason)
	id := ruleID
	c.ExcludedByRule = &id
}
