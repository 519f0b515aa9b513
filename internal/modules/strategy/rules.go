package strategy

import (
	"fmt"

	"github.com/aristath/crosslister/internal/domain"
)

// applyUserRules runs the operator-defined strategy rules over the
// candidates that survived the system constraints. Rules are evaluated
// independently; a candidate excluded by any rule is removed.
func applyUserRules(
	product domain.ProductCandidate,
	candidates []domain.ListingCandidate,
	rules []domain.StrategyRule,
	tally map[string]int,
) []domain.ListingCandidate {
	var whitelists []domain.StrategyRule

	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		if rule.RuleType == domain.RuleWhitelist {
			whitelists = append(whitelists, rule)
			continue
		}

		for i := range candidates {
			c := &candidates[i]
			if c.IsExcluded {
				continue
			}
			applyRule(product, c, rule, tally)
		}
	}

	// Inverse-exclusion semantics: with at least one whitelist rule in
	// play, a candidate must match one of them to survive.
	if len(whitelists) > 0 {
		for i := range candidates {
			c := &candidates[i]
			if c.IsExcluded {
				continue
			}
			if !matchesAnyWhitelist(whitelists, c, product.Category) {
				excludeByRule(c, tally, ReasonRuleWhitelist,
					"candidate matches no whitelist rule", whitelists[0].ID)
			}
		}
	}

	return candidates
}

func applyRule(
	product domain.ProductCandidate,
	c *domain.ListingCandidate,
	rule domain.StrategyRule,
	tally map[string]int,
) {
	switch rule.RuleType {
	case domain.RuleBlacklist:
		if rule.Matches(c.Platform, c.AccountID, product.Category) {
			excludeByRule(c, tally, ReasonRuleBlacklist,
				fmt.Sprintf("blacklisted by rule %d", rule.ID), rule.ID)
		}

	case domain.RulePriceMin:
		if rule.Matches(c.Platform, c.AccountID, product.Category) &&
			rule.MinPrice != nil && product.Price < *rule.MinPrice {
			excludeByRule(c, tally, ReasonRulePriceMin,
				fmt.Sprintf("price %.0f below rule minimum %.0f", product.Price, *rule.MinPrice), rule.ID)
		}

	case domain.RulePriceMax:
		if rule.Matches(c.Platform, c.AccountID, product.Category) &&
			rule.MaxPrice != nil && product.Price > *rule.MaxPrice {
			excludeByRule(c, tally, ReasonRulePriceMax,
				fmt.Sprintf("price %.0f above rule maximum %.0f", product.Price, *rule.MaxPrice), rule.ID)
		}

	case domain.RuleCategoryAccountSpecific:
		// Only the pinned account may sell this category on this platform
		if rule.Category != product.Category || rule.AccountID == "" {
			return
		}
		if rule.Platform != "" && rule.Platform != c.Platform {
			return
		}
		if c.AccountID != rule.AccountID {
			excludeByRule(c, tally, ReasonRuleCategoryAccount,
				fmt.Sprintf("category %s is pinned to account %s on %s",
					rule.Category, rule.AccountID, c.Platform), rule.ID)
		}
	}
}

func matchesAnyWhitelist(whitelists []domain.StrategyRule, c *domain.ListingCandidate, category string) bool {
	for _, rule := range whitelists {
		if rule.Matches(c.Platform, c.AccountID, category) {
			return true
		}
	}
	return false
}
