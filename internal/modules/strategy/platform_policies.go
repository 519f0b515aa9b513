package strategy

import "github.com/aristath/crosslister/internal/domain"

// PlatformPolicy encodes static marketplace constraints.
// Empty slices and zero bounds mean unrestricted.
type PlatformPolicy struct {
	AllowedCategories []string
	AllowedConditions []domain.Condition
	MinPrice          float64 // JPY
	MaxPrice          float64 // JPY, 0 = unbounded
	Competition       float64 // score multiplier for competitive pressure
}

// platformPolicies is the static per-platform rule table. Prices are in
// JPY to match the catalog.
var platformPolicies = map[domain.Platform]PlatformPolicy{
	domain.PlatformEbay: {
		AllowedConditions: []domain.Condition{
			domain.ConditionNew, domain.ConditionUsed, domain.ConditionRefurbished,
		},
		MinPrice:    100,
		Competition: 0.95,
	},
	domain.PlatformAmazonUS: {
		AllowedConditions: []domain.Condition{
			domain.ConditionNew, domain.ConditionUsed, domain.ConditionRefurbished,
		},
		MinPrice:    100,
		Competition: 0.90,
	},
	domain.PlatformAmazonJP: {
		AllowedConditions: []domain.Condition{
			domain.ConditionNew, domain.ConditionUsed, domain.ConditionRefurbished,
		},
		MinPrice:    100,
		Competition: 1.00,
	},
	domain.PlatformAmazonAU: {
		AllowedConditions: []domain.Condition{
			domain.ConditionNew, domain.ConditionUsed,
		},
		MinPrice:    500,
		Competition: 1.05,
	},
	domain.PlatformCoupang: {
		// Coupang only accepts new items from cross-border sellers
		AllowedConditions: []domain.Condition{domain.ConditionNew},
		MinPrice:          1000,
		Competition:       1.10,
	},
}

// PolicyFor returns the policy for a platform. Unknown platforms get an
// unrestricted policy with neutral competition.
func PolicyFor(platform domain.Platform) PlatformPolicy {
	if p, ok := platformPolicies[platform]; ok {
		return p
	}
	return PlatformPolicy{Competition: 1.00}
}

// Allows reports whether the policy admits the product, with the reason
// when it does not
func (p PlatformPolicy) Allows(product domain.ProductCandidate) (bool, string) {
	if len(p.AllowedCategories) > 0 && !containsString(p.AllowedCategories, product.Category) {
		return false, "category " + product.Category + " not allowed on this platform"
	}
	if len(p.AllowedConditions) > 0 && !containsCondition(p.AllowedConditions, product.Condition) {
		return false, "condition " + string(product.Condition) + " not allowed on this platform"
	}
	if p.MinPrice > 0 && product.Price < p.MinPrice {
		return false, "price below platform minimum"
	}
	if p.MaxPrice > 0 && product.Price > p.MaxPrice {
		return false, "price above platform maximum"
	}
	return true, ""
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func containsCondition(values []domain.Condition, v domain.Condition) bool {
	for _, c := range values {
		if c == v {
			return true
		}
	}
	return false
}
