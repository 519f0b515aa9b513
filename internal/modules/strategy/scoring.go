package strategy

import (
	"math"
	"sort"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/aristath/crosslister/pkg/formulas"
)

// Performance multiplier tiers, from trailing sales history.
// Margins are fractions (0.30 = 30%), days-to-sell in days.
const (
	perfTierTopMargin  = 0.30
	perfTierTopDays    = 7.0
	perfTierTop        = 1.50
	perfTierMidMargin  = 0.20
	perfTierMidDays    = 14.0
	perfTierMid        = 1.30
	perfTierLowMargin  = 0.10
	perfTierLowDays    = 30.0
	perfTierLow        = 1.10
	perfTierNeutral    = 1.00
)

// Multipliers breaks down the score composition for one candidate
type Multipliers struct {
	Performance float64 `json:"performance"`
	Competition float64 `json:"competition"`
	CategoryFit float64 `json:"category_fit"`
}

// Total returns the combined multiplier
func (m Multipliers) Total() float64 {
	return m.Performance * m.Competition * m.CategoryFit
}

// performanceMultiplier maps trailing sales facts to a discrete tier.
// No history means neutral.
func performanceMultiplier(history []domain.SalesHistoryRecord) float64 {
	if len(history) == 0 {
		return perfTierNeutral
	}

	margins := make([]float64, len(history))
	days := make([]float64, len(history))
	for i, h := range history {
		margins[i] = h.ProfitMargin
		days[i] = h.DaysToSell
	}

	avgMargin := formulas.Mean(margins)
	avgDays := formulas.Mean(days)

	switch {
	case avgMargin >= perfTierTopMargin && avgDays <= perfTierTopDays:
		return perfTierTop
	case avgMargin >= perfTierMidMargin && avgDays <= perfTierMidDays:
		return perfTierMid
	case avgMargin >= perfTierLowMargin && avgDays <= perfTierLowDays:
		return perfTierLow
	default:
		return perfTierNeutral
	}
}

// categoryFitMultiplier derives M_category_fit from score-factor rules
// matching (platform, account, category). Multiple matching factors
// compound. Default is neutral.
func categoryFitMultiplier(
	c domain.ListingCandidate,
	category string,
	rules []domain.StrategyRule,
) float64 {
	fit := 1.00
	for _, rule := range rules {
		if !rule.Active || rule.ScoreFactor == nil {
			continue
		}
		if rule.Matches(c.Platform, c.AccountID, category) {
			fit *= *rule.ScoreFactor
		}
	}
	return fit
}

// scoreCandidate computes the final strategy score for one candidate
func scoreCandidate(priorityScore float64, m Multipliers) float64 {
	return math.Round(priorityScore * m.Total())
}

// rankCandidates orders the full candidate list: scored survivors first,
// descending by score with generation order as the stable tie-break,
// excluded candidates after in generation order.
func rankCandidates(candidates []domain.ListingCandidate) []domain.ListingCandidate {
	ranked := make([]domain.ListingCandidate, 0, len(candidates))
	var excluded []domain.ListingCandidate

	for _, c := range candidates {
		if c.IsExcluded {
			excluded = append(excluded, c)
		} else {
			ranked = append(ranked, c)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return scoreOf(ranked[i]) > scoreOf(ranked[j])
	})

	return append(ranked, excluded...)
}

func scoreOf(c domain.ListingCandidate) float64 {
	if c.StrategyScore == nil {
		return 0
	}
	return *c.StrategyScore
}
