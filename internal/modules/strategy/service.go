package strategy

import (
	"fmt"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/aristath/crosslister/internal/events"
	"github.com/rs/zerolog"
)

// ProductSource loads catalog products
type ProductSource interface {
	GetBySKU(sku string) (*domain.ProductCandidate, error)
}

// AccountSource lists the seller account registry
type AccountSource interface {
	ListActive() ([]domain.Account, error)
}

// ActiveListingSource reports live listings per SKU
type ActiveListingSource interface {
	FindActiveForSKU(sku string) ([]domain.ActiveListing, error)
}

// RuleSource lists the operator strategy rules
type RuleSource interface {
	ListActive() ([]domain.StrategyRule, error)
}

// HistorySource reads trailing sales history for one (platform, account)
type HistorySource interface {
	GetSince(platform domain.Platform, accountID string, since time.Time) ([]domain.SalesHistoryRecord, error)
}

// DecisionSink persists decisions for audit and for the execution engine
type DecisionSink interface {
	Create(decision Decision) error
}

// Service is the strategy engine: it picks the best (platform, account)
// destination for a product through three sequential layers of
// constraints and scoring.
type Service struct {
	cfg       Config
	products  ProductSource
	accounts  AccountSource
	listings  ActiveListingSource
	rules     RuleSource
	history   HistorySource
	decisions DecisionSink
	events    *events.Manager
	log       zerolog.Logger
}

// NewService creates a new strategy service
func NewService(
	cfg Config,
	products ProductSource,
	accounts AccountSource,
	listings ActiveListingSource,
	rules RuleSource,
	history HistorySource,
	decisions DecisionSink,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		products:  products,
		accounts:  accounts,
		listings:  listings,
		rules:     rules,
		history:   history,
		decisions: decisions,
		events:    eventManager,
		log:       log.With().Str("service", "strategy").Logger(),
	}
}

// Decide runs the full three-layer decision for one SKU.
// Business exclusions are data carried on the decision, never errors;
// only store failures return a non-nil error.
func (s *Service) Decide(sku string) (Decision, error) {
	decision := Decision{
		SKU:            sku,
		ExclusionTally: make(map[string]int),
		CreatedAt:      time.Now(),
	}

	product, err := s.products.GetBySKU(sku)
	if err != nil {
		decision.Status = DecisionError
		return decision, fmt.Errorf("failed to load product %s: %w", sku, err)
	}
	if product == nil {
		s.log.Warn().Str("sku", sku).Msg("Product not found")
		decision.Status = DecisionError
		s.persist(decision)
		return decision, nil
	}

	candidates, err := s.generateCandidates()
	if err != nil {
		decision.Status = DecisionError
		return decision, err
	}

	activeListings, err := s.listings.FindActiveForSKU(sku)
	if err != nil {
		decision.Status = DecisionError
		return decision, fmt.Errorf("failed to load active listings for %s: %w", sku, err)
	}

	rules, err := s.rules.ListActive()
	if err != nil {
		decision.Status = DecisionError
		return decision, fmt.Errorf("failed to load strategy rules: %w", err)
	}

	// Layer 1: system constraints
	candidates = applySystemConstraints(s.cfg, *product, candidates, activeListings, decision.ExclusionTally)

	// Layer 2: user strategy rules, survivors only
	candidates = applyUserRules(*product, candidates, rules, decision.ExclusionTally)

	// Layer 3: scoring and ranking
	if err := s.scoreSurvivors(*product, candidates, rules); err != nil {
		decision.Status = DecisionError
		return decision, err
	}

	decision.Candidates = rankCandidates(candidates)

	if top := firstSurvivor(decision.Candidates); top != nil {
		decision.Status = DecisionSuccess
		decision.Recommendation = &Recommendation{
			Platform:  top.Platform,
			AccountID: top.AccountID,
			Score:     scoreOf(*top),
		}
	} else {
		decision.Status = DecisionNoCandidates
	}

	s.persist(decision)

	s.log.Info().
		Str("sku", sku).
		Str("status", string(decision.Status)).
		Int("candidates", len(decision.Candidates)).
		Msg("Strategy decision complete")

	if decision.Status == DecisionSuccess {
		s.events.Emit(events.StrategyDecided, "strategy", map[string]interface{}{
			"sku":      sku,
			"platform": string(decision.Recommendation.Platform),
			"account":  decision.Recommendation.AccountID,
			"score":    decision.Recommendation.Score,
		})
	}

	return decision, nil
}

// generateCandidates builds one candidate per active (platform, account)
// pair, in registry order
func (s *Service) generateCandidates() ([]domain.ListingCandidate, error) {
	accounts, err := s.accounts.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load account registry: %w", err)
	}

	candidates := make([]domain.ListingCandidate, 0, len(accounts))
	for _, a := range accounts {
		candidates = append(candidates, domain.ListingCandidate{
			Platform:  a.Platform,
			AccountID: a.ID,
		})
	}
	return candidates, nil
}

// scoreSurvivors computes strategy scores for every non-excluded candidate
func (s *Service) scoreSurvivors(
	product domain.ProductCandidate,
	candidates []domain.ListingCandidate,
	rules []domain.StrategyRule,
) error {
	since := time.Now().Add(-s.cfg.HistoryWindow)

	for i := range candidates {
		c := &candidates[i]
		if c.IsExcluded {
			continue
		}

		history, err := s.history.GetSince(c.Platform, c.AccountID, since)
		if err != nil {
			return fmt.Errorf("failed to load sales history for %s/%s: %w", c.Platform, c.AccountID, err)
		}

		m := Multipliers{
			Performance: performanceMultiplier(history),
			Competition: PolicyFor(c.Platform).Competition,
			CategoryFit: categoryFitMultiplier(*c, product.Category, rules),
		}

		score := scoreCandidate(product.PriorityScore, m)
		c.StrategyScore = &score
	}

	return nil
}

// persist writes the decision; a write failure is logged but never blocks
// returning the decision to the caller
func (s *Service) persist(decision Decision) {
	if err := s.decisions.Create(decision); err != nil {
		s.log.Warn().Err(err).Str("sku", decision.SKU).Msg("Decision computed but failed to record")
	}
}

func firstSurvivor(candidates []domain.ListingCandidate) *domain.ListingCandidate {
	for i := range candidates {
		if !candidates[i].IsExcluded {
			return &candidates[i]
		}
	}
	return nil
}
