package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/crosslister/internal/clients/marketplace"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/aristath/crosslister/internal/events"
	"github.com/aristath/crosslister/internal/modules/listing"
	"github.com/aristath/crosslister/internal/modules/strategy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Candidate is one fully-resolved listing attempt: the product joined
// with its recommended destination, listing copy and latest price
type Candidate struct {
	SKU           string
	Platform      domain.Platform
	AccountID     string
	Title         string
	Description   string
	Price         float64
	Currency      string
	Quantity      int
	Condition     domain.Condition
	CategoryID    string
	Images        []string
	ItemSpecifics []domain.ItemSpecific
}

// ProductStore is the catalog surface the executor needs
type ProductStore interface {
	GetBySKU(sku string) (*domain.ProductCandidate, error)
	SelectByExecutionStatus(status domain.ExecutionStatus, minStock int) ([]domain.ProductCandidate, error)
	UpdateExecutionStatus(sku string, status domain.ExecutionStatus) error
}

// RecommendationStore reads the newest strategy recommendation per SKU
type RecommendationStore interface {
	GetLatest(sku string) (*strategy.LatestRecommendation, error)
}

// ListingStore reads listing copy and writes listing outcomes
type ListingStore interface {
	GetPayloadParts(sku string, platform domain.Platform) (*listing.PayloadParts, error)
	Upsert(sku string, platform domain.Platform, update listing.RecordUpdate) error
}

// PriceStore reads the latest price record per SKU
type PriceStore interface {
	GetLatest(sku string) (*listing.PriceRecord, error)
}

// StockLogger appends inventory movement entries
type StockLogger interface {
	Append(sku string, delta int, reason string) error
}

// InventoryNotifier enqueues cross-channel inventory notifications
type InventoryNotifier interface {
	Enqueue(sku string, platform domain.Platform, listingID string) error
}

// QueueStore is the retry queue surface the executor needs
type QueueStore interface {
	Insert(item domain.ExecutionQueueItem) error
	Update(id string, update QueueUpdate) error
	SelectDue(limit int) ([]domain.ExecutionQueueItem, error)
	HasProcessing(sku string) (bool, error)
	RequeueStale(cutoff time.Time) (int, error)
}

// AttemptLogger appends to the append-only execution log
type AttemptLogger interface {
	Append(result domain.ExecutionResult) error
}

// Config holds executor tunables
type Config struct {
	TriggerStatus    domain.ExecutionStatus
	MinStockQuantity int
	BaseRetryMinutes int
}

// DefaultConfig returns the executor defaults
func DefaultConfig() Config {
	return Config{
		TriggerStatus:    domain.StatusStrategyDetermined,
		MinStockQuantity: 1,
		BaseRetryMinutes: 5,
	}
}

// Executor dispatches listing attempts against marketplace APIs and
// interprets their outcomes. Candidates are processed sequentially to
// respect marketplace rate limits.
type Executor struct {
	cfg       Config
	products  ProductStore
	decisions RecommendationStore
	listings  ListingStore
	prices    PriceStore
	stockLog  StockLogger
	inventory InventoryNotifier
	queue     QueueStore
	attempts  AttemptLogger
	registry  *marketplace.Registry
	events    *events.Manager
	log       zerolog.Logger
}

// NewExecutor creates a new execution engine
func NewExecutor(
	cfg Config,
	products ProductStore,
	decisions RecommendationStore,
	listings ListingStore,
	prices PriceStore,
	stockLog StockLogger,
	inventory InventoryNotifier,
	queue QueueStore,
	attempts AttemptLogger,
	registry *marketplace.Registry,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Executor {
	return &Executor{
		cfg:       cfg,
		products:  products,
		decisions: decisions,
		listings:  listings,
		prices:    prices,
		stockLog:  stockLog,
		inventory: inventory,
		queue:     queue,
		attempts:  attempts,
		registry:  registry,
		events:    eventManager,
		log:       log.With().Str("service", "executor").Logger(),
	}
}

// Execute runs one full execution batch: select candidates, pre-check,
// dispatch, and persist every outcome
func (e *Executor) Execute() ([]domain.ExecutionResult, error) {
	candidates, err := e.SelectCandidates()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.log.Debug().Msg("No candidates to execute")
		return nil, nil
	}

	results := make([]domain.ExecutionResult, 0, len(candidates))
	for _, candidate := range candidates {
		result := e.executeOne(candidate)
		results = append(results, result)
	}

	e.log.Info().Int("processed", len(results)).Msg("Execution batch complete")
	return results, nil
}

// executeOne runs prechecks, dispatch and outcome handling for a single
// candidate. The returned result is always persisted to the execution log.
func (e *Executor) executeOne(candidate Candidate) domain.ExecutionResult {
	if reason := e.preCheck(candidate); reason != "" {
		e.log.Warn().
			Str("sku", candidate.SKU).
			Str("reason", reason).
			Msg("Pre-execution check failed")

		result := failureResult(candidate, 0, domain.ErrorFatal, "PRE_CHECK_FAILED", reason)
		e.logAttempt(result)
		return result
	}

	result := e.Dispatch(candidate, 0)
	e.logAttempt(result)

	if result.Success {
		e.HandleSuccess(result)
	} else {
		e.handleFailure(result)
	}

	return result
}

// SelectCandidates joins trigger-status products with their newest
// recommendation, listing copy and latest price
func (e *Executor) SelectCandidates() ([]Candidate, error) {
	products, err := e.products.SelectByExecutionStatus(e.cfg.TriggerStatus, e.cfg.MinStockQuantity)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidate products: %w", err)
	}

	var candidates []Candidate
	for _, product := range products {
		rec, err := e.decisions.GetLatest(product.SKU)
		if err != nil {
			return nil, fmt.Errorf("failed to load recommendation for %s: %w", product.SKU, err)
		}
		if rec == nil {
			e.log.Warn().Str("sku", product.SKU).Msg("No strategy recommendation, skipping")
			continue
		}

		candidate, err := e.BuildCandidate(product, rec.Platform, rec.AccountID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}

	e.log.Info().Int("count", len(candidates)).Msg("Candidates selected")
	return candidates, nil
}

// BuildCandidate resolves the denormalized listing payload for one
// (product, platform, account). Listing copy and price fall back to the
// product record when no dedicated row exists.
func (e *Executor) BuildCandidate(product domain.ProductCandidate, platform domain.Platform, accountID string) (Candidate, error) {
	candidate := Candidate{
		SKU:         product.SKU,
		Platform:    platform,
		AccountID:   accountID,
		Title:       product.Title,
		Description: product.Description,
		Price:       product.Price,
		Currency:    product.Currency,
		Quantity:    product.StockQuantity,
		Condition:   product.Condition,
		Images:      product.Images,
	}

	parts, err := e.listings.GetPayloadParts(product.SKU, platform)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to load payload parts for %s: %w", product.SKU, err)
	}
	if parts != nil {
		if parts.Title != "" {
			candidate.Title = parts.Title
		}
		if parts.Description != "" {
			candidate.Description = parts.Description
		}
		candidate.CategoryID = parts.CategoryID
		if len(parts.Images) > 0 {
			candidate.Images = parts.Images
		}
		candidate.ItemSpecifics = parts.ItemSpecifics
	}

	price, err := e.prices.GetLatest(product.SKU)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to load latest price for %s: %w", product.SKU, err)
	}
	if price != nil {
		candidate.Price = price.Price
		candidate.Currency = price.Currency
	}

	return candidate, nil
}

// preCheck validates a candidate before any external call. A non-empty
// return is the rejection reason.
func (e *Executor) preCheck(candidate Candidate) string {
	if candidate.Quantity < 1 {
		return "stock quantity is zero"
	}
	if candidate.Price <= 0 || math.IsNaN(candidate.Price) {
		return "price is invalid"
	}
	if len(candidate.Images) == 0 {
		return "no images available"
	}
	if candidate.Title == "" {
		return "title is empty"
	}

	processing, err := e.queue.HasProcessing(candidate.SKU)
	if err != nil {
		return fmt.Sprintf("single-flight check failed: %v", err)
	}
	if processing {
		return "SKU is already being processed"
	}

	return ""
}

// Dispatch resolves the marketplace client, verifies when required, and
// submits the listing. A panic anywhere in the client is conservatively
// classified as a temporary failure so the attempt is retried rather
// than lost.
func (e *Executor) Dispatch(candidate Candidate, retryCount int) (result domain.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("sku", candidate.SKU).
				Interface("panic", r).
				Msg("Dispatch panicked")
			result = failureResult(candidate, retryCount, domain.ErrorTemporary,
				"EXCEPTION", fmt.Sprintf("dispatch panic: %v", r))
		}
	}()

	client := e.registry.Get(candidate.Platform)
	if client == nil {
		return failureResult(candidate, retryCount, domain.ErrorFatal,
			"UNSUPPORTED_PLATFORM", fmt.Sprintf("platform %s is not supported", candidate.Platform))
	}

	payload, err := domain.NewListingPayload(
		candidate.SKU, candidate.Title, candidate.Description,
		candidate.Price, candidate.Currency, candidate.Quantity,
		candidate.Condition, candidate.CategoryID,
		candidate.Images, candidate.ItemSpecifics,
	)
	if err != nil {
		return failureResult(candidate, retryCount, domain.ErrorFatal, "INVALID_PAYLOAD", err.Error())
	}

	e.log.Info().
		Str("sku", candidate.SKU).
		Str("platform", string(candidate.Platform)).
		Str("account", candidate.AccountID).
		Msg("Dispatching listing")

	if client.RequiresVerification() {
		if apiErr := client.Verify(payload); apiErr != nil {
			e.log.Error().
				Str("sku", candidate.SKU).
				Str("code", apiErr.Code).
				Msg("Verification failed")
			return failureResult(candidate, retryCount, apiErr.Type, apiErr.Code, apiErr.Message)
		}
	}

	listingID, apiErr := client.Submit(payload)
	if apiErr != nil {
		e.log.Error().
			Str("sku", candidate.SKU).
			Str("code", apiErr.Code).
			Str("type", string(apiErr.Type)).
			Msg("Listing failed")
		return failureResult(candidate, retryCount, apiErr.Type, apiErr.Code, apiErr.Message)
	}

	e.log.Info().
		Str("sku", candidate.SKU).
		Str("listing_id", listingID).
		Msg("Listing succeeded")

	return domain.ExecutionResult{
		SKU:        candidate.SKU,
		Platform:   candidate.Platform,
		AccountID:  candidate.AccountID,
		Success:    true,
		ListingID:  listingID,
		RetryCount: retryCount,
		Timestamp:  time.Now(),
	}
}

// HandleSuccess updates state after a successful listing: product status,
// listing record, stock log and the cross-channel inventory notification.
// Each write failure is logged and the rest still attempted; the listing
// already exists on the marketplace.
func (e *Executor) HandleSuccess(result domain.ExecutionResult) {
	if err := e.products.UpdateExecutionStatus(result.SKU, domain.StatusListed); err != nil {
		e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to mark product listed")
	}

	listedAt := result.Timestamp
	err := e.listings.Upsert(result.SKU, result.Platform, listing.RecordUpdate{
		AccountID: result.AccountID,
		ListingID: result.ListingID,
		Status:    domain.ListingActive,
		ListedAt:  &listedAt,
	})
	if err != nil {
		e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to update listing record")
	}

	reason := fmt.Sprintf("SKU %s allocated 1 unit to %s", result.SKU, result.Platform)
	if err := e.stockLog.Append(result.SKU, -1, reason); err != nil {
		e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to append stock log")
	}

	if err := e.inventory.Enqueue(result.SKU, result.Platform, result.ListingID); err != nil {
		e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to enqueue inventory sync")
	} else {
		e.events.Emit(events.InventorySyncQueued, "execution", map[string]interface{}{
			"sku":      result.SKU,
			"platform": string(result.Platform),
		})
	}

	e.events.Emit(events.ListingExecuted, "execution", map[string]interface{}{
		"sku":        result.SKU,
		"platform":   string(result.Platform),
		"account":    result.AccountID,
		"listing_id": result.ListingID,
	})
}

// handleFailure routes a failed first attempt: temporary failures enter
// the retry queue, fatal ones are surfaced for operator review
func (e *Executor) handleFailure(result domain.ExecutionResult) {
	if result.ErrorType == domain.ErrorTemporary {
		if err := e.products.UpdateExecutionStatus(result.SKU, domain.StatusRetryPending); err != nil {
			e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to mark product retry pending")
		}

		item := domain.ExecutionQueueItem{
			ID:           uuid.NewString(),
			SKU:          result.SKU,
			Platform:     result.Platform,
			AccountID:    result.AccountID,
			Status:       domain.QueueRetryPending,
			RetryCount:   0,
			NextRetryAt:  time.Now().Add(BackoffDelay(e.cfg.BaseRetryMinutes, 0)),
			ErrorCode:    result.ErrorCode,
			ErrorMessage: result.ErrorMessage,
		}
		if err := e.queue.Insert(item); err != nil {
			e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to insert retry queue item")
			return
		}

		e.events.Emit(events.RetryScheduled, "execution", map[string]interface{}{
			"sku":        result.SKU,
			"platform":   string(result.Platform),
			"error_code": result.ErrorCode,
		})
		return
	}

	e.MarkFailed(result)
}

// MarkFailed flags a product as terminally failed and surfaces the error
// on the listing record for operator review
func (e *Executor) MarkFailed(result domain.ExecutionResult) {
	if err := e.products.UpdateExecutionStatus(result.SKU, domain.StatusListingFailed); err != nil {
		e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to mark product failed")
	}

	err := e.listings.Upsert(result.SKU, result.Platform, listing.RecordUpdate{
		AccountID:    result.AccountID,
		Status:       domain.ListingError,
		ErrorMessage: result.ErrorMessage,
	})
	if err != nil {
		e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to update listing record")
	}

	e.events.Emit(events.ListingFailed, "execution", map[string]interface{}{
		"sku":        result.SKU,
		"platform":   string(result.Platform),
		"error_code": result.ErrorCode,
	})
}

// logAttempt appends the outcome to the append-only execution log
func (e *Executor) logAttempt(result domain.ExecutionResult) {
	if err := e.attempts.Append(result); err != nil {
		e.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to append execution log")
	}
}

// BackoffDelay is the bounded exponential retry delay:
// base × 2^retryCount minutes
func BackoffDelay(baseMinutes, retryCount int) time.Duration {
	return time.Duration(baseMinutes<<uint(retryCount)) * time.Minute
}

func failureResult(candidate Candidate, retryCount int, errType domain.ErrorType, code, message string) domain.ExecutionResult {
	return domain.ExecutionResult{
		SKU:          candidate.SKU,
		Platform:     candidate.Platform,
		AccountID:    candidate.AccountID,
		Success:      false,
		ErrorType:    errType,
		ErrorCode:    code,
		ErrorMessage: message,
		RetryCount:   retryCount,
		Timestamp:    time.Now(),
	}
}
