package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/aristath/crosslister/internal/events"
	"github.com/rs/zerolog"
)

// RetryConfig holds retry processor tunables
type RetryConfig struct {
	BatchLimit       int
	MaxRetries       int
	BaseRetryMinutes int
	StaleWindow      time.Duration
}

// DefaultRetryConfig returns the processor defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BatchLimit:       50,
		MaxRetries:       5,
		BaseRetryMinutes: 5,
		StaleWindow:      time.Hour,
	}
}

// RetryProcessor re-drives transiently failed listing attempts with
// bounded exponential backoff. It shares dispatch and success handling
// with the executor so retries behave exactly like first attempts.
type RetryProcessor struct {
	cfg      RetryConfig
	executor *Executor
	products ProductStore
	queue    QueueStore
	attempts AttemptLogger
	events   *events.Manager
	log      zerolog.Logger
}

// NewRetryProcessor creates a new retry queue processor
func NewRetryProcessor(
	cfg RetryConfig,
	executor *Executor,
	products ProductStore,
	queue QueueStore,
	attempts AttemptLogger,
	eventManager *events.Manager,
	log zerolog.Logger,
) *RetryProcessor {
	return &RetryProcessor{
		cfg:      cfg,
		executor: executor,
		products: products,
		queue:    queue,
		attempts: attempts,
		events:   eventManager,
		log:      log.With().Str("service", "retry_processor").Logger(),
	}
}

// Run executes one retry sweep. Items are processed sequentially,
// oldest-due first.
func (p *RetryProcessor) Run() error {
	// Crash recovery: items stuck in processing past the stale window
	// go back to retry_pending without a retry-count penalty
	requeued, err := p.queue.RequeueStale(time.Now().Add(-p.cfg.StaleWindow))
	if err != nil {
		p.log.Error().Err(err).Msg("Stale item requeue failed")
	} else if requeued > 0 {
		p.events.Emit(events.StaleItemRequeued, "retry", map[string]interface{}{
			"count": requeued,
		})
	}

	items, err := p.queue.SelectDue(p.cfg.BatchLimit)
	if err != nil {
		return fmt.Errorf("failed to select due retry items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	p.log.Info().Int("due", len(items)).Msg("Starting retry sweep")

	for _, item := range items {
		if item.IsTerminal() {
			// Replayed sweeps on completed/failed items are no-ops
			continue
		}
		p.processItem(item)
	}

	return nil
}

// processItem runs a single retry attempt under the single-flight lock
func (p *RetryProcessor) processItem(item domain.ExecutionQueueItem) {
	if err := p.queue.Update(item.ID, QueueUpdate{Status: domain.QueueProcessing}); err != nil {
		p.log.Error().Err(err).Str("sku", item.SKU).Msg("Failed to lock queue item")
		return
	}

	result := p.attempt(item)
	p.logAttempt(result)

	if result.Success {
		p.executor.HandleSuccess(result)
		if err := p.queue.Update(item.ID, QueueUpdate{Status: domain.QueueCompleted}); err != nil {
			p.log.Error().Err(err).Str("sku", item.SKU).Msg("Failed to complete queue item")
		}
		return
	}

	p.handleRetryFailure(item, result)
}

// attempt rebuilds the payload fresh from the store and dispatches.
// Conditions that cannot self-resolve by waiting are fatal.
func (p *RetryProcessor) attempt(item domain.ExecutionQueueItem) domain.ExecutionResult {
	candidate := Candidate{
		SKU:       item.SKU,
		Platform:  item.Platform,
		AccountID: item.AccountID,
	}

	product, err := p.products.GetBySKU(item.SKU)
	if err != nil || product == nil {
		return failureResult(candidate, item.RetryCount, domain.ErrorFatal,
			"PAYLOAD_BUILD_FAILED", buildFailureMessage(item.SKU, err))
	}

	candidate, err = p.executor.BuildCandidate(*product, item.Platform, item.AccountID)
	if err != nil {
		candidate = Candidate{SKU: item.SKU, Platform: item.Platform, AccountID: item.AccountID}
		return failureResult(candidate, item.RetryCount, domain.ErrorFatal,
			"PAYLOAD_BUILD_FAILED", err.Error())
	}

	if candidate.Quantity < 1 {
		return failureResult(candidate, item.RetryCount, domain.ErrorFatal,
			"NO_STOCK", "stock exhausted while waiting for retry")
	}
	if candidate.Price <= 0 || math.IsNaN(candidate.Price) {
		return failureResult(candidate, item.RetryCount, domain.ErrorFatal,
			"INVALID_PRICE", "price invalid at retry time")
	}

	return p.executor.Dispatch(candidate, item.RetryCount)
}

// handleRetryFailure increments the retry count and either schedules the
// next attempt or gives up
func (p *RetryProcessor) handleRetryFailure(item domain.ExecutionQueueItem, result domain.ExecutionResult) {
	newCount := item.RetryCount + 1

	if result.ErrorType == domain.ErrorTemporary && newCount < p.cfg.MaxRetries {
		nextRetryAt := time.Now().Add(BackoffDelay(p.cfg.BaseRetryMinutes, newCount))
		err := p.queue.Update(item.ID, QueueUpdate{
			Status:       domain.QueueRetryPending,
			RetryCount:   &newCount,
			NextRetryAt:  &nextRetryAt,
			ErrorCode:    &result.ErrorCode,
			ErrorMessage: &result.ErrorMessage,
		})
		if err != nil {
			p.log.Error().Err(err).Str("sku", item.SKU).Msg("Failed to reschedule queue item")
			return
		}

		p.log.Info().
			Str("sku", item.SKU).
			Int("retry_count", newCount).
			Time("next_retry_at", nextRetryAt).
			Msg("Retry rescheduled")

		p.events.Emit(events.RetryScheduled, "retry", map[string]interface{}{
			"sku":         item.SKU,
			"retry_count": newCount,
		})
		return
	}

	// Budget exhausted or fatal error: terminal failure
	p.executor.MarkFailed(result)

	err := p.queue.Update(item.ID, QueueUpdate{
		Status:       domain.QueueFailed,
		RetryCount:   &newCount,
		ErrorCode:    &result.ErrorCode,
		ErrorMessage: &result.ErrorMessage,
	})
	if err != nil {
		p.log.Error().Err(err).Str("sku", item.SKU).Msg("Failed to finalize queue item")
	}

	p.log.Warn().
		Str("sku", item.SKU).
		Int("retry_count", newCount).
		Str("error_code", result.ErrorCode).
		Msg("Retry budget exhausted or fatal error")

	p.events.Emit(events.RetryExhausted, "retry", map[string]interface{}{
		"sku":         item.SKU,
		"retry_count": newCount,
		"error_code":  result.ErrorCode,
	})
}

func (p *RetryProcessor) logAttempt(result domain.ExecutionResult) {
	if err := p.attempts.Append(result); err != nil {
		p.log.Error().Err(err).Str("sku", result.SKU).Msg("Failed to append execution log")
	}
}

func buildFailureMessage(sku string, err error) string {
	if err != nil {
		return fmt.Sprintf("failed to load product %s: %v", sku, err)
	}
	return fmt.Sprintf("product %s no longer exists", sku)
}
