package execution

import (
	"testing"
	"time"

	"github.com/aristath/crosslister/internal/clients/marketplace"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/aristath/crosslister/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetryProcessor(h *executorHarness) *RetryProcessor {
	return NewRetryProcessor(DefaultRetryConfig(),
		h.executor, h.products, h.queue, h.attempts,
		events.NewManager(zerolog.Nop()), zerolog.Nop())
}

func queueItem(retryCount int) domain.ExecutionQueueItem {
	return domain.ExecutionQueueItem{
		ID:          "q-1",
		SKU:         "SKU-001",
		Platform:    domain.PlatformEbay,
		AccountID:   "ebay-main",
		Status:      domain.QueueRetryPending,
		RetryCount:  retryCount,
		NextRetryAt: time.Now().Add(-time.Minute),
	}
}

func TestRetryRun_SuccessCompletesItem(t *testing.T) {
	h := newExecutorHarness()
	h.queue.due = []domain.ExecutionQueueItem{queueItem(2)}

	err := newRetryProcessor(h).Run()

	require.NoError(t, err)

	updates := h.queue.updates["q-1"]
	require.Len(t, updates, 2)
	// Locked first, completed after the successful attempt
	assert.Equal(t, domain.QueueProcessing, updates[0].Status)
	assert.Equal(t, domain.QueueCompleted, updates[1].Status)

	// Success handling runs exactly as on a first attempt
	assert.Equal(t, domain.StatusListed, h.products.statuses["SKU-001"])
	require.Len(t, h.attempts.results, 1)
	assert.Equal(t, 2, h.attempts.results[0].RetryCount)
}

func TestRetryRun_TemporaryFailureReschedulesWithBackoff(t *testing.T) {
	h := newExecutorHarness()
	h.client.submitErr = marketplace.NewTemporary("RATE_LIMIT", "call quota exceeded")
	h.queue.due = []domain.ExecutionQueueItem{queueItem(1)}

	before := time.Now()
	err := newRetryProcessor(h).Run()

	require.NoError(t, err)

	updates := h.queue.updates["q-1"]
	require.Len(t, updates, 2)
	final := updates[1]
	assert.Equal(t, domain.QueueRetryPending, final.Status)
	require.NotNil(t, final.RetryCount)
	assert.Equal(t, 2, *final.RetryCount)

	// Third attempt waits 5 * 2^2 = 20 minutes
	require.NotNil(t, final.NextRetryAt)
	assert.WithinDuration(t, before.Add(20*time.Minute), *final.NextRetryAt, 2*time.Second)
}

func TestRetryRun_BudgetExhaustedIsTerminal(t *testing.T) {
	h := newExecutorHarness()
	h.client.submitErr = marketplace.NewTemporary("RATE_LIMIT", "call quota exceeded")
	// Fifth failure: retry count 4 -> 5 == MaxRetries
	h.queue.due = []domain.ExecutionQueueItem{queueItem(4)}

	err := newRetryProcessor(h).Run()

	require.NoError(t, err)

	updates := h.queue.updates["q-1"]
	require.Len(t, updates, 2)
	final := updates[1]
	assert.Equal(t, domain.QueueFailed, final.Status)
	require.NotNil(t, final.RetryCount)
	assert.Equal(t, 5, *final.RetryCount)
	assert.Nil(t, final.NextRetryAt, "terminal items get no next retry time")

	// Terminal failure surfaces on product and listing record
	assert.Equal(t, domain.StatusListingFailed, h.products.statuses["SKU-001"])
	require.Len(t, h.listings.upserts, 1)
	assert.Equal(t, domain.ListingError, h.listings.upserts[0].Status)
}

func TestRetryRun_FatalFailureSkipsRemainingBudget(t *testing.T) {
	h := newExecutorHarness()
	h.client.submitErr = marketplace.NewFatal("INVALID_CATEGORY", "category not accepted")
	h.queue.due = []domain.ExecutionQueueItem{queueItem(1)}

	err := newRetryProcessor(h).Run()

	require.NoError(t, err)

	final := h.queue.updates["q-1"][1]
	assert.Equal(t, domain.QueueFailed, final.Status)
	assert.Equal(t, domain.StatusListingFailed, h.products.statuses["SKU-001"])
}

func TestRetryRun_StockExhaustedWhileWaiting(t *testing.T) {
	h := newExecutorHarness()
	h.products.products["SKU-001"].StockQuantity = 0
	h.queue.due = []domain.ExecutionQueueItem{queueItem(1)}

	err := newRetryProcessor(h).Run()

	require.NoError(t, err)

	// A condition that waiting cannot fix is fatal
	require.Len(t, h.attempts.results, 1)
	assert.Equal(t, "NO_STOCK", h.attempts.results[0].ErrorCode)
	assert.Equal(t, domain.ErrorFatal, h.attempts.results[0].ErrorType)
	assert.Equal(t, domain.QueueFailed, h.queue.updates["q-1"][1].Status)
	assert.Empty(t, h.client.submitted, "no marketplace call without stock")
}

func TestRetryRun_InvalidPriceAtRetryTime(t *testing.T) {
	h := newExecutorHarness()
	h.products.products["SKU-001"].Price = 0
	h.queue.due = []domain.ExecutionQueueItem{queueItem(0)}

	err := newRetryProcessor(h).Run()

	require.NoError(t, err)
	require.Len(t, h.attempts.results, 1)
	assert.Equal(t, "INVALID_PRICE", h.attempts.results[0].ErrorCode)
	assert.Equal(t, domain.QueueFailed, h.queue.updates["q-1"][1].Status)
}

func TestRetryRun_ProductGoneIsFatal(t *testing.T) {
	h := newExecutorHarness()
	delete(h.products.products, "SKU-001")
	h.queue.due = []domain.ExecutionQueueItem{queueItem(2)}

	err := newRetryProcessor(h).Run()

	require.NoError(t, err)
	require.Len(t, h.attempts.results, 1)
	assert.Equal(t, "PAYLOAD_BUILD_FAILED", h.attempts.results[0].ErrorCode)
	assert.Equal(t, domain.QueueFailed, h.queue.updates["q-1"][1].Status)
}

func TestRetryRun_TerminalItemsAreNoOps(t *testing.T) {
	h := newExecutorHarness()
	completed := queueItem(3)
	completed.Status = domain.QueueCompleted
	failed := queueItem(5)
	failed.ID = "q-2"
	failed.Status = domain.QueueFailed
	h.queue.due = []domain.ExecutionQueueItem{completed, failed}

	err := newRetryProcessor(h).Run()

	require.NoError(t, err)
	assert.Empty(t, h.queue.updates)
	assert.Empty(t, h.attempts.results)
	assert.Empty(t, h.client.submitted)
}

func TestRetryRun_EmptyQueueIsQuiet(t *testing.T) {
	h := newExecutorHarness()

	err := newRetryProcessor(h).Run()

	require.NoError(t, err)
	assert.Empty(t, h.attempts.results)
}

func TestRetryBackoffSequence(t *testing.T) {
	// The full schedule for the default budget: 5, 10, 20, 40, 80 minutes
	expected := []time.Duration{
		5 * time.Minute,
		10 * time.Minute,
		20 * time.Minute,
		40 * time.Minute,
		80 * time.Minute,
	}
	for i, want := range expected {
		if got := BackoffDelay(5, i); got != want {
			t.Errorf("attempt %d: expected delay %v, got %v", i+1, want, got)
		}
	}
}
