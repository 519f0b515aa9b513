package execution

import (
	"fmt"
	"testing"
	"time"

	"github.com/aristath/crosslister/internal/clients/marketplace"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/aristath/crosslister/internal/events"
	"github.com/aristath/crosslister/internal/modules/listing"
	"github.com/aristath/crosslister/internal/modules/strategy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeProductStore struct {
	products map[string]*domain.ProductCandidate
	statuses map[string]domain.ExecutionStatus
	loadErr  error
}

func (f *fakeProductStore) GetBySKU(sku string) (*domain.ProductCandidate, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.products[sku], nil
}

func (f *fakeProductStore) SelectByExecutionStatus(status domain.ExecutionStatus, minStock int) ([]domain.ProductCandidate, error) {
	var out []domain.ProductCandidate
	for sku, p := range f.products {
		if f.statuses[sku] == status && p.StockQuantity >= minStock {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductStore) UpdateExecutionStatus(sku string, status domain.ExecutionStatus) error {
	f.statuses[sku] = status
	return nil
}

type fakeRecommendationStore struct {
	recs map[string]*strategy.LatestRecommendation
}

func (f *fakeRecommendationStore) GetLatest(sku string) (*strategy.LatestRecommendation, error) {
	return f.recs[sku], nil
}

type fakeListingStore struct {
	parts   map[string]*listing.PayloadParts
	upserts []listing.RecordUpdate
}

func (f *fakeListingStore) GetPayloadParts(sku string, platform domain.Platform) (*listing.PayloadParts, error) {
	return f.parts[sku], nil
}

func (f *fakeListingStore) Upsert(sku string, platform domain.Platform, update listing.RecordUpdate) error {
	f.upserts = append(f.upserts, update)
	return nil
}

type fakePriceStore struct {
	prices map[string]*listing.PriceRecord
}

func (f *fakePriceStore) GetLatest(sku string) (*listing.PriceRecord, error) {
	return f.prices[sku], nil
}

type fakeStockLogger struct {
	entries []string
}

func (f *fakeStockLogger) Append(sku string, delta int, reason string) error {
	f.entries = append(f.entries, fmt.Sprintf("%s:%d:%s", sku, delta, reason))
	return nil
}

type fakeInventoryNotifier struct {
	queued []string
}

func (f *fakeInventoryNotifier) Enqueue(sku string, platform domain.Platform, listingID string) error {
	f.queued = append(f.queued, sku)
	return nil
}

type fakeQueueStore struct {
	inserted   []domain.ExecutionQueueItem
	updates    map[string][]QueueUpdate
	due        []domain.ExecutionQueueItem
	processing map[string]bool
	staleCount int
}

func (f *fakeQueueStore) Insert(item domain.ExecutionQueueItem) error {
	f.inserted = append(f.inserted, item)
	return nil
}

func (f *fakeQueueStore) Update(id string, update QueueUpdate) error {
	if f.updates == nil {
		f.updates = make(map[string][]QueueUpdate)
	}
	f.updates[id] = append(f.updates[id], update)
	return nil
}

func (f *fakeQueueStore) SelectDue(limit int) ([]domain.ExecutionQueueItem, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeQueueStore) HasProcessing(sku string) (bool, error) {
	return f.processing[sku], nil
}

func (f *fakeQueueStore) RequeueStale(cutoff time.Time) (int, error) {
	return f.staleCount, nil
}

type fakeAttemptLogger struct {
	results []domain.ExecutionResult
}

func (f *fakeAttemptLogger) Append(result domain.ExecutionResult) error {
	f.results = append(f.results, result)
	return nil
}

// fakeClient is a scriptable marketplace client
type fakeClient struct {
	platform     domain.Platform
	verify       bool
	verifyErr    *marketplace.ApiError
	submitErr    *marketplace.ApiError
	submitPanics bool
	listingID    string
	submitted    []domain.ListingPayload
}

func (c *fakeClient) Platform() domain.Platform  { return c.platform }
func (c *fakeClient) RequiresVerification() bool { return c.verify }

func (c *fakeClient) Verify(payload domain.ListingPayload) *marketplace.ApiError {
	return c.verifyErr
}

func (c *fakeClient) Submit(payload domain.ListingPayload) (string, *marketplace.ApiError) {
	if c.submitPanics {
		panic("connection pool corrupted")
	}
	c.submitted = append(c.submitted, payload)
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return c.listingID, nil
}

// --- harness ---

type executorHarness struct {
	executor  *Executor
	products  *fakeProductStore
	decisions *fakeRecommendationStore
	listings  *fakeListingStore
	prices    *fakePriceStore
	stockLog  *fakeStockLogger
	inventory *fakeInventoryNotifier
	queue     *fakeQueueStore
	attempts  *fakeAttemptLogger
	client    *fakeClient
}

func newExecutorHarness() *executorHarness {
	h := &executorHarness{
		products: &fakeProductStore{
			products: map[string]*domain.ProductCandidate{
				"SKU-001": {
					SKU:           "SKU-001",
					Title:         "Vintage Camera",
					Description:   "Working condition",
					Price:         15000,
					Currency:      "JPY",
					Condition:     domain.ConditionUsed,
					Category:      "cameras",
					Images:        []string{"https://img.example.com/1.jpg"},
					PriorityScore: 80,
					StockQuantity: 3,
				},
			},
			statuses: map[string]domain.ExecutionStatus{
				"SKU-001": domain.StatusStrategyDetermined,
			},
		},
		decisions: &fakeRecommendationStore{
			recs: map[string]*strategy.LatestRecommendation{
				"SKU-001": {Platform: domain.PlatformEbay, AccountID: "ebay-main"},
			},
		},
		listings:  &fakeListingStore{},
		prices:    &fakePriceStore{},
		stockLog:  &fakeStockLogger{},
		inventory: &fakeInventoryNotifier{},
		queue:     &fakeQueueStore{processing: map[string]bool{}},
		attempts:  &fakeAttemptLogger{},
		client:    &fakeClient{platform: domain.PlatformEbay, listingID: "EB-12345"},
	}

	registry := marketplace.NewRegistry()
	registry.Register(h.client)

	h.executor = NewExecutor(DefaultConfig(),
		h.products, h.decisions, h.listings, h.prices,
		h.stockLog, h.inventory, h.queue, h.attempts,
		registry, events.NewManager(zerolog.Nop()), zerolog.Nop())

	return h
}

// --- tests ---

func TestExecute_SuccessfulListing(t *testing.T) {
	h := newExecutorHarness()

	results, err := h.executor.Execute()

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "EB-12345", results[0].ListingID)

	// Product moves to listed
	assert.Equal(t, domain.StatusListed, h.products.statuses["SKU-001"])

	// Listing record carries the marketplace ID and a listed_at stamp
	require.Len(t, h.listings.upserts, 1)
	assert.Equal(t, "EB-12345", h.listings.upserts[0].ListingID)
	assert.Equal(t, domain.ListingActive, h.listings.upserts[0].Status)
	assert.NotNil(t, h.listings.upserts[0].ListedAt)

	// One unit allocated, inventory sync queued, attempt logged
	require.Len(t, h.stockLog.entries, 1)
	assert.Contains(t, h.stockLog.entries[0], "SKU-001:-1:")
	assert.Equal(t, []string{"SKU-001"}, h.inventory.queued)
	assert.Len(t, h.attempts.results, 1)
}

func TestExecute_TemporaryFailureEntersRetryQueue(t *testing.T) {
	h := newExecutorHarness()
	h.client.submitErr = marketplace.NewTemporary("RATE_LIMIT", "call quota exceeded")

	before := time.Now()
	results, err := h.executor.Execute()

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, domain.ErrorTemporary, results[0].ErrorType)

	assert.Equal(t, domain.StatusRetryPending, h.products.statuses["SKU-001"])

	// Queue item gets retry_count 0 and the base 5 minute delay
	require.Len(t, h.queue.inserted, 1)
	item := h.queue.inserted[0]
	assert.Equal(t, domain.QueueRetryPending, item.Status)
	assert.Equal(t, 0, item.RetryCount)
	assert.Equal(t, "RATE_LIMIT", item.ErrorCode)
	assert.WithinDuration(t, before.Add(5*time.Minute), item.NextRetryAt, 2*time.Second)
}

func TestExecute_FatalFailureMarksListingFailed(t *testing.T) {
	h := newExecutorHarness()
	h.client.submitErr = marketplace.NewFatal("INVALID_CATEGORY", "category not accepted")

	results, err := h.executor.Execute()

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)

	assert.Equal(t, domain.StatusListingFailed, h.products.statuses["SKU-001"])
	assert.Empty(t, h.queue.inserted, "fatal errors never enter the retry queue")

	require.Len(t, h.listings.upserts, 1)
	assert.Equal(t, domain.ListingError, h.listings.upserts[0].Status)
	assert.Equal(t, "category not accepted", h.listings.upserts[0].ErrorMessage)
}

func TestExecute_VerificationFailureShortCircuitsSubmit(t *testing.T) {
	h := newExecutorHarness()
	h.client.verify = true
	h.client.verifyErr = marketplace.NewFatal("MISSING_SPECIFICS", "brand is required")

	results, err := h.executor.Execute()

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "MISSING_SPECIFICS", results[0].ErrorCode)
	assert.Empty(t, h.client.submitted, "submit must not run after a failed verification")
}

func TestDispatch_PanicClassifiedTemporary(t *testing.T) {
	h := newExecutorHarness()
	h.client.submitPanics = true

	results, err := h.executor.Execute()

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, domain.ErrorTemporary, results[0].ErrorType)
	assert.Equal(t, "EXCEPTION", results[0].ErrorCode)

	// Conservative classification routes the SKU into the retry queue
	assert.Len(t, h.queue.inserted, 1)
}

func TestDispatch_UnsupportedPlatformIsFatal(t *testing.T) {
	h := newExecutorHarness()
	h.decisions.recs["SKU-001"] = &strategy.LatestRecommendation{
		Platform: domain.Platform("mercari"), AccountID: "m-1",
	}

	results, err := h.executor.Execute()

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ErrorFatal, results[0].ErrorType)
	assert.Equal(t, "UNSUPPORTED_PLATFORM", results[0].ErrorCode)
	assert.Equal(t, domain.StatusListingFailed, h.products.statuses["SKU-001"])
}

func TestExecute_PreCheckFailureLoggedNotDispatched(t *testing.T) {
	h := newExecutorHarness()
	h.products.products["SKU-001"].Images = nil

	results, err := h.executor.Execute()

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "PRE_CHECK_FAILED", results[0].ErrorCode)
	assert.Empty(t, h.client.submitted)

	// Pre-check rejections are logged for audit but do not touch state
	assert.Len(t, h.attempts.results, 1)
	assert.Equal(t, domain.StatusStrategyDetermined, h.products.statuses["SKU-001"])
	assert.Empty(t, h.queue.inserted)
}

func TestExecute_SingleFlightBlocksProcessingSKU(t *testing.T) {
	h := newExecutorHarness()
	h.queue.processing["SKU-001"] = true

	results, err := h.executor.Execute()

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "PRE_CHECK_FAILED", results[0].ErrorCode)
	assert.Contains(t, results[0].ErrorMessage, "already being processed")
	assert.Empty(t, h.client.submitted)
}

func TestExecute_SkipsSKUsWithoutRecommendation(t *testing.T) {
	h := newExecutorHarness()
	h.decisions.recs = map[string]*strategy.LatestRecommendation{}

	results, err := h.executor.Execute()

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuildCandidate_Overrides(t *testing.T) {
	h := newExecutorHarness()
	h.listings.parts = map[string]*listing.PayloadParts{
		"SKU-001": {
			Title:      "Vintage Camera (US market)",
			CategoryID: "625",
			ItemSpecifics: []domain.ItemSpecific{
				{Name: "Brand", Value: "Nikon"},
			},
		},
	}
	h.prices.prices = map[string]*listing.PriceRecord{
		"SKU-001": {Price: 13800, Currency: "JPY"},
	}

	product := *h.products.products["SKU-001"]
	candidate, err := h.executor.BuildCandidate(product, domain.PlatformEbay, "ebay-main")

	require.NoError(t, err)
	// Dedicated listing copy and latest price win over the product record
	assert.Equal(t, "Vintage Camera (US market)", candidate.Title)
	assert.Equal(t, "Working condition", candidate.Description, "missing parts fall back to the product")
	assert.Equal(t, "625", candidate.CategoryID)
	assert.Equal(t, 13800.0, candidate.Price)
	assert.Len(t, candidate.ItemSpecifics, 1)
}

func TestBuildCandidate_ProductFallbacks(t *testing.T) {
	h := newExecutorHarness()

	product := *h.products.products["SKU-001"]
	candidate, err := h.executor.BuildCandidate(product, domain.PlatformEbay, "ebay-main")

	require.NoError(t, err)
	assert.Equal(t, product.Title, candidate.Title)
	assert.Equal(t, product.Price, candidate.Price)
	assert.Equal(t, product.StockQuantity, candidate.Quantity)
	assert.Equal(t, product.Images, candidate.Images)
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		retryCount int
		expected   time.Duration
	}{
		{0, 5 * time.Minute},
		{1, 10 * time.Minute},
		{2, 20 * time.Minute},
		{3, 40 * time.Minute},
		{4, 80 * time.Minute},
	}

	for _, tt := range tests {
		if got := BackoffDelay(5, tt.retryCount); got != tt.expected {
			t.Errorf("BackoffDelay(5, %d) = %v, expected %v", tt.retryCount, got, tt.expected)
		}
	}
}
