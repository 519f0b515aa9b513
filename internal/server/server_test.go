package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/crosslister/internal/clients/marketplace"
	"github.com/aristath/crosslister/internal/database"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/aristath/crosslister/internal/events"
	"github.com/aristath/crosslister/internal/modules/catalog"
	"github.com/aristath/crosslister/internal/modules/execution"
	"github.com/aristath/crosslister/internal/modules/listing"
	"github.com/aristath/crosslister/internal/modules/strategy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupServer wires a full server against an in-memory database and
// stub marketplace clients
func setupServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()

	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	logDB, err := database.NewLogDB(filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { logDB.Close() })

	log := zerolog.Nop()
	eventManager := events.NewManager(log)

	productRepo := catalog.NewProductRepository(db.Conn(), log)
	accountRepo := catalog.NewAccountRepository(db.Conn(), log)
	listingRepo := listing.NewRepository(db.Conn(), log)
	priceRepo := listing.NewPriceRepository(db.Conn(), log)
	stockLogRepo := listing.NewStockLogRepository(db.Conn(), log)
	inventoryRepo := listing.NewInventorySyncRepository(db.Conn(), log)
	ruleRepo := strategy.NewRuleRepository(db.Conn(), log)
	historyRepo := strategy.NewHistoryRepository(db.Conn(), log)
	decisionRepo := strategy.NewDecisionRepository(db.Conn(), log)
	queueRepo := execution.NewQueueRepository(db.Conn(), log)
	execLogRepo := execution.NewLogRepository(logDB.Conn(), log)

	registry := marketplace.NewRegistry()
	for _, p := range domain.AllPlatforms() {
		registry.Register(marketplace.NewStubClient(p, log))
	}

	strategyService := strategy.NewService(strategy.DefaultConfig(),
		productRepo, accountRepo, listingRepo, ruleRepo, historyRepo,
		decisionRepo, eventManager, log)

	executor := execution.NewExecutor(execution.DefaultConfig(),
		productRepo, decisionRepo, listingRepo, priceRepo,
		stockLogRepo, inventoryRepo, queueRepo, execLogRepo,
		registry, eventManager, log)

	retry := execution.NewRetryProcessor(execution.DefaultRetryConfig(),
		executor, productRepo, queueRepo, execLogRepo, eventManager, log)

	srv := New(Config{
		Port:     0,
		Log:      log,
		DevMode:  true,
		Strategy: strategyService,
		Executor: executor,
		Retry:    retry,
		Queue:    queueRepo,
		Logs:     execLogRepo,
	})

	return srv, db
}

func seedCatalog(t *testing.T, db *database.DB) {
	t.Helper()
	_, err := db.Conn().Exec(`INSERT INTO products_master
		(sku, title, description, price, currency, quantity, condition, category,
		 images, priority_score, stock_quantity, execution_status)
		VALUES ('SKU-001', 'Vintage Camera', 'Working condition', 15000, 'JPY', 3,
		 'Used', 'cameras', '["https://img.example.com/1.jpg"]', 80, 3, 'strategy_determined')`)
	require.NoError(t, err)

	_, err = db.Conn().Exec(`INSERT INTO accounts (id, platform, name, active) VALUES
		('ebay-main', 'ebay', 'Main eBay', 1),
		('amz-jp-1', 'amazon_jp', 'JP store', 1)`)
	require.NoError(t, err)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestHandleDecide(t *testing.T) {
	srv, db := setupServer(t)
	seedCatalog(t, db)

	req := httptest.NewRequest("POST", "/api/strategy/decide/SKU-001", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var decision strategy.Decision
	require.NoError(t, json.NewDecoder(w.Body).Decode(&decision))
	assert.Equal(t, strategy.DecisionSuccess, decision.Status)
	require.NotNil(t, decision.Recommendation)
	assert.Len(t, decision.Candidates, 2)
}

func TestHandleDecide_UnknownSKU(t *testing.T) {
	srv, db := setupServer(t)
	seedCatalog(t, db)

	req := httptest.NewRequest("POST", "/api/strategy/decide/SKU-MISSING", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var decision strategy.Decision
	require.NoError(t, json.NewDecoder(w.Body).Decode(&decision))
	assert.Equal(t, strategy.DecisionError, decision.Status)
}

func TestFullPipeline_DecideThenExecute(t *testing.T) {
	srv, db := setupServer(t)
	seedCatalog(t, db)

	// Decide
	req := httptest.NewRequest("POST", "/api/strategy/decide/SKU-001", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Execute the decided candidate against the stub marketplace
	req = httptest.NewRequest("POST", "/api/execution/run", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Processed int                      `json:"processed"`
		Results   []domain.ExecutionResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, 1, body.Processed)
	assert.True(t, body.Results[0].Success)
	assert.NotEmpty(t, body.Results[0].ListingID)

	// Product is now listed; a second batch finds nothing to do
	req = httptest.NewRequest("POST", "/api/execution/run", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 0, body.Processed)

	// Execution log captured the attempt
	req = httptest.NewRequest("GET", "/api/logs/SKU-001", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var logs struct {
		SKU     string                   `json:"sku"`
		Entries []domain.ExecutionResult `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&logs))
	assert.Len(t, logs.Entries, 1)
}

func TestHandleRetryRun_EmptyQueue(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest("POST", "/api/retry/run", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleQueueList(t *testing.T) {
	srv, db := setupServer(t)

	queueRepo := execution.NewQueueRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, queueRepo.Insert(domain.ExecutionQueueItem{
		ID:          "q-1",
		SKU:         "SKU-001",
		Platform:    domain.PlatformEbay,
		AccountID:   "ebay-main",
		Status:      domain.QueueRetryPending,
		NextRetryAt: time.Now().Add(5 * time.Minute),
	}))

	req := httptest.NewRequest("GET", "/api/queue", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int                         `json:"count"`
		Items []domain.ExecutionQueueItem `json:"items"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "SKU-001", body.Items[0].SKU)
}
