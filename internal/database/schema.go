package database

// schemaStatements creates the operational schema. Statements are
// idempotent so Migrate can run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products_master (
		sku             TEXT PRIMARY KEY,
		title           TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		price           REAL NOT NULL DEFAULT 0,
		currency        TEXT NOT NULL DEFAULT 'JPY',
		quantity        INTEGER NOT NULL DEFAULT 0,
		condition       TEXT NOT NULL DEFAULT 'New',
		category        TEXT NOT NULL DEFAULT '',
		images          TEXT NOT NULL DEFAULT '[]',
		priority_score  REAL NOT NULL DEFAULT 0,
		stock_quantity  INTEGER NOT NULL DEFAULT 0,
		execution_status TEXT NOT NULL DEFAULT '',
		updated_at      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_execution_status
		ON products_master (execution_status, stock_quantity)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id       TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		name     TEXT NOT NULL DEFAULT '',
		active   INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE TABLE IF NOT EXISTS listing_data (
		sku          TEXT NOT NULL,
		platform     TEXT NOT NULL,
		account_id   TEXT NOT NULL DEFAULT '',
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		category_id  TEXT NOT NULL DEFAULT '',
		image_urls   TEXT NOT NULL DEFAULT '[]',
		item_specifics TEXT NOT NULL DEFAULT '[]',
		listing_id   TEXT,
		status       TEXT NOT NULL DEFAULT '',
		error_message TEXT,
		listed_at    TEXT,
		updated_at   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (sku, platform)
	)`,

	`CREATE TABLE IF NOT EXISTS price_logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		sku        TEXT NOT NULL,
		price      REAL NOT NULL,
		currency   TEXT NOT NULL DEFAULT 'JPY',
		changed_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_logs_sku ON price_logs (sku, changed_at DESC)`,

	`CREATE TABLE IF NOT EXISTS strategy_rules (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		rule_type    TEXT NOT NULL,
		platform     TEXT NOT NULL DEFAULT '',
		account_id   TEXT NOT NULL DEFAULT '',
		category     TEXT NOT NULL DEFAULT '',
		min_price    REAL,
		max_price    REAL,
		score_factor REAL,
		active       INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE TABLE IF NOT EXISTS sales_history (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		platform      TEXT NOT NULL,
		account_id    TEXT NOT NULL,
		profit_margin REAL NOT NULL,
		days_to_sell  REAL NOT NULL,
		sold_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_history_account
		ON sales_history (platform, account_id, sold_at)`,

	`CREATE TABLE IF NOT EXISTS strategy_decisions (
		id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		sku                    TEXT NOT NULL,
		status                 TEXT NOT NULL,
		recommended_platform   TEXT,
		recommended_account_id TEXT,
		strategy_score         REAL,
		candidates             TEXT NOT NULL DEFAULT '[]',
		created_at             TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_strategy_decisions_sku
		ON strategy_decisions (sku, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS execution_queue (
		id            TEXT PRIMARY KEY,
		sku           TEXT NOT NULL,
		platform      TEXT NOT NULL,
		account_id    TEXT NOT NULL,
		status        TEXT NOT NULL,
		retry_count   INTEGER NOT NULL DEFAULT 0,
		next_retry_at TEXT NOT NULL,
		error_code    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_execution_queue_due
		ON execution_queue (status, next_retry_at)`,
	`CREATE INDEX IF NOT EXISTS idx_execution_queue_sku
		ON execution_queue (sku, status)`,

	`CREATE TABLE IF NOT EXISTS stock_logs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		sku             TEXT NOT NULL,
		quantity_change INTEGER NOT NULL,
		reason          TEXT NOT NULL DEFAULT '',
		changed_at      TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS inventory_sync_queue (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		sku                TEXT NOT NULL,
		trigger_platform   TEXT NOT NULL,
		trigger_listing_id TEXT NOT NULL,
		status             TEXT NOT NULL DEFAULT 'pending',
		created_at         TEXT NOT NULL
	)`,
}
