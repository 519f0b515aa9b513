package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// ProductRepository handles product master database operations
type ProductRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, log zerolog.Logger) *ProductRepository {
	return &ProductRepository{
		db:  db,
		log: log.With().Str("repo", "product").Logger(),
	}
}

const productColumns = `sku, title, description, price, currency, quantity,
	condition, category, images, priority_score, stock_quantity`

// GetBySKU retrieves a product, or nil if it does not exist
func (r *ProductRepository) GetBySKU(sku string) (*domain.ProductCandidate, error) {
	query := `SELECT ` + productColumns + ` FROM products_master WHERE sku = ?`

	row := r.db.QueryRow(query, strings.TrimSpace(sku))
	product, err := r.scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// SelectByExecutionStatus retrieves products whose execution status matches
// and whose stock is at least minStock
func (r *ProductRepository) SelectByExecutionStatus(status domain.ExecutionStatus, minStock int) ([]domain.ProductCandidate, error) {
	query := `SELECT ` + productColumns + `
		FROM products_master
		WHERE execution_status = ? AND stock_quantity >= ?
		ORDER BY priority_score DESC, sku ASC`

	rows, err := r.db.Query(query, string(status), minStock)
	if err != nil {
		return nil, fmt.Errorf("failed to select products by status: %w", err)
	}
	defer rows.Close()

	var products []domain.ProductCandidate
	for rows.Next() {
		product, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// UpdateExecutionStatus flips a product's execution status
func (r *ProductRepository) UpdateExecutionStatus(sku string, status domain.ExecutionStatus) error {
	query := `UPDATE products_master SET execution_status = ?, updated_at = ? WHERE sku = ?`

	result, err := r.db.Exec(query, string(status), time.Now().Format(time.RFC3339), sku)
	if err != nil {
		return fmt.Errorf("failed to update execution status: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("no product found for sku %s", sku)
	}

	r.log.Info().
		Str("sku", sku).
		Str("status", string(status)).
		Msg("Execution status updated")

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ProductRepository) scanProduct(row rowScanner) (domain.ProductCandidate, error) {
	var p domain.ProductCandidate
	var condition, imagesJSON string

	err := row.Scan(
		&p.SKU, &p.Title, &p.Description, &p.Price, &p.Currency, &p.Quantity,
		&condition, &p.Category, &imagesJSON, &p.PriorityScore, &p.StockQuantity,
	)
	if err != nil {
		return domain.ProductCandidate{}, err
	}

	p.Condition = domain.Condition(condition)
	if imagesJSON != "" {
		if err := json.Unmarshal([]byte(imagesJSON), &p.Images); err != nil {
			return domain.ProductCandidate{}, fmt.Errorf("invalid images json for sku %s: %w", p.SKU, err)
		}
	}

	return p, nil
}
