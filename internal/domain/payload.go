package domain

import (
	"fmt"
	"math"
)

// ItemSpecific is a single name/value attribute attached to a listing
type ItemSpecific struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListingPayload is the validated payload handed to a marketplace client.
// Construct via NewListingPayload so that malformed data is rejected before
// any API call is made.
type ListingPayload struct {
	SKU           string         `json:"sku"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Price         float64        `json:"price"`
	Currency      string         `json:"currency"`
	Quantity      int            `json:"quantity"`
	Condition     Condition      `json:"condition"`
	CategoryID    string         `json:"category_id,omitempty"`
	Images        []string       `json:"images"`
	ItemSpecifics []ItemSpecific `json:"item_specifics,omitempty"`
}

// NewListingPayload builds a payload, validating required fields
func NewListingPayload(
	sku, title, description string,
	price float64,
	currency string,
	quantity int,
	condition Condition,
	categoryID string,
	images []string,
	itemSpecifics []ItemSpecific,
) (ListingPayload, error) {
	p := ListingPayload{
		SKU:           sku,
		Title:         title,
		Description:   description,
		Price:         price,
		Currency:      currency,
		Quantity:      quantity,
		Condition:     condition,
		CategoryID:    categoryID,
		Images:        images,
		ItemSpecifics: itemSpecifics,
	}
	if err := p.Validate(); err != nil {
		return ListingPayload{}, err
	}
	return p, nil
}

// Validate checks the payload invariants
func (p ListingPayload) Validate() error {
	if p.SKU == "" {
		return fmt.Errorf("payload: sku is required")
	}
	if p.Title == "" {
		return fmt.Errorf("payload: title is required")
	}
	if p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return fmt.Errorf("payload: price must be a positive number, got %v", p.Price)
	}
	if p.Currency == "" {
		return fmt.Errorf("payload: currency is required")
	}
	if p.Quantity < 1 {
		return fmt.Errorf("payload: quantity must be at least 1, got %d", p.Quantity)
	}
	if len(p.Images) == 0 {
		return fmt.Errorf("payload: at least one image is required")
	}
	return nil
}
