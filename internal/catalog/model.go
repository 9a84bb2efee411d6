// Package catalog stores demo products in Postgres and serves them over HTTP.
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateSKU is returned when an insert collides with an existing SKU.
var ErrDuplicateSKU = errors.New("catalog: duplicate sku")

// Product is a catalog entry.
type Product struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Brand         string    `json:"brand"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	SKU           string    `json:"sku"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// GenerateResult summarises a Generate call.
type GenerateResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
