package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestBuildListQueryDefaults(t *testing.T) {
	query, args := buildListQuery(Filter{})

	assert.Equal(t, `SELECT `+listColumns+` FROM products WHERE 1=1 ORDER BY created_at ASC, sku ASC LIMIT $1 OFFSET $2`, query)
	assert.Equal(t, []any{DefaultLimit, 0}, args)
}

func TestBuildListQueryAllFilters(t *testing.T) {
	query, args := buildListQuery(Filter{
		Name:     "widget",
		Category: "Home & Garden",
		Brand:    " tech ",
		SKU:      "SKU-TEC",
		MinPrice: ptr(10.5),
		MaxPrice: ptr(99.99),
		MinStock: ptr(0),
		MaxStock: ptr(250),
		Limit:    20,
		Offset:   40,
	})

	assert.Contains(t, query, `name ILIKE $1`)
	assert.Contains(t, query, `category ILIKE $2`)
	assert.Contains(t, query, `brand ILIKE $3`)
	assert.Contains(t, query, `sku ILIKE $4`)
	assert.Contains(t, query, `price >= $5`)
	assert.Contains(t, query, `price <= $6`)
	assert.Contains(t, query, `stock_quantity >= $7`)
	assert.Contains(t, query, `stock_quantity <= $8`)
	assert.Contains(t, query, `LIMIT $9 OFFSET $10`)
	assert.Equal(t, []any{"%widget%", "%Home & Garden%", "%tech%", "%SKU-TEC%", 10.5, 99.99, 0, 250, 20, 40}, args)
}

func TestBuildListQueryEscapesWildcards(t *testing.T) {
	_, args := buildListQuery(Filter{Name: `100%_off\`})
	assert.Equal(t, `%100\%\_off\\%`, args[0])
}

func TestBuildListQueryClampsPaging(t *testing.T) {
	_, args := buildListQuery(Filter{Limit: 500, Offset: -3})
	assert.Equal(t, []any{MaxLimit, 0}, args)
}
