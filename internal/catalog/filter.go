package catalog

import (
	"strconv"
	"strings"
)

const (
	// DefaultLimit is applied when a filter carries no limit.
	DefaultLimit = 100
	// MaxLimit caps a single page.
	MaxLimit = 100
)

// Filter narrows List results. Text fields match case-insensitive substrings
// and numeric bounds are inclusive. Nil bounds are ignored.
type Filter struct {
	Name     string   `validate:"max=255"`
	Category string   `validate:"max=100"`
	Brand    string   `validate:"max=100"`
	SKU      string   `validate:"max=50"`
	MinPrice *float64 `validate:"omitempty,gte=0"`
	MaxPrice *float64 `validate:"omitempty,gte=0"`
	MinStock *int     `validate:"omitempty,gte=0"`
	MaxStock *int     `validate:"omitempty,gte=0"`
	Limit    int      `validate:"omitempty,min=1,max=100"`
	Offset   int      `validate:"gte=0"`
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	if f.Limit > MaxLimit {
		return MaxLimit
	}
	return f.Limit
}

const listColumns = `id, name, description, category, brand, price, stock_quantity, sku, created_at, updated_at`

// buildListQuery renders the parameterised SELECT for f.
func buildListQuery(f Filter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + listColumns + ` FROM products WHERE 1=1`)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	like := func(column, value string) {
		if value = strings.TrimSpace(value); value != "" {
			sb.WriteString(` AND ` + column + ` ILIKE ` + arg("%"+escapeLike(value)+"%"))
		}
	}

	like("name", f.Name)
	like("category", f.Category)
	like("brand", f.Brand)
	like("sku", f.SKU)
	if f.MinPrice != nil {
		sb.WriteString(` AND price >= ` + arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		sb.WriteString(` AND price <= ` + arg(*f.MaxPrice))
	}
	if f.MinStock != nil {
		sb.WriteString(` AND stock_quantity >= ` + arg(*f.MinStock))
	}
	if f.MaxStock != nil {
		sb.WriteString(` AND stock_quantity <= ` + arg(*f.MaxStock))
	}

	sb.WriteString(` ORDER BY created_at ASC, sku ASC`)
	sb.WriteString(` LIMIT ` + arg(f.limit()))
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString(` OFFSET ` + arg(offset))
	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside ILIKE.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
