package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/odyssey-erp/odyssey-identity/internal/catalog/migrations"
	"github.com/odyssey-erp/odyssey-identity/internal/platform/db"
)

// Repository persists products.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	// AppendBatch inserts the products build returns for the sequence
	// numbers starting at firstSeq. Concurrent callers never receive
	// overlapping ranges.
	AppendBatch(ctx context.Context, build func(firstSeq int) []Product) error
	List(ctx context.Context, filter Filter) ([]Product, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
	txs  db.TxStarter
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool, txs: pool}
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// EnsureSchema applies the embedded goose migrations.
func (r *pgRepository) EnsureSchema(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(r.pool)
	defer sqlDB.Close()
	return runMigrations(ctx, sqlDB)
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("catalog: goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

const (
	insertSQL = `INSERT INTO products (id, name, description, category, brand, price, stock_quantity, sku, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	countSQL   = `SELECT COUNT(*) FROM products`
	skuLockSQL = `SELECT pg_advisory_xact_lock($1)`
	skuLockKey = int64(0x736b75)
)

// AppendBatch holds a transaction-scoped advisory lock while it counts rows
// and inserts, so the sequence range is allocated and consumed atomically.
// Any failure rolls back the whole batch.
func (r *pgRepository) AppendBatch(ctx context.Context, build func(firstSeq int) []Product) error {
	return db.WithTx(ctx, r.txs, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, skuLockSQL, skuLockKey); err != nil {
			return fmt.Errorf("catalog: lock sku sequence: %w", err)
		}
		var existing int
		if err := tx.QueryRow(ctx, countSQL).Scan(&existing); err != nil {
			return fmt.Errorf("catalog: count: %w", err)
		}
		return insertBatch(ctx, tx, build(existing+1))
	})
}

func insertBatch(ctx context.Context, tx pgx.Tx, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(insertSQL, p.ID, p.Name, p.Description, p.Category, p.Brand,
			p.Price, p.StockQuantity, p.SKU, p.CreatedAt, p.UpdatedAt)
	}
	results := tx.SendBatch(ctx, batch)
	for range products {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			if db.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %v", ErrDuplicateSKU, err)
			}
			return fmt.Errorf("catalog: insert batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("catalog: close batch: %w", err)
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context, filter Filter) ([]Product, error) {
	query, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var (
			p     Product
			id    pgtype.UUID
			price pgtype.Numeric
		)
		if err := rows.Scan(&id, &p.Name, &p.Description, &p.Category, &p.Brand,
			&price, &p.StockQuantity, &p.SKU, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		p.ID = uuid.UUID(id.Bytes)
		if f, err := price.Float64Value(); err == nil && f.Valid {
			p.Price = f.Float64
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list rows: %w", err)
	}
	return products, nil
}
