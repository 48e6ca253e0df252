package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	listProductsSQL = `SELECT id, name, price_minor FROM products WHERE active ORDER BY position, id`

	upsertProductSQL = `INSERT INTO products (id, name, price_minor, position, active, updated_at)
VALUES ($1, $2, $3, $4, TRUE, now())
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price_minor = EXCLUDED.price_minor,
    position = EXCLUDED.position, active = TRUE, updated_at = now()`

	deactivateMissingSQL = `UPDATE products SET active = FALSE, updated_at = now() WHERE NOT (id = ANY($1))`
)

// DB is the subset of pgxpool.Pool used by PGSource.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGSource loads the active product list from Postgres.
type PGSource struct {
	DB DB
}

type productRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	PriceMinor int64  `db:"price_minor"`
}

// Load implements Source.
func (s PGSource) Load(ctx context.Context) ([]Product, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("catalog: postgres source not configured")
	}
	rows, err := s.DB.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	products := make([]Product, 0, len(records))
	for _, r := range records {
		products = append(products, Product{ID: r.ID, Name: r.Name, Price: r.PriceMinor})
	}
	return products, nil
}

// Replace upserts products in the given order and deactivates rows not in
// the list, all in one transaction.
func (s PGSource) Replace(ctx context.Context, products []Product) (err error) {
	if _, err := New(products); err != nil {
		return err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	batch := &pgx.Batch{}
	ids := make([]string, 0, len(products))
	for i, p := range products {
		batch.Queue(upsertProductSQL, p.ID, p.Name, p.Price, i)
		ids = append(ids, p.ID)
	}
	batch.Queue(deactivateMissingSQL, ids)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err = results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	if err = results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return tx.Commit(ctx)
}
