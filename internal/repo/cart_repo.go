package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CartRepo keeps every chat cart as one JSON document under its key.
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{db: db}
}

func (r *CartRepo) Load(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT items
		FROM carts
		WHERE key = $1`

	var items []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&items) //одна строка
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // корзины ещё нет
		}
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}
	return items, nil
}

func (r *CartRepo) Save(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO carts (key, items, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET items = EXCLUDED.items, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("save cart %s: %w", key, err)
	}
	return nil
}

func (r *CartRepo) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM carts WHERE key = $1`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete cart %s: %w", key, err)
	}
	return nil
}

// CountCarts is used by the health check.
func (r *CartRepo) CountCarts(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM carts`).Scan(&count)
	return count, err
}

// DeleteCarts empties every cart; used when the catalog is reset.
func (r *CartRepo) DeleteCarts(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM carts`)
	if err != nil {
		return 0, fmt.Errorf("delete carts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
