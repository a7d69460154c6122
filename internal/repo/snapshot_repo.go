package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SnapshotRepo stores the cached catalog. Rows live until deleted.
type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT body
		FROM catalog_snapshots
		WHERE key = $1`

	var body []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return body, nil
}

func (r *SnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO catalog_snapshots (key, body, fetched_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET body = EXCLUDED.body, fetched_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM catalog_snapshots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}
