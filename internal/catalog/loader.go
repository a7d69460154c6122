package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bakery/internal/models"

	"go.uber.org/zap"
)

// SnapshotKey is where the last fetched catalog is kept. It has no TTL.
const SnapshotKey = "catalog:snapshot"

const defaultFetchTimeout = 15 * time.Second

// SnapshotStore is a key/value store. Load returns nil, nil for a missing key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Loader fetches the catalog from a Source and caches a snapshot of it.
type Loader struct {
	source  Source
	store   SnapshotStore
	opts    Options
	timeout time.Duration
	logger  *zap.Logger
}

func NewLoader(source Source, store SnapshotStore, opts Options, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		source:  source,
		store:   store,
		opts:    opts,
		timeout: defaultFetchTimeout,
		logger:  logger,
	}
}

// Fetch always goes to the source. Failures are not retried.
func (l *Loader) Fetch(ctx context.Context) (models.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rows, err := l.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	catalog, err := Normalize(rows, l.opts)
	if err != nil {
		return nil, err
	}
	l.logger.Info("catalog fetched", zap.Int("rows", len(rows)), zap.Int("products", len(catalog)))
	return catalog, nil
}

// Load serves the snapshot when there is one and fetches otherwise.
func (l *Loader) Load(ctx context.Context) (models.Catalog, error) {
	if l.store != nil {
		data, err := l.store.Load(ctx, SnapshotKey)
		if err != nil {
			l.logger.Warn("catalog snapshot unavailable", zap.Error(err))
		} else if data != nil {
			var catalog models.Catalog
			if err := json.Unmarshal(data, &catalog); err == nil && len(catalog) > 0 {
				return catalog, nil
			}
			l.logger.Warn("catalog snapshot is corrupt, refetching")
		}
	}

	catalog, err := l.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if l.store != nil {
		if err := l.saveSnapshot(ctx, catalog); err != nil {
			l.logger.Warn("catalog snapshot not saved", zap.Error(err))
		}
	}
	return catalog, nil
}

// Invalidate drops the snapshot so the next Load hits the source.
func (l *Loader) Invalidate(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Delete(ctx, SnapshotKey); err != nil {
		return fmt.Errorf("invalidate catalog: %w", err)
	}
	l.logger.Info("catalog snapshot invalidated")
	return nil
}

func (l *Loader) saveSnapshot(ctx context.Context, catalog models.Catalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return err
	}
	return l.store.Save(ctx, SnapshotKey, data)
}
