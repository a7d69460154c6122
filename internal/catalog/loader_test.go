package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bakery/internal/repo"
)

type countingSource struct {
	mu    sync.Mutex
	rows  [][]string
	err   error
	calls int
}

func (s *countingSource) Rows(ctx context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return StaticSource(s.rows).Rows(ctx)
}

func newTestSource() *countingSource {
	return &countingSource{rows: [][]string{
		header,
		{"rye", "Ржаной", "мука", "60", "250", "", "", ""},
	}}
}

func TestLoaderCachesSnapshot(t *testing.T) {
	ctx := context.Background()
	source := newTestSource()
	store := repo.NewMemoryRepo()
	loader := NewLoader(source, store, Options{}, nil)

	first, err := loader.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := first["rye"]; !ok {
		t.Fatalf("rye missing from %v", first.Keys())
	}

	source.rows = append(source.rows, []string{"wheat", "Пшеничный", "", "70"})
	second, err := loader.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected one fetch, got %d", source.calls)
	}
	if len(second) != 1 {
		t.Fatalf("snapshot must be served until invalidated, got %v", second.Keys())
	}

	if err := loader.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	third, err := loader.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source.calls != 2 || len(third) != 2 {
		t.Fatalf("after invalidate: calls=%d products=%v", source.calls, third.Keys())
	}
}

func TestLoaderDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	source := newTestSource()
	source.err = errors.New("quota exceeded")
	store := repo.NewMemoryRepo()
	loader := NewLoader(source, store, Options{}, nil)

	if _, err := loader.Load(ctx); err == nil {
		t.Fatalf("expected fetch error")
	}
	if data, _ := store.Load(ctx, SnapshotKey); data != nil {
		t.Fatalf("failed fetch must not write a snapshot")
	}

	source.err = nil
	if _, err := loader.Load(ctx); err != nil {
		t.Fatalf("Load() after recovery error = %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected a second fetch, got %d calls", source.calls)
	}
}

func TestLoaderCorruptSnapshotRefetches(t *testing.T) {
	ctx := context.Background()
	source := newTestSource()
	store := repo.NewMemoryRepo()
	if err := store.Save(ctx, SnapshotKey, []byte("{not json")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	catalog, err := NewLoader(source, store, Options{}, nil).Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(catalog) != 1 || source.calls != 1 {
		t.Fatalf("expected refetch, calls=%d products=%v", source.calls, catalog.Keys())
	}
}

func TestFetchNoData(t *testing.T) {
	loader := NewLoader(StaticSource{header}, nil, Options{}, nil)
	if _, err := loader.Fetch(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("Fetch() error = %v, want ErrNoData", err)
	}
}
