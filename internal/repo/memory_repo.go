package repo

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepo is the in-process store used when Postgres is not configured
// or unreachable. It satisfies the same Load/Save/Delete contract.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]byte)}
}

func (r *MemoryRepo) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (r *MemoryRepo) Save(_ context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = append([]byte(nil), data...)
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}

func (r *MemoryRepo) CountCarts(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for k := range r.data {
		if strings.HasPrefix(k, "cart:") {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) DeleteCarts(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.data {
		if strings.HasPrefix(k, "cart:") {
			delete(r.data, k)
			n++
		}
	}
	return n, nil
}
