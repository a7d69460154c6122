package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"bakery/internal/models"
	"bakery/internal/repo"
)

type failingStore struct{ repo.MemoryRepo }

func (*failingStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestPersistRestore(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryRepo()

	s := newTestSession()
	OpenPanel(s, "seeded")
	ChangeQuantity(s, "seeded", models.Tier500, 1)
	ToggleAddon(s, "seeded", models.Tier500, true)
	ChangeQuantity(s, "bread_a", models.Tier100, 1)
	if err := Persist(ctx, store, s); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	restored, err := Restore(ctx, store, s.Key, testCatalog())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(restored.Items) != len(s.Items) {
		t.Fatalf("restored %d items, want %d", len(restored.Items), len(s.Items))
	}
	for i := range s.Items {
		if restored.Items[i] != s.Items[i] {
			t.Fatalf("item %d = %+v, want %+v", i, restored.Items[i], s.Items[i])
		}
	}

	// new stamps continue after the restored ones
	restored.Clock = fixedClock
	ChangeQuantity(restored, "bread_a", models.Tier100, 1)
	last := restored.Items[len(restored.Items)-1].Timestamp
	for _, item := range restored.Items[:len(restored.Items)-1] {
		if item.Timestamp >= last {
			t.Fatalf("new stamp %d not after %d", last, item.Timestamp)
		}
	}
}

func TestPersistEmptyWritesArray(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryRepo()
	s := newTestSession()
	if err := Persist(ctx, store, s); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	data, _ := store.Load(ctx, s.Key)
	if string(data) != "[]" {
		t.Fatalf("stored %q, want []", data)
	}
}

func TestRestoreMissingKey(t *testing.T) {
	s, err := Restore(context.Background(), repo.NewMemoryRepo(), ChatKey(7), testCatalog())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(s.Items) != 0 || s.Key != "cart:7" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestRestoreStoreFailure(t *testing.T) {
	s, err := Restore(context.Background(), &failingStore{}, ChatKey(7), testCatalog())
	if err == nil {
		t.Fatalf("expected store error")
	}
	if s == nil || len(s.Items) != 0 {
		t.Fatalf("store failure must still yield an empty session, got %+v", s)
	}
}

func TestRestoreDropsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryRepo()
	doc := `[
		{"id":"bread_a","weight":"100","price":50,"total":50,"timestamp":1},
		{"id":"bread_a","name":"Ржаной","weight":"100","price":50,"total":50,"timestamp":2},
		{"name":"Без id","weight":"100","price":50,"total":50,"timestamp":3},
		"garbage",
		{"id":"gone","name":"Снят с продажи","weight":500,"price":120,"timestamp":4}
	]`
	store.Save(ctx, "cart:1", []byte(doc))

	s, err := Restore(ctx, store, "cart:1", testCatalog())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(s.Items) != 2 {
		t.Fatalf("expected 2 surviving items, got %+v", s.Items)
	}
	if s.Items[0].Name != "Ржаной" {
		t.Fatalf("first item = %+v", s.Items[0])
	}
	gone := s.Items[1]
	if gone.ID != "gone" || gone.Weight != models.Tier500 || gone.Total != 120 {
		t.Fatalf("item of a removed product must be kept with total filled: %+v", gone)
	}
}

func TestRestoreCorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryRepo()
	store.Save(ctx, "cart:1", []byte(`{"cart":`))

	s, err := Restore(ctx, store, "cart:1", testCatalog())
	if err != nil {
		t.Fatalf("corrupt cart must not fail, got %v", err)
	}
	if len(s.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", s.Items)
	}
}

func TestSanitizeExpandsLegacyQuantity(t *testing.T) {
	items := Sanitize([]models.LineItem{
		{ID: "bread_a", Name: "Ржаной", Weight: models.Tier100, Price: 50, Total: 150, Quantity: 3, Timestamp: 10},
		{ID: "wheat", Name: "Пшеничный", Weight: models.Tier500, Price: 200, Total: 200, Timestamp: 10},
	})
	if len(items) != 4 {
		t.Fatalf("expected 4 single units, got %d", len(items))
	}
	seen := make(map[int64]bool)
	for _, item := range items {
		if item.Quantity != 0 || item.Total != item.Price {
			t.Fatalf("unit not canonical: %+v", item)
		}
		if seen[item.Timestamp] {
			t.Fatalf("duplicate timestamp %d in %+v", item.Timestamp, items)
		}
		seen[item.Timestamp] = true
	}
	if count, total := Sum(items); count != 4 || total != 350 {
		t.Fatalf("Sum() = %d/%d, want 4/350", count, total)
	}
}

func TestLineItemWeightEncoding(t *testing.T) {
	data, err := json.Marshal(models.LineItem{ID: "a", Name: "A", Weight: models.Tier750, Price: 1, Total: 1, Timestamp: 5})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	if raw["weight"] != "750" {
		t.Fatalf("weight encoded as %v, want \"750\"", raw["weight"])
	}
	if _, ok := raw["quantity"]; ok {
		t.Fatalf("quantity must be omitted: %s", data)
	}
}

func TestSanitizePricesEveryUnitAtUnitPrice(t *testing.T) {
	tests := []struct {
		name  string
		item  models.LineItem
		count int
		total int
	}{
		{"inflated total", models.LineItem{ID: "wheat", Name: "Пшеничный", Weight: models.Tier500, Price: 50, Total: 5000, Timestamp: 1}, 1, 50},
		{"odd line total", models.LineItem{ID: "wheat", Name: "Пшеничный", Weight: models.Tier500, Price: 100, Total: 250, Quantity: 3, Timestamp: 1}, 3, 300},
		{"missing total", models.LineItem{ID: "wheat", Name: "Пшеничный", Weight: models.Tier500, Price: 200, Timestamp: 1}, 1, 200},
		{"negative price", models.LineItem{ID: "wheat", Name: "Пшеничный", Weight: models.Tier500, Price: -500, Total: -500, Timestamp: 1}, 0, 0},
		{"free unit", models.LineItem{ID: "wheat", Name: "Пшеничный", Weight: models.Tier500, Timestamp: 1}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := Sanitize([]models.LineItem{tt.item})
			for _, item := range items {
				if item.Total != item.Price {
					t.Fatalf("unit total %d != price %d", item.Total, item.Price)
				}
			}
			if count, total := Sum(items); count != tt.count || total != tt.total {
				t.Fatalf("Sum() = %d/%d, want %d/%d", count, total, tt.count, tt.total)
			}
		})
	}
}

func TestSanitizeBoundsLegacyQuantity(t *testing.T) {
	items := Sanitize([]models.LineItem{
		{ID: "wheat", Name: "Пшеничный", Weight: models.Tier500, Price: 1, Total: 1, Quantity: 3_000_000, Timestamp: 1},
		{ID: "bread_a", Name: "Ржаной", Weight: models.Tier100, Price: 50, Total: 50, Quantity: maxLegacyQuantity, Timestamp: 2},
	})
	if len(items) != maxLegacyQuantity {
		t.Fatalf("got %d units, want %d", len(items), maxLegacyQuantity)
	}
	for _, item := range items {
		if item.ID != "bread_a" {
			t.Fatalf("oversized entry survived: %+v", item)
		}
	}
}

func TestRestoreCapsItems(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryRepo()

	var stored []models.LineItem
	for i := 0; i < MaxItems+50; i++ {
		stored = append(stored, models.LineItem{ID: "wheat", Name: "Пшеничный", Weight: models.Tier500,
			Price: 200, Total: 200, Timestamp: int64(i + 1)})
	}
	data, _ := json.Marshal(stored)
	store.Save(ctx, ChatKey(7), data)

	s, err := Restore(ctx, store, ChatKey(7), testCatalog())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(s.Items) != MaxItems {
		t.Fatalf("restored %d items, want %d", len(s.Items), MaxItems)
	}
	if ok, _ := ChangeQuantity(s, "wheat", models.Tier500, 1); ok || len(s.Items) != MaxItems {
		t.Fatalf("full cart accepted another unit: %d items", len(s.Items))
	}
}
