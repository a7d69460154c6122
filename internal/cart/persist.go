package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"bakery/internal/models"
)

// Store persists whole carts by key. Load returns nil, nil for a missing key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Persist writes the full line-item list under the session key.
func Persist(ctx context.Context, store Store, s *Session) error {
	items := s.Items
	if items == nil {
		items = []models.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := store.Save(ctx, s.Key, data); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// Restore loads the cart stored under key. Entries that cannot be decoded or
// lack a name or product id are dropped; a corrupt document yields an empty
// cart. Only a store failure is returned, together with an empty session.
func Restore(ctx context.Context, store Store, key string, catalog models.Catalog) (*Session, error) {
	s := NewSession(key, catalog)
	data, err := store.Load(ctx, key)
	if err != nil {
		return s, fmt.Errorf("restore cart: %w", err)
	}
	s.Items = Decode(data)
	for _, item := range s.Items {
		s.observeStamp(item.Timestamp)
	}
	return s, nil
}

// Decode parses a stored cart leniently, see Sanitize. Units past MaxItems
// are dropped.
func Decode(data []byte) []models.LineItem {
	if len(data) == 0 {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	items := make([]models.LineItem, 0, len(raw))
	for _, r := range raw {
		var item models.LineItem
		if err := json.Unmarshal(r, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	items = Sanitize(items)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	return items
}

// MaxItems bounds the number of line items a cart may hold.
const MaxItems = 200

// maxLegacyQuantity bounds the quantity a legacy entry may expand to.
const maxLegacyQuantity = 99

// Sanitize drops nameless, productless and unpriced entries, splits legacy
// entries that carry a quantity into single units and makes timestamps
// unique. Every unit is priced at its own unit price. Entries whose quantity
// exceeds maxLegacyQuantity are dropped.
func Sanitize(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, 0, len(items))
	seen := make(map[int64]bool, len(items))
	var maxStamp int64
	for _, item := range items {
		if item.Name == "" || item.ID == "" || item.Price <= 0 {
			continue
		}
		units := item.Quantity
		if units > maxLegacyQuantity {
			continue
		}
		if units < 1 {
			units = 1
		}
		item.Quantity = 0
		item.Total = item.Price // старые корзины хранили сумму по строке
		for u := 0; u < units; u++ {
			unit := item
			if unit.Timestamp <= 0 || seen[unit.Timestamp] {
				unit.Timestamp = maxStamp + 1
			}
			seen[unit.Timestamp] = true
			if unit.Timestamp > maxStamp {
				maxStamp = unit.Timestamp
			}
			out = append(out, unit)
		}
	}
	return out
}
