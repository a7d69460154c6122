package cart

import "bakery/internal/models"

// ToggleAddon sets the add-on flag of a tier and reprices, in place, every
// line item of that product and tier. Items of other products and tiers are
// untouched. It returns the number of items updated.
func ToggleAddon(s *Session, productID string, tier models.Tier, enabled bool) int {
	product, ok := s.Catalog[productID]
	if !ok || !product.HasAddons {
		return 0
	}
	price, ok := UnitPrice(product, tier, enabled)
	if !ok {
		return 0
	}

	s.selectionFor(productID).Addons[tier] = enabled

	n := 0
	for i := range s.Items {
		item := &s.Items[i]
		if item.ID != productID || item.Weight != tier {
			continue
		}
		item.HasAddons = enabled
		item.Price = price
		item.Total = price
		n++
	}
	return n
}
