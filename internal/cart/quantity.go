package cart

import "bakery/internal/models"

// SelectionCount is the number of line items for the product and tier.
func SelectionCount(s *Session, productID string, tier models.Tier) int {
	n := 0
	for _, item := range s.Items {
		if item.ID == productID && item.Weight == tier {
			n++
		}
	}
	return n
}

// SelectionCountWithAddon narrows SelectionCount to one add-on flag.
func SelectionCountWithAddon(s *Session, productID string, tier models.Tier, addon bool) int {
	n := 0
	for _, item := range s.Items {
		if item.ID == productID && item.Weight == tier && item.HasAddons == addon {
			n++
		}
	}
	return n
}

// ChangeQuantity adds (+1) or removes (-1) one unit of the tier. Adding to an
// unknown product, to a tier that is not offered or to a full cart, and
// removing from an empty tier, are no-ops reported as false.
func ChangeQuantity(s *Session, productID string, tier models.Tier, delta int) (bool, error) {
	switch delta {
	case 1:
		return addUnit(s, productID, tier), nil
	case -1:
		return removeLastUnit(s, productID, tier), nil
	default:
		return false, ErrInvalidDelta
	}
}

// AddToCart is the one-tap "add to cart" button of a collapsed card whose
// product comes in a single weight.
func AddToCart(s *Session, productID string, tier models.Tier) bool {
	return addUnit(s, productID, tier)
}

func addUnit(s *Session, productID string, tier models.Tier) bool {
	product, ok := s.Catalog[productID]
	if !ok || len(s.Items) >= MaxItems {
		return false
	}
	addon := false
	if sel := s.Selection(productID); sel != nil {
		addon = sel.Addons[tier] && product.HasAddons
	}
	price, ok := UnitPrice(product, tier, addon)
	if !ok {
		return false
	}

	s.Items = append(s.Items, models.LineItem{
		ID:        productID,
		Name:      product.Name,
		Weight:    tier,
		HasAddons: addon,
		Price:     price,
		Total:     price,
		Emoji:     product.Emoji(),
		Timestamp: s.nextStamp(),
	})
	syncSelection(s, productID)
	return true
}

// removeLastUnit drops the most recently added matching item.
func removeLastUnit(s *Session, productID string, tier models.Tier) bool {
	idx := -1
	for i, item := range s.Items {
		if item.ID != productID || item.Weight != tier {
			continue
		}
		if idx < 0 || item.Timestamp >= s.Items[idx].Timestamp {
			idx = i
		}
	}
	if idx < 0 {
		return false
	}
	s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	syncSelection(s, productID)
	return true
}

// syncSelection recounts the selection of a product from the line items.
func syncSelection(s *Session, productID string) {
	sel := s.Selection(productID)
	if sel == nil {
		return
	}
	for t := range sel.Quantities {
		delete(sel.Quantities, t)
	}
	for _, item := range s.Items {
		if item.ID == productID {
			sel.Quantities[item.Weight]++
		}
	}
}
