package cart

import "bakery/internal/models"

// Totals is computed from the line items on every call.
func Totals(s *Session) (itemCount, totalPrice int) {
	return Sum(s.Items)
}

func Sum(items []models.LineItem) (itemCount, totalPrice int) {
	for _, item := range items {
		totalPrice += item.Total
	}
	return len(items), totalPrice
}
