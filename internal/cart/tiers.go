package cart

import "bakery/internal/models"

type TierPrice struct {
	Tier  models.Tier
	Price int
}

// AvailableTiers lists the weights a product is sold in, lightest first.
func AvailableTiers(product models.Product) []TierPrice {
	var tiers []TierPrice
	for _, t := range models.Tiers {
		if price, ok := product.Price(t); ok {
			tiers = append(tiers, TierPrice{Tier: t, Price: price})
		}
	}
	return tiers
}

// UnitPrice is the price of one unit of the tier with or without add-ons.
func UnitPrice(product models.Product, tier models.Tier, addon bool) (int, bool) {
	price, ok := product.Price(tier)
	if !ok {
		return 0, false
	}
	if addon && product.HasAddons {
		price += product.AddonsPrice
	}
	return price, true
}
