// Package view builds display models of the catalog and cart. It has no
// dependency on any UI toolkit; the bot turns the models into messages.
package view

import (
	"fmt"

	"bakery/internal/cart"
	"bakery/internal/models"
)

const noIngredients = "Состав не указан"

type TierView struct {
	Weight     models.Tier
	Price      int // цена за штуку с учётом добавок
	Quantity   int
	Addon      bool
	AddonPrice int
}

type Card struct {
	ID          string
	Name        string
	Emoji       string
	Ingredients string
	PrepTime    string
	AddonsText  string
	HasAddons   bool
	Available   bool
	Expanded    bool
	Highlight   bool
	Tiers       []TierView
	Selected    int  // штук этого товара в корзине
	Closing     bool // свернётся по таймеру; выставляет владелец таймера
}

// QuickAdd reports whether the collapsed card adds a unit in one tap.
func (c Card) QuickAdd() bool {
	return len(c.Tiers) == 1
}

type Indicator struct {
	Count   int
	Total   int
	Visible bool
}

type ViewModel struct {
	Cards []Card
	Cart  Indicator
	Empty bool
}

// Render is a pure function of the catalog, the line items and the selections.
func Render(catalog models.Catalog, items []models.LineItem, selections map[string]*cart.Selection) ViewModel {
	vm := ViewModel{Cart: indicator(items)}
	for _, id := range catalog.Keys() {
		vm.Cards = append(vm.Cards, renderCard(id, catalog[id], items, selections[id]))
	}
	vm.Empty = len(vm.Cards) == 0
	return vm
}

// RenderCard renders one product; ok is false for unknown ids.
func RenderCard(catalog models.Catalog, items []models.LineItem, selections map[string]*cart.Selection, productID string) (Card, bool) {
	product, ok := catalog[productID]
	if !ok {
		return Card{}, false
	}
	return renderCard(productID, product, items, selections[productID]), true
}

func renderCard(id string, p models.Product, items []models.LineItem, sel *cart.Selection) Card {
	card := Card{
		ID:          id,
		Name:        p.Name,
		Emoji:       p.Emoji(),
		Ingredients: p.Ingredients,
		PrepTime:    p.PrepTime,
		AddonsText:  p.AddonsText,
		HasAddons:   p.HasAddons,
	}
	if card.Ingredients == "" {
		card.Ingredients = noIngredients
	}
	if sel != nil {
		card.Expanded = sel.Panel == cart.Expanded
		card.Highlight = sel.Highlight
	}

	counts := make(map[models.Tier]int)
	addons := make(map[models.Tier]bool)
	for _, item := range items {
		if item.ID != id {
			continue
		}
		counts[item.Weight]++
		if item.HasAddons {
			addons[item.Weight] = true
		}
	}

	for _, tp := range cart.AvailableTiers(p) {
		addon := addons[tp.Tier]
		if sel != nil {
			addon = sel.Addons[tp.Tier]
		}
		addon = addon && p.HasAddons
		price, _ := cart.UnitPrice(p, tp.Tier, addon)
		card.Tiers = append(card.Tiers, TierView{
			Weight:     tp.Tier,
			Price:      price,
			Quantity:   counts[tp.Tier],
			Addon:      addon,
			AddonPrice: p.AddonsPrice,
		})
		card.Selected += counts[tp.Tier]
	}
	card.Available = len(card.Tiers) > 0
	return card
}

func indicator(items []models.LineItem) Indicator {
	count, total := cart.Sum(items)
	return Indicator{Count: count, Total: total, Visible: count > 0}
}

type CartLine struct {
	Timestamp int64
	Text      string
	Total     int
}

// CartLines lists the cart one unit per line, in the order items were added.
func CartLines(items []models.LineItem) []CartLine {
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		emoji := item.Emoji
		if emoji == "" {
			emoji = models.BreadEmoji(item.Name)
		}
		text := fmt.Sprintf("%s %s (%sг)", emoji, item.Name, item.Weight)
		if item.HasAddons {
			text += " + добавки"
		}
		lines = append(lines, CartLine{
			Timestamp: item.Timestamp,
			Text:      fmt.Sprintf("%s - %d₽", text, item.Total),
			Total:     item.Total,
		})
	}
	return lines
}
