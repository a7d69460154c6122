package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Tier is a package weight in grams.
type Tier int

const (
	Tier100 Tier = 100
	Tier500 Tier = 500
	Tier750 Tier = 750
)

// Tiers lists every weight in ascending order.
var Tiers = []Tier{Tier100, Tier500, Tier750}

func (t Tier) String() string {
	return strconv.Itoa(int(t))
}

// ParseTier accepts only the known weights.
func ParseTier(s string) (Tier, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	for _, t := range Tiers {
		if Tier(n) == t {
			return t, true
		}
	}
	return 0, false
}

// MarshalJSON writes the weight as a string, the mini-app keeps it that way in localStorage.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("tier: %w", err)
		}
		*t = Tier(n)
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("tier %q: %w", s, err)
	}
	*t = Tier(n)
	return nil
}

type Product struct {
	Name        string       `json:"name"`
	Ingredients string       `json:"ingredients"`
	Prices      map[Tier]int `json:"prices"`
	HasAddons   bool         `json:"hasAddons"`
	AddonsPrice int          `json:"addonsPrice"`
	AddonsText  string       `json:"addonsText"`
	PrepTime    string       `json:"prep_time"`
}

// Price returns the tier price; ok is false when the tier is not offered.
func (p Product) Price(t Tier) (int, bool) {
	price, ok := p.Prices[t]
	if !ok || price <= 0 {
		return 0, false
	}
	return price, true
}

// Emoji picks a picture for the card by keywords in the name.
func (p Product) Emoji() string {
	return BreadEmoji(p.Name)
}

func BreadEmoji(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "ржаной"):
		return "🍞"
	case strings.Contains(n, "пшеничный"):
		return "🥖"
	case strings.Contains(n, "бородинский"):
		return "🥨"
	case strings.Contains(n, "зерновой"): // и цельнозерновой
		return "🌾"
	case strings.Contains(n, "сыр"):
		return "🧀"
	case strings.Contains(n, "клюкв"):
		return "🫐"
	case strings.Contains(n, "шоколад"):
		return "🍫"
	case strings.Contains(n, "деревенск"):
		return "🏡"
	}
	return "🍞"
}

// Catalog maps a product key to its product.
type Catalog map[string]Product

// Keys returns product keys in a stable order.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Search keeps products whose name or ingredients contain term, case-insensitively.
func (c Catalog) Search(term string) Catalog {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return c
	}
	found := make(Catalog)
	for id, p := range c {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Ingredients), term) {
			found[id] = p
		}
	}
	return found
}
