package catalog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"bakery/internal/models"

	"golang.org/x/crypto/blake2b"
)

// ErrNoData is returned when the source has no product rows.
var ErrNoData = errors.New("no data found in spreadsheet")

const (
	DefaultName       = "Без названия"
	DefaultPrepTime   = "1-2 дня"
	DefaultAddonPrice = 50
)

// Column order of the sheet (A:H).
const (
	colID = iota
	colName
	colIngredients
	colPrice100
	colPrice500
	colPrice750
	colAddons
	colPrepTime
	columns
)

var priceColumns = map[models.Tier]int{
	models.Tier100: colPrice100,
	models.Tier500: colPrice500,
	models.Tier750: colPrice750,
}

// Options controls normalization policy.
type Options struct {
	// AddonPrice is the flat surcharge applied to every product that has add-ons.
	AddonPrice int
}

func (o Options) addonPrice() int {
	if o.AddonPrice <= 0 {
		return DefaultAddonPrice
	}
	return o.AddonPrice
}

// Normalize turns sheet rows into a catalog. The first row is the header.
func Normalize(rows [][]string, opts Options) (models.Catalog, error) {
	if len(rows) <= 1 {
		return nil, ErrNoData
	}

	catalog := make(models.Catalog, len(rows)-1)
	for _, raw := range rows[1:] {
		row := pad(raw)
		key := Slug(row[colID])
		if key == "" {
			continue
		}

		prices := make(map[models.Tier]int)
		for tier, col := range priceColumns {
			if price, ok := ParsePrice(row[col]); ok {
				prices[tier] = price
			}
		}

		product := models.Product{
			Name:        orDefault(row[colName], DefaultName),
			Ingredients: strings.TrimSpace(row[colIngredients]),
			Prices:      prices,
			PrepTime:    orDefault(row[colPrepTime], DefaultPrepTime),
		}
		if hasAddons(row[colAddons]) {
			product.HasAddons = true
			product.AddonsPrice = opts.addonPrice()
			product.AddonsText = AddonsText(product.AddonsPrice)
		}
		catalog[key] = product
	}

	if len(catalog) == 0 {
		return nil, ErrNoData
	}
	return catalog, nil
}

// MaxSlugBytes keeps "addon_<slug>_750" inside Telegram's 64-byte
// callback data.
const MaxSlugBytes = 48

// Slug lowercases the id and joins words with underscores. Slugs longer than
// MaxSlugBytes are cut on a rune boundary and suffixed with a hash of the
// full slug, so distinct long ids stay distinct.
func Slug(id string) string {
	slug := strings.Join(strings.Fields(strings.ToLower(id)), "_")
	if len(slug) <= MaxSlugBytes {
		return slug
	}
	sum := blake2b.Sum256([]byte(slug))
	suffix := "_" + hex.EncodeToString(sum[:4])
	cut := MaxSlugBytes - len(suffix)
	for cut > 0 && !utf8.RuneStart(slug[cut]) {
		cut--
	}
	return slug[:cut] + suffix
}

// ParsePrice reads the leading integer of a cell. Empty, "-", non-numeric
// and non-positive cells mean the weight is not offered.
func ParsePrice(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "-" {
		return 0, false
	}
	end := 0
	if cell[0] == '+' || cell[0] == '-' {
		end = 1
	}
	for end < len(cell) && cell[end] >= '0' && cell[end] <= '9' {
		end++
	}
	price, err := strconv.Atoi(cell[:end])
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

func AddonsText(price int) string {
	return fmt.Sprintf("семена льна, семечки, тыква (+%d₽)", price)
}

func hasAddons(cell string) bool {
	cell = strings.TrimSpace(cell)
	return cell != "" && cell != "-"
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func pad(row []string) []string {
	if len(row) >= columns {
		return row
	}
	padded := make([]string, columns)
	copy(padded, row)
	return padded
}
