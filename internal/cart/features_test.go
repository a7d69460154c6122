package cart_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"bakery/internal/cart"
	"bakery/internal/models"
	"bakery/internal/repo"

	"github.com/cucumber/godog"
)

type cartTestContext struct {
	catalog models.Catalog
	session *cart.Session
	store   *repo.MemoryRepo
	added   []int64
}

func (c *cartTestContext) reset() {
	c.catalog = nil
	c.session = nil
	c.store = repo.NewMemoryRepo()
	c.added = nil
}

func (c *cartTestContext) theCatalog(table *godog.Table) error {
	c.catalog = make(models.Catalog)
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.Value
		}
		product := models.Product{Name: cells[1], Prices: make(map[models.Tier]int)}
		for j, tier := range models.Tiers {
			if cells[2+j] == "" {
				continue
			}
			price, err := strconv.Atoi(cells[2+j])
			if err != nil {
				return err
			}
			product.Prices[tier] = price
		}
		if cells[5] != "no" {
			surcharge, err := strconv.Atoi(cells[5])
			if err != nil {
				return err
			}
			product.HasAddons = true
			product.AddonsPrice = surcharge
		}
		c.catalog[cells[0]] = product
	}
	return nil
}

func (c *cartTestContext) anEmptyCart() error {
	c.session = cart.NewSession(cart.ChatKey(1), c.catalog)
	return nil
}

func (c *cartTestContext) theStoredCart(doc *godog.DocString) error {
	return c.store.Save(context.Background(), cart.ChatKey(1), []byte(doc.Content))
}

func (c *cartTestContext) theCartIsRestored() error {
	s, err := cart.Restore(context.Background(), c.store, cart.ChatKey(1), c.catalog)
	if err != nil {
		return err
	}
	c.session = s
	return nil
}

func (c *cartTestContext) theCartIsSavedAndRestored() error {
	if err := cart.Persist(context.Background(), c.store, c.session); err != nil {
		return err
	}
	return c.theCartIsRestored()
}

func (c *cartTestContext) iOpenTheCard(id string) error {
	cart.OpenPanel(c.session, id)
	return nil
}

func (c *cartTestContext) change(n int, id string, weight int, delta int) error {
	for i := 0; i < n; i++ {
		changed, err := cart.ChangeQuantity(c.session, id, models.Tier(weight), delta)
		if err != nil {
			return err
		}
		if changed && delta > 0 {
			c.added = append(c.added, c.session.Items[len(c.session.Items)-1].Timestamp)
		}
	}
	return nil
}

func (c *cartTestContext) iAdd(n int, id string, weight int) error {
	return c.change(n, id, weight, 1)
}

func (c *cartTestContext) iRemove(n int, id string, weight int) error {
	return c.change(n, id, weight, -1)
}

func (c *cartTestContext) iTurnAddons(state, id string, weight int) error {
	cart.ToggleAddon(c.session, id, models.Tier(weight), state == "on")
	return nil
}

func (c *cartTestContext) iRemoveTheFirstLineItem() error {
	if len(c.session.Items) == 0 {
		return fmt.Errorf("cart is empty")
	}
	if !cart.RemoveLineItem(c.session, c.session.Items[0].Timestamp) {
		return fmt.Errorf("line item not removed")
	}
	return nil
}

func (c *cartTestContext) theIdleWindowPasses() error {
	for id := range c.session.Selections {
		cart.CollapseIfIdle(c.session, id)
	}
	return nil
}

func (c *cartTestContext) theCartHas(count, total int) error {
	gotCount, gotTotal := cart.Totals(c.session)
	if gotCount != count || gotTotal != total {
		return fmt.Errorf("cart has %d items totalling %d, want %d totalling %d", gotCount, gotTotal, count, total)
	}
	return nil
}

func (c *cartTestContext) theSelectionIs(id string, weight, want int) error {
	got := 0
	if sel := c.session.Selection(id); sel != nil {
		got = sel.Quantities[models.Tier(weight)]
		if n := cart.SelectionCount(c.session, id, models.Tier(weight)); n != got {
			return fmt.Errorf("selection %d disagrees with %d line items", got, n)
		}
	}
	if got != want {
		return fmt.Errorf("selection of %s at %dg is %d, want %d", id, weight, got, want)
	}
	return nil
}

func (c *cartTestContext) theEarliestUnitsRemain(n int, id string, weight int) error {
	var left []int64
	for _, item := range c.session.Items {
		if item.ID == id && item.Weight == models.Tier(weight) {
			left = append(left, item.Timestamp)
		}
	}
	if len(left) != n || n > len(c.added) {
		return fmt.Errorf("%d units left, want %d", len(left), n)
	}
	for i, ts := range left {
		if ts != c.added[i] {
			return fmt.Errorf("unit %d has stamp %d, want %d (added %v)", i, ts, c.added[i], c.added)
		}
	}
	return nil
}

func (c *cartTestContext) itemsHaveAddons(want int, id string, weight int) error {
	if got := cart.SelectionCountWithAddon(c.session, id, models.Tier(weight), true); got != want {
		return fmt.Errorf("%d items of %s at %dg have add-ons, want %d", got, id, weight, want)
	}
	return nil
}

func (c *cartTestContext) isOfferedIn(id, list string) error {
	var got []string
	for _, tp := range cart.AvailableTiers(c.catalog[id]) {
		got = append(got, tp.Tier.String())
	}
	if strings.Join(got, ",") != list {
		return fmt.Errorf("%s is offered in %v, want %s", id, got, list)
	}
	return nil
}

func (c *cartTestContext) theCardIs(id, state, highlighted string) error {
	s := c.session.Selection(id)
	if s == nil {
		return fmt.Errorf("card %s was never opened", id)
	}
	if s.Panel.String() != state {
		return fmt.Errorf("card %s is %s, want %s", id, s.Panel, state)
	}
	if want := highlighted != ""; s.Highlight != want {
		return fmt.Errorf("card %s highlight = %v, want %v", id, s.Highlight, want)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog:$`, tc.theCatalog)
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^the stored cart:$`, tc.theStoredCart)

	// When steps
	ctx.Step(`^I open the "([^"]*)" card$`, tc.iOpenTheCard)
	ctx.Step(`^I add (\d+) of "([^"]*)" at (\d+)g$`, tc.iAdd)
	ctx.Step(`^I remove (\d+) of "([^"]*)" at (\d+)g$`, tc.iRemove)
	ctx.Step(`^I turn add-ons (on|off) for "([^"]*)" at (\d+)g$`, tc.iTurnAddons)
	ctx.Step(`^I remove the first line item$`, tc.iRemoveTheFirstLineItem)
	ctx.Step(`^the idle window passes$`, tc.theIdleWindowPasses)
	ctx.Step(`^the cart is saved and restored$`, tc.theCartIsSavedAndRestored)
	ctx.Step(`^the cart is restored$`, tc.theCartIsRestored)

	// Then steps
	ctx.Step(`^the cart has (\d+) items? totalling (\d+)$`, tc.theCartHas)
	ctx.Step(`^the selection of "([^"]*)" at (\d+)g is (\d+)$`, tc.theSelectionIs)
	ctx.Step(`^the earliest (\d+) units? of "([^"]*)" at (\d+)g remain$`, tc.theEarliestUnitsRemain)
	ctx.Step(`^(\d+) items? of "([^"]*)" at (\d+)g (?:has|have) add-ons$`, tc.itemsHaveAddons)
	ctx.Step(`^"([^"]*)" is offered in "([^"]*)"$`, tc.isOfferedIn)
	ctx.Step(`^the card "([^"]*)" is (collapsed|expanded)( and highlighted)?$`, tc.theCardIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
