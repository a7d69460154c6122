package cart

// OpenPanel expands a product's controls. Counters and add-on flags are
// rebuilt from the line items so the card always matches the cart.
func OpenPanel(s *Session, productID string) *Selection {
	sel := s.selectionFor(productID)
	for t := range sel.Addons {
		delete(sel.Addons, t)
	}
	for _, item := range s.Items {
		if item.ID == productID && item.HasAddons {
			sel.Addons[item.Weight] = true
		}
	}
	syncSelection(s, productID)
	sel.Panel = Expanded
	sel.Highlight = false
	return sel
}

// ClosePanel collapses the controls on explicit dismissal.
func ClosePanel(s *Session, productID string) {
	if sel := s.Selection(productID); sel != nil {
		sel.Panel = Collapsed
		sel.Highlight = false
	}
}

// CollapseIfIdle collapses an expanded panel whose selected quantity is zero
// and marks it for highlighting. It reports whether the panel collapsed.
func CollapseIfIdle(s *Session, productID string) bool {
	sel := s.Selection(productID)
	if sel == nil || sel.Panel != Expanded || sel.Total() > 0 {
		return false
	}
	sel.Panel = Collapsed
	sel.Highlight = true
	return true
}

// ArmCollapse schedules fire after the idle window while the expanded panel
// has nothing selected, and cancels any pending collapse otherwise.
func ArmCollapse(s *Session, c *Collapser, productID string, fire func()) {
	sel := s.Selection(productID)
	if sel == nil || sel.Panel != Expanded || sel.Total() > 0 {
		c.Cancel(productID)
		return
	}
	c.Schedule(productID, fire)
}
