package cart

// RemoveLineItem removes the item with the given timestamp and recounts the
// selection of its product.
func RemoveLineItem(s *Session, timestamp int64) bool {
	for i, item := range s.Items {
		if item.Timestamp != timestamp {
			continue
		}
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
		syncSelection(s, item.ID)
		return true
	}
	return false
}

// Clear drops every line item, as on catalog cache invalidation.
func Clear(s *Session) {
	s.Items = nil
	for id := range s.Selections {
		syncSelection(s, id)
	}
}
