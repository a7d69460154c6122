// Package cart reconciles per-weight selections on product cards with the list
// of single-unit line items persisted for a chat.
//
// Every operation takes the *Session explicitly and runs to completion
// synchronously; callers that share a session between goroutines must
// serialize access themselves.
package cart

import (
	"strconv"
	"time"

	"bakery/internal/models"
)

// PanelState is the state of a product's quantity controls.
type PanelState int

const (
	Collapsed PanelState = iota
	Expanded
)

func (p PanelState) String() string {
	if p == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// Selection is the transient, never persisted state of one product card.
type Selection struct {
	Quantities map[models.Tier]int
	Addons     map[models.Tier]bool
	Panel      PanelState
	Highlight  bool // карточка свернулась сама, подсветить кнопку
}

func newSelection() *Selection {
	return &Selection{
		Quantities: make(map[models.Tier]int),
		Addons:     make(map[models.Tier]bool),
	}
}

// Total is the selected quantity across all tiers.
func (s *Selection) Total() int {
	n := 0
	for _, q := range s.Quantities {
		n += q
	}
	return n
}

// Session is the state of one cart: the catalog it was built against, the
// persisted line items and the per-product selections.
type Session struct {
	Key        string
	Catalog    models.Catalog
	Items      []models.LineItem
	Selections map[string]*Selection

	// Clock stamps new line items; defaults to time.Now.
	Clock func() time.Time

	lastStamp int64
}

func NewSession(key string, catalog models.Catalog) *Session {
	return &Session{
		Key:        key,
		Catalog:    catalog,
		Selections: make(map[string]*Selection),
		Clock:      time.Now,
	}
}

// ChatKey is the storage key of a chat's cart.
func ChatKey(chatID int64) string {
	return "cart:" + strconv.FormatInt(chatID, 10)
}

// Selection returns the selection of a product or nil if it was never touched.
func (s *Session) Selection(productID string) *Selection {
	return s.Selections[productID]
}

func (s *Session) selectionFor(productID string) *Selection {
	sel, ok := s.Selections[productID]
	if !ok {
		sel = newSelection()
		s.Selections[productID] = sel
	}
	return sel
}

// nextStamp returns a millisecond timestamp strictly greater than any issued before.
func (s *Session) nextStamp() int64 {
	ts := s.Clock().UnixMilli()
	if ts <= s.lastStamp {
		ts = s.lastStamp + 1
	}
	s.lastStamp = ts
	return ts
}

func (s *Session) observeStamp(ts int64) {
	if ts > s.lastStamp {
		s.lastStamp = ts
	}
}
