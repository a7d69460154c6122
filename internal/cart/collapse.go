package cart

import (
	"sync"
	"time"
)

// DefaultCollapseWindow is how long an expanded card may stay empty.
const DefaultCollapseWindow = 5 * time.Second

// Collapser runs one cancellable delayed callback per product id.
type Collapser struct {
	window time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewCollapser(window time.Duration) *Collapser {
	if window <= 0 {
		window = DefaultCollapseWindow
	}
	return &Collapser{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule replaces any pending callback of the product. fn runs on its own
// goroutine.
func (c *Collapser) Schedule(productID string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[productID]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(c.window, func() {
		c.mu.Lock()
		if c.timers[productID] != t {
			c.mu.Unlock()
			return
		}
		delete(c.timers, productID)
		c.mu.Unlock()
		fn()
	})
	c.timers[productID] = t
}

// Cancel stops the pending callback and reports whether there was one.
func (c *Collapser) Cancel(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.timers[productID]
	if !ok {
		return false
	}
	t.Stop()
	delete(c.timers, productID)
	return true
}

func (c *Collapser) Pending(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.timers[productID]
	return ok
}

// Stop cancels everything.
func (c *Collapser) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}
