// Package catalog holds the read-only item collection shown by the storefront.
package catalog

import (
	"context"
	"sync"

	"github.com/ziadkadry99/jsonstore/internal/events"
)

// Catalog is an ordered set of items keyed by id. A Catalog lives for one
// route activation; callers create a fresh one per navigation.
type Catalog struct {
	src Source

	mu    sync.RWMutex
	items []Item
	index map[string]int

	synced events.Signal
}

// New creates an empty catalog that loads from src.
func New(src Source) *Catalog {
	return &Catalog{src: src, index: map[string]int{}}
}

// OnSync registers fn to run after every successful Fetch.
func (c *Catalog) OnSync(fn func()) (unsubscribe func()) {
	return c.synced.Notify(fn)
}

// Fetch replaces the catalog contents with the source's items and emits
// the sync signal. On error the previous contents are kept and nothing is
// emitted.
func (c *Catalog) Fetch(ctx context.Context) error {
	items, err := c.src.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ordered := make([]Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		// A repeated id replaces the earlier entry in place.
		if i, ok := index[it.ID]; ok {
			ordered[i] = it
			continue
		}
		index[it.ID] = len(ordered)
		ordered = append(ordered, it)
	}

	c.mu.Lock()
	c.items = ordered
	c.index = index
	c.mu.Unlock()

	c.synced.Emit()
	return nil
}

// Get returns the item with the given id.
func (c *Catalog) Get(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Items returns the items in collection order.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
