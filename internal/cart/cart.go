// Package cart implements the persisted shopping cart.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/ziadkadry99/jsonstore/internal/events"
	"github.com/ziadkadry99/jsonstore/internal/storage"
)

// Cart is an ordered set of lines keyed by item id, backed by a storage
// collection. There is one Cart per visitor session.
type Cart struct {
	store *storage.Collection

	mu    sync.Mutex
	lines []Line
	index map[string]int

	synced events.Signal
}

// New creates an empty cart persisting into store. Call Fetch to load
// previously saved lines.
func New(store *storage.Collection) *Cart {
	return &Cart{store: store, index: map[string]int{}}
}

// OnSync registers fn to run after every load and every persisted change.
func (c *Cart) OnSync(fn func()) (unsubscribe func()) {
	return c.synced.Notify(fn)
}

// Fetch replaces the in-memory lines with what storage holds, then emits
// the sync signal.
func (c *Cart) Fetch(ctx context.Context) error {
	records, err := c.store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading cart: %w", err)
	}

	lines := make([]Line, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		var l Line
		if err := json.Unmarshal(rec, &l); err != nil {
			return fmt.Errorf("decoding cart line: %w", err)
		}
		if _, dup := index[l.ID]; dup {
			continue
		}
		index[l.ID] = len(lines)
		lines = append(lines, l)
	}

	c.mu.Lock()
	c.lines = lines
	c.index = index
	c.mu.Unlock()

	c.synced.Emit()
	return nil
}

// AddToCart adds req.Quantity to the line for req.ID, creating the line
// with quantity 0 first if needed, and persists it. If the write fails the
// in-memory cart is left as it was.
func (c *Cart) AddToCart(ctx context.Context, req AddRequest) (Line, error) {
	if req.ID == "" {
		return Line{}, ErrMissingID
	}
	if req.Quantity < 0 {
		return Line{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, req.Quantity)
	}

	c.mu.Lock()
	line := Line{ID: req.ID}
	i, exists := c.index[req.ID]
	if exists {
		line = c.lines[i]
	}
	if line.Quantity > math.MaxInt-req.Quantity {
		c.mu.Unlock()
		return Line{}, fmt.Errorf("%w: %d more of %s would overflow", ErrInvalidQuantity, req.Quantity, req.ID)
	}
	line.Quantity += req.Quantity

	if err := c.persist(ctx, line); err != nil {
		c.mu.Unlock()
		return Line{}, err
	}
	if exists {
		c.lines[i] = line
	} else {
		c.index[line.ID] = len(c.lines)
		c.lines = append(c.lines, line)
	}
	c.mu.Unlock()

	c.synced.Emit()
	return line, nil
}

// Remove deletes the line for id from memory and storage.
func (c *Cart) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	i, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	if err := c.store.Destroy(ctx, id); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("removing cart line: %w", err)
	}
	c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
	c.index = make(map[string]int, len(c.lines))
	for j, l := range c.lines {
		c.index[l.ID] = j
	}
	c.mu.Unlock()

	c.synced.Emit()
	return nil
}

func (c *Cart) persist(ctx context.Context, line Line) error {
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("encoding cart line: %w", err)
	}
	if err := c.store.Save(ctx, line.ID, data); err != nil {
		return fmt.Errorf("persisting cart line: %w", err)
	}
	return nil
}

// Count returns the total quantity across all lines, saturating at
// math.MaxInt.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, l := range c.lines {
		if l.Quantity > math.MaxInt-count {
			return math.MaxInt
		}
		count += l.Quantity
	}
	return count
}

// Get returns the line for id.
func (c *Cart) Get(id string) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return Line{}, false
	}
	return c.lines[i], true
}

// Lines returns the lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}
