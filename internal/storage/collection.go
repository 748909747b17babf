package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Collection persists JSON records for one named collection inside a KV.
//
// The layout matches the browser localStorage adapter: the key <name> holds
// the comma-separated list of record ids in insertion order, and each record
// lives under <name>-<id>.
type Collection struct {
	kv   KV
	name string

	mu sync.Mutex // serializes index read-modify-write
}

// NewCollection returns the collection called name inside kv.
func NewCollection(kv KV, name string) *Collection {
	return &Collection{kv: kv, name: name}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

func (c *Collection) recordKey(id string) string {
	return c.name + "-" + id
}

// Find returns the stored record for id, or ErrNotFound.
func (c *Collection) Find(ctx context.Context, id string) ([]byte, error) {
	return c.kv.GetItem(ctx, c.recordKey(id))
}

// FindAll returns every record in insertion order. Index entries whose
// record is missing are skipped.
func (c *Collection) FindAll(ctx context.Context) ([][]byte, error) {
	c.mu.Lock()
	ids, err := c.readIndex(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	records := make([][]byte, 0, len(ids))
	for _, id := range ids {
		rec, err := c.kv.GetItem(ctx, c.recordKey(id))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s record %s: %w", c.name, id, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Save writes value under id, overwriting any previous record with the same id.
// Ids must be non-empty and free of commas, or ErrInvalidID is returned.
func (c *Collection) Save(ctx context.Context, id string, value []byte) error {
	if id == "" || strings.Contains(id, ",") {
		return fmt.Errorf("saving %s record %q: %w", c.name, id, ErrInvalidID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Read the index first so a failed read leaves storage untouched.
	ids, err := c.readIndex(ctx)
	if err != nil {
		return err
	}

	if err := c.kv.SetItem(ctx, c.recordKey(id), value); err != nil {
		return fmt.Errorf("saving %s record %s: %w", c.name, id, err)
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return c.writeIndex(ctx, append(ids, id))
}

// Destroy removes the record for id. Removing an absent id is not an error.
func (c *Collection) Destroy(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.RemoveItem(ctx, c.recordKey(id)); err != nil {
		return fmt.Errorf("removing %s record %s: %w", c.name, id, err)
	}

	ids, err := c.readIndex(ctx)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return c.writeIndex(ctx, kept)
}

func (c *Collection) readIndex(ctx context.Context) ([]string, error) {
	raw, err := c.kv.GetItem(ctx, c.name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s index: %w", c.name, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return strings.Split(string(raw), ","), nil
}

func (c *Collection) writeIndex(ctx context.Context, ids []string) error {
	if err := c.kv.SetItem(ctx, c.name, []byte(strings.Join(ids, ","))); err != nil {
		return fmt.Errorf("writing %s index: %w", c.name, err)
	}
	return nil
}
