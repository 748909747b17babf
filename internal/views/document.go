package views

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"sync"

	"github.com/ziadkadry99/jsonstore/internal/events"
)

// Mount points of a storefront page.
const (
	SlotMain     = "main"
	SlotCartInfo = "cart-info"
)

// ErrNoHandler is returned by Dispatch when no mounted view handles an action.
var ErrNoHandler = errors.New("no handler bound for action")

// ActionFunc handles a user action such as a form submission.
type ActionFunc func(ctx context.Context, form url.Values) error

// Disposer releases everything a mounted view holds. Calling it more than
// once is harmless.
type Disposer func()

// Change reports that a slot's markup was replaced.
type Change struct {
	Slot string
	HTML template.HTML
}

// Document holds the rendered markup of each mount point and the action
// handlers bound by mounted views.
type Document struct {
	mu      sync.RWMutex
	slots   map[string]slot
	actions map[string][]binding
	nextID  uint64

	changes events.Bus[Change]
}

type slot struct {
	owner uint64
	html  template.HTML
}

type binding struct {
	id uint64
	fn ActionFunc
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		slots:   make(map[string]slot),
		actions: make(map[string][]binding),
	}
}

// Mount places html in the named slot and returns a Disposer that removes
// it again (if nothing replaced it since) and runs each release func.
func (d *Document) Mount(name string, html template.HTML, release ...func()) Disposer {
	d.mu.Lock()
	d.nextID++
	owner := d.nextID
	d.slots[name] = slot{owner: owner, html: html}
	d.mu.Unlock()
	d.notify(name, html)

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			cleared := false
			if s, ok := d.slots[name]; ok && s.owner == owner {
				delete(d.slots, name)
				cleared = true
			}
			d.mu.Unlock()
			if cleared {
				d.notify(name, "")
			}
			for _, fn := range release {
				fn()
			}
		})
	}
}

// Update replaces the markup of a slot without changing who owns it.
func (d *Document) Update(name string, html template.HTML) {
	d.mu.Lock()
	s := d.slots[name]
	s.html = html
	d.slots[name] = s
	d.mu.Unlock()
	d.notify(name, html)
}

// HTML returns the current markup of a slot.
func (d *Document) HTML(name string) template.HTML {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slots[name].html
}

// Bind registers fn for action. The most recent binding wins; the returned
// func removes only this binding.
func (d *Document) Bind(action string, fn ActionFunc) (unbind func()) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.actions[action] = append(d.actions[action], binding{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		bs := d.actions[action]
		for i, b := range bs {
			if b.id == id {
				bs = append(bs[:i:i], bs[i+1:]...)
				break
			}
		}
		if len(bs) == 0 {
			delete(d.actions, action)
			return
		}
		d.actions[action] = bs
	}
}

// Bound reports how many handlers are bound across all actions.
func (d *Document) Bound() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, bs := range d.actions {
		n += len(bs)
	}
	return n
}

// Dispatch runs the handler bound for action.
func (d *Document) Dispatch(ctx context.Context, action string, form url.Values) error {
	d.mu.RLock()
	bs := d.actions[action]
	var fn ActionFunc
	if len(bs) > 0 {
		fn = bs[len(bs)-1].fn
	}
	d.mu.RUnlock()

	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, action)
	}
	return fn(ctx, form)
}

// OnChange registers fn to receive every slot change.
func (d *Document) OnChange(fn func(Change)) (unsubscribe func()) {
	return d.changes.Subscribe(func(_ context.Context, c Change) error {
		fn(c)
		return nil
	})
}

func (d *Document) notify(name string, html template.HTML) {
	_ = d.changes.Publish(context.Background(), Change{Slot: name, HTML: html})
}
