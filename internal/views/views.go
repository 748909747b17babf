// Package views renders the storefront's components into a Document.
package views

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/ziadkadry99/jsonstore/internal/cart"
	"github.com/ziadkadry99/jsonstore/internal/catalog"
	"github.com/ziadkadry99/jsonstore/internal/events"
	"github.com/ziadkadry99/jsonstore/internal/storage"
)

// ActionAddToCart is the action bound by ItemDetail's add-to-cart control.
const ActionAddToCart = "addToCart"

// View is a component that can be mounted into a document slot.
type View interface {
	// Name identifies the kind of view, e.g. "catalog" or "item_detail".
	Name() string
	// Mount renders the view into slot and returns the Disposer that
	// removes it and releases its bindings.
	Mount(ctx context.Context, doc *Document, slot string) (Disposer, error)
}

// ItemCard renders a single catalog entry. It has no state and no events.
type ItemCard struct {
	Item catalog.Item
}

// Render returns the card markup.
func (c ItemCard) Render() (template.HTML, error) {
	return render("item", c.Item)
}

// CatalogView lists every catalog item as an ItemCard, in catalog order.
type CatalogView struct {
	items []catalog.Item
}

// NewCatalogView creates a view over the catalog's current items.
func NewCatalogView(c *catalog.Catalog) *CatalogView {
	return &CatalogView{items: c.Items()}
}

func (v *CatalogView) Name() string { return "catalog" }

func (v *CatalogView) Mount(_ context.Context, doc *Document, slot string) (Disposer, error) {
	cards := make([]template.HTML, 0, len(v.items))
	for _, it := range v.items {
		html, err := ItemCard{Item: it}.Render()
		if err != nil {
			return nil, err
		}
		cards = append(cards, html)
	}
	html, err := render("catalog", cards)
	if err != nil {
		return nil, err
	}
	return doc.Mount(slot, html), nil
}

// ErrInvalidQuantity is returned when the quantity field is not a base-10
// integer of at least 1.
var ErrInvalidQuantity = errors.New("quantity must be a whole number of at least 1")

// ItemDetail shows one item with a quantity input and an add-to-cart
// control. Submitting the control raises an addToCart event on the bus.
type ItemDetail struct {
	item catalog.Item
	bus  *events.Bus[cart.AddRequest]
}

type itemDetailData struct {
	Item     catalog.Item
	Quantity string
	Error    string
}

// NewItemDetail creates the detail view for item, raising events on bus.
func NewItemDetail(item catalog.Item, bus *events.Bus[cart.AddRequest]) *ItemDetail {
	return &ItemDetail{item: item, bus: bus}
}

func (v *ItemDetail) Name() string { return "item_detail" }

// Item returns the item shown by the view.
func (v *ItemDetail) Item() catalog.Item { return v.item }

func (v *ItemDetail) Mount(_ context.Context, doc *Document, slot string) (Disposer, error) {
	html, err := render("item_detail", itemDetailData{Item: v.item, Quantity: "1"})
	if err != nil {
		return nil, err
	}

	unbind := doc.Bind(ActionAddToCart, func(ctx context.Context, form url.Values) error {
		err := v.submit(ctx, form)
		if err != nil && isInputError(err) {
			if html, rerr := render("item_detail", itemDetailData{
				Item:     v.item,
				Quantity: form.Get("quantity"),
				Error:    err.Error(),
			}); rerr == nil {
				doc.Update(slot, html)
			}
		}
		return err
	})
	return doc.Mount(slot, html, unbind), nil
}

func (v *ItemDetail) submit(ctx context.Context, form url.Values) error {
	id := form.Get("item_id")
	if id == "" {
		id = v.item.ID
	}
	quantity, err := ParseQuantity(form.Get("quantity"))
	if err != nil {
		return err
	}
	return v.bus.Publish(ctx, cart.AddRequest{ID: id, Quantity: quantity})
}

// ParseQuantity parses a quantity field as a base-10 integer of at least 1.
func ParseQuantity(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 0)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	return int(n), nil
}

func isInputError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, cart.ErrInvalidQuantity) ||
		errors.Is(err, cart.ErrMissingID) ||
		errors.Is(err, storage.ErrInvalidID)
}

// NotFound is mounted for item ids that are not in the catalog.
type NotFound struct {
	ID string
}

func (v *NotFound) Name() string { return "not_found" }

func (v *NotFound) Mount(_ context.Context, doc *Document, slot string) (Disposer, error) {
	html, err := render("not_found", v.ID)
	if err != nil {
		return nil, err
	}
	return doc.Mount(slot, html), nil
}

// CartBadge shows the cart count and re-renders on every cart sync.
type CartBadge struct {
	cart *cart.Cart

	mu    sync.Mutex
	pulse int
}

type cartInfoData struct {
	Count int
	Pulse int
}

// NewCartBadge creates a badge for c.
func NewCartBadge(c *cart.Cart) *CartBadge {
	return &CartBadge{cart: c}
}

func (b *CartBadge) Name() string { return "cart_badge" }

func (b *CartBadge) Mount(_ context.Context, doc *Document, slot string) (Disposer, error) {
	html, err := render("cart_info", cartInfoData{Count: b.cart.Count()})
	if err != nil {
		return nil, err
	}
	stop := b.cart.OnSync(func() {
		b.mu.Lock()
		b.pulse++
		data := cartInfoData{Count: b.cart.Count(), Pulse: b.pulse}
		b.mu.Unlock()
		if html, err := render("cart_info", data); err == nil {
			doc.Update(slot, html)
		}
	})
	return doc.Mount(slot, html, stop), nil
}
