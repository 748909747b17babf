// Package router maps navigation paths to views and owns the view that is
// currently mounted in a session's document.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/jsonstore/internal/cart"
	"github.com/ziadkadry99/jsonstore/internal/catalog"
	"github.com/ziadkadry99/jsonstore/internal/events"
	"github.com/ziadkadry99/jsonstore/internal/views"
)

// State is the router's view-mount state.
type State int

const (
	NoViewMounted State = iota
	ViewMounted
)

func (s State) String() string {
	if s == ViewMounted {
		return "view_mounted"
	}
	return "no_view_mounted"
}

var (
	// ErrNoRoute is returned for paths outside the route table.
	ErrNoRoute = errors.New("no route matches path")

	// ErrSuperseded is returned when a newer navigation started while this
	// one was fetching; its view is dropped without being mounted.
	ErrSuperseded = errors.New("navigation superseded by a newer one")
)

// Options configures a Router.
type Options struct {
	Catalog  catalog.Source
	Cart     *cart.Cart
	Document *views.Document
	Events   *events.Bus[cart.AddRequest]
	Logger   *zap.Logger
}

// Router activates routes by fetching a fresh catalog and swapping the
// mounted view once the fetch completes.
type Router struct {
	src  catalog.Source
	cart *cart.Cart
	doc  *views.Document
	bus  *events.Bus[cart.AddRequest]
	log  *zap.Logger

	mu          sync.Mutex
	generation  uint64
	current     views.View
	dispose     views.Disposer
	disposals   int
	unsubscribe func()
	badge       views.Disposer
}

// New wires a router: it subscribes to addToCart events, mounts the cart
// badge and loads the cart.
func New(ctx context.Context, opts Options) (*Router, error) {
	if opts.Catalog == nil || opts.Cart == nil || opts.Document == nil || opts.Events == nil {
		return nil, fmt.Errorf("router: catalog, cart, document and events are required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := &Router{
		src:  opts.Catalog,
		cart: opts.Cart,
		doc:  opts.Document,
		bus:  opts.Events,
		log:  log,
	}
	r.unsubscribe = r.bus.Subscribe(r.addToCart)

	badge, err := views.NewCartBadge(r.cart).Mount(ctx, r.doc, views.SlotCartInfo)
	if err != nil {
		r.unsubscribe()
		return nil, fmt.Errorf("mounting cart badge: %w", err)
	}
	r.badge = badge

	if err := r.cart.Fetch(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Router) addToCart(ctx context.Context, req cart.AddRequest) error {
	line, err := r.cart.AddToCart(ctx, req)
	if err != nil {
		r.log.Warn("add to cart failed", zap.String("item_id", req.ID), zap.Int("quantity", req.Quantity), zap.Error(err))
		return err
	}
	r.log.Debug("added to cart",
		zap.String("item_id", line.ID),
		zap.Int("added", req.Quantity),
		zap.Int("quantity", line.Quantity))
	return nil
}

// Navigate activates the route matching path.
func (r *Router) Navigate(ctx context.Context, path string) (views.View, error) {
	route, ok := Match(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRoute, path)
	}
	switch route.Name {
	case RouteItem:
		return r.Item(ctx, route.ID)
	default:
		return r.Home(ctx)
	}
}

// Home lists the whole catalog.
func (r *Router) Home(ctx context.Context) (views.View, error) {
	return r.activate(ctx, func(c *catalog.Catalog) views.View {
		return views.NewCatalogView(c)
	})
}

// Item shows the detail page for id, or the not-found view when the
// catalog has no such item.
func (r *Router) Item(ctx context.Context, id string) (views.View, error) {
	return r.activate(ctx, func(c *catalog.Catalog) views.View {
		item, ok := c.Get(id)
		if !ok {
			return &views.NotFound{ID: id}
		}
		return views.NewItemDetail(item, r.bus)
	})
}

func (r *Router) activate(ctx context.Context, build func(*catalog.Catalog) views.View) (views.View, error) {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	items := catalog.New(r.src)
	var view views.View
	items.OnSync(func() { view = build(items) })
	if err := items.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.log.Debug("dropping stale navigation", zap.String("view", view.Name()))
		return nil, ErrSuperseded
	}
	if err := r.changeView(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

// changeView disposes the current view, then mounts next. Callers hold r.mu.
func (r *Router) changeView(ctx context.Context, next views.View) error {
	if r.dispose != nil {
		r.dispose()
		r.disposals++
		r.dispose = nil
		r.current = nil
	}

	dispose, err := next.Mount(ctx, r.doc, views.SlotMain)
	if err != nil {
		return fmt.Errorf("mounting %s view: %w", next.Name(), err)
	}
	r.current = next
	r.dispose = dispose
	r.log.Debug("view mounted", zap.String("view", next.Name()))
	return nil
}

// State reports whether a view is mounted.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return NoViewMounted
	}
	return ViewMounted
}

// Current returns the mounted view, or nil.
func (r *Router) Current() views.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Disposals returns how many views the router has disposed so far.
func (r *Router) Disposals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposals
}

// Cart returns the session's cart.
func (r *Router) Cart() *cart.Cart { return r.cart }

// Document returns the document views are mounted into.
func (r *Router) Document() *views.Document { return r.doc }

// Close disposes the mounted view and the badge and stops handling
// addToCart events.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dispose != nil {
		r.dispose()
		r.disposals++
		r.dispose = nil
		r.current = nil
	}
	if r.badge != nil {
		r.badge()
		r.badge = nil
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}
