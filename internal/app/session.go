package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/jsonstore/internal/cart"
	"github.com/ziadkadry99/jsonstore/internal/catalog"
	"github.com/ziadkadry99/jsonstore/internal/events"
	"github.com/ziadkadry99/jsonstore/internal/router"
	"github.com/ziadkadry99/jsonstore/internal/storage"
	"github.com/ziadkadry99/jsonstore/internal/views"
)

// Session is the application context of one visitor: its document, the
// addToCart event bus, its cart and the router that ties them together.
// It is built once and handed to whatever raises or observes events.
type Session struct {
	ID       string
	Document *views.Document
	Events   *events.Bus[cart.AddRequest]
	Cart     *cart.Cart
	Router   *router.Router

	// navMu serializes navigation and rendering for this visitor.
	navMu sync.Mutex

	mu       sync.Mutex
	lastSeen time.Time
	feeds    int

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession builds a session whose cart persists into kv.
func NewSession(ctx context.Context, id string, kv storage.KV, src catalog.Source, log *zap.Logger) (*Session, error) {
	s := &Session{
		ID:       id,
		Document: views.NewDocument(),
		Events:   &events.Bus[cart.AddRequest]{},
		Cart:     cart.New(storage.NewCollection(kv, cart.StoreName)),
		lastSeen: time.Now(),
		done:     make(chan struct{}),
	}

	r, err := router.New(ctx, router.Options{
		Catalog:  src,
		Cart:     s.Cart,
		Document: s.Document,
		Events:   s.Events,
		Logger:   log.With(zap.String("session", id)),
	})
	if err != nil {
		return nil, fmt.Errorf("starting session %s: %w", id, err)
	}
	s.Router = r
	return s, nil
}

// Lock serializes a navigate-then-render sequence against other requests
// from the same visitor.
func (s *Session) Lock()   { s.navMu.Lock() }
func (s *Session) Unlock() { s.navMu.Unlock() }

// AddToCart raises the addToCart application event.
func (s *Session) AddToCart(ctx context.Context, req cart.AddRequest) error {
	return s.Events.Publish(ctx, req)
}

// AttachFeed records a live connection watching this session. A session
// with an attached feed is never evicted as idle. The returned func
// detaches the feed and counts as activity.
func (s *Session) AttachFeed() (detach func()) {
	s.mu.Lock()
	s.feeds++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.feeds--
			s.lastSeen = time.Now()
			s.mu.Unlock()
		})
	}
}

// Done is closed once the session has been closed. Feeds still holding the
// session should disconnect so the visitor reattaches to a live one.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// idle reports whether the session has no attached feed and was last used
// before cutoff.
func (s *Session) idle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feeds == 0 && s.lastSeen.Before(cutoff)
}

// Close releases the router's views and subscriptions and closes Done.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Router.Close()
		close(s.done)
	})
}
