// Package web exposes the storefront over HTTP: server-rendered pages, a
// JSON cart API and a websocket feed of cart badge updates.
package web

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ziadkadry99/jsonstore/internal/app"
	"github.com/ziadkadry99/jsonstore/internal/catalog"
)

// SessionCookie carries the visitor's session id.
const SessionCookie = "jsonstore_session"

// Options configures a Storefront.
type Options struct {
	StoreName string
	// Catalog is the configured catalog location; local files and the
	// built-in sample are also served at catalog.DefaultPath.
	Catalog string
	Logger  *zap.Logger
}

// Storefront serves the storefront for every visitor session.
type Storefront struct {
	sessions  *app.Manager
	storeName string
	catalog   string
	log       *zap.Logger
}

// New creates a Storefront backed by sessions.
func New(sessions *app.Manager, opts Options) *Storefront {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Storefront{
		sessions:  sessions,
		storeName: opts.StoreName,
		catalog:   opts.Catalog,
		log:       log,
	}
}

// RegisterRoutes mounts all storefront routes onto r.
func (s *Storefront) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/", s.handleHome)
		r.Get("/item/{id}", s.handleItem)
		r.Post("/item/{id}", s.handleItemSubmit)

		if s.servesCatalogFile() {
			r.Get(catalog.DefaultPath, s.handleCatalogData)
		}

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", s.handleCartGet)
			r.Post("/", s.handleCartAdd)
			r.Delete("/{id}", s.handleCartRemove)
		})
	})

	// Long-lived; kept out of the timeout group.
	r.Get("/ws/cart", s.handleWebSocket)
}

func (s *Storefront) servesCatalogFile() bool {
	return !strings.HasPrefix(s.catalog, "http://") && !strings.HasPrefix(s.catalog, "https://")
}

func (s *Storefront) handleCatalogData(w http.ResponseWriter, r *http.Request) {
	if s.catalog == "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write(catalog.SampleJSON())
		return
	}
	data, err := os.ReadFile(s.catalog)
	if err != nil {
		s.log.Error("reading catalog file", zap.String("path", s.catalog), zap.Error(err))
		http.Error(w, `{"error":"catalog unavailable"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// session returns the visitor's session, issuing a cookie when the
// session is new.
func (s *Storefront) session(ctx context.Context, w http.ResponseWriter, r *http.Request) (*app.Session, error) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	sess, err := s.sessions.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		})
	}
	return sess, nil
}
