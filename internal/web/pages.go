package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/jsonstore/internal/app"
	"github.com/ziadkadry99/jsonstore/internal/router"
	"github.com/ziadkadry99/jsonstore/internal/views"
)

func (s *Storefront) handleHome(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), w, r)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	sess.Lock()
	defer sess.Unlock()

	view, err := sess.Router.Home(r.Context())
	s.writeNavigation(w, sess, view, err)
}

func (s *Storefront) handleItem(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), w, r)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	sess.Lock()
	defer sess.Unlock()

	view, err := sess.Router.Item(r.Context(), itemID(r))
	s.writeNavigation(w, sess, view, err)
}

func (s *Storefront) writeNavigation(w http.ResponseWriter, sess *app.Session, view views.View, err error) {
	switch {
	case err == nil:
		status := http.StatusOK
		if view.Name() == "not_found" {
			status = http.StatusNotFound
		}
		s.writePage(w, sess, status, pageTitle(s.storeName, view), "")
	case errors.Is(err, router.ErrSuperseded):
		// A newer request from this visitor already mounted its view.
		s.writePage(w, sess, http.StatusOK, s.storeName, "")
	default:
		s.log.Warn("navigation failed", zap.String("session", sess.ID), zap.Error(err))
		s.writePage(w, sess, http.StatusBadGateway, s.storeName, "The catalog could not be loaded. Please try again.")
	}
}

// handleItemSubmit is the add-to-cart control of the detail page.
func (s *Storefront) handleItemSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.session(ctx, w, r)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := itemID(r)

	sess.Lock()
	defer sess.Unlock()

	// The control belongs to the detail view; mount it if this visitor is
	// somewhere else (another tab, or a restarted server).
	if d, ok := sess.Router.Current().(*views.ItemDetail); !ok || d.Item().ID != id {
		view, err := sess.Router.Item(ctx, id)
		if err != nil || view.Name() != "item_detail" {
			s.writeNavigation(w, sess, view, err)
			return
		}
	}

	err = sess.Document.Dispatch(ctx, views.ActionAddToCart, r.PostForm)
	switch {
	case err == nil:
		http.Redirect(w, r, views.ItemPath(id), http.StatusSeeOther)
	case isInputError(err):
		s.writePage(w, sess, http.StatusUnprocessableEntity, pageTitle(s.storeName, sess.Router.Current()), "")
	default:
		s.log.Error("add to cart failed", zap.String("session", sess.ID), zap.String("item_id", id), zap.Error(err))
		s.writePage(w, sess, http.StatusInternalServerError, pageTitle(s.storeName, sess.Router.Current()), "Your cart could not be updated. Please try again.")
	}
}

func (s *Storefront) writePage(w http.ResponseWriter, sess *app.Session, status int, title, flash string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := views.WritePage(w, views.Page{
		Title:     title,
		StoreName: s.storeName,
		CartInfo:  sess.Document.HTML(views.SlotCartInfo),
		Main:      sess.Document.HTML(views.SlotMain),
		Flash:     flash,
	})
	if err != nil {
		s.log.Error("writing page", zap.Error(err))
	}
}

func (s *Storefront) sessionError(w http.ResponseWriter, err error) {
	s.log.Error("starting session", zap.Error(err))
	http.Error(w, "The store is unavailable right now.", http.StatusServiceUnavailable)
}

// itemID returns the decoded {id} parameter. chi matches on the raw path
// when the URL carries escapes its decoded form would lose, such as %2F,
// and hands back the parameter still escaped.
func itemID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

func pageTitle(storeName string, view views.View) string {
	if d, ok := view.(*views.ItemDetail); ok {
		return d.Item().Title + " | " + storeName
	}
	return storeName
}
