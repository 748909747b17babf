package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ziadkadry99/jsonstore/internal/cart"
	"github.com/ziadkadry99/jsonstore/internal/storage"
	"github.com/ziadkadry99/jsonstore/internal/views"
)

// cartResponse is the JSON shape of the cart.
type cartResponse struct {
	Count int         `json:"count"`
	Lines []cart.Line `json:"lines"`
}

func newCartResponse(c *cart.Cart) cartResponse {
	lines := c.Lines()
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{Count: c.Count(), Lines: lines}
}

func (s *Storefront) handleCartGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), w, r)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

func (s *Storefront) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.session(ctx, w, r)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	var req cart.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := sess.AddToCart(ctx, req); err != nil {
		if isInputError(err) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		s.log.Error("add to cart failed", zap.String("session", sess.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

func (s *Storefront) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := s.session(ctx, w, r)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	if err := sess.Cart.Remove(ctx, itemID(r)); err != nil {
		s.log.Error("removing cart line", zap.String("session", sess.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

func isInputError(err error) bool {
	return errors.Is(err, views.ErrInvalidQuantity) ||
		errors.Is(err, cart.ErrInvalidQuantity) ||
		errors.Is(err, cart.ErrMissingID) ||
		errors.Is(err, storage.ErrInvalidID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
