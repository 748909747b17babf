package web

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/jsonstore/internal/app"
	"github.com/ziadkadry99/jsonstore/internal/views"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// badgeMessage is pushed to the browser whenever the cart badge re-renders.
type badgeMessage struct {
	Type  string        `json:"type"` // always "cart"
	Count int           `json:"count"`
	HTML  template.HTML `json:"html"`
}

func newBadgeMessage(sess *app.Session, html template.HTML) badgeMessage {
	return badgeMessage{Type: "cart", Count: sess.Cart.Count(), HTML: html}
}

func (s *Storefront) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), w, r)
	if err != nil {
		s.sessionError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		s.log.Debug("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	detach := sess.AttachFeed()
	defer detach()

	updates := make(chan badgeMessage, 8)
	stop := sess.Document.OnChange(func(c views.Change) {
		if c.Slot != views.SlotCartInfo || c.HTML == "" {
			return
		}
		select {
		case updates <- newBadgeMessage(sess, c.HTML):
		default:
			// Slow client; it will catch up on the next update.
		}
	})
	defer stop()

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Debug("websocket read", zap.Error(err))
				}
				return
			}
		}
	}()

	if err := conn.WriteJSON(newBadgeMessage(sess, sess.Document.HTML(views.SlotCartInfo))); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-sess.Done():
			// The session was closed under us; the client reconnects to a
			// fresh one.
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		case msg := <-updates:
			if err := conn.WriteJSON(msg); err != nil {
				s.log.Debug("websocket write", zap.Error(err))
				return
			}
		}
	}
}
