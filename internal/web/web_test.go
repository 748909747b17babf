package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/jsonstore/internal/app"
	"github.com/ziadkadry99/jsonstore/internal/catalog"
	"github.com/ziadkadry99/jsonstore/internal/db"
)

// switchableSource serves the sample catalog, plus any extra items, until
// broken.
type switchableSource struct {
	mu     sync.Mutex
	broken bool
	extra  []catalog.Item
}

func (s *switchableSource) Fetch(ctx context.Context) ([]catalog.Item, error) {
	s.mu.Lock()
	broken := s.broken
	extra := s.extra
	s.mu.Unlock()
	if broken {
		return nil, errors.New("upstream unavailable")
	}
	items, err := catalog.NewFileSource("").Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return append(items, extra...), nil
}

func (s *switchableSource) add(item catalog.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra = append(s.extra, item)
}

type testEnv struct {
	server *httptest.Server
	client *http.Client
	src    *switchableSource
	mgr    *app.Manager
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	src := &switchableSource{}
	mgr := app.NewManager(app.Options{DB: database, Catalog: src})
	t.Cleanup(mgr.Close)

	r := chi.NewRouter()
	New(mgr, Options{StoreName: "The JSON Store"}).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{server: srv, client: &http.Client{Jar: jar}, src: src, mgr: mgr}
}

func (e *testEnv) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (e *testEnv) cartJSON(t *testing.T, method, path, body string) (int, cartResponse) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out cartResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestHomeListsCatalog(t *testing.T) {
	env := setupTest(t)

	status, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Song A")
	assert.Contains(t, body, "Paper Satellites")
	assert.Contains(t, body, "Cart: 0 items")

	u, _ := url.Parse(env.server.URL)
	cookies := env.client.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
}

func TestItemPages(t *testing.T) {
	env := setupTest(t)

	status, body := env.get(t, "/item/a1")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `id="addToCart"`)
	assert.Contains(t, body, "<title>Song A | The JSON Store</title>")

	status, body = env.get(t, "/item/unknown-id")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Item not found")
}

func TestAddToCartForm(t *testing.T) {
	env := setupTest(t)
	env.get(t, "/item/a1")

	status, _ := env.postForm(t, "/item/a1", url.Values{"item_id": {"a1"}, "quantity": {"2"}})
	assert.Equal(t, http.StatusOK, status, "redirect should land on the detail page")
	status, body := env.postForm(t, "/item/a1", url.Values{"item_id": {"a1"}, "quantity": {"3"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Cart: 5 items")

	status, c := env.cartJSON(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, c.Count)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "a1", c.Lines[0].ID)
	assert.Equal(t, 5, c.Lines[0].Quantity)
}

func TestAddToCartFormWithoutVisitingDetail(t *testing.T) {
	env := setupTest(t)

	status, body := env.postForm(t, "/item/b2", url.Values{"item_id": {"b2"}, "quantity": {"1"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Cart: 1 item<")
}

func TestAddToCartFormRejectsBadQuantity(t *testing.T) {
	env := setupTest(t)
	env.get(t, "/item/a1")

	status, body := env.postForm(t, "/item/a1", url.Values{"item_id": {"a1"}, "quantity": {"lots"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, `class="error"`)
	assert.Contains(t, body, "Cart: 0 items")
}

func TestAddToCartFormUnknownItem(t *testing.T) {
	env := setupTest(t)

	status, _ := env.postForm(t, "/item/nope", url.Values{"item_id": {"nope"}, "quantity": {"1"}})
	assert.Equal(t, http.StatusNotFound, status)

	_, c := env.cartJSON(t, http.MethodGet, "/api/cart", "")
	assert.Equal(t, 0, c.Count)
}

func TestCatalogFailure(t *testing.T) {
	env := setupTest(t)
	status, _ := env.get(t, "/")
	require.Equal(t, http.StatusOK, status)

	env.src.mu.Lock()
	env.src.broken = true
	env.src.mu.Unlock()

	status, body := env.get(t, "/item/a1")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "could not be loaded")
	assert.Contains(t, body, "Paper Satellites", "the previous view stays mounted")
}

func TestCartAPI(t *testing.T) {
	env := setupTest(t)

	status, c := env.cartJSON(t, http.MethodPost, "/api/cart", `{"id":"a1","quantity":2}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, c.Count)

	status, c = env.cartJSON(t, http.MethodPost, "/api/cart", `{"id":"c3","quantity":1}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, c.Count)

	status, _ = env.cartJSON(t, http.MethodPost, "/api/cart", `{"id":"a1","quantity":-2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = env.cartJSON(t, http.MethodPost, "/api/cart", `{"id":`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, c = env.cartJSON(t, http.MethodDelete, "/api/cart/a1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, c.Count)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "c3", c.Lines[0].ID)
}

func TestCatalogData(t *testing.T) {
	env := setupTest(t)

	status, body := env.get(t, catalog.DefaultPath)
	require.Equal(t, http.StatusOK, status)

	var items []catalog.Item
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	assert.Len(t, items, 4)
}

// dialCart opens the badge feed with the visitor's cookies and reads the
// initial message.
func (e *testEnv) dialCart(t *testing.T) (*websocket.Conn, badgeMessage) {
	t.Helper()
	u, _ := url.Parse(e.server.URL)
	header := http.Header{}
	for _, c := range e.client.Jar.Cookies(u) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}

	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/cart"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg badgeMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return conn, msg
}

func TestWebSocketBadgeUpdates(t *testing.T) {
	env := setupTest(t)
	env.get(t, "/")

	conn, msg := env.dialCart(t)
	assert.Equal(t, "cart", msg.Type)
	assert.Equal(t, 0, msg.Count)

	status, _ := env.cartJSON(t, http.MethodPost, "/api/cart", `{"id":"a1","quantity":4}`)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, 4, msg.Count)
	assert.Contains(t, string(msg.HTML), "Cart: 4 items")
}

func TestWebSocketKeepsSessionAlive(t *testing.T) {
	env := setupTest(t)
	env.get(t, "/")
	conn, _ := env.dialCart(t)

	assert.Equal(t, 0, env.mgr.EvictIdle(-time.Hour))

	status, _ := env.cartJSON(t, http.MethodPost, "/api/cart", `{"id":"a1","quantity":4}`)
	require.Equal(t, http.StatusOK, status)

	var msg badgeMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, 4, msg.Count)
}

func TestWebSocketClosedWithSession(t *testing.T) {
	env := setupTest(t)
	env.get(t, "/")
	conn, _ := env.dialCart(t)

	env.mgr.Close()

	var msg badgeMessage
	err := conn.ReadJSON(&msg)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestCartAPIRejectsOverflow(t *testing.T) {
	env := setupTest(t)

	status, _ := env.cartJSON(t, http.MethodPost, "/api/cart", fmt.Sprintf(`{"id":"a1","quantity":%d}`, math.MaxInt))
	require.Equal(t, http.StatusOK, status)
	status, _ = env.cartJSON(t, http.MethodPost, "/api/cart", `{"id":"a1","quantity":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, cart := env.cartJSON(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, math.MaxInt, cart.Count)
}

func TestCartAPIRejectsCommaInID(t *testing.T) {
	env := setupTest(t)

	status, _ := env.cartJSON(t, http.MethodPost, "/api/cart", `{"id":"a,b","quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, cart := env.cartJSON(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, cart.Count)
}

func TestItemIDIsPathDecoded(t *testing.T) {
	env := setupTest(t)
	env.src.add(catalog.Item{ID: "lp/7", Title: "Side Seven", Artist: "Tape Loop", Price: 2.5})

	status, body := env.get(t, "/item/lp%2F7")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Side Seven")

	status, body = env.postForm(t, "/item/lp%2F7", url.Values{"item_id": {"lp/7"}, "quantity": {"2"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Side Seven")

	status, cart := env.cartJSON(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, cart.Count)

	status, cart = env.cartJSON(t, http.MethodDelete, "/api/cart/lp%2F7", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, cart.Count)
}
