package router

import (
	"net/url"
	"strings"
)

// Route names.
const (
	RouteHome = "home"
	RouteItem = "item"
)

// Route is a matched navigation target.
type Route struct {
	Name string
	ID   string // set for RouteItem
}

// Match resolves a hash or path fragment against the route table:
// "" maps to home, "item/:id" to the item detail page.
func Match(path string) (Route, bool) {
	p := strings.TrimPrefix(path, "#")
	p = strings.Trim(p, "/")

	if p == "" {
		return Route{Name: RouteHome}, true
	}

	rest, ok := strings.CutPrefix(p, "item/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return Route{}, false
	}
	id, err := url.PathUnescape(rest)
	if err != nil || id == "" {
		return Route{}, false
	}
	return Route{Name: RouteItem, ID: id}, true
}
