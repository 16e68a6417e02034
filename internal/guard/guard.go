// Package guard decides whether navigation to a view is allowed for the
// current auth state, or where to redirect instead.
package guard

import (
	"net/http"
)

// Meta is the access metadata of a route.
type Meta struct {
	AuthRequired bool
	GuestOnly    bool
}

type Route struct {
	Name string
	Path string
	Meta Meta
}

const (
	Home     = "Home"
	Login    = "Login"
	Register = "Register"
	Cart     = "Cart"
	Orders   = "Orders"
)

// Routes is the storefront route table.
var Routes = []Route{
	{Name: Home, Path: "/"},
	{Name: Login, Path: "/login", Meta: Meta{GuestOnly: true}},
	{Name: Register, Path: "/register", Meta: Meta{GuestOnly: true}},
	{Name: Cart, Path: "/cart", Meta: Meta{AuthRequired: true}},
	{Name: Orders, Path: "/orders", Meta: Meta{AuthRequired: true}},
}

// Decision is the outcome of Check. Redirect names the target route when
// Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

// Check is a pure function of the route metadata and the auth state.
func Check(meta Meta, authenticated bool) Decision {
	switch {
	case meta.AuthRequired && !authenticated:
		return Decision{Redirect: Login}
	case meta.GuestOnly && authenticated:
		return Decision{Redirect: Home}
	default:
		return Decision{Allow: true}
	}
}

// Lookup finds a route by name.
func Lookup(name string) (Route, bool) {
	for _, r := range Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// PathOf returns the path of the named route, or "/" when it is unknown.
func PathOf(name string) string {
	if r, ok := Lookup(name); ok {
		return r.Path
	}
	return "/"
}

// Middleware guards route. Rejected requests get 303 See Other pointing at the
// redirect route.
func Middleware(route Route, authenticated func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Check(route.Meta, authenticated())
			if !d.Allow {
				http.Redirect(w, r, PathOf(d.Redirect), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
