package routes

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"
)

// MethodAny is reported for routes registered without a method matcher
const MethodAny = "ANY"

// Route is one (name, method) pair exposed by the router
type Route struct {
	Name   string `json:"name"`
	URI    string `json:"uri"`
	Method string `json:"method"`
}

// SelectOption is a route offered in a form dropdown
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ReservedPrefixes are framework and tooling route namespaces that are never governed
var ReservedPrefixes = []string{
	"sanctum.",
	"ignition.",
	"livewire.",
	"generated::",
	"debugbar.",
	"telescope.",
	"horizon.",
	"pulse.",
	"settings.",
}

// excludedNames are the stock authentication flow routes
var excludedNames = map[string]struct{}{
	"login":               {},
	"logout":              {},
	"register":            {},
	"password.edit":       {},
	"password.store":      {},
	"password.request":    {},
	"password.reset":      {},
	"password.email":      {},
	"password.update":     {},
	"password.confirm":    {},
	"verification.notice": {},
	"verification.verify": {},
	"verification.send":   {},
	"profile.edit":        {},
	"profile.update":      {},
	"profile.destroy":     {},
	"storage.local":       {},
}

// Lister enumerates governable routes
type Lister interface {
	List(prefixes []string) ([]Route, error)
}

// Catalog enumerates the named routes of a mux router
type Catalog struct {
	router *mux.Router
}

// NewCatalog creates a catalog over router. The router must be fully built
// before List is called.
func NewCatalog(router *mux.Router) *Catalog {
	return &Catalog{router: router}
}

// IsExcluded reports whether a route name is never governable
func IsExcluded(name string) bool {
	if name == "" {
		return true
	}
	if _, ok := excludedNames[name]; ok {
		return true
	}
	return HasAnyPrefix(name, ReservedPrefixes)
}

// HasAnyPrefix reports whether name starts with one of prefixes
func HasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

type walked struct {
	name    string
	uri     string
	methods []string
}

func (c *Catalog) walk() ([]walked, error) {
	var out []walked
	err := c.router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		name := route.GetName()
		if name == "" {
			return nil
		}
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil || len(methods) == 0 {
			methods = []string{MethodAny}
		}
		out = append(out, walked{name: name, uri: "/" + strings.TrimLeft(tpl, "/"), methods: methods})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk routes: %w", err)
	}
	return out, nil
}

// List returns one entry per governable (name, method) pair, HEAD excluded,
// sorted by name. Routes sharing a name keep their registration order. A
// non-empty prefixes keeps only names starting with one of them.
func (c *Catalog) List(prefixes []string) ([]Route, error) {
	all, err := c.walk()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var result []Route
	for _, w := range all {
		if IsExcluded(w.name) {
			continue
		}
		if len(prefixes) > 0 && !HasAnyPrefix(w.name, prefixes) {
			continue
		}
		for _, m := range w.methods {
			m = strings.ToUpper(m)
			if m == http.MethodHead {
				continue
			}
			key := w.name + "-" + m
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result = append(result, Route{Name: w.name, URI: w.uri, Method: m})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// FirstPerName keeps the first entry of each route name
func FirstPerName(list []Route) []Route {
	seen := make(map[string]struct{}, len(list))
	out := make([]Route, 0, len(list))
	for _, r := range list {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		out = append(out, r)
	}
	return out
}

// RoutesForSelect lists GET routes suitable as menu targets, labelled "name (uri)"
func (c *Catalog) RoutesForSelect() ([]SelectOption, error) {
	all, err := c.walk()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var options []SelectOption
	for _, w := range all {
		if strings.HasPrefix(w.name, "api.") || HasAnyPrefix(w.name, ReservedPrefixes) {
			continue
		}
		if !hasMethod(w.methods, http.MethodGet) {
			continue
		}
		if _, dup := seen[w.name]; dup {
			continue
		}
		seen[w.name] = struct{}{}
		options = append(options, SelectOption{
			Value: w.name,
			Label: fmt.Sprintf("%s (%s)", w.name, w.uri),
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Value < options[j].Value
	})
	return options, nil
}

// Exists reports whether a named route is registered
func (c *Catalog) Exists(name string) bool {
	return c.router.Get(name) != nil
}

func hasMethod(methods []string, want string) bool {
	for _, m := range methods {
		if strings.EqualFold(m, want) || m == MethodAny {
			return true
		}
	}
	return false
}
