package router

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Route is a fully qualified route handed to the routing kernel
type Route struct {
	Name    string
	Path    string
	Methods []string
	Handler string
}

// DuplicateRouteError is returned when a route name is registered twice
type DuplicateRouteError struct {
	Name string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("route %q is already registered", e.Name)
}

// UnknownRouteError is returned when looking up an unregistered route name
type UnknownRouteError struct {
	Name string
}

func (e *UnknownRouteError) Error() string {
	return fmt.Sprintf("route %q is not registered", e.Name)
}

// Router is the route registration sink. It keeps routes in registration
// order and indexes them by name.
type Router struct {
	routes []Route
	byName map[string]int
}

// New creates an empty router
func New() *Router {
	return &Router{byName: make(map[string]int)}
}

// Add registers route. Routes without methods default to GET.
func (r *Router) Add(route Route) error {
	if _, exists := r.byName[route.Name]; exists {
		return &DuplicateRouteError{Name: route.Name}
	}
	methods := make([]string, 0, len(route.Methods))
	for _, m := range route.Methods {
		methods = append(methods, strings.ToUpper(m))
	}
	if len(methods) == 0 {
		methods = []string{"GET"}
	}
	route.Methods = methods
	r.byName[route.Name] = len(r.routes)
	r.routes = append(r.routes, route)
	return nil
}

// Routes returns the registered routes in registration order
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Lookup returns the route registered under name
func (r *Router) Lookup(name string) (Route, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Route{}, false
	}
	return r.routes[idx], true
}

var placeholder = regexp.MustCompile(`\{([^}:]+)(?::[^}]*)?\}`)

// URL builds the path of a named route, substituting {param} placeholders.
// Missing parameters are an error; extra ones are ignored.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	route, ok := r.Lookup(name)
	if !ok {
		return "", &UnknownRouteError{Name: name}
	}

	var missing []string
	path := placeholder.ReplaceAllStringFunc(route.Path, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		value, ok := params[key]
		if !ok {
			missing = append(missing, key)
			return match
		}
		return url.PathEscape(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("route %q is missing parameters: %s", name, strings.Join(missing, ", "))
	}
	return path, nil
}
