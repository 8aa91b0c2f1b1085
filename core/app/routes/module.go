package routes

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"junction/core/logger"
	"junction/core/module"
	"junction/core/router"
	"junction/core/settings"
)

// Identifier is the name the route registrar is loaded under
const Identifier = "core.routes"

// Module registers the routes declared under the routes settings key
type Module struct {
	logger logger.Logger `inject:""`
}

// New creates the route registrar entry point
func New() any {
	return &Module{}
}

func (m *Module) SetLogger(l logger.Logger) {
	m.logger = l
}

// ModulePath returns the module root
func (m *Module) ModulePath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// Invoke builds the grouped routes and hands them to the application in order
func (m *Module) Invoke(app module.Application) error {
	built := Build(app.Settings().Map("routes"))
	for _, route := range built {
		if err := app.RegisterRoute(route); err != nil {
			return fmt.Errorf("failed to register route %q: %w", route.Name, err)
		}
		if m.logger != nil {
			m.logger.Debug("Route registered",
				logger.String("name", route.Name),
				logger.String("path", route.Path))
		}
	}
	if m.logger != nil {
		m.logger.Info("Routes registered", logger.Int("count", len(built)))
	}
	return nil
}

// Build turns the routes settings into fully qualified routes. A route whose
// name starts with the name of an already built route is prefixed with that
// route's path. When several built names match, the one built last wins,
// so the result depends on declaration order rather than match length.
// Entries that are not mappings or have no string route are skipped.
func Build(defs *settings.Map) []router.Route {
	var built []router.Route
	defs.Range(func(name string, value any) bool {
		def, ok := value.(*settings.Map)
		if !ok {
			return true
		}
		pattern, ok := routePattern(def)
		if !ok {
			return true
		}

		var group string
		for _, b := range built {
			if strings.HasPrefix(name, b.Name) {
				group = b.Path
			}
		}
		if group != "" {
			pattern = group + pattern
		}

		built = append(built, router.Route{
			Name:    name,
			Path:    pattern,
			Methods: methods(def),
			Handler: stringValue(def, "handler"),
		})
		return true
	})
	return built
}

func routePattern(def *settings.Map) (string, bool) {
	raw, _ := def.Get("route")
	s, ok := raw.(string)
	return s, ok
}

func methods(def *settings.Map) []string {
	raw, ok := def.Get("methods")
	if !ok {
		return nil
	}
	switch t := raw.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func stringValue(def *settings.Map, key string) string {
	raw, _ := def.Get(key)
	s, _ := raw.(string)
	return s
}

var _ module.Invokable = (*Module)(nil)
var _ module.PathProvider = (*Module)(nil)
