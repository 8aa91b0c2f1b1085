package container

import (
	"fmt"

	"github.com/samber/do/v2"
)

// UnknownServiceError is returned when a service identifier has not been registered
type UnknownServiceError struct {
	Identifier string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Identifier)
}

// Provider builds a service the first time it is requested
type Provider func(c *Container) (any, error)

// Container is the keyed service registry. Services are lazy and shared:
// a provider runs on first lookup and its result is reused afterwards.
type Container struct {
	scope   *do.RootScope
	invoker do.Injector
	index   *index
}

type index struct {
	names map[string]struct{}
	order []string
}

// New creates an empty container
func New() *Container {
	scope := do.New()
	return &Container{
		scope:   scope,
		invoker: scope,
		index:   &index{names: make(map[string]struct{})},
	}
}

// Register binds id to provider. Registering an existing id replaces it.
// Providers receive a view of the container that resolves through the
// injector do hands them, so dependency cycles fail instead of blocking.
func (c *Container) Register(id string, provider Provider) {
	wrapped := func(inj do.Injector) (any, error) {
		return provider(c.view(inj))
	}

	if _, exists := c.index.names[id]; exists {
		do.OverrideNamed[any](c.scope, id, wrapped)
		return
	}
	do.ProvideNamed[any](c.scope, id, wrapped)
	c.index.names[id] = struct{}{}
	c.index.order = append(c.index.order, id)
}

func (c *Container) view(inj do.Injector) *Container {
	return &Container{scope: c.scope, invoker: inj, index: c.index}
}

// RegisterValue binds id to an already built value
func (c *Container) RegisterValue(id string, value any) {
	c.Register(id, func(*Container) (any, error) {
		return value, nil
	})
}

// Has reports whether id is registered
func (c *Container) Has(id string) bool {
	_, ok := c.index.names[id]
	return ok
}

// Service returns the service bound to id, building it on first use
func (c *Container) Service(id string) (any, error) {
	if !c.Has(id) {
		return nil, &UnknownServiceError{Identifier: id}
	}
	svc, err := do.InvokeNamed[any](c.invoker, id)
	if err != nil {
		return nil, fmt.Errorf("failed to build service %q: %w", id, err)
	}
	return svc, nil
}

// Names returns registered identifiers in registration order
func (c *Container) Names() []string {
	names := make([]string, len(c.index.order))
	copy(names, c.index.order)
	return names
}
