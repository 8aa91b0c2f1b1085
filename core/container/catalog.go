package container

import (
	"fmt"
	"sort"
)

// Services is the read side of the registry handed to factories
type Services interface {
	Service(id string) (any, error)
}

// Factory is implemented by catalog entries that build the real service
// instead of being the service themselves.
type Factory interface {
	Create(services Services) (any, error)
}

// UnknownImplementationError is returned for implementation references
// missing from the catalog
type UnknownImplementationError struct {
	Reference string
}

func (e *UnknownImplementationError) Error() string {
	return fmt.Sprintf("unknown service implementation %q", e.Reference)
}

// Catalog maps implementation references used in the services settings to
// constructors compiled into the binary
type Catalog struct {
	constructors map[string]func() any
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{constructors: make(map[string]func() any)}
}

// Add registers a constructor under ref
func (c *Catalog) Add(ref string, constructor func() any) {
	c.constructors[ref] = constructor
}

// New constructs the implementation registered under ref
func (c *Catalog) New(ref string) (any, error) {
	constructor, ok := c.constructors[ref]
	if !ok {
		return nil, &UnknownImplementationError{Reference: ref}
	}
	return constructor(), nil
}

// References returns the registered references sorted by name
func (c *Catalog) References() []string {
	refs := make([]string, 0, len(c.constructors))
	for ref := range c.constructors {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
