package module

import (
	"reflect"
	"runtime"
	"sort"
)

// Constructor builds a module entry point. Entry points need no arguments;
// their dependencies are injected after construction.
type Constructor func() any

// Provider supplies a set of compiled in modules keyed by identifier
type Provider interface {
	Modules() map[string]Constructor
}

type catalogEntry struct {
	construct Constructor
	source    string
}

// Catalog holds the module entry points compiled into the binary
type Catalog struct {
	entries map[string]catalogEntry
}

// NewCatalog creates a catalog populated from providers
func NewCatalog(providers ...Provider) *Catalog {
	c := &Catalog{entries: make(map[string]catalogEntry)}
	for _, p := range providers {
		c.AddProvider(p)
	}
	return c
}

// AddProvider registers every module of p
func (c *Catalog) AddProvider(p Provider) {
	for id, construct := range p.Modules() {
		c.Add(id, construct)
	}
}

// Add registers construct under id, remembering the file that defines it
func (c *Catalog) Add(id string, construct Constructor) {
	c.entries[id] = catalogEntry{
		construct: construct,
		source:    sourceFile(construct),
	}
}

// Has reports whether id is compiled in
func (c *Catalog) Has(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// Construct builds a fresh entry point for id
func (c *Catalog) Construct(id string) (any, bool) {
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.construct(), true
}

// Source returns the file defining the constructor of id
func (c *Catalog) Source(id string) (string, bool) {
	e, ok := c.entries[id]
	if !ok {
		return "", false
	}
	return e.source, e.source != ""
}

// Identifiers returns every registered identifier, sorted
func (c *Catalog) Identifiers() []string {
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sourceFile(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	file, _ := f.FileLine(f.Entry())
	return file
}
