package module

import (
	"fmt"
	"reflect"

	"junction/core/logger"
	"junction/core/resolver"
	"junction/core/settings"

	"github.com/spf13/afero"
)

// LoadError wraps any failure while loading a module with its identifier
type LoadError struct {
	Identifier string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading module %q: %v", e.Identifier, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Preparer completes an entry point after construction
type Preparer interface {
	Prepare(instance any) error
}

// Record tracks one module for the life of the loader
type Record struct {
	Identifier   string
	Path         string
	Root         string // directory module local files were read from
	Entry        any
	Kind         Kind
	Dependencies []string
	Invoked      bool
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithPreparer sets the dependency injector run on entry points
func WithPreparer(p Preparer) LoaderOption {
	return func(l *Loader) {
		l.preparer = p
	}
}

// WithFs sets the filesystem manifests are read from
func WithFs(fs afero.Fs) LoaderOption {
	return func(l *Loader) {
		l.fs = fs
	}
}

// WithParsers sets the parser stack used for manifests
func WithParsers(parsers *settings.ParserStack) LoaderOption {
	return func(l *Loader) {
		l.parsers = parsers
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = log
	}
}

// Loader resolves, constructs, injects and invokes modules, each at most once
type Loader struct {
	resolver resolver.Resolver
	catalog  *Catalog
	preparer Preparer
	fs       afero.Fs
	parsers  *settings.ParserStack
	logger   logger.Logger

	records map[string]*Record
	order   []string
}

// NewLoader creates a loader resolving identifiers through res and
// constructing entry points from catalog
func NewLoader(res resolver.Resolver, catalog *Catalog, opts ...LoaderOption) *Loader {
	l := &Loader{
		resolver: res,
		catalog:  catalog,
		fs:       afero.NewOsFs(),
		parsers:  settings.DefaultParserStack(),
		logger:   logger.NewNop(),
		records:  make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load brings module id into the application. A module that already has a
// record, finished or still loading, is not touched again, which makes
// repeated, cyclic and re-entrant loads no-ops.
func (l *Loader) Load(app Application, id string) (err error) {
	if _, exists := l.records[id]; exists {
		l.logger.Debug("Module already loaded", logger.String("module", id))
		return nil
	}

	path, err := l.resolver.Resolve(id)
	if err != nil {
		return &LoadError{Identifier: id, Err: err}
	}

	rec := &Record{Identifier: id, Path: path}
	l.records[id] = rec
	defer func() {
		if err != nil {
			l.forget(id)
		}
	}()

	log := l.logger.With(logger.String("module", id))
	log.Debug("Module resolved", logger.String("path", path))

	entry, hasEntry := l.catalog.Construct(id)
	manifest, err := l.manifest(rec, entry)
	if err != nil {
		return &LoadError{Identifier: id, Err: err}
	}
	if manifest != nil {
		app.Settings().MergeDefaults(manifest.Settings)
		rec.Dependencies = manifest.Modules
		for _, dep := range manifest.Modules {
			if err := l.Load(app, dep); err != nil {
				return &LoadError{Identifier: id, Err: err}
			}
		}
	}

	if !hasEntry {
		log.Debug("Module has no entry point")
		l.order = append(l.order, id)
		return nil
	}
	rec.Entry = entry
	rec.Kind = Describe(entry)

	if l.preparer != nil && isPointer(entry) {
		if err := l.preparer.Prepare(entry); err != nil {
			return &LoadError{Identifier: id, Err: err}
		}
	}

	if inv, ok := entry.(Invokable); ok {
		if err := inv.Invoke(app); err != nil {
			return &LoadError{Identifier: id, Err: err}
		}
		rec.Invoked = true
	}

	l.order = append(l.order, id)
	log.Debug("Module loaded", logger.String("kind", rec.Kind.String()), logger.Bool("invoked", rec.Invoked))
	return nil
}

// LoadAll loads ids in order and stops at the first failure
func (l *Loader) LoadAll(app Application, ids []string) error {
	for _, id := range ids {
		if err := l.Load(app, id); err != nil {
			return err
		}
	}
	return nil
}

// Record returns the record of id
func (l *Loader) Record(id string) (*Record, bool) {
	rec, ok := l.records[id]
	return rec, ok
}

// Records returns completed records in the order loading finished,
// dependencies before their dependents
func (l *Loader) Records() []*Record {
	out := make([]*Record, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.records[id])
	}
	return out
}

func (l *Loader) forget(id string) {
	delete(l.records, id)
	for i, o := range l.order {
		if o == id {
			l.order = append(l.order[:i:i], l.order[i+1:]...)
			return
		}
	}
}

// manifest reads the module manifest from the resolved path. Entries that
// provide their own ModulePath are also looked up there when the resolved
// path has none, so a directory override still takes priority.
func (l *Loader) manifest(rec *Record, entry any) (*Manifest, error) {
	rec.Root = rec.Path
	m, err := ReadManifest(l.fs, l.parsers, rec.Path)
	if err != nil || m != nil {
		return m, err
	}

	p, ok := entry.(PathProvider)
	if !ok {
		return nil, nil
	}
	root := p.ModulePath()
	if root == "" || root == rec.Path {
		return nil, nil
	}
	rec.Root = root
	return ReadManifest(l.fs, l.parsers, root)
}

func isPointer(v any) bool {
	return reflect.ValueOf(v).Kind() == reflect.Pointer
}
