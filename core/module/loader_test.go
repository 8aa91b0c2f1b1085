package module

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"junction/core/container"
	"junction/core/inject"
	"junction/core/logger"
	"junction/core/resolver"
	"junction/core/router"
	"junction/core/settings"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	services *container.Container
	store    *settings.Store
	routes   *router.Router
	loader   *Loader
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		services: container.New(),
		store:    settings.NewStore(nil),
		routes:   router.New(),
	}
}

func (a *fakeApp) Service(id string) (any, error)                  { return a.services.Service(id) }
func (a *fakeApp) RegisterService(id string, p container.Provider) { a.services.Register(id, p) }
func (a *fakeApp) RegisterRoute(r router.Route) error              { return a.routes.Add(r) }
func (a *fakeApp) Settings() *settings.Store                       { return a.store }
func (a *fakeApp) Logger() logger.Logger                           { return logger.NewNop() }
func (a *fakeApp) LoadModule(id string) error                      { return a.loader.Load(a, id) }

type countingModule struct {
	invokes  *int
	greeter  string `inject:""`
	onInvoke func(app Application) error
}

func (m *countingModule) SetGreeter(g string) { m.greeter = g }

func (m *countingModule) Invoke(app Application) error {
	*m.invokes++
	if m.onInvoke != nil {
		return m.onInvoke(app)
	}
	return nil
}

type plainModule struct{}

type pathModule struct{}

func (pathModule) ModulePath() string { return "/srv/path-module" }

type staticProvider map[string]Constructor

func (p staticProvider) Modules() map[string]Constructor { return p }

func setup(t *testing.T, fs afero.Fs, catalog *Catalog, dirs ...string) (*fakeApp, *Loader) {
	t.Helper()
	stack := resolver.NewStack(resolver.NewSourceResolver(catalog))
	for _, d := range dirs {
		stack.Prepend(resolver.NewDirectoryResolver(fs, d))
	}

	app := newFakeApp()
	app.services.RegisterValue("greeter", "hello")
	loader := NewLoader(stack, catalog,
		WithFs(fs),
		WithPreparer(inject.New(app.services)),
	)
	app.loader = loader
	return app, loader
}

func TestLoadInvokesOnce(t *testing.T) {
	invokes := 0
	var built *countingModule
	catalog := NewCatalog(staticProvider{
		"app.counter": func() any {
			built = &countingModule{invokes: &invokes}
			return built
		},
	})
	app, loader := setup(t, afero.NewMemMapFs(), catalog)

	require.NoError(t, loader.Load(app, "app.counter"))
	require.NoError(t, loader.Load(app, "app.counter"))

	assert.Equal(t, 1, invokes)
	assert.Equal(t, "hello", built.greeter)

	rec, ok := loader.Record("app.counter")
	require.True(t, ok)
	assert.True(t, rec.Invoked)
	assert.Equal(t, Invoking, rec.Kind)
	_, thisFile, _, _ := runtime.Caller(0)
	assert.Equal(t, filepath.Dir(thisFile), rec.Path)
}

func TestLoadNotFound(t *testing.T) {
	app, loader := setup(t, afero.NewMemMapFs(), NewCatalog())

	err := loader.Load(app, "vendor.missing")
	var notFound *resolver.ModuleNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "vendor.missing", notFound.Identifier)

	_, recorded := loader.Record("vendor.missing")
	assert.False(t, recorded)
}

func TestLoadRecordsNonInvokableModules(t *testing.T) {
	catalog := NewCatalog(staticProvider{
		"app.plain": func() any { return &plainModule{} },
		"app.path":  func() any { return pathModule{} },
	})
	app, loader := setup(t, afero.NewMemMapFs(), catalog)

	require.NoError(t, loader.LoadAll(app, []string{"app.plain", "app.path", "app.plain"}))

	records := loader.Records()
	require.Len(t, records, 2)
	assert.Equal(t, Plain, records[0].Kind)
	assert.Equal(t, PathProviding, records[1].Kind)
	assert.False(t, records[0].Invoked)
}

func TestLoadInjectionFailureIsFatal(t *testing.T) {
	invokes := 0
	catalog := NewCatalog(staticProvider{
		"app.counter": func() any { return &countingModule{invokes: &invokes} },
	})
	app, loader := setup(t, afero.NewMemMapFs(), catalog)
	app.services = container.New()
	loader.preparer = inject.New(app.services)

	err := loader.Load(app, "app.counter")
	var unknown *container.UnknownServiceError
	require.ErrorAs(t, err, &unknown)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "app.counter", loadErr.Identifier)
	assert.Equal(t, 0, invokes)
}

func TestReentrantLoadDoesNotReinvoke(t *testing.T) {
	invokes := 0
	catalog := NewCatalog(staticProvider{
		"app.self": func() any {
			return &countingModule{invokes: &invokes, onInvoke: func(app Application) error {
				return app.LoadModule("app.self")
			}}
		},
	})
	app, loader := setup(t, afero.NewMemMapFs(), catalog)

	require.NoError(t, loader.Load(app, "app.self"))
	assert.Equal(t, 1, invokes)
}

func TestInvokeErrorPropagates(t *testing.T) {
	invokes := 0
	catalog := NewCatalog(staticProvider{
		"app.broken": func() any {
			return &countingModule{invokes: &invokes, onInvoke: func(Application) error {
				return errors.New("no database")
			}}
		},
	})
	app, loader := setup(t, afero.NewMemMapFs(), catalog)

	err := loader.Load(app, "app.broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database")
	assert.Empty(t, loader.Records())
}

func TestManifestDependenciesAndSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/modules/blog/comments", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/modules/blog/module.yml", []byte(`
modules:
  - blog.comments
routes:
  blog:
    route: /blog
title: from module
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/modules/blog/comments/module.yml", []byte(`
modules: [blog]
routes:
  blog.comments:
    route: /comments
`), 0o644))

	app, loader := setup(t, fs, NewCatalog(), "/modules")
	app.store.Set("title", "from app")

	require.NoError(t, loader.Load(app, "blog"))

	records := loader.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "blog.comments", records[0].Identifier)
	assert.Equal(t, "blog", records[1].Identifier)
	assert.Equal(t, []string{"blog.comments"}, records[1].Dependencies)

	assert.Equal(t, "from app", app.store.String("title"))
	assert.Equal(t, []string{"blog.comments", "blog"}, app.store.Map("routes").Keys())
	_, leaked := app.store.Get("modules")
	assert.False(t, leaked)
}

func TestManifestRejectsInvalidModules(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/modules/bad", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/modules/bad/module.yml", []byte("modules: ['']\n"), 0o644))

	app, loader := setup(t, fs, NewCatalog(), "/modules")
	err := loader.Load(app, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manifest")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, Plain, Describe(&plainModule{}))
	assert.Equal(t, PathProviding, Describe(pathModule{}))
	assert.Equal(t, Invoking, Describe(&countingModule{}))
	assert.Equal(t, "path-provider+invokable", PathProvidingInvoking.String())
}

func TestManifestFromModulePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/srv/path-module", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/srv/path-module/module.yml", []byte("title: from module path\n"), 0o644))

	catalog := NewCatalog(staticProvider{
		"app.path": func() any { return pathModule{} },
	})
	app, loader := setup(t, fs, catalog)

	require.NoError(t, loader.Load(app, "app.path"))

	rec, ok := loader.Record("app.path")
	require.True(t, ok)
	assert.Equal(t, "/srv/path-module", rec.Root)
	assert.NotEqual(t, rec.Root, rec.Path)
	assert.Equal(t, "from module path", app.store.String("title"))
}

func TestResolvedManifestWinsOverModulePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	for dir, title := range map[string]string{
		"/srv/path-module":    "from module path",
		"/overrides/app/path": "from override",
	} {
		require.NoError(t, fs.MkdirAll(dir, 0o755))
		require.NoError(t, afero.WriteFile(fs, dir+"/module.yml", []byte("title: "+title+"\n"), 0o644))
	}

	catalog := NewCatalog(staticProvider{
		"app.path": func() any { return pathModule{} },
	})
	app, loader := setup(t, fs, catalog, "/overrides")

	require.NoError(t, loader.Load(app, "app.path"))

	rec, _ := loader.Record("app.path")
	assert.Equal(t, "/overrides/app/path", rec.Root)
	assert.Equal(t, "from override", app.store.String("title"))
}

func TestCatalogIdentifiersAreSorted(t *testing.T) {
	catalog := NewCatalog(staticProvider{
		"core.routes": func() any { return &plainModule{} },
		"app.path":    func() any { return pathModule{} },
	})
	assert.Equal(t, []string{"app.path", "core.routes"}, catalog.Identifiers())
}
