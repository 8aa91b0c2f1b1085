package application

import (
	"errors"
	"testing"
	"time"

	"junction/core/app/routes"
	"junction/core/config"
	"junction/core/container"
	"junction/core/logger"
	"junction/core/module"
	"junction/core/resolver"
	"junction/core/settings"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type greetingFactory struct{}

func (greetingFactory) Create(container.Services) (any, error) {
	return "hello", nil
}

type clock struct {
	logger logger.Logger `inject:""`
}

func (c *clock) SetLogger(l logger.Logger) { c.logger = l }

type loop struct {
	self any `inject:"loop"`
}

func (l *loop) SetSelf(v any) { l.self = v }

type demoModule struct {
	greeting string `inject:""`
	invoked  bool
}

func (m *demoModule) SetGreeting(g string) { m.greeting = g }

func (m *demoModule) Invoke(app module.Application) error {
	m.invoked = true
	return nil
}

var demo = &demoModule{}

func testCatalogs() (*module.Catalog, *container.Catalog) {
	modules := module.NewCatalog()
	modules.Add(routes.Identifier, routes.New)
	modules.Add("demo", func() any { return demo })

	services := container.NewCatalog()
	services.Add("greeting-factory", func() any { return greetingFactory{} })
	services.Add("clock", func() any { return &clock{} })
	services.Add("loop", func() any { return &loop{} })
	return modules, services
}

func testConfig() *config.Config {
	return &config.Config{Env: "test", LogLevel: "debug"}
}

func newTestApp(t *testing.T, fs afero.Fs, cfg *config.Config, user *settings.Map, log logger.Logger) *App {
	t.Helper()
	modules, services := testCatalogs()
	a, err := New(cfg, log,
		WithFs(fs),
		WithModules(modules),
		WithImplementations(services),
		WithSettings(user),
	)
	require.NoError(t, err)
	return a
}

func TestNewRegistersCoreServices(t *testing.T) {
	a := newTestApp(t, afero.NewMemMapFs(), testConfig(), nil, logger.NewNop())

	assert.ElementsMatch(t,
		[]string{"settings", "router", "logger", "injector", "module-loader", "config"},
		a.Services())

	svc, err := a.Service("settings")
	require.NoError(t, err)
	assert.Same(t, a.Settings(), svc)
}

func TestSettingsFilesMergeInOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config/b.yml", []byte("name: second\nlist: [b]\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "config/a.yml", []byte("name: first\nlist: [a]\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "config/notes.txt", []byte("ignored"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "local.json", []byte(`{"name": "local"}`), 0o644))

	cfg := testConfig()
	cfg.SettingsFile = "local.json"
	a := newTestApp(t, fs, cfg, nil, logger.NewNop())

	assert.Equal(t, "local", a.Settings().String("name"))
	assert.Equal(t, []string{"a", "b"}, a.Settings().Strings("list"))
}

func TestUnreadableSettingsFileIsReported(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := testConfig()
	cfg.SettingsFile = "missing.yml"

	newTestApp(t, afero.NewMemMapFs(), cfg, nil, logger.New(zap.New(core)))

	entries := logs.FilterMessage("Invalid settings path").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "missing.yml", entries[0].ContextMap()["path"])
}

func TestBootLoadsModulesInOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("modules/blog", 0o755))
	require.NoError(t, afero.WriteFile(fs, "modules/blog/module.yml", []byte(`
routes:
  blog:
    route: /blog
  blog.post:
    route: /{slug}
`), 0o644))

	user := settings.MapOf(
		"modules", []any{"blog", routes.Identifier},
		"routes", settings.MapOf("home", settings.MapOf("route", "/")),
	)
	a := newTestApp(t, fs, testConfig(), user, logger.NewNop())
	require.NoError(t, a.Boot())

	var ids []string
	for _, rec := range a.Modules() {
		ids = append(ids, rec.Identifier)
	}
	assert.Equal(t, []string{"blog", routes.Identifier}, ids)

	paths := map[string]string{}
	for _, r := range a.Routes() {
		paths[r.Name] = r.Path
	}
	assert.Equal(t, map[string]string{
		"blog":      "/blog",
		"blog.post": "/blog/{slug}",
		"home":      "/",
	}, paths)
}

func TestBootRegistersServicesBeforeModules(t *testing.T) {
	user := settings.MapOf(
		"modules", []any{"demo"},
		"services", settings.MapOf("greeting", "greeting-factory"),
	)
	a := newTestApp(t, afero.NewMemMapFs(), testConfig(), user, logger.NewNop())
	require.NoError(t, a.Boot())

	assert.True(t, demo.invoked)
	assert.Equal(t, "hello", demo.greeting)
}

func TestNonFactoryServicesArePrepared(t *testing.T) {
	log := logger.NewNop()
	user := settings.MapOf("services", settings.MapOf("clock", "clock"))
	a := newTestApp(t, afero.NewMemMapFs(), testConfig(), user, log)
	require.NoError(t, a.Boot())

	svc, err := a.Service("clock")
	require.NoError(t, err)
	require.IsType(t, &clock{}, svc)
	assert.Same(t, log, svc.(*clock).logger)
}

func TestBootRejectsInvalidServiceReference(t *testing.T) {
	user := settings.MapOf("services", settings.MapOf("broken", 5))
	a := newTestApp(t, afero.NewMemMapFs(), testConfig(), user, logger.NewNop())

	err := a.Boot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestUnknownImplementationSurfacesOnResolve(t *testing.T) {
	user := settings.MapOf("services", settings.MapOf("mailer", "smtp"))
	a := newTestApp(t, afero.NewMemMapFs(), testConfig(), user, logger.NewNop())
	require.NoError(t, a.Boot())

	_, err := a.Service("mailer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown service implementation "smtp"`)
}

func TestBootFailsOnMissingModule(t *testing.T) {
	user := settings.MapOf("modules", []any{"nowhere"})
	a := newTestApp(t, afero.NewMemMapFs(), testConfig(), user, logger.NewNop())

	err := a.Boot()
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrNotFound))
}

func TestConfiguredModulePathsTakePriority(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, dir := range []string{"modules/shared", "overrides/shared"} {
		require.NoError(t, fs.MkdirAll(dir, 0o755))
	}
	require.NoError(t, afero.WriteFile(fs, "overrides/shared/module.yml", []byte("marker: override\n"), 0o644))

	cfg := testConfig()
	cfg.ModulePaths = []string{"overrides"}
	user := settings.MapOf("modules", []any{"shared"})
	a := newTestApp(t, fs, cfg, user, logger.NewNop())
	require.NoError(t, a.Boot())

	assert.Equal(t, 3, a.resolvers.Len())
	assert.Equal(t, "override", a.Settings().String("marker"))
	require.Len(t, a.Modules(), 1)
	assert.Equal(t, "overrides/shared", a.Modules()[0].Path)
}

func TestSelfInjectingServiceFails(t *testing.T) {
	user := settings.MapOf("services", settings.MapOf("loop", "loop"))
	a := newTestApp(t, afero.NewMemMapFs(), testConfig(), user, logger.NewNop())
	require.NoError(t, a.Boot())

	done := make(chan error, 1)
	go func() {
		_, err := a.Service("loop")
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circular dependency")
	case <-time.After(3 * time.Second):
		t.Fatal("resolving a self injecting service did not return")
	}
}

func TestSkippedModulePathIsReported(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := testConfig()
	cfg.ModulePaths = []string{"vendor/modules"}

	a := newTestApp(t, afero.NewMemMapFs(), cfg, nil, logger.New(zap.New(core)))

	var skipped []string
	for _, entry := range logs.FilterMessage("Skipping unreadable module path").All() {
		skipped = append(skipped, entry.ContextMap()["path"].(string))
	}
	assert.Equal(t, []string{"modules", "vendor/modules"}, skipped)
	assert.Equal(t, 1, a.resolvers.Len())
}

func TestDefaultNameCanBeOverridden(t *testing.T) {
	a := newTestApp(t, afero.NewMemMapFs(), testConfig(), nil, logger.NewNop())
	assert.Equal(t, "Junction", a.Settings().String("name"))

	a = newTestApp(t, afero.NewMemMapFs(), testConfig(), settings.MapOf("name", "Backoffice"), logger.NewNop())
	assert.Equal(t, "Backoffice", a.Settings().String("name"))
}
