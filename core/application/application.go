package application

import (
	_ "embed"
	"fmt"
	"reflect"

	"junction/core/config"
	"junction/core/container"
	"junction/core/inject"
	"junction/core/logger"
	"junction/core/module"
	"junction/core/resolver"
	"junction/core/router"
	"junction/core/settings"

	"github.com/spf13/afero"
)

//go:embed defaults.yml
var defaultSettings []byte

// Option configures an App
type Option func(*App)

// WithFs sets the filesystem used for settings files, module paths and manifests
func WithFs(fs afero.Fs) Option {
	return func(a *App) {
		a.fs = fs
	}
}

// WithModules sets the catalog of compiled in modules
func WithModules(catalog *module.Catalog) Option {
	return func(a *App) {
		a.catalog = catalog
	}
}

// WithImplementations sets the catalog the services settings refer to
func WithImplementations(catalog *container.Catalog) Option {
	return func(a *App) {
		a.implementations = catalog
	}
}

// WithSettings merges user settings over the built in defaults
func WithSettings(m *settings.Map) Option {
	return func(a *App) {
		a.userSettings = m
	}
}

// App is the application context shared with every module
type App struct {
	config *config.Config
	logger logger.Logger
	fs     afero.Fs

	parsers         *settings.ParserStack
	store           *settings.Store
	userSettings    *settings.Map
	services        *container.Container
	implementations *container.Catalog
	injector        *inject.Injector
	resolvers       *resolver.Stack
	catalog         *module.Catalog
	loader          *module.Loader
	router          *router.Router
}

// New assembles the application: settings, service registry, injector,
// resolver stack and module loader. Nothing is loaded until Boot.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	a := &App{
		config:          cfg,
		logger:          log,
		fs:              afero.NewOsFs(),
		parsers:         settings.DefaultParserStack(),
		services:        container.New(),
		implementations: container.NewCatalog(),
		catalog:         module.NewCatalog(),
		router:          router.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.initSettings(); err != nil {
		return nil, err
	}

	a.injector = inject.New(a.services)
	a.initResolvers()
	a.loader = module.NewLoader(a.resolvers, a.catalog,
		module.WithPreparer(a.injector),
		module.WithFs(a.fs),
		module.WithParsers(a.parsers),
		module.WithLogger(a.logger),
	)
	a.registerCoreServices()

	return a, nil
}

// initSettings loads the defaults, the user settings and every settings
// file the finder reports
func (a *App) initSettings() error {
	defaults, err := a.parsers.Parse("defaults.yml", defaultSettings)
	if err != nil {
		return fmt.Errorf("failed to parse default settings: %w", err)
	}
	a.store = settings.NewStore(defaults)
	a.store.Merge(a.userSettings)

	files := a.store.Strings("config", "files")
	if a.config != nil && a.config.SettingsFile != "" {
		files = append(files, a.config.SettingsFile)
	}
	finder := settings.NewFinder(a.fs, a.parsers, a.store.Strings("config", "autoload"), files)
	paths, err := finder.FindFiles()
	if err != nil {
		return fmt.Errorf("failed to find settings files: %w", err)
	}

	loaded := settings.NewMap()
	for _, path := range paths {
		if !settings.Readable(a.fs, path) {
			a.logger.Warn("Invalid settings path", logger.String("path", path))
			continue
		}
		m, err := a.parsers.ParseFile(a.fs, path)
		if err != nil {
			return err
		}
		loaded = settings.Merge(loaded, m).(*settings.Map)
		a.logger.Debug("Settings file loaded", logger.String("path", path))
	}
	a.store.Merge(loaded)
	return nil
}

// initResolvers builds the resolver stack. Compiled in modules are the
// fallback; every readable module path is prepended, so paths configured
// later take priority over earlier ones.
func (a *App) initResolvers() {
	a.resolvers = resolver.NewStack(resolver.NewSourceResolver(a.catalog))

	paths := a.store.Strings("modulePaths")
	if a.config != nil {
		paths = append(paths, a.config.ModulePaths...)
	}
	for _, path := range paths {
		info, err := a.fs.Stat(path)
		if err != nil || !info.IsDir() || !settings.Readable(a.fs, path) {
			a.logger.Warn("Skipping unreadable module path", logger.String("path", path))
			continue
		}
		a.resolvers.Prepend(resolver.NewDirectoryResolver(a.fs, path))
	}
	a.logger.Debug("Module resolvers ready",
		logger.Int("resolvers", a.resolvers.Len()),
		logger.Strings("compiled", a.catalog.Identifiers()))
}

func (a *App) registerCoreServices() {
	a.services.RegisterValue("settings", a.store)
	a.services.RegisterValue("router", a.router)
	a.services.RegisterValue("logger", a.logger)
	a.services.RegisterValue("injector", a.injector)
	a.services.RegisterValue("module-loader", a.loader)
	if a.config != nil {
		a.services.RegisterValue("config", a.config)
	}
}

// Boot registers the services declared in settings and loads every module
// listed under modules, in order. The first failure aborts.
func (a *App) Boot() error {
	declared := a.store.Map("services")
	var err error
	declared.Range(func(id string, value any) bool {
		ref, ok := value.(string)
		if !ok || ref == "" {
			err = fmt.Errorf("service %q: implementation reference must be a non-empty string", id)
			return false
		}
		a.registerImplementation(id, ref)
		return true
	})
	if err != nil {
		return err
	}

	modules := a.store.Strings("modules")
	a.logger.Debug("Loading modules", logger.Strings("modules", modules))
	return a.loader.LoadAll(a, modules)
}

// registerImplementation binds id to a catalog implementation. Factories
// build the service; any other value is the service itself once prepared.
// Both resolve through the provider's container so cycles are reported.
func (a *App) registerImplementation(id, ref string) {
	a.services.Register(id, func(c *container.Container) (any, error) {
		inst, err := a.implementations.New(ref)
		if err != nil {
			return nil, err
		}
		if f, ok := inst.(container.Factory); ok {
			return f.Create(c)
		}
		if reflect.ValueOf(inst).Kind() == reflect.Pointer {
			if err := a.injector.WithServices(c).Prepare(inst); err != nil {
				return nil, err
			}
		}
		return inst, nil
	})
}

// Service returns a registered service
func (a *App) Service(id string) (any, error) {
	return a.services.Service(id)
}

// RegisterService binds id to a lazily built shared service
func (a *App) RegisterService(id string, provider container.Provider) {
	a.services.Register(id, provider)
}

// RegisterRoute hands a route to the router
func (a *App) RegisterRoute(route router.Route) error {
	return a.router.Add(route)
}

// Settings returns the settings store
func (a *App) Settings() *settings.Store {
	return a.store
}

// Logger returns the application logger
func (a *App) Logger() logger.Logger {
	return a.logger
}

// LoadModule loads a module by identifier; already loaded modules are skipped
func (a *App) LoadModule(id string) error {
	return a.loader.Load(a, id)
}

// Routes returns the registered routes
func (a *App) Routes() []router.Route {
	return a.router.Routes()
}

// Modules returns the loaded module records
func (a *App) Modules() []*module.Record {
	return a.loader.Records()
}

// Services returns the registered service identifiers
func (a *App) Services() []string {
	return a.services.Names()
}

var _ module.Application = (*App)(nil)
