package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	appmodules "junction/app"
	"junction/app/activities"
	"junction/app/scheduler"
	coremodules "junction/core/app"
	"junction/core/application"
	"junction/core/config"
	"junction/core/logger"
	"junction/core/module"

	"github.com/gertd/go-pluralize"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// App drives startup: environment, config, logger, application context and modules
type App struct {
	config *config.Config
	logger logger.Logger
	app    *application.App

	// State
	err     error
	verbose bool
}

// New creates a new Junction bootstrapper
func New() *App {
	// Check for verbose flag
	verbose := false
	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			verbose = true
			break
		}
	}
	return &App{verbose: verbose}
}

// Start initializes the application and runs it. Each step is skipped once
// an earlier one has failed.
func (b *App) Start() error {
	return b.
		loadEnvironment().
		initConfig().
		initLogger().
		initApplication().
		bootModules().
		recordActivity().
		displaySummary().
		run()
}

// loadEnvironment loads environment variables
func (b *App) loadEnvironment() *App {
	if err := godotenv.Load(); err != nil {
		// Non-fatal - continue without .env file
	}
	return b
}

// initConfig initializes configuration
func (b *App) initConfig() *App {
	if b.err != nil {
		return b
	}
	b.config = config.NewConfig()
	if b.verbose {
		b.config.LogLevel = "debug"
	}
	if err := b.config.Validate(); err != nil {
		b.err = err
	}
	return b
}

// initLogger initializes the logger
func (b *App) initLogger() *App {
	if b.err != nil {
		return b
	}
	log, err := logger.NewLogger(logger.Config{
		Environment: b.config.Env,
		Level:       b.config.LogLevel,
	})
	if err != nil {
		b.err = fmt.Errorf("failed to initialize logger: %w", err)
		return b
	}
	b.logger = log
	return b
}

// initApplication builds the application context over the compiled in modules
func (b *App) initApplication() *App {
	if b.err != nil {
		return b
	}
	catalog := module.NewCatalog(
		coremodules.NewCoreModules(),
		appmodules.NewAppModules(),
	)
	app, err := application.New(b.config, b.logger,
		application.WithModules(catalog),
		application.WithImplementations(appmodules.Implementations()),
	)
	if err != nil {
		b.err = err
		return b
	}
	b.app = app
	return b
}

// bootModules registers configured services and loads the configured modules
func (b *App) bootModules() *App {
	if b.err != nil {
		return b
	}
	if err := b.app.Boot(); err != nil {
		b.logger.Error("Failed to load modules", logger.Err(err))
		b.err = err
		return b
	}
	if b.verbose {
		b.logger.Info("Modules loaded", logger.Int("count", len(b.app.Modules())))
	}
	return b
}

// recordActivity writes the loaded modules to the activity log when it is enabled
func (b *App) recordActivity() *App {
	if b.err != nil || !b.hasModule(activities.Identifier) {
		return b
	}
	svc, err := b.app.Service(activities.ServiceID)
	if err != nil {
		b.logger.Warn("Activity log unavailable", logger.Err(err))
		return b
	}
	log, ok := svc.(*activities.ActivityService)
	if !ok {
		return b
	}
	for _, rec := range b.app.Modules() {
		if _, err := log.RecordLoad(rec.Identifier, rec.Kind.String()); err != nil {
			break
		}
	}
	return b
}

// displaySummary shows what was loaded
func (b *App) displaySummary() *App {
	if b.err != nil {
		return b
	}
	p := pluralize.NewClient()
	count := func(word string, n int) string {
		return p.Pluralize(word, n, true)
	}

	modules := b.app.Modules()
	routes := b.app.Routes()

	fmt.Printf("\n\033[1;32m%s Ready!\033[0m %s, %s, %s\n\n",
		b.app.Settings().String("name"),
		count("module", len(modules)),
		count("route", len(routes)),
		count("service", len(b.app.Services())))

	if len(modules) > 0 {
		fmt.Printf("\033[36mModules:\033[0m\n")
		for _, rec := range modules {
			fmt.Printf("  %-20s %s\n", rec.Identifier, rec.Kind)
		}
		fmt.Println()
	}
	if len(routes) > 0 {
		fmt.Printf("\033[36mRoutes:\033[0m\n")
		for _, r := range routes {
			fmt.Printf("  %-8s %-30s %s\n", strings.Join(r.Methods, ","), r.Path, r.Name)
		}
		fmt.Println()
	}
	return b
}

// run starts the scheduler when one is configured and waits for a signal.
// Without scheduled work there is nothing to keep running.
func (b *App) run() error {
	if b.err != nil {
		return b.err
	}
	defer func() { _ = b.logger.Sync() }()

	if !b.hasModule(scheduler.Identifier) {
		return nil
	}
	svc, err := b.app.Service(scheduler.ServiceID)
	if err != nil {
		return err
	}
	c, ok := svc.(*cron.Cron)
	if !ok || len(c.Entries()) == 0 {
		return nil
	}

	c.Start()
	b.logger.Info("Scheduler started", logger.Int("tasks", len(c.Entries())))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	b.logger.Info("Shutting down gracefully...")
	<-c.Stop().Done()
	return nil
}

func (b *App) hasModule(id string) bool {
	for _, rec := range b.app.Modules() {
		if rec.Identifier == id {
			return true
		}
	}
	return false
}

func main() {
	// Initialize the Junction application
	app := New()

	if err := app.Start(); err != nil {
		// Print user-friendly error message instead of panicking
		fmt.Printf("\n\033[31mApplication failed to start:\033[0m\n%v\n\n", err)
		os.Exit(1)
	}
}
