package database

import (
	"fmt"
	"path/filepath"
	"runtime"

	"junction/core/container"
	"junction/core/logger"
	"junction/core/module"

	"github.com/go-playground/validator/v10"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Identifier is the name the database module is loaded under
const Identifier = "app.database"

// ServiceID is the service the connection is registered as
const ServiceID = "db"

// Settings is the database settings subtree
type Settings struct {
	Driver   string `yaml:"driver" validate:"required,oneof=sqlite mysql postgres"`
	DSN      string `yaml:"dsn" validate:"required"`
	LogLevel string `yaml:"logLevel" validate:"omitempty,oneof=silent error warn info"`
}

type Module struct {
	logger logger.Logger `inject:""`
}

// New creates the database module entry point
func New() any {
	return &Module{}
}

func (m *Module) SetLogger(l logger.Logger) {
	m.logger = l
}

func (m *Module) ModulePath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// Invoke registers the db service. The connection is opened when the
// service is first requested.
func (m *Module) Invoke(app module.Application) error {
	store := app.Settings()
	app.RegisterService(ServiceID, func(*container.Container) (any, error) {
		var s Settings
		if err := store.Decode(&s, "database"); err != nil {
			return nil, err
		}
		return Open(s, m.logger)
	})
	return nil
}

// Validate checks the settings
func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid database settings: %w", err)
	}
	return nil
}

// Dialector returns the gorm dialector for the configured driver
func Dialector(s Settings) (gorm.Dialector, error) {
	switch s.Driver {
	case "sqlite":
		return sqlite.Open(s.DSN), nil
	case "mysql":
		return mysql.Open(s.DSN), nil
	case "postgres":
		return postgres.Open(s.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", s.Driver)
	}
}

// Open validates s and opens the connection
func Open(s Settings, log logger.Logger) (*gorm.DB, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	dialector, err := Dialector(s)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel(s.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", s.Driver, err)
	}
	if log != nil {
		log.Info("Database connected", logger.String("driver", s.Driver))
	}
	return db, nil
}

func logLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

var _ module.Invokable = (*Module)(nil)
var _ module.PathProvider = (*Module)(nil)
