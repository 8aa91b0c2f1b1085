package activities

import (
	"fmt"
	"path/filepath"
	"runtime"

	"junction/app/database"
	"junction/core/container"
	"junction/core/logger"
	"junction/core/module"

	"gorm.io/gorm"
)

// Identifier is the name the activities module is loaded under
const Identifier = "app.activities"

// ServiceID is the service the activity log is registered as
const ServiceID = "activities"

type Module struct {
	logger logger.Logger `inject:""`
}

// New creates the activities module entry point
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

// Invoke makes sure the database module is loaded, then registers the
// activity log. The table is migrated when the service is first requested.
func (m *Module) Invoke(app module.Application) error {
	if err := app.LoadModule(database.Identifier); err != nil {
		return err
	}

	app.RegisterService(ServiceID, func(c *container.Container) (any, error) {
		svc, err := c.Service(database.ServiceID)
		if err != nil {
			return nil, err
		}
		db, ok := svc.(*gorm.DB)
		if !ok {
			return nil, fmt.Errorf("service %q is %T, not a database connection", database.ServiceID, svc)
		}

		activities := NewActivityService(db, m.logger)
		if err := activities.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate activities: %w", err)
		}
		return activities, nil
	})
	return nil
}

var _ module.Invokable = (*Module)(nil)
var _ module.PathProvider = (*Module)(nil)
