package scheduler

import (
	"fmt"
	"path/filepath"
	"runtime"

	"junction/core/container"
	"junction/core/logger"
	"junction/core/module"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// Identifier is the name the scheduler module is loaded under
const Identifier = "app.scheduler"

// ServiceID is the service the cron scheduler is registered as
const ServiceID = "scheduler"

// Task is one entry of the schedule settings
type Task struct {
	Name string `yaml:"-"`
	Spec string `yaml:"spec" validate:"required"`
	Job  string `yaml:"job" validate:"required"`
}

type Module struct {
	logger logger.Logger `inject:""`
	tasks  []Task
}

// New creates the scheduler module entry point
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

// Invoke reads the schedule and registers the scheduler service. Specs are
// checked here; job services are resolved when the scheduler is built.
func (m *Module) Invoke(app module.Application) error {
	tasks, err := Tasks(app)
	if err != nil {
		return err
	}
	m.tasks = tasks

	app.RegisterService(ServiceID, func(c *container.Container) (any, error) {
		return m.build(c)
	})
	return nil
}

// Tasks decodes and validates the schedule settings in declaration order
func Tasks(app module.Application) ([]Task, error) {
	store := app.Settings()
	validate := validator.New()

	var tasks []Task
	var err error
	store.Map("schedule").Range(func(name string, _ any) bool {
		var task Task
		if err = store.Decode(&task, "schedule", name); err != nil {
			return false
		}
		task.Name = name
		if err = validate.Struct(task); err != nil {
			err = fmt.Errorf("invalid schedule entry %q: %w", name, err)
			return false
		}
		if _, err = cron.ParseStandard(task.Spec); err != nil {
			err = fmt.Errorf("invalid schedule entry %q: %w", name, err)
			return false
		}
		tasks = append(tasks, task)
		return true
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (m *Module) build(services container.Services) (*cron.Cron, error) {
	c := cron.New(cron.WithLogger(cronLogger{m.logger}))
	for _, task := range m.tasks {
		svc, err := services.Service(task.Job)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", task.Name, err)
		}
		job, ok := svc.(cron.Job)
		if !ok {
			return nil, fmt.Errorf("schedule entry %q: service %q is %T, not a cron job", task.Name, task.Job, svc)
		}
		if _, err := c.AddJob(task.Spec, job); err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", task.Name, err)
		}
		if m.logger != nil {
			m.logger.Debug("Task scheduled",
				logger.String("task", task.Name),
				logger.String("spec", task.Spec))
		}
	}
	return c, nil
}

// cronLogger forwards cron's key/value logging to the application logger
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.log != nil {
		l.log.Debug(msg, fields(keysAndValues)...)
	}
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if l.log != nil {
		l.log.Error(msg, append(fields(keysAndValues), logger.Err(err))...)
	}
}

func fields(keysAndValues []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return out
}

var _ module.Invokable = (*Module)(nil)
var _ module.PathProvider = (*Module)(nil)
var _ cron.Logger = cronLogger{}
