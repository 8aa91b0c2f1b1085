package module

import (
	"junction/core/container"
	"junction/core/logger"
	"junction/core/router"
	"junction/core/settings"
)

// Application is what a module sees of the running application
type Application interface {
	Service(id string) (any, error)
	RegisterService(id string, provider container.Provider)
	RegisterRoute(route router.Route) error
	Settings() *settings.Store
	Logger() logger.Logger
	LoadModule(id string) error
}

// PathProvider is implemented by entry points that know their own root
// directory, used to locate module local assets and settings
type PathProvider interface {
	ModulePath() string
}

// Invokable is implemented by entry points that set themselves up against
// the application: registering services, routes or settings
type Invokable interface {
	Invoke(app Application) error
}

// Kind classifies an entry point by the optional capabilities it implements
type Kind int

const (
	Plain Kind = iota
	PathProviding
	Invoking
	PathProvidingInvoking
)

func (k Kind) String() string {
	switch k {
	case PathProviding:
		return "path-provider"
	case Invoking:
		return "invokable"
	case PathProvidingInvoking:
		return "path-provider+invokable"
	default:
		return "plain"
	}
}

// Describe checks the capabilities of entry once
func Describe(entry any) Kind {
	_, paths := entry.(PathProvider)
	_, invokes := entry.(Invokable)
	switch {
	case paths && invokes:
		return PathProvidingInvoking
	case invokes:
		return Invoking
	case paths:
		return PathProviding
	default:
		return Plain
	}
}
