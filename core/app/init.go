package app

import (
	"junction/core/app/routes"
	"junction/core/module"
)

// CoreModules implements module.Provider for the modules shipped with the framework
type CoreModules struct{}

// Modules returns the core module constructors keyed by identifier.
// This is the only function that needs to be updated when adding new core modules
func (cm *CoreModules) Modules() map[string]module.Constructor {
	return map[string]module.Constructor{
		routes.Identifier: routes.New,
	}
}

// NewCoreModules creates a new core modules provider
func NewCoreModules() *CoreModules {
	return &CoreModules{}
}
