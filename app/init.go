package app

import (
	"junction/app/activities"
	"junction/app/database"
	"junction/app/scheduler"
	"junction/core/container"
	"junction/core/module"
)

// AppModules implements module.Provider for application specific modules
type AppModules struct{}

// Modules returns the app module constructors keyed by identifier.
// This is the only function that needs to be updated when adding new app modules
func (am *AppModules) Modules() map[string]module.Constructor {
	return map[string]module.Constructor{
		activities.Identifier: activities.New,
		database.Identifier:   database.New,
		scheduler.Identifier:  scheduler.New,
	}
}

// NewAppModules creates a new app modules provider
func NewAppModules() *AppModules {
	return &AppModules{}
}

// Implementations returns the catalog the services settings refer to
func Implementations() *container.Catalog {
	catalog := container.NewCatalog()
	catalog.Add("heartbeat", scheduler.NewHeartbeat)
	return catalog
}
