// Package di provides dependency injection configuration for the roadbook server.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/config"
	"github.com/roadbook/roadbook-server/internal/di/providers"
	"github.com/roadbook/roadbook-server/internal/generate"
	"github.com/roadbook/roadbook-server/internal/logger"
	"github.com/roadbook/roadbook-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Generation
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvidePOISource)
	do.Provide(injector, providers.ProvideBlockFactory)
	do.Provide(injector, providers.ProvideOrchestrator)

	// Business services
	do.Provide(injector, providers.ProvideTripService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services. This triggers lazy initialization and
// starts the HTTP server.
func Bootstrap(injector *do.RootScope) (err error) {
	// MustInvoke panics on provider errors.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bootstrap: %v", r)
		}
	}()

	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.CatalogHandle](injector)
	_ = do.MustInvoke[*providers.POISourceHandle](injector)
	_ = do.MustInvoke[*blocks.Factory](injector)
	_ = do.MustInvoke[*generate.Orchestrator](injector)
	_ = do.MustInvoke[*service.TripService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
