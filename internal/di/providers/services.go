package providers

import (
	"github.com/samber/do/v2"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/generate"
	"github.com/roadbook/roadbook-server/internal/logger"
	"github.com/roadbook/roadbook-server/internal/service"
)

// ProvideTripService provides the trip document service.
func ProvideTripService(i do.Injector) (*service.TripService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	orchestrator := do.MustInvoke[*generate.Orchestrator](i)
	factory := do.MustInvoke[*blocks.Factory](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTripService(storeHandle.TripStore, orchestrator, factory, indexHandle.TripIndex, log.Component("trips")), nil
}
