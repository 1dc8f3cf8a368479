package api

import (
	"github.com/roadbook/roadbook-server/internal/catalog"
	"github.com/roadbook/roadbook-server/internal/search"
	"github.com/roadbook/roadbook-server/internal/service"
)

// Services groups the dependencies used by the API server.
type Services struct {
	Trip    *service.TripService
	Catalog *catalog.Catalog  // health reporting
	Search  *search.TripIndex // health reporting; may be nil
}
