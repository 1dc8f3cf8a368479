package providers

import (
	"context"
	"errors"

	"github.com/samber/do/v2"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/catalog"
	"github.com/roadbook/roadbook-server/internal/config"
	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/generate"
	"github.com/roadbook/roadbook-server/internal/logger"
	"github.com/roadbook/roadbook-server/internal/matcher"
	"github.com/roadbook/roadbook-server/internal/planner"
	"github.com/roadbook/roadbook-server/internal/poisource"
	"github.com/roadbook/roadbook-server/internal/watcher"
)

// CatalogHandle wraps the fallback catalog and the watcher that reloads its
// override file.
type CatalogHandle struct {
	*catalog.Catalog
	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	if h.watcher == nil {
		return nil
	}
	h.cancel()
	return h.watcher.Stop()
}

// ProvideCatalog loads the embedded catalog, merges the override file and
// starts watching it for changes.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	defaultIntent, err := domain.ParseIntent(cfg.Catalog.DefaultIntent)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(log.Component("catalog"), catalog.Options{
		OverridePath:  cfg.Catalog.OverridePath,
		DefaultCity:   cfg.Catalog.DefaultCity,
		DefaultIntent: defaultIntent,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Catalog loaded", "cities", len(cat.Cities()), "override", cfg.Catalog.OverridePath)

	if cfg.Catalog.OverridePath == "" {
		return &CatalogHandle{Catalog: cat}, nil
	}

	w, err := watcher.New(log.Component("watcher"), watcher.Options{})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Catalog watcher stopped", "error", err)
		}
	}()
	go func() {
		if err := cat.Watch(ctx, w); err != nil {
			log.Error("Catalog watch failed", "error", err)
		}
	}()

	return &CatalogHandle{Catalog: cat, watcher: w, cancel: cancel}, nil
}

// POISourceHandle wraps the live place search. Client is nil when the live
// tier is disabled.
type POISourceHandle struct {
	Client *poisource.Client
}

// Shutdown implements do.Shutdownable.
func (h *POISourceHandle) Shutdown() error {
	if h.Client != nil {
		h.Client.Close()
	}
	return nil
}

// ProvidePOISource provides the live place search client when enabled.
func ProvidePOISource(i do.Injector) (*POISourceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.POISource.Enabled {
		log.Info("Live POI lookup disabled, generation uses the catalog only")
		return &POISourceHandle{}, nil
	}

	client := poisource.New(poisource.Config{
		BaseURL:   cfg.POISource.BaseURL,
		Key:       cfg.POISource.Key,
		Secret:    cfg.POISource.Secret,
		Timeout:   cfg.POISource.Timeout,
		RateLimit: cfg.POISource.RateLimit,
	}, log.Component("poisource"))

	log.Info("Live POI lookup enabled", "base_url", cfg.POISource.BaseURL, "signed", cfg.POISource.Secret != "")

	return &POISourceHandle{Client: client}, nil
}

// ProvideBlockFactory provides the shared block factory.
func ProvideBlockFactory(i do.Injector) (*blocks.Factory, error) {
	return blocks.NewFactory(), nil
}

// ProvideOrchestrator wires the generation pipeline.
func ProvideOrchestrator(i do.Injector) (*generate.Orchestrator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	sourceHandle := do.MustInvoke[*POISourceHandle](i)
	factory := do.MustInvoke[*blocks.Factory](i)

	if catalogHandle.Catalog == nil {
		return nil, errors.New("catalog not initialized")
	}

	// A nil *Client must not become a non-nil Source.
	var source generate.Source
	if sourceHandle.Client != nil {
		source = sourceHandle.Client
	}

	rng := planner.NewRand(0)
	return generate.New(
		source,
		catalogHandle.Catalog,
		matcher.New(matcher.NewCategoryEstimator(rng)),
		planner.New(rng),
		factory,
		log.Component("generate"),
		generate.Options{LiveTimeout: cfg.POISource.Timeout},
	), nil
}
