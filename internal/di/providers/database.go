package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/roadbook/roadbook-server/internal/config"
	"github.com/roadbook/roadbook-server/internal/logger"
	"github.com/roadbook/roadbook-server/internal/store"
	"github.com/roadbook/roadbook-server/internal/store/sqlite"
)

// StoreHandle wraps the configured store backend with shutdown capability.
type StoreHandle struct {
	store.TripStore
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the Badger or SQLite store, depending on configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var (
		st  store.TripStore
		err error
	)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		st, err = sqlite.Open(dbPath, log.Logger)
	default:
		st, err = store.New(dbPath, log.Logger)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "backend", cfg.Store.Backend, "path", dbPath)

	return &StoreHandle{TripStore: st}, nil
}
