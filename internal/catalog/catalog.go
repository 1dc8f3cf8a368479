// Package catalog serves the curated fallback POI lists used when the live
// source is unavailable.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/normalize"
	"github.com/roadbook/roadbook-server/internal/watcher"
)

//go:embed catalog.json
var embedded []byte

// Data maps city -> intent label -> curated POIs.
type Data map[string]map[string][]domain.POI

// Options configures a Catalog.
type Options struct {
	// OverridePath is an optional JSON file merged over the embedded data.
	OverridePath  string
	DefaultCity   string
	DefaultIntent domain.Intent
}

// Catalog is safe for concurrent use. Lookups see either the old or the
// reloaded data, never a mix.
type Catalog struct {
	logger *slog.Logger
	opts   Options
	base   Data

	mu   sync.RWMutex
	data Data
}

// Parse decodes catalog JSON. City keys are canonicalized and districts are
// derived from addresses when missing.
func Parse(b []byte) (Data, error) {
	var raw Data
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	out := make(Data, len(raw))
	for city, lists := range raw {
		key := normalize.City(city)
		if key == "" {
			return nil, errors.New("catalog has an empty city name")
		}
		if out[key] == nil {
			out[key] = make(map[string][]domain.POI, len(lists))
		}
		for label, pois := range lists {
			for i := range pois {
				if pois[i].Name == "" {
					return nil, fmt.Errorf("catalog %s/%s entry %d has no name", key, label, i)
				}
				if pois[i].District == "" {
					pois[i].District = normalize.District(pois[i].Address)
				}
			}
			out[key][label] = pois
		}
	}
	return out, nil
}

// New loads the embedded catalog and, when configured, the override file.
// A missing override file is not an error.
func New(logger *slog.Logger, opts Options) (*Catalog, error) {
	base, err := Parse(embedded)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	c := NewFromData(logger, base, opts)
	if opts.OverridePath != "" {
		if err := c.Reload(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewFromData creates a catalog over already-parsed data.
func NewFromData(logger *slog.Logger, base Data, opts Options) *Catalog {
	if opts.DefaultIntent == "" {
		opts.DefaultIntent = domain.IntentFamily
	}
	opts.DefaultCity = normalize.City(opts.DefaultCity)
	return &Catalog{logger: logger, opts: opts, base: base, data: base}
}

// Lookup returns a copy of the curated list for the exact (canonicalized)
// city and intent, or nil.
func (c *Catalog) Lookup(city string, intent domain.Intent) []domain.POI {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lists, ok := c.data[normalize.City(city)]
	if !ok {
		return nil
	}
	return slices.Clone(lists[intent.Label()])
}

// Default returns the city and intent used when a request has no curated data.
func (c *Catalog) Default() (string, domain.Intent) {
	return c.opts.DefaultCity, c.opts.DefaultIntent
}

// Cities returns the sorted city names.
func (c *Catalog) Cities() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.data))
}

// Reload re-reads the override file and merges it over the embedded data.
// On failure the current data is kept.
func (c *Catalog) Reload() error {
	if c.opts.OverridePath == "" {
		return nil
	}

	b, err := os.ReadFile(c.opts.OverridePath)
	if errors.Is(err, os.ErrNotExist) {
		c.reset()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read catalog override: %w", err)
	}

	override, err := Parse(b)
	if err != nil {
		return fmt.Errorf("catalog override %s: %w", c.opts.OverridePath, err)
	}

	merged := merge(c.base, override)
	c.mu.Lock()
	c.data = merged
	c.mu.Unlock()

	c.logger.Info("catalog override loaded", "path", c.opts.OverridePath, "cities", len(merged))
	return nil
}

func (c *Catalog) reset() {
	c.mu.Lock()
	c.data = c.base
	c.mu.Unlock()
}

// Watch reloads the override file whenever w reports it changed. It blocks
// until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context, w *watcher.Watcher) error {
	if c.opts.OverridePath == "" {
		return nil
	}
	if err := w.Watch(c.opts.OverridePath); err != nil {
		return fmt.Errorf("watch catalog override: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events():
			switch ev.Type {
			case watcher.EventChanged:
				if err := c.Reload(); err != nil {
					c.logger.Warn("catalog reload failed, keeping previous data", "error", err)
				}
			case watcher.EventRemoved:
				c.reset()
				c.logger.Info("catalog override removed", "path", ev.Path)
			}
		case err := <-w.Errors():
			c.logger.Warn("catalog watcher error", "error", err)
		}
	}
}

// merge overlays override lists onto base per city and intent.
func merge(base, override Data) Data {
	out := make(Data, len(base)+len(override))
	for city, lists := range base {
		out[city] = maps.Clone(lists)
	}
	for city, lists := range override {
		if out[city] == nil {
			out[city] = make(map[string][]domain.POI, len(lists))
		}
		for label, pois := range lists {
			out[city][label] = pois
		}
	}
	return out
}
