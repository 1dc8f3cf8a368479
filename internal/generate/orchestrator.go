// Package generate produces a complete itinerary document from a city, a
// day count and an intent, degrading from the live POI source to the
// curated catalog.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/domain"
	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
	"github.com/roadbook/roadbook-server/internal/matcher"
	"github.com/roadbook/roadbook-server/internal/normalize"
	"github.com/roadbook/roadbook-server/internal/plan"
	"github.com/roadbook/roadbook-server/internal/planner"
)

// DefaultLiveTimeout bounds one live lookup.
const DefaultLiveTimeout = 5 * time.Second

// Source is the live POI lookup. It may fail or return nothing.
type Source interface {
	Search(ctx context.Context, city string) ([]domain.POI, error)
}

// Catalog is the curated fallback.
type Catalog interface {
	Lookup(city string, intent domain.Intent) []domain.POI
	Default() (string, domain.Intent)
}

// Provenance names where a generated plan's POIs came from.
type Provenance string

// Provenances.
const (
	FromLive           Provenance = "live"
	FromCatalog        Provenance = "catalog"
	FromCatalogDefault Provenance = "catalog-default"
)

// Request is one generation call.
type Request struct {
	City   string
	Days   int
	Intent domain.Intent
}

// Result is a generated, unsaved document.
type Result struct {
	Info       domain.TripInfo
	Blocks     []*domain.Block
	Plan       *domain.NestedPlan
	IsRealtime bool
	Source     Provenance
	Trace      []State
}

// Orchestrator wires the source, catalog, matcher and planner together.
type Orchestrator struct {
	source      Source
	catalog     Catalog
	matcher     *matcher.Matcher
	planner     *planner.Planner
	factory     *blocks.Factory
	liveTimeout time.Duration
	logger      *slog.Logger
}

// Options tune the orchestrator.
type Options struct {
	LiveTimeout time.Duration
}

// New creates an orchestrator. A nil source skips the live tier.
func New(source Source, catalog Catalog, m *matcher.Matcher, p *planner.Planner, f *blocks.Factory, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.LiveTimeout <= 0 {
		opts.LiveTimeout = DefaultLiveTimeout
	}
	return &Orchestrator{
		source:      source,
		catalog:     catalog,
		matcher:     m,
		planner:     p,
		factory:     f,
		liveTimeout: opts.LiveTimeout,
		logger:      logger,
	}
}

// Validate checks a request before any lookup happens.
func Validate(req Request) (Request, error) {
	req.City = normalize.City(req.City)
	if req.City == "" {
		return req, domainerrors.Validation("city is required")
	}
	if req.Days < planner.MinDays || req.Days > planner.MaxDays {
		return req, domainerrors.Validationf("days must be between %d and %d", planner.MinDays, planner.MaxDays)
	}
	if !req.Intent.Valid() {
		return req, domainerrors.Validationf("unknown intent %q", req.Intent)
	}
	return req, nil
}

// Generate runs the pipeline. Live failures are absorbed; only invalid
// input and an empty final catalog tier are returned as errors.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	req, err := Validate(req)
	if err != nil {
		return nil, err
	}

	r := newRun(o.logger)
	city, intent := req.City, req.Intent

	var (
		candidates []domain.ScoredPOI
		source     Provenance
	)

	if o.source != nil {
		r.to(StateFetchingLive)
		if scored, ok := o.fetchLive(ctx, req); ok {
			r.to(StateLiveOK)
			candidates, source = scored, FromLive
		} else {
			r.to(StateLiveFailed)
		}
	}

	if candidates == nil {
		r.to(StateUsingFallback)
		pois := o.catalog.Lookup(city, intent)
		source = FromCatalog
		if len(pois) == 0 {
			city, intent = o.catalog.Default()
			pois = o.catalog.Lookup(city, intent)
			source = FromCatalogDefault
			o.logger.Warn("no curated data, using default catalog", "city", req.City, "intent", req.Intent, "default_city", city)
		}
		if len(pois) == 0 {
			r.to(StateHardFailure)
			return nil, domainerrors.NoDataForRequest(
				fmt.Sprintf("暂无\"%s\"的\"%s\"相关活动数据", req.City, req.Intent.Label()),
			).WithDetails(map[string]any{"city": req.City, "intent": req.Intent, "trace": r.trace})
		}
		candidates = o.matcher.RankCurated(pois, intent)
	}

	r.to(StateScoringAndPlanning)
	nested := o.planner.Plan(candidates, req.Days, intent)
	info, bs := plan.ToBlocks(nested, plan.Options{City: city, Intent: intent, Days: req.Days}, o.factory)
	bs = o.appendExtras(bs, intent, nested.Tips)
	r.to(StateDone)

	o.logger.Info("itinerary generated",
		"city", city,
		"intent", intent,
		"days", len(nested.Days),
		"activities", nested.ActivityCount(),
		"source", source,
	)

	return &Result{
		Info:       info,
		Blocks:     bs,
		Plan:       nested,
		IsRealtime: source == FromLive,
		Source:     source,
		Trace:      r.trace,
	}, nil
}

// fetchLive makes one bounded attempt at the live source and reports
// whether it produced any POI that survived scoring.
func (o *Orchestrator) fetchLive(ctx context.Context, req Request) ([]domain.ScoredPOI, bool) {
	ctx, cancel := context.WithTimeout(ctx, o.liveTimeout)
	defer cancel()

	pois, err := o.source.Search(ctx, req.City)
	if err != nil {
		o.logger.Warn("live POI source unavailable", "city", req.City, "error", domainerrors.SourceUnavailable(err))
		return nil, false
	}

	scored := o.matcher.MatchLive(pois, req.Intent)
	if len(scored) == 0 {
		o.logger.Warn("live POI source returned nothing relevant", "city", req.City, "raw", len(pois))
		return nil, false
	}
	return scored, true
}

var packingLists = map[domain.Intent][]string{
	domain.IntentFamily:  {"儿童推车", "湿巾纸巾", "备用衣物", "零食和水"},
	domain.IntentCouple:  {"充电宝", "相机", "雨伞"},
	domain.IntentFriends: {"充电宝", "身份证", "零钱"},
	domain.IntentFood:    {"消化药", "湿巾纸巾", "充电宝"},
}

// PackingList returns the checklist items suggested for an intent.
func PackingList(intent domain.Intent) []string {
	return packingLists[intent]
}

// appendExtras adds the packing checklist and the tip after the plan.
func (o *Orchestrator) appendExtras(bs []*domain.Block, intent domain.Intent, tip string) []*domain.Block {
	next := int64(0)
	if len(bs) > 0 {
		next = bs[len(bs)-1].Order
	}

	var items []domain.ChecklistItem
	for _, text := range packingLists[intent] {
		items = append(items, domain.ChecklistItem{Text: text})
	}
	checklist := o.factory.Build(domain.ChecklistContent{Items: items, Columns: 2})
	next += blocks.OrderIncrement
	checklist.Order = next
	bs = append(bs, checklist)

	if tip = strings.TrimSpace(tip); tip != "" {
		text := o.factory.Build(domain.TextContent{Text: tip, Style: domain.TextTip})
		next += blocks.OrderIncrement
		text.Order = next
		bs = append(bs, text)
	}
	return bs
}
