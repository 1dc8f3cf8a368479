package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/catalog"
	"github.com/roadbook/roadbook-server/internal/domain"
	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
	"github.com/roadbook/roadbook-server/internal/matcher"
	"github.com/roadbook/roadbook-server/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pois  []domain.POI
	err   error
	block bool
	calls int
}

func (f *fakeSource) Search(ctx context.Context, _ string) ([]domain.POI, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.pois, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOrchestrator(t *testing.T, src Source, cat Catalog, seed uint64) *Orchestrator {
	t.Helper()
	if cat == nil {
		c, err := catalog.New(discard(), catalog.Options{DefaultCity: "上海", DefaultIntent: domain.IntentFamily})
		require.NoError(t, err)
		cat = c
	}
	rng := rand.New(rand.NewPCG(seed, seed*31+7))
	return New(
		src,
		cat,
		matcher.New(matcher.NewCategoryEstimator(rng)),
		planner.New(rng),
		blocks.NewFactory(),
		discard(),
		Options{LiveTimeout: 50 * time.Millisecond},
	)
}

func poiBlocks(bs []*domain.Block) []domain.POIContent {
	var out []domain.POIContent
	for _, b := range bs {
		if c, ok := b.Content.(domain.POIContent); ok {
			out = append(out, c)
		}
	}
	return out
}

func TestGenerate_ShanghaiFamilyFromCatalog(t *testing.T) {
	cat, err := catalog.New(discard(), catalog.Options{DefaultCity: "上海"})
	require.NoError(t, err)
	allowed := map[string]int64{}
	for _, p := range cat.Lookup("上海", domain.IntentFamily) {
		allowed[p.Name] = p.Cost
	}

	for seed := range uint64(30) {
		res, err := newOrchestrator(t, nil, cat, seed).Generate(context.Background(), Request{City: "上海", Days: 1, Intent: domain.IntentFamily})
		require.NoError(t, err)

		assert.False(t, res.IsRealtime)
		assert.Equal(t, FromCatalog, res.Source)
		assert.Equal(t, []State{StateIdle, StateUsingFallback, StateScoringAndPlanning, StateDone}, res.Trace)

		require.Len(t, res.Plan.Days, 1)
		acts := res.Plan.Days[0].Activities
		assert.GreaterOrEqual(t, len(acts), 3)
		assert.LessOrEqual(t, len(acts), 4)

		var sum int64
		for _, a := range acts {
			cost, ok := allowed[a.Name]
			require.True(t, ok, "%s not in the 上海/亲子遛娃 list", a.Name)
			assert.Equal(t, cost, a.Cost)
			sum += a.Cost
		}
		assert.Equal(t, sum, res.Plan.TotalCost)
		assert.Equal(t, sum*100, res.Info.TotalCostMinor)
		assert.Equal(t, 1, res.Info.DayCount)
		assert.Equal(t, "上海 1天 亲子遛娃", res.Info.Title)
	}
}

func TestGenerate_TwoDaysNeverRepeatAPOI(t *testing.T) {
	for _, intent := range domain.Intents() {
		for seed := range uint64(20) {
			res, err := newOrchestrator(t, nil, nil, seed).Generate(context.Background(), Request{City: "北京", Days: 2, Intent: intent})
			require.NoError(t, err)

			seen := map[string]bool{}
			for _, day := range res.Plan.Days {
				hours := 0
				for _, a := range day.Activities {
					assert.False(t, seen[a.Name], "%s repeated", a.Name)
					seen[a.Name] = true
					hours += a.Duration
				}
				assert.LessOrEqual(t, hours, planner.MaxDayHours)
			}
		}
	}
}

func TestGenerate_LiveSourceUsedWhenRelevant(t *testing.T) {
	src := &fakeSource{pois: []domain.POI{
		{Name: "上海迪士尼乐园", Category: "主题乐园", Address: "浦东新区黄赵路310号", District: "浦东新区"},
		{Name: "上海海洋水族馆", Category: "水族馆", District: "浦东新区"},
		{Name: "某写字楼", Category: "商务楼宇"},
	}}

	res, err := newOrchestrator(t, src, nil, 1).Generate(context.Background(), Request{City: "上海", Days: 1, Intent: domain.IntentFamily})
	require.NoError(t, err)

	assert.True(t, res.IsRealtime)
	assert.Equal(t, FromLive, res.Source)
	assert.Equal(t, []State{StateIdle, StateFetchingLive, StateLiveOK, StateScoringAndPlanning, StateDone}, res.Trace)
	for _, p := range poiBlocks(res.Blocks) {
		assert.NotEqual(t, "某写字楼", p.Name)
	}
	assert.Equal(t, 1, src.calls)
}

func TestGenerate_FallsBackOnLiveOutcomes(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
	}{
		{"error", &fakeSource{err: errors.New("connection refused")}},
		{"empty", &fakeSource{}},
		{"nothing relevant", &fakeSource{pois: []domain.POI{{Name: "某写字楼", Category: "商务楼宇"}}}},
		{"timeout", &fakeSource{block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			res, err := newOrchestrator(t, tt.src, nil, 2).Generate(context.Background(), Request{City: "上海", Days: 2, Intent: domain.IntentCouple})
			require.NoError(t, err)

			assert.Less(t, time.Since(start), 2*time.Second)
			assert.False(t, res.IsRealtime)
			assert.Equal(t, FromCatalog, res.Source)
			assert.Equal(t, []State{StateIdle, StateFetchingLive, StateLiveFailed, StateUsingFallback, StateScoringAndPlanning, StateDone}, res.Trace)
			assert.Equal(t, 1, tt.src.calls)
			assert.Len(t, res.Plan.Days, 2)
		})
	}
}

func TestGenerate_UnknownCityUsesDefaultTier(t *testing.T) {
	res, err := newOrchestrator(t, &fakeSource{}, nil, 3).Generate(context.Background(), Request{City: "成都", Days: 1, Intent: domain.IntentFood})
	require.NoError(t, err)

	assert.Equal(t, FromCatalogDefault, res.Source)
	assert.Equal(t, "上海", res.Info.City)
	assert.Equal(t, domain.IntentFamily, res.Info.Intent)
	assert.NotEmpty(t, res.Plan.Days[0].Activities)
}

type emptyCatalog struct{}

func (emptyCatalog) Lookup(string, domain.Intent) []domain.POI { return nil }
func (emptyCatalog) Default() (string, domain.Intent)          { return "上海", domain.IntentFamily }

func TestGenerate_NoDataForRequest(t *testing.T) {
	src := &fakeSource{err: errors.New("unreachable")}

	res, err := newOrchestrator(t, src, emptyCatalog{}, 4).Generate(context.Background(), Request{City: "成都", Days: 2, Intent: domain.IntentFriends})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNoDataForRequest))
	var de *domainerrors.Error
	require.True(t, domainerrors.As(err, &de))
	assert.Contains(t, de.Message, "成都")
	assert.Contains(t, de.Message, "朋友小聚")
}

func TestGenerate_ValidatesBeforeLookup(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty city", Request{City: "  ", Days: 1, Intent: domain.IntentFamily}},
		{"zero days", Request{City: "上海", Days: 0, Intent: domain.IntentFamily}},
		{"four days", Request{City: "上海", Days: 4, Intent: domain.IntentFamily}},
		{"bad intent", Request{City: "上海", Days: 1, Intent: "business"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			_, err := newOrchestrator(t, src, nil, 5).Generate(context.Background(), tt.req)

			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
			assert.Zero(t, src.calls)
		})
	}
}

func TestGenerate_DocumentShape(t *testing.T) {
	res, err := newOrchestrator(t, nil, nil, 6).Generate(context.Background(), Request{City: "上海市", Days: 3, Intent: domain.IntentFamily})
	require.NoError(t, err)

	bs := res.Blocks
	require.NotEmpty(t, bs)
	assert.Equal(t, domain.BlockDayDivider, bs[0].Type)
	for i := 1; i < len(bs); i++ {
		assert.Greater(t, bs[i].Order, bs[i-1].Order)
	}

	checklist := bs[len(bs)-2]
	require.Equal(t, domain.BlockChecklist, checklist.Type)
	assert.Len(t, checklist.Content.(domain.ChecklistContent).Items, len(PackingList(domain.IntentFamily)))

	tip := bs[len(bs)-1]
	require.Equal(t, domain.BlockText, tip.Type)
	assert.Equal(t, domain.TextTip, tip.Content.(domain.TextContent).Style)
	assert.Equal(t, res.Plan.Tips, tip.Content.(domain.TextContent).Text)
	assert.Equal(t, res.Plan.Tips, res.Info.Tips)

	assert.Equal(t, "上海", res.Info.City)
	assert.Equal(t, 3, res.Info.DayCount)
}

func TestGenerate_LogsTransitionsAndDegrades(t *testing.T) {
	var buf bytes.Buffer
	o := newOrchestrator(t, &fakeSource{}, nil, 5)
	o.logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	res, err := o.Generate(context.Background(), Request{City: "成都", Days: 1, Intent: domain.IntentFood})
	require.NoError(t, err)

	var (
		steps [][2]string
		warns []string
	)
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		switch rec["level"] {
		case "DEBUG":
			if rec["msg"] == "generation state" {
				steps = append(steps, [2]string{rec["from"].(string), rec["to"].(string)})
			}
		case "WARN":
			warns = append(warns, rec["msg"].(string))
		}
	}

	require.Len(t, steps, len(res.Trace)-1)
	for i, step := range steps {
		assert.Equal(t, string(res.Trace[i]), step[0])
		assert.Equal(t, string(res.Trace[i+1]), step[1])
	}
	assert.Equal(t, []string{
		"live POI source returned nothing relevant",
		"no curated data, using default catalog",
	}, warns)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateFetchingLive))
	assert.True(t, CanTransition(StateLiveFailed, StateUsingFallback))
	assert.True(t, CanTransition(StateUsingFallback, StateHardFailure))
	assert.False(t, CanTransition(StateLiveOK, StateUsingFallback))
	assert.False(t, CanTransition(StateIdle, StateDone))
	assert.False(t, CanTransition(StateDone, StateIdle))
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateHardFailure.Terminal())
	assert.False(t, StateLiveOK.Terminal())
}

func TestRun_IllegalTransitionPanics(t *testing.T) {
	r := newRun(discard())
	assert.Panics(t, func() { r.to(StateDone) })
}
