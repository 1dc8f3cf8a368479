package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEmbedded(t *testing.T, opts Options) *Catalog {
	t.Helper()
	c, err := New(discard(), opts)
	require.NoError(t, err)
	return c
}

func TestEmbedded_EveryListSupportsThreeDays(t *testing.T) {
	c := newEmbedded(t, Options{DefaultCity: "上海"})

	require.ElementsMatch(t, []string{"上海", "北京"}, c.Cities())
	for _, city := range c.Cities() {
		for _, intent := range domain.Intents() {
			pois := c.Lookup(city, intent)
			require.NotEmpty(t, pois, "%s/%s", city, intent)

			mains, sides := 0, 0
			seen := map[string]bool{}
			for _, p := range pois {
				assert.False(t, seen[p.Name], "duplicate %s in %s/%s", p.Name, city, intent)
				seen[p.Name] = true
				assert.Positive(t, p.DurationHours)
				assert.LessOrEqual(t, p.DurationHours, 8)
				assert.NotEmpty(t, p.District, p.Name)
				if p.IsMain() {
					mains++
				} else {
					sides++
				}
			}
			assert.GreaterOrEqual(t, mains, 3, "%s/%s mains", city, intent)
			assert.GreaterOrEqual(t, sides, 5, "%s/%s sides", city, intent)
		}
	}
}

func TestEmbedded_ShanghaiFamilyFillsADay(t *testing.T) {
	c := newEmbedded(t, Options{})

	for _, p := range c.Lookup("上海", domain.IntentFamily) {
		if p.IsMain() {
			assert.Equal(t, 4, p.DurationHours, p.Name)
		} else {
			assert.Equal(t, 2, p.DurationHours, p.Name)
		}
	}
}

func TestLookup_CanonicalizesCity(t *testing.T) {
	c := newEmbedded(t, Options{})

	assert.NotEmpty(t, c.Lookup(" 上海市 ", domain.IntentCouple))
	assert.Nil(t, c.Lookup("成都", domain.IntentCouple))
	assert.Nil(t, c.Lookup("上海", "business"))
}

func TestLookup_ReturnsCopy(t *testing.T) {
	c := newEmbedded(t, Options{})

	pois := c.Lookup("北京", domain.IntentFood)
	pois[0].Name = "changed"

	assert.NotEqual(t, "changed", c.Lookup("北京", domain.IntentFood)[0].Name)
}

func TestDefaults(t *testing.T) {
	c := newEmbedded(t, Options{DefaultCity: "北京市"})

	city, intent := c.Default()
	assert.Equal(t, "北京", city)
	assert.Equal(t, domain.IntentFamily, intent)
}

func TestParse(t *testing.T) {
	data, err := Parse([]byte(`{"成都市":{"美食探店":[{"name":"宽窄巷子","address":"成都市青羊区长顺上街127号","duration":3,"cost":50}]}}`))
	require.NoError(t, err)

	p := data["成都"]["美食探店"][0]
	assert.Equal(t, "青羊区", p.District)
	assert.Equal(t, 3, p.DurationHours)
	assert.Equal(t, int64(50), p.Cost)

	_, err = Parse([]byte(`{"成都":{"美食探店":[{"address":"x"}]}}`))
	assert.Error(t, err)
	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func writeOverride(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestOverride_MergesOverEmbedded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.json")
	writeOverride(t, path, `{"成都":{"美食探店":[{"name":"宽窄巷子","duration":3,"cost":50}]},"上海":{"美食探店":[{"name":"只此一家","duration":2,"cost":10}]}}`)

	c := newEmbedded(t, Options{OverridePath: path})

	assert.Len(t, c.Lookup("成都", domain.IntentFood), 1)
	assert.Equal(t, "只此一家", c.Lookup("上海", domain.IntentFood)[0].Name)
	assert.NotEmpty(t, c.Lookup("上海", domain.IntentFamily))
}

func TestOverride_MissingFileIsIgnored(t *testing.T) {
	c := newEmbedded(t, Options{OverridePath: filepath.Join(t.TempDir(), "absent.json")})

	assert.NotEmpty(t, c.Lookup("上海", domain.IntentFamily))
}

func TestOverride_BadReloadKeepsPreviousData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.json")
	writeOverride(t, path, `{"成都":{"美食探店":[{"name":"宽窄巷子"}]}}`)
	c := newEmbedded(t, Options{OverridePath: path})

	writeOverride(t, path, `{broken`)
	require.Error(t, c.Reload())

	assert.Len(t, c.Lookup("成都", domain.IntentFood), 1)
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.json")
	writeOverride(t, path, `{}`)
	c := newEmbedded(t, Options{OverridePath: path})

	w, err := watcher.New(discard(), watcher.Options{SettleDelay: 20 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()
	go func() { _ = c.Watch(ctx, w) }()

	// Give the watch a moment to register before writing.
	require.Eventually(t, func() bool {
		writeOverride(t, path, `{"杭州":{"情侣约会":[{"name":"西湖","duration":4}]}}`)
		return len(c.Lookup("杭州", domain.IntentCouple)) == 1
	}, 3*time.Second, 100*time.Millisecond)
}
