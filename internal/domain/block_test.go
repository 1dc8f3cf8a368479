package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_JSONKeepsVariant(t *testing.T) {
	blocks := []*Block{
		{ID: "d1", Type: BlockDayDivider, Order: 100, Content: DayDividerContent{DayIndex: 1, Label: "Day 1"}},
		{ID: "p1", Type: BlockPOI, Order: 200, Content: POIContent{
			Name: "外滩", Location: &LatLng{Lat: 31.24, Lng: 121.49}, DurationMinutes: 120, CostMinor: 0, Currency: "CNY", Tags: []string{"地标景点"},
		}},
		{ID: "t1", Type: BlockTransport, Order: 300, Content: TransportContent{Mode: TransportSubway, From: "外滩", To: "豫园", DurationMinutes: 15, CostMinor: 300}},
		{ID: "x1", Type: BlockText, Order: 400, Content: TextContent{Text: "记得带伞", Style: TextTip}},
		{ID: "i1", Type: BlockImage, Order: 500, Content: ImageContent{Images: []ImageRef{{URL: "https://img.test/a.jpg"}}, Caption: "夜景"}},
		{ID: "c1", Type: BlockChecklist, Order: 600, Content: ChecklistContent{Items: []ChecklistItem{{Text: "充电宝"}}, Columns: 2}},
	}

	for _, b := range blocks {
		t.Run(string(b.Type), func(t *testing.T) {
			b.UpdatedAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
			data, err := json.Marshal(b)
			require.NoError(t, err)

			var got Block
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, b.Type, got.Content.BlockType())
			assert.Equal(t, *b, got)
		})
	}
}

func TestBlock_UnmarshalUnknownType(t *testing.T) {
	var b Block
	err := json.Unmarshal([]byte(`{"id":"x","type":"video","order":1,"content":{}}`), &b)
	assert.Error(t, err)
}

func TestBlock_UnmarshalNullContent(t *testing.T) {
	var b Block
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","type":"text","order":1,"content":null}`), &b))
	assert.Equal(t, TextContent{}, b.Content)
}

func TestBlock_CostMinor(t *testing.T) {
	poi := &Block{Type: BlockPOI, Content: POIContent{CostMinor: 15000}}
	leg := &Block{Type: BlockTransport, Content: TransportContent{CostMinor: 400}}
	text := &Block{Type: BlockText, Content: TextContent{Text: "hi"}}

	c, ok := poi.CostMinor()
	assert.True(t, ok)
	assert.Equal(t, int64(15000), c)

	c, ok = leg.CostMinor()
	assert.True(t, ok)
	assert.Equal(t, int64(400), c)

	_, ok = text.CostMinor()
	assert.False(t, ok)
}

func TestBlock_CloneIsDeep(t *testing.T) {
	orig := &Block{ID: "p", Type: BlockPOI, Content: POIContent{Tags: []string{"a"}, Location: &LatLng{Lat: 1}}}
	cp := orig.Clone()

	c := cp.Content.(POIContent)
	c.Tags[0] = "b"
	c.Location.Lat = 2

	o := orig.Content.(POIContent)
	assert.Equal(t, "a", o.Tags[0])
	assert.Equal(t, 1.0, o.Location.Lat)
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in      string
		want    Intent
		wantErr bool
	}{
		{"family", IntentFamily, false},
		{" Couple ", IntentCouple, false},
		{"朋友小聚", IntentFriends, false},
		{"美食探店", IntentFood, false},
		{"business", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIntent(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntent_Label(t *testing.T) {
	assert.Equal(t, "亲子遛娃", IntentFamily.Label())
	assert.Equal(t, "情侣约会", IntentCouple.Label())
	assert.Len(t, Intents(), 4)
	assert.False(t, Intent("x").Valid())
}

func TestTripPatch_Apply(t *testing.T) {
	info := TripInfo{Title: "old", City: "上海", Status: TripStatusPlanning}
	title := "新标题"
	status := TripStatusCompleted

	TripPatch{Title: &title, Status: &status}.Apply(&info)

	assert.Equal(t, "新标题", info.Title)
	assert.Equal(t, "上海", info.City)
	assert.Equal(t, TripStatusCompleted, info.Status)
}

func TestSummarize(t *testing.T) {
	blocks := []*Block{
		{Type: BlockDayDivider, Content: DayDividerContent{DayIndex: 1}},
		{Type: BlockPOI, Content: POIContent{}},
		{Type: BlockPOI, Content: POIContent{}},
		{Type: BlockText, Content: TextContent{}},
	}
	s := Summarize(TripInfo{ID: "trip-1"}, blocks)

	assert.Equal(t, "trip-1", s.ID)
	assert.Equal(t, 4, s.BlockCount)
	assert.Equal(t, 2, s.POICount)
}

func TestPOI_IsMain(t *testing.T) {
	assert.True(t, POI{DurationHours: 4}.IsMain())
	assert.False(t, POI{DurationHours: 3}.IsMain())
}
