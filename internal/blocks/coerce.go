package blocks

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/roadbook/roadbook-server/internal/domain"
)

// fields is raw block input keyed by canonical snake_case names.
type fields map[string]any

// aliases map legacy editor keys onto canonical ones, per block type.
var aliases = map[domain.BlockType]map[string]string{
	domain.BlockDayDivider: {"day": "day_index"},
	domain.BlockPOI:        {"duration": "duration_minutes", "time": "start_time"},
	domain.BlockTransport:  {"duration": "duration_minutes"},
	domain.BlockImage:      {"file_id": "file_ref"},
}

// canonical snake-cases keys and resolves legacy aliases. A bare "cost" is
// whole yuan and becomes cost_minor.
func canonical(t domain.BlockType, raw map[string]any) fields {
	out := make(fields, len(raw))
	for k, v := range raw {
		out[snake(k)] = v
	}
	for from, to := range aliases[t] {
		if v, ok := out[from]; ok {
			if _, set := out[to]; !set {
				out[to] = v
			}
			delete(out, from)
		}
	}
	if t == domain.BlockPOI || t == domain.BlockTransport {
		if v, ok := out["cost"]; ok {
			if _, set := out["cost_minor"]; !set {
				out["cost_minor"] = YuanToMinor(toInt(v))
			}
			delete(out, "cost")
		}
	}
	return out
}

// snake converts camelCase to snake_case; snake_case input is unchanged.
func snake(k string) string {
	var b strings.Builder
	for i, r := range k {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (f fields) has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

// str returns a string field; scalars are formatted, anything else is "".
func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// num returns def when the key is absent and 0 when the value is not a number.
func (f fields) num(key string, def int64) int64 {
	if !f.has(key) {
		return def
	}
	return toInt(f[key])
}

func (f fields) boolean(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

func toInt(v any) int64 {
	var x float64
	switch n := v.(type) {
	case float64:
		x = n
	case float32:
		x = float64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case int32:
		return int64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		x = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		x = f
	default:
		return 0
	}
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt64:
		return math.MaxInt64
	case x <= math.MinInt64:
		return math.MinInt64
	}
	return int64(math.Round(x))
}

func toFloat(v any) (float64, bool) {
	var x float64
	switch n := v.(type) {
	case float64:
		x = n
	case int:
		x = float64(n)
	case int64:
		x = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		x = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		x = f
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// clamp bounds n to [0, hi].
func clamp(n, hi int64) int64 {
	return min(nonNegative(n), hi)
}

// YuanToMinor converts whole yuan to fen, clamped to [0, MaxCostMinor].
func YuanToMinor(yuan int64) int64 {
	if yuan <= 0 {
		return 0
	}
	if yuan > MaxCostMinor/100 {
		return MaxCostMinor
	}
	return yuan * 100
}

func location(v any) *domain.LatLng {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	lat, okLat := toFloat(firstOf(m, "lat", "latitude"))
	lng, okLng := toFloat(firstOf(m, "lng", "lon", "longitude"))
	if !okLat || !okLng || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil
	}
	return &domain.LatLng{Lat: lat, Lng: lng}
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func stringList(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []string:
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		for _, s := range strings.Split(list, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// toFields flattens typed content into canonical raw form for patch merging.
func toFields(c domain.Content) (fields, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out fields
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
