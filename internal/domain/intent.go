package domain

import (
	"fmt"
	"strings"
)

// Intent is one of the four fixed travel purposes. It drives scoring,
// time-slotting and budget bands.
type Intent string

// Travel intents.
const (
	IntentFamily  Intent = "family"
	IntentCouple  Intent = "couple"
	IntentFriends Intent = "friends"
	IntentFood    Intent = "food"
)

var intentLabels = map[Intent]string{
	IntentFamily:  "亲子遛娃",
	IntentCouple:  "情侣约会",
	IntentFriends: "朋友小聚",
	IntentFood:    "美食探店",
}

// Intents returns all intents in display order.
func Intents() []Intent {
	return []Intent{IntentFamily, IntentCouple, IntentFriends, IntentFood}
}

// Label returns the display tag, which is also the fallback catalog key.
func (i Intent) Label() string {
	return intentLabels[i]
}

// Valid reports whether i is one of the fixed intents.
func (i Intent) Valid() bool {
	_, ok := intentLabels[i]
	return ok
}

func (i Intent) String() string {
	return string(i)
}

// ParseIntent accepts either the enum name ("family") or its display tag ("亲子遛娃").
func ParseIntent(s string) (Intent, error) {
	s = strings.TrimSpace(s)
	if in := Intent(strings.ToLower(s)); in.Valid() {
		return in, nil
	}
	for in, label := range intentLabels {
		if label == s {
			return in, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q", s)
}
