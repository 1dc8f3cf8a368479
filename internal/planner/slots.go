package planner

import (
	"fmt"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/normalize"
)

var slotTables = map[domain.Intent][]string{
	domain.IntentFamily:  {"09:00", "13:00", "15:30", "17:30"},
	domain.IntentCouple:  {"10:00", "14:00", "17:00", "19:30"},
	domain.IntentFriends: {"10:00", "13:30", "16:00", "19:00"},
	domain.IntentFood:    {"08:00", "12:00", "15:00", "18:30"},
}

type categorySlot struct {
	match []string
	start string
}

// Couples get venue-specific hours regardless of position.
var coupleSlots = []categorySlot{
	{match: []string{"coffee", "café", "cafe", "咖啡"}, start: "15:00"},
	{match: []string{"bar", "酒吧"}, start: "21:00"},
	{match: []string{"park", "公园"}, start: "10:00"},
}

// TimeSlot returns the start time of the index-th activity of a day.
func TimeSlot(intent domain.Intent, index int, category string) string {
	if intent == domain.IntentCouple {
		for _, cs := range coupleSlots {
			for _, m := range cs.match {
				if normalize.ContainsFold(category, m) {
					return cs.start
				}
			}
		}
	}

	table, ok := slotTables[intent]
	if !ok {
		table = slotTables[domain.IntentFamily]
	}
	if index >= 0 && index < len(table) {
		return table[index]
	}
	return fmt.Sprintf("%02d:00", min(9+2*index, 22))
}
