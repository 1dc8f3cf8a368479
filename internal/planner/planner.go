// Package planner packs scored POIs into a day-by-day itinerary.
package planner

import (
	"math/rand/v2"

	"github.com/roadbook/roadbook-server/internal/domain"
)

// Packing limits.
const (
	MaxDayHours       = 8
	MaxSidesAfterMain = 2
	MaxSidesAlone     = 3

	MinDays     = 1
	MaxDays     = 3
	DefaultDays = 2
)

// Tip messages by average daily cost.
const (
	TipBusy    = "行程比较满，建议提前出门哦！记得带好充电宝~"
	TipRelaxed = "轻松愉快的行程，享受美好时光！"
	TipBudget  = "经济实惠的行程，性价比超高！"
	TipNoData  = "暂无可用数据，换个城市或目的试试吧"
)

// ClampDays maps out-of-range day counts to DefaultDays.
func ClampDays(days int) int {
	if days < MinDays || days > MaxDays {
		return DefaultDays
	}
	return days
}

// Planner builds itineraries. Main and side picks draw from rng.
type Planner struct {
	rng *rand.Rand
}

// New creates a planner drawing from rng.
func New(rng *rand.Rand) *Planner {
	return &Planner{rng: rng}
}

// Plan schedules pois over days. Each day gets one unused main activity
// plus up to two sides that fit the day, preferring the main's district.
// When mains run out a day is filled with up to three sides. A POI is
// never scheduled twice.
func (p *Planner) Plan(pois []domain.ScoredPOI, days int, intent domain.Intent) *domain.NestedPlan {
	days = ClampDays(days)
	if len(pois) == 0 {
		return &domain.NestedPlan{Days: []domain.DayPlan{}, Tips: TipNoData}
	}

	var mains, sides []int
	for i, poi := range pois {
		switch {
		case poi.DurationHours > MaxDayHours:
		case poi.IsMain():
			mains = append(mains, i)
		default:
			sides = append(sides, i)
		}
	}

	used := make(map[int]bool, len(pois))
	plan := &domain.NestedPlan{Days: make([]domain.DayPlan, 0, days)}

	for day := 1; day <= days; day++ {
		var picked []int
		hours := 0
		take := func(i int) {
			picked = append(picked, i)
			used[i] = true
			hours += pois[i].DurationHours
		}

		if main, ok := p.pick(unused(mains, used)); ok {
			take(main)
			district := pois[main].District
			for range MaxSidesAfterMain {
				fits := fitting(pois, unused(sides, used), hours)
				near := sameDistrict(pois, fits, district)
				if len(near) == 0 {
					near = fits
				}
				side, ok := p.pick(near)
				if !ok {
					break
				}
				take(side)
			}
		} else {
			for range MaxSidesAlone {
				side, ok := p.pick(fitting(pois, unused(sides, used), hours))
				if !ok {
					break
				}
				take(side)
			}
		}

		dp := domain.DayPlan{Day: day, Activities: make([]domain.Activity, 0, len(picked))}
		for slot, i := range picked {
			a := activity(pois[i].POI, TimeSlot(intent, slot, pois[i].Category))
			dp.Activities = append(dp.Activities, a)
			plan.TotalCost += a.Cost
		}
		plan.Days = append(plan.Days, dp)
	}

	plan.Tips = Tip(plan.TotalCost, days)
	return plan
}

func (p *Planner) pick(candidates []int) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[p.rng.IntN(len(candidates))], true
}

// Tip selects the tip tier from the average daily cost in yuan.
func Tip(totalCost int64, days int) string {
	if days < 1 {
		days = 1
	}
	avg := float64(totalCost) / float64(days)
	switch {
	case avg > 500:
		return TipBusy
	case avg >= 200:
		return TipRelaxed
	default:
		return TipBudget
	}
}

func activity(poi domain.POI, start string) domain.Activity {
	a := domain.Activity{
		Name:        poi.Name,
		Time:        start,
		Duration:    poi.DurationHours,
		Cost:        poi.Cost,
		Description: poi.Description,
		Address:     poi.Address,
	}
	if a.Description == "" {
		a.Description = poi.Category
	}
	if poi.Location != nil {
		loc := *poi.Location
		a.Location = &loc
	}
	if poi.Category != "" {
		a.Tags = []string{poi.Category}
	}
	return a
}

func unused(idx []int, used map[int]bool) []int {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if !used[i] {
			out = append(out, i)
		}
	}
	return out
}

func fitting(pois []domain.ScoredPOI, idx []int, hours int) []int {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if hours+pois[i].DurationHours <= MaxDayHours {
			out = append(out, i)
		}
	}
	return out
}

func sameDistrict(pois []domain.ScoredPOI, idx []int, district string) []int {
	if district == "" {
		return nil
	}
	var out []int
	for _, i := range idx {
		if pois[i].District == district {
			out = append(out, i)
		}
	}
	return out
}
