package matcher

import (
	"math"
	"math/rand/v2"

	"github.com/roadbook/roadbook-server/internal/domain"
)

// Estimator fills in duration and cost for POIs the source did not curate.
type Estimator interface {
	// DurationHours estimates how long a visit takes.
	DurationHours(p domain.POI) int
	// Cost estimates the per-visit cost in yuan for the intent.
	Cost(p domain.POI, intent domain.Intent) int64
}

// Budget is an intent's daily budget band in yuan.
type Budget struct {
	Min int64
	Max int64
}

var budgets = map[domain.Intent]Budget{
	domain.IntentFamily:  {Min: 300, Max: 1200},
	domain.IntentCouple:  {Min: 200, Max: 800},
	domain.IntentFriends: {Min: 100, Max: 600},
	domain.IntentFood:    {Min: 100, Max: 500},
}

var defaultBudget = Budget{Min: 100, Max: 500}

// BudgetFor returns the intent's budget band.
func BudgetFor(intent domain.Intent) Budget {
	if b, ok := budgets[intent]; ok {
		return b
	}
	return defaultBudget
}

type durationRule struct {
	match []string
	hours int
}

// Checked in order; the first match wins.
var durationRules = []durationRule{
	{match: []string{"theme park", "乐园", "游乐园", "迪士尼"}, hours: 6},
	{match: []string{"museum", "park", "博物馆", "公园", "科技馆", "动物园"}, hours: 4},
	{match: []string{"restaurant", "café", "cafe", "coffee", "餐厅", "咖啡"}, hours: 2},
}

// DefaultDurationHours is used when no category rule matches.
const DefaultDurationHours = 3

// CategoryEstimator looks up duration by category and draws cost at quarter
// scale from the intent's budget band.
type CategoryEstimator struct {
	rng *rand.Rand
}

// NewCategoryEstimator creates an estimator drawing from rng.
func NewCategoryEstimator(rng *rand.Rand) *CategoryEstimator {
	return &CategoryEstimator{rng: rng}
}

// DurationHours implements Estimator.
func (e *CategoryEstimator) DurationHours(p domain.POI) int {
	for _, rule := range durationRules {
		if containsAny(p.Category, rule.match) || containsAny(p.Name, rule.match) {
			return rule.hours
		}
	}
	return DefaultDurationHours
}

// Cost implements Estimator: floor(r*(max-min)/4) + min/4.
func (e *CategoryEstimator) Cost(_ domain.POI, intent domain.Intent) int64 {
	b := BudgetFor(intent)
	return int64(math.Floor(e.rng.Float64()*float64(b.Max-b.Min)/4)) + b.Min/4
}

var _ Estimator = (*CategoryEstimator)(nil)
