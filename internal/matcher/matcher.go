package matcher

import (
	"cmp"
	"slices"

	"github.com/roadbook/roadbook-server/internal/domain"
)

// DefaultThreshold is the minimum score a live POI needs to be kept.
const DefaultThreshold = 5

// Matcher turns raw POIs into ranked candidates for the planner.
type Matcher struct {
	estimator Estimator
	threshold int
}

// New creates a matcher with the default threshold.
func New(estimator Estimator) *Matcher {
	return &Matcher{estimator: estimator, threshold: DefaultThreshold}
}

// WithThreshold returns a copy of m using threshold.
func (m *Matcher) WithThreshold(threshold int) *Matcher {
	cp := *m
	cp.threshold = threshold
	return &cp
}

// Threshold returns the live-POI cutoff.
func (m *Matcher) Threshold() int {
	return m.threshold
}

// MatchLive estimates duration and cost for every POI, scores it, drops
// those below the threshold and sorts the rest by descending score.
func (m *Matcher) MatchLive(pois []domain.POI, intent domain.Intent) []domain.ScoredPOI {
	out := make([]domain.ScoredPOI, 0, len(pois))
	for _, p := range pois {
		p.DurationHours = m.estimator.DurationHours(p)
		p.Cost = m.estimator.Cost(p, intent)
		s := Score(p, intent)
		if s < m.threshold {
			continue
		}
		out = append(out, domain.ScoredPOI{POI: p, Score: s})
	}
	sortByScore(out)
	return out
}

// RankCurated scores catalog POIs without filtering. Curated duration and
// cost are kept; only missing values are estimated.
func (m *Matcher) RankCurated(pois []domain.POI, intent domain.Intent) []domain.ScoredPOI {
	out := make([]domain.ScoredPOI, 0, len(pois))
	for _, p := range pois {
		if p.DurationHours <= 0 {
			p.DurationHours = m.estimator.DurationHours(p)
		}
		if p.Cost <= 0 {
			p.Cost = m.estimator.Cost(p, intent)
		}
		out = append(out, domain.ScoredPOI{POI: p, Score: Score(p, intent)})
	}
	sortByScore(out)
	return out
}

func sortByScore(ps []domain.ScoredPOI) {
	slices.SortStableFunc(ps, func(a, b domain.ScoredPOI) int {
		return cmp.Compare(b.Score, a.Score)
	})
}
