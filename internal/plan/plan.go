// Package plan converts between the flat block list and the nested
// day/activity plan consumed by the poster renderer.
package plan

import (
	"fmt"
	"math"
	"slices"

	"github.com/roadbook/roadbook-server/internal/blocks"
	"github.com/roadbook/roadbook-server/internal/domain"
)

// Options describe the trip a generated plan belongs to.
type Options struct {
	City   string
	Intent domain.Intent
	// Days is used for the title when the plan itself has no days.
	Days int
}

// Title formats a generated trip title, e.g. "上海 2天 亲子遛娃".
func Title(city string, days int, intent domain.Intent) string {
	label := intent.Label()
	if label == "" {
		label = string(intent)
	}
	return fmt.Sprintf("%s %d天 %s", city, days, label)
}

// ToBlocks expands a nested plan into one day divider per day followed by one
// POI block per activity, keyed 100, 200, 300, …
func ToBlocks(p *domain.NestedPlan, opts Options, f *blocks.Factory) (domain.TripInfo, []*domain.Block) {
	var out []*domain.Block
	order := int64(0)
	next := func(b *domain.Block) {
		order += blocks.OrderIncrement
		b.Order = order
		out = append(out, b)
	}

	for i, day := range p.Days {
		dayIndex := day.Day
		if dayIndex < 1 {
			dayIndex = i + 1
		}
		next(f.Build(domain.DayDividerContent{DayIndex: dayIndex, Date: day.Date, Theme: day.Theme}))

		for _, a := range day.Activities {
			next(f.Build(domain.POIContent{
				Name:            a.Name,
				Address:         a.Address,
				Location:        copyLocation(a.Location),
				StartTime:       a.Time,
				DurationMinutes: a.Duration * 60,
				CostMinor:       blocks.YuanToMinor(a.Cost),
				Tags:            slices.Clone(a.Tags),
				Description:     a.Description,
			}))
		}
	}

	days := len(p.Days)
	if days == 0 {
		days = opts.Days
	}
	now := f.Now()
	info := domain.TripInfo{
		Title:     Title(opts.City, days, opts.Intent),
		City:      opts.City,
		Intent:    opts.Intent,
		DayCount:  len(p.Days),
		Status:    domain.TripStatusPlanning,
		Tips:      p.Tips,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, b := range out {
		if c, ok := b.CostMinor(); ok {
			info.TotalCostMinor += c
		}
	}
	return info, out
}

// FromBlocks projects blocks onto the nested view. Only POI blocks under a
// day divider become activities; POIs before the first divider and every
// other block type are not represented.
func FromBlocks(bs []*domain.Block, info domain.TripInfo) *domain.NestedPlan {
	sorted := slices.Clone(bs)
	slices.SortStableFunc(sorted, func(a, b *domain.Block) int {
		switch {
		case a.Order < b.Order:
			return -1
		case a.Order > b.Order:
			return 1
		}
		return 0
	})

	p := &domain.NestedPlan{Days: []domain.DayPlan{}, Tips: info.Tips}
	current := -1
	for _, b := range sorted {
		switch c := b.Content.(type) {
		case domain.DayDividerContent:
			p.Days = append(p.Days, domain.DayPlan{
				Day:        c.DayIndex,
				Date:       c.Date,
				Theme:      c.Theme,
				Activities: []domain.Activity{},
			})
			current = len(p.Days) - 1
		case domain.POIContent:
			if current < 0 {
				continue
			}
			a := domain.Activity{
				Name:        c.Name,
				Time:        c.StartTime,
				Duration:    int(math.Round(float64(c.DurationMinutes) / 60)),
				Cost:        minorToMajor(c.CostMinor),
				Description: c.Description,
				Address:     c.Address,
				Location:    copyLocation(c.Location),
			}
			if len(c.Tags) > 0 {
				a.Tags = slices.Clone(c.Tags)
			}
			p.Days[current].Activities = append(p.Days[current].Activities, a)
			p.TotalCost += a.Cost
		}
	}

	if p.TotalCost == 0 {
		p.TotalCost = minorToMajor(info.TotalCostMinor)
	}
	return p
}

func minorToMajor(minor int64) int64 {
	return int64(math.Round(float64(minor) / 100))
}

func copyLocation(l *domain.LatLng) *domain.LatLng {
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}
