package domain

// NestedPlan is the day/activity view of a document used by the poster
// renderer and legacy callers. Costs are whole yuan.
type NestedPlan struct {
	Days      []DayPlan `json:"days"`
	TotalCost int64     `json:"total_cost"`
	Tips      string    `json:"tips"`
}

// DayPlan is one day of a nested plan.
type DayPlan struct {
	Day        int        `json:"day"`
	Date       string     `json:"date,omitempty"`
	Theme      string     `json:"theme,omitempty"`
	Activities []Activity `json:"activities"`
}

// Activity is one scheduled place. Duration is in hours.
type Activity struct {
	Name        string   `json:"name"`
	Time        string   `json:"time"`
	Duration    int      `json:"duration"`
	Cost        int64    `json:"cost"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Location    *LatLng  `json:"location,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ActivityCount returns the number of activities across all days.
func (p *NestedPlan) ActivityCount() int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Activities)
	}
	return n
}
