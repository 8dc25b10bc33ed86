package models

// AggregateReport is the result of analysing a window of wake events.
type AggregateReport struct {
	WindowDays      int         `json:"window_days" yaml:"window_days"`
	From            string      `json:"from" yaml:"from"`
	To              string      `json:"to" yaml:"to"`
	TotalEvents     int         `json:"total_events" yaml:"total_events"`
	WolSent         int         `json:"wol_sent" yaml:"wol_sent"`
	Online          int         `json:"online" yaml:"online"`
	Timeout         int         `json:"timeout" yaml:"timeout"`
	Failed          int         `json:"failed" yaml:"failed"`
	SuccessRate     *int        `json:"success_rate,omitempty" yaml:"success_rate,omitempty"` // nil when nothing was sent
	Hosts           []HostStats `json:"per_host" yaml:"per_host"`
	HourHistogram   [24]int     `json:"hour_histogram" yaml:"hour_histogram"`
	DayHistogram    [7]int      `json:"day_histogram" yaml:"day_histogram"` // 0 = Sunday
	DistinctDays    int         `json:"distinct_days" yaml:"distinct_days"`
	BusiestDay      DayCount    `json:"busiest_day" yaml:"busiest_day"`
	AvgEventsPerDay float64     `json:"avg_events_per_day" yaml:"avg_events_per_day"`
}

// HostStats aggregates events for one MAC address.
type HostStats struct {
	MACAddress  string `json:"mac" yaml:"mac"`
	Events      int    `json:"events" yaml:"events"`
	WolSent     int    `json:"wol_sent" yaml:"wol_sent"`
	Online      int    `json:"online" yaml:"online"`
	Timeout     int    `json:"timeout" yaml:"timeout"`
	Failed      int    `json:"failed" yaml:"failed"`
	SuccessRate *int   `json:"success_rate,omitempty" yaml:"success_rate,omitempty"`
}

// DayCount pairs a calendar date with an event count.
type DayCount struct {
	Date   string `json:"date" yaml:"date"`
	Events int    `json:"events" yaml:"events"`
}
