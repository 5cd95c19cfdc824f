package models

import "time"

type Reading struct {
	Timestamp    time.Time `json:"timestamp"`
	ValueMgPerDl int       `json:"value"`
	TrendArrow   int       `json:"trend"`
	ColorCode    *int      `json:"color,omitempty"`
}

// SameDay reports whether the reading falls on the calendar day of ref in loc.
func (r Reading) SameDay(ref time.Time, loc *time.Location) bool {
	y1, m1, d1 := r.Timestamp.In(loc).Date()
	y2, m2, d2 := ref.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// MeasurementLog is the persisted list of today's readings in arrival order.
type MeasurementLog struct {
	Readings []Reading `json:"readings"`
}
