// Package trend classifies glucose deltas and converts units. It performs no I/O.
package trend

import (
	"cgmd/internal/models"
	"math"
	"time"
)

const (
	Fall       = 1
	SlightFall = 2
	Stable     = 3
	SlightRise = 4
	Rise       = 5
)

const (
	slightThreshold = 5
	mgdlPerMmol     = 18.0

	UnknownGlyph = "?"
	UnknownColor = "unknown"
)

var glyphs = map[int]string{
	Fall:       "↓",
	SlightFall: "↘",
	Stable:     "→",
	SlightRise: "↗",
	Rise:       "↑",
}

var colors = map[int]string{
	1: "green",
	2: "yellow",
	3: "orange",
	4: "red",
}

// ClassifyDelta maps a mg/dL difference onto the 1..5 trend scale.
func ClassifyDelta(diff int) int {
	switch {
	case diff == 0:
		return Stable
	case diff > slightThreshold:
		return Rise
	case diff > 0:
		return SlightRise
	case diff >= -slightThreshold:
		return SlightFall
	default:
		return Fall
	}
}

// ToMmol converts mg/dL to mmol/L rounded half away from zero at one decimal.
func ToMmol(valueMgPerDl int) float64 {
	return math.Round(float64(valueMgPerDl)/mgdlPerMmol*10) / 10
}

func ArrowGlyph(code int) string {
	if g, ok := glyphs[code]; ok {
		return g
	}
	return UnknownGlyph
}

func ColorName(code int) string {
	if c, ok := colors[code]; ok {
		return c
	}
	return UnknownColor
}

// SinceLast classifies the change from prev to cur. It returns nil when there
// is no previous reading or the gap between them exceeds threshold.
func SinceLast(prev *models.Reading, cur models.Reading, threshold time.Duration) *int {
	if prev == nil {
		return nil
	}
	gap := cur.Timestamp.Sub(prev.Timestamp)
	if gap < 0 || gap > threshold {
		return nil
	}
	code := ClassifyDelta(cur.ValueMgPerDl - prev.ValueMgPerDl)
	return &code
}

// Views renders the mg/dL and mmol/L views of r.
func Views(r models.Reading, sinceLast *int) (mgdl, mmol *models.GlucoseView) {
	base := models.GlucoseView{
		Timestamp:      r.Timestamp.UTC(),
		TrendCode:      r.TrendArrow,
		TrendGlyph:     ArrowGlyph(r.TrendArrow),
		SinceLastTrend: sinceLast,
	}
	if sinceLast != nil {
		g := ArrowGlyph(*sinceLast)
		base.SinceLastGlyph = &g
	}
	if r.ColorCode != nil {
		code := *r.ColorCode
		name := ColorName(code)
		base.ColorCode = &code
		base.ColorName = &name
	}

	mg := base
	mg.Value = float64(r.ValueMgPerDl)
	mm := base
	mm.Value = ToMmol(r.ValueMgPerDl)
	return &mg, &mm
}
