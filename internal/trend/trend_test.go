package trend

import (
	"cgmd/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDelta_Boundaries(t *testing.T) {
	tests := []struct {
		diff     int
		expected int
	}{
		{0, Stable},
		{1, SlightRise},
		{5, SlightRise},
		{6, Rise},
		{120, Rise},
		{-1, SlightFall},
		{-5, SlightFall},
		{-6, Fall},
		{-120, Fall},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyDelta(tt.diff), "diff=%d", tt.diff)
	}
}

func TestClassifyDelta_AlwaysInRange(t *testing.T) {
	for diff := -500; diff <= 500; diff++ {
		code := ClassifyDelta(diff)
		assert.GreaterOrEqual(t, code, 1)
		assert.LessOrEqual(t, code, 5)
	}
}

func TestToMmol(t *testing.T) {
	assert.Equal(t, 10.0, ToMmol(180))
	assert.Equal(t, 5.6, ToMmol(100))
	assert.Equal(t, 3.9, ToMmol(70))
	assert.Equal(t, 0.0, ToMmol(0))
}

func TestArrowGlyph(t *testing.T) {
	assert.Equal(t, "↓", ArrowGlyph(1))
	assert.Equal(t, "→", ArrowGlyph(3))
	assert.Equal(t, "↑", ArrowGlyph(5))
	assert.Equal(t, UnknownGlyph, ArrowGlyph(99))
	assert.Equal(t, UnknownGlyph, ArrowGlyph(0))
}

func TestArrowGlyph_Bijective(t *testing.T) {
	seen := make(map[string]bool)
	for code := 1; code <= 5; code++ {
		g := ArrowGlyph(code)
		assert.NotEqual(t, UnknownGlyph, g)
		assert.False(t, seen[g], "duplicate glyph %s", g)
		seen[g] = true
	}
}

func TestColorName(t *testing.T) {
	assert.Equal(t, "green", ColorName(1))
	assert.Equal(t, "yellow", ColorName(2))
	assert.Equal(t, "orange", ColorName(3))
	assert.Equal(t, "red", ColorName(4))
	assert.Equal(t, "unknown", ColorName(99))
}

func TestSinceLast(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	cur := models.Reading{Timestamp: now, ValueMgPerDl: 110}

	assert.Nil(t, SinceLast(nil, cur, 24*time.Minute))

	fresh := &models.Reading{Timestamp: now.Add(-5 * time.Minute), ValueMgPerDl: 100}
	code := SinceLast(fresh, cur, 24*time.Minute)
	require.NotNil(t, code)
	assert.Equal(t, Rise, *code)

	stale := &models.Reading{Timestamp: now.Add(-25 * time.Minute), ValueMgPerDl: 100}
	assert.Nil(t, SinceLast(stale, cur, 24*time.Minute))

	edge := &models.Reading{Timestamp: now.Add(-24 * time.Minute), ValueMgPerDl: 110}
	code = SinceLast(edge, cur, 24*time.Minute)
	require.NotNil(t, code)
	assert.Equal(t, Stable, *code)
}

func TestViews(t *testing.T) {
	color := 3
	r := models.Reading{
		Timestamp:    time.Date(2026, 10, 15, 12, 0, 0, 0, time.FixedZone("X", 3600)),
		ValueMgPerDl: 180,
		TrendArrow:   4,
		ColorCode:    &color,
	}
	since := SlightFall

	mg, mm := Views(r, &since)
	assert.Equal(t, 180.0, mg.Value)
	assert.Equal(t, 10.0, mm.Value)
	assert.Equal(t, "↗", mg.TrendGlyph)
	assert.Equal(t, time.UTC, mg.Timestamp.Location())
	require.NotNil(t, mm.SinceLastGlyph)
	assert.Equal(t, "↘", *mm.SinceLastGlyph)
	require.NotNil(t, mg.ColorName)
	assert.Equal(t, "orange", *mg.ColorName)
}

func TestViews_NoColorNoSinceLast(t *testing.T) {
	r := models.Reading{Timestamp: time.Now(), ValueMgPerDl: 100, TrendArrow: 9}
	mg, mm := Views(r, nil)
	assert.Nil(t, mg.ColorCode)
	assert.Nil(t, mm.ColorName)
	assert.Nil(t, mg.SinceLastTrend)
	assert.Equal(t, UnknownGlyph, mg.TrendGlyph)
	assert.Equal(t, 5.6, mm.Value)
}
