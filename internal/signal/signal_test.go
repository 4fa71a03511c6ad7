package signal

import (
	"testing"

	"trailbot/internal/analysis/indicator"

	"github.com/stretchr/testify/assert"
)

func pt(spread float64) indicator.Point {
	return indicator.Point{EMAFast: 100 + spread, EMASlow: 100}
}

func TestDetectCrossoverLaw(t *testing.T) {
	cases := []struct {
		name       string
		prev, last float64
		want       Signal
	}{
		{"cross up", -0.5, 0.3, Long},
		{"touch then up", 0, 0.1, Long},
		{"cross down", 0.4, -0.2, Short},
		{"touch then down", 0, -0.1, Short},
		{"stay above", 0.2, 0.5, None},
		{"stay below", -0.2, -0.5, None},
		{"both zero", 0, 0, None},
		{"fall to zero", 0.3, 0, None},
		{"rise to zero", -0.3, 0, None},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(pt(tc.prev), pt(tc.last)))
		})
	}
}

func TestDetectIsPureAndExclusive(t *testing.T) {
	spreads := []float64{-2, -0.5, -1e-9, 0, 1e-9, 0.5, 2}
	for _, p := range spreads {
		for _, l := range spreads {
			first := Detect(pt(p), pt(l))
			second := Detect(pt(p), pt(l))
			assert.Equal(t, first, second)
			assert.Contains(t, []Signal{None, Long, Short}, first)
			if first == Long {
				assert.True(t, p <= 0 && l > 0)
			}
			if first == Short {
				assert.True(t, p >= 0 && l < 0)
			}
		}
	}
}

func TestFromSeriesNeedsTwoPoints(t *testing.T) {
	assert.Equal(t, None, FromSeries(nil))
	assert.Equal(t, None, FromSeries([]indicator.Point{pt(1)}))
	assert.Equal(t, Long, FromSeries([]indicator.Point{pt(-3), pt(-0.5), pt(0.3)}))
}

func TestFromPositionAmount(t *testing.T) {
	assert.Equal(t, Long, FromPositionAmount(5))
	assert.Equal(t, Short, FromPositionAmount(-5))
	assert.Equal(t, None, FromPositionAmount(0))
}

func TestStringAndParse(t *testing.T) {
	for _, s := range []Signal{None, Long, Short} {
		assert.Equal(t, s, Parse(s.String()))
	}
	assert.Equal(t, None, Parse("sideways"))
}
