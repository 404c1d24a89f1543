package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

// на экваторе 0.0001 градуса ~ 11.13 м
const degreeStep = 0.0001

func TestDistance(t *testing.T) {
	a := orb.Point{37.6173, 55.7558} // Москва
	b := orb.Point{30.3351, 59.9343} // Санкт-Петербург

	d := Distance(a, b)
	assert.InDelta(t, 634_000, d, 5_000)
	assert.InDelta(t, d, Distance(b, a), 1e-6)
	assert.Zero(t, Distance(a, a))
}

func TestWithinRadius(t *testing.T) {
	center := orb.Point{0, 0}
	near := orb.Point{degreeStep, 0}

	assert.True(t, WithinRadius(center, near, 12))
	assert.False(t, WithinRadius(center, near, 11))
	assert.True(t, WithinRadius(center, center, 0))
}

func TestDistanceToLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {10 * degreeStep, 0}}

	tests := []struct {
		name  string
		point orb.Point
		want  float64
	}{
		{name: "above the middle", point: orb.Point{5 * degreeStep, degreeStep}, want: 11.13},
		{name: "on the line", point: orb.Point{3 * degreeStep, 0}, want: 0},
		{name: "beyond the end", point: orb.Point{12 * degreeStep, 0}, want: 22.26},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceToLine(tt.point, line), 0.1)
		})
	}
}

func TestDistanceToLine_Degenerate(t *testing.T) {
	p := orb.Point{degreeStep, 0}

	assert.True(t, math.IsInf(DistanceToLine(p, nil), 1))
	assert.InDelta(t, Distance(p, orb.Point{0, 0}), DistanceToLine(p, orb.LineString{{0, 0}}), 1e-9)
}

func TestLength(t *testing.T) {
	line := orb.LineString{{0, 0}, {degreeStep, 0}, {2 * degreeStep, 0}}
	assert.InDelta(t, 22.26, Length(line), 0.1)
}

func TestPadBound(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0, 0}}
	padded := PadBound(b, 100)

	assert.True(t, padded.Contains(orb.Point{5 * degreeStep, 5 * degreeStep}))
	assert.False(t, padded.Contains(orb.Point{20 * degreeStep, 0}))

	around := BoundAround(orb.Point{0, 0}, 100)
	assert.True(t, around.Contains(orb.Point{5 * degreeStep, 0}))
}
