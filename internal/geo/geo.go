// Package geo - геодезические утилиты поверх orb: расстояния в метрах,
// попадание в радиус, расстояние от точки до геометрии ребра.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

const metersPerDegree = orb.EarthRadius * math.Pi / 180

// Distance возвращает расстояние по большому кругу между точками в метрах
func Distance(a, b orb.Point) float64 {
	return orbgeo.DistanceHaversine(a, b)
}

// WithinRadius проверяет, что точка p лежит не дальше radius метров от center
func WithinRadius(center, p orb.Point, radius float64) bool {
	return Distance(center, p) <= radius
}

// Length возвращает длину линии в метрах
func Length(ls orb.LineString) float64 {
	return orbgeo.LengthHaversine(ls)
}

// DistanceToLine возвращает минимальное расстояние от точки до линии в метрах.
// Линия проецируется в локальную равнопромежуточную плоскость вокруг p,
// что точно на масштабе дорожных сегментов.
func DistanceToLine(p orb.Point, ls orb.LineString) float64 {
	switch len(ls) {
	case 0:
		return math.Inf(1)
	case 1:
		return Distance(p, ls[0])
	}

	cosLat := math.Cos(p.Lat() * math.Pi / 180)
	project := func(q orb.Point) orb.Point {
		return orb.Point{
			(q.Lon() - p.Lon()) * cosLat * metersPerDegree,
			(q.Lat() - p.Lat()) * metersPerDegree,
		}
	}

	origin := orb.Point{0, 0}
	best := math.Inf(1)
	prev := project(ls[0])
	for _, q := range ls[1:] {
		cur := project(q)
		if d := planar.DistanceFromSegment(prev, cur, origin); d < best {
			best = d
		}
		prev = cur
	}
	return best
}

// PadBound расширяет прямоугольник на meters метров во все стороны
func PadBound(b orb.Bound, meters float64) orb.Bound {
	return orbgeo.BoundPad(b, meters)
}

// BoundAround возвращает прямоугольник вокруг точки с полушириной meters
func BoundAround(center orb.Point, meters float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(center, meters)
}
