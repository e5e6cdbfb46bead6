package geometry

import (
	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
)

// GeodesicConverter measures rings on the sphere, exterior minus holes.
type GeodesicConverter struct {
	RadiusMeters float64
}

func (c GeodesicConverter) Hectares(g *geos.Geom) (float64, error) {
	m2, err := c.SquareMeters(g)
	if err != nil {
		return 0, err
	}
	return m2 / SquareMetersPerHectare, nil
}

func (c GeodesicConverter) SquareMeters(g *geos.Geom) (float64, error) {
	polygons, err := Polygons(g)
	if err != nil {
		return 0, err
	}

	r := c.RadiusMeters
	if r <= 0 {
		r = EarthRadiusMeters
	}

	var steradians float64
	for _, p := range polygons {
		steradians += polygonSteradians(p)
	}
	return steradians * r * r, nil
}

func polygonSteradians(p *geom.Polygon) float64 {
	var area float64
	for i := 0; i < p.NumLinearRings(); i++ {
		a := loopFromRing(p.LinearRing(i)).Area()
		if i == 0 {
			area += a
		} else {
			area -= a
		}
	}
	if area < 0 {
		return 0
	}
	return area
}

// loopFromRing drops the closing coordinate, which s2 keeps implicit, and
// normalizes so the loop covers the smaller side of the sphere.
func loopFromRing(r *geom.LinearRing) *s2.Loop {
	n := r.NumCoords()
	if n < 4 {
		return s2.EmptyLoop()
	}
	pts := make([]s2.Point, n-1)
	for i := 0; i < n-1; i++ {
		c := r.Coord(i)
		pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(c.Y(), c.X()))
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop
}
