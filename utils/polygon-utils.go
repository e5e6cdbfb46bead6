package utils

import (
	"errors"
	"math"

	"github.com/twpayne/go-geos"
)

// PRECISION is the number of decimals kept on every coordinate, about 1 cm
// at the equator.
var PRECISION int = 7

var errNilGeometry = errors.New("geometry is nil")

// TruncateFullGeometry rounds every polygon of feature to PRECISION decimals.
// Non-polygonal parts are dropped.
func TruncateFullGeometry(feature *geos.Geom) (*geos.Geom, error) {
	if feature == nil {
		return nil, errNilGeometry
	}

	var polygons []*geos.Geom
	for i := range feature.NumGeometries() {
		geometry := feature.Geometry(i)
		switch geometry.TypeID() {
		case geos.TypeIDPolygon:
			if p := TruncateSinglePolygon(geometry); p != nil {
				polygons = append(polygons, p)
			}
		case geos.TypeIDMultiPolygon:
			for j := range geometry.NumGeometries() {
				if p := TruncateSinglePolygon(geometry.Geometry(j)); p != nil {
					polygons = append(polygons, p)
				}
			}
		}
	}

	switch len(polygons) {
	case 0:
		return nil, errors.New("geometry has no polygons")
	case 1:
		return polygons[0], nil
	}
	return geos.NewCollection(geos.TypeIDMultiPolygon, polygons), nil
}

// TruncateSinglePolygon returns nil when the shell collapses. Holes that stop
// being valid rings are dropped.
func TruncateSinglePolygon(polygon *geos.Geom) *geos.Geom {
	shell := polygon.ExteriorRing()
	if shell == nil || shell.CoordSeq().Size() <= 3 {
		return nil
	}

	rings := [][][]float64{truncateRing(shell.CoordSeq())}
	for r := range polygon.NumInteriorRings() {
		seq := polygon.InteriorRing(r).CoordSeq()
		if seq.Size() <= 3 {
			continue
		}
		ring := truncateRing(seq)
		testPolygon := geos.NewPolygon([][][]float64{ring})
		if testPolygon.IsValid() {
			rings = append(rings, ring)
		}
		testPolygon.Destroy()
	}

	return geos.NewPolygon(rings)
}

func truncateRing(seq *geos.CoordSeq) [][]float64 {
	coords := make([][]float64, 0, seq.Size())
	for k := range seq.Size() {
		x, y := TruncateCoordinates(seq.X(k), seq.Y(k))
		coords = append(coords, []float64{x, y})
	}
	return coords
}

func TruncateCoordinates(x float64, y float64) (float64, float64) {
	return roundFloat(x, uint(PRECISION)), roundFloat(y, uint(PRECISION))
}

func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
