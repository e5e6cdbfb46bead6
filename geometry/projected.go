package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/everystreet/go-proj/v8/proj"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
)

const (
	DefaultSourceCRS = "EPSG:4674"
	// DefaultProjectedCRS is SIRGAS 2000 / UTM zone 22S.
	DefaultProjectedCRS = "EPSG:31982"
)

// ProjectedConverter reprojects every vertex through PROJ and takes the
// planar area in the target CRS, which must be metric.
type ProjectedConverter struct {
	SourceCRS string
	TargetCRS string
}

func (c ProjectedConverter) Hectares(g *geos.Geom) (float64, error) {
	m2, err := c.SquareMeters(g)
	if err != nil {
		return 0, err
	}
	return m2 / SquareMetersPerHectare, nil
}

func (c ProjectedConverter) SquareMeters(g *geos.Geom) (float64, error) {
	polygons, err := Polygons(g)
	if err != nil {
		return 0, err
	}

	source, target := c.SourceCRS, c.TargetCRS
	if source == "" {
		source = DefaultSourceCRS
	}
	if target == "" {
		target = DefaultProjectedCRS
	}

	var area float64
	var inner error
	err = proj.CRSToCRS(source, target, func(pj proj.Projection) {
		for _, p := range polygons {
			a, err := projectedPolygonArea(pj, p)
			if err != nil {
				inner = err
				return
			}
			area += a
		}
	})
	if err != nil {
		return 0, fmt.Errorf("projecting %s to %s: %w", source, target, err)
	}
	if inner != nil {
		return 0, inner
	}
	return area, nil
}

var errNonFinite = errors.New("projection produced non-finite coordinates")

func projectedPolygonArea(pj proj.Projection, p *geom.Polygon) (area float64, err error) {
	defer recoverInto(&err)

	rings := make([][][]float64, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		coords := make([][]float64, ring.NumCoords())
		for j := range coords {
			c := ring.Coord(j)
			xy := proj.XY{X: c.X(), Y: c.Y()}
			proj.TransformForward(pj, &xy)
			if !finite(xy.X) || !finite(xy.Y) {
				return 0, errNonFinite
			}
			coords[j] = []float64{xy.X, xy.Y}
		}
		rings = append(rings, coords)
	}

	projected := geos.NewPolygon(rings)
	return projected.Area(), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
