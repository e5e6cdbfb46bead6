package geometry

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
	"github.com/twpayne/go-geos"
)

// Polygons flattens the polygonal parts of g. Lines and points left over from
// an intersection are skipped; a geometry with no polygonal part is an error.
func Polygons(g *geos.Geom) (polygons []*geom.Polygon, err error) {
	defer recoverInto(&err)

	if g == nil {
		return nil, ErrNilGeometry
	}
	if g.IsEmpty() {
		return nil, nil
	}

	t, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decoding wkb: %w", err)
	}
	polygons = collectPolygons(t, polygons)
	if len(polygons) == 0 {
		return nil, ErrNotPolygonal
	}
	return polygons, nil
}

func collectPolygons(t geom.T, out []*geom.Polygon) []*geom.Polygon {
	switch t := t.(type) {
	case *geom.Polygon:
		out = append(out, t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			out = append(out, t.Polygon(i))
		}
	case *geom.GeometryCollection:
		for _, child := range t.Geoms() {
			out = collectPolygons(child, out)
		}
	}
	return out
}

// PolygonWKT encodes rings of [x, y] pairs; the first ring is the shell.
func PolygonWKT(rings [][][2]float64) (string, error) {
	return MultiPolygonWKT([][][][2]float64{rings})
}

// MultiPolygonWKT encodes polygons of rings. A single polygon is written as
// POLYGON, anything more as MULTIPOLYGON.
func MultiPolygonWKT(polygons [][][][2]float64) (string, error) {
	if len(polygons) == 0 {
		return "", ErrEmptyGeometry
	}

	coords := make([][][]geom.Coord, len(polygons))
	for i, rings := range polygons {
		coords[i] = make([][]geom.Coord, len(rings))
		for j, ring := range rings {
			coords[i][j] = make([]geom.Coord, len(ring))
			for k, xy := range ring {
				coords[i][j][k] = geom.Coord{xy[0], xy[1]}
			}
		}
	}

	if len(coords) == 1 {
		p, err := geom.NewPolygon(geom.XY).SetCoords(coords[0])
		if err != nil {
			return "", err
		}
		return wkt.Marshal(p)
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(coords)
	if err != nil {
		return "", err
	}
	return wkt.Marshal(mp)
}
