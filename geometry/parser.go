package geometry

import (
	"strings"

	"github.com/twpayne/go-geos"
)

// Parse reads WKT into a valid geometry. Blank or unparseable text yields nil,
// as does a geometry that is still invalid after one zero-width buffer pass.
func Parse(text string) (g *geos.Geom) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parsed, err := geos.NewGeomFromWKT(text)
	if err != nil {
		return nil
	}
	if parsed.IsValid() {
		return parsed
	}

	repaired := parsed.Buffer(0, 16)
	if repaired == nil || !repaired.IsValid() {
		return nil
	}
	return repaired
}

// IsPolygonal reports whether g is a polygon or multipolygon.
func IsPolygonal(g *geos.Geom) bool {
	if g == nil {
		return false
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		return true
	}
	return false
}
