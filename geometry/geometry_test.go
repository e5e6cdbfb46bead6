package geometry

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
)

// squareWKT returns an axis-aligned square of the given area near the equator.
func squareWKT(minX, minY, hectares float64) string {
	side := math.Sqrt(hectares*SquareMetersPerHectare) / MetersPerDegreeLat
	maxX, maxY := minX+side, minY+side
	return fmt.Sprintf("POLYGON((%[1]v %[2]v, %[3]v %[2]v, %[3]v %[4]v, %[1]v %[4]v, %[1]v %[2]v))",
		minX, minY, maxX, maxY)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"blank", "", false},
		{"whitespace", "  \n\t", false},
		{"garbage", "not a geometry", false},
		{"truncated", "POLYGON((0 0, 1 0, 1 1", false},
		{"valid square", "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))", true},
		{"multipolygon", "MULTIPOLYGON(((0 0, 1 0, 1 1, 0 1, 0 0)), ((2 2, 3 2, 3 3, 2 3, 2 2)))", true},
		{"bowtie is repaired", "POLYGON((0 0, 2 2, 2 0, 0 2, 0 0))", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := Parse(tc.input)
			if !tc.ok {
				assert.Nil(t, g)
				return
			}
			require.NotNil(t, g)
			assert.True(t, g.IsValid())
		})
	}
}

func TestIsPolygonal(t *testing.T) {
	assert.True(t, IsPolygonal(Parse("POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))")))
	assert.False(t, IsPolygonal(Parse("POINT(1 1)")))
	assert.False(t, IsPolygonal(nil))
}

func TestBoxesIntersect(t *testing.T) {
	base := geos.NewBox2D(0, 0, 1, 1)
	tests := []struct {
		name  string
		other *geos.Box2D
		want  bool
	}{
		{"overlapping", geos.NewBox2D(0.5, 0.5, 2, 2), true},
		{"contained", geos.NewBox2D(0.2, 0.2, 0.3, 0.3), true},
		{"touching edge", geos.NewBox2D(1, 0, 2, 1), true},
		{"touching corner", geos.NewBox2D(1, 1, 2, 2), true},
		{"left of", geos.NewBox2D(-2, 0, -0.1, 1), false},
		{"right of", geos.NewBox2D(1.1, 0, 2, 1), false},
		{"below", geos.NewBox2D(0, -2, 1, -0.1), false},
		{"above", geos.NewBox2D(0, 1.1, 1, 2), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BoxesIntersect(base, tc.other))
			assert.Equal(t, tc.want, BoxesIntersect(tc.other, base))
		})
	}
	assert.False(t, BoxesIntersect(nil, base))
}

func TestBoundsIntersectIgnoresShape(t *testing.T) {
	// An L-shape and a square in its notch have overlapping boxes but no
	// common area; the bounds test must still say yes.
	l := Parse("POLYGON((0 0, 3 0, 3 1, 1 1, 1 3, 0 3, 0 0))")
	notch := Parse("POLYGON((2 2, 3 2, 3 3, 2 3, 2 2))")
	require.NotNil(t, l)
	require.NotNil(t, notch)
	assert.True(t, BoundsIntersect(l, notch))
	assert.False(t, l.Intersects(notch))
	assert.False(t, BoundsIntersect(nil, notch))
}

func TestPlanarConverter(t *testing.T) {
	g := Parse(squareWKT(0, 0, 100))
	require.NotNil(t, g)

	ha, err := PlanarConverter{}.Hectares(g)
	require.NoError(t, err)
	assert.InDelta(t, 100, ha, 0.01)

	_, err = PlanarConverter{}.Hectares(nil)
	assert.ErrorIs(t, err, ErrNilGeometry)
}

func TestPlanarConverterShrinksWithLatitude(t *testing.T) {
	equator := Parse("POLYGON((0 0, 0.01 0, 0.01 0.01, 0 0.01, 0 0))")
	south := Parse("POLYGON((0 -60, 0.01 -60, 0.01 -59.99, 0 -59.99, 0 -60))")
	require.NotNil(t, equator)
	require.NotNil(t, south)

	a, err := PlanarConverter{}.Hectares(equator)
	require.NoError(t, err)
	b, err := PlanarConverter{}.Hectares(south)
	require.NoError(t, err)
	assert.InDelta(t, a/2, b, a*0.01)
}

func TestGeodesicConverter(t *testing.T) {
	g := Parse(squareWKT(0, 0, 100))
	require.NotNil(t, g)

	ha, err := GeodesicConverter{}.Hectares(g)
	require.NoError(t, err)
	// The sphere is slightly smaller than the 111320 m/degree scale.
	assert.InDelta(t, 100, ha, 1)

	planar, err := PlanarConverter{}.Hectares(g)
	require.NoError(t, err)
	assert.NotEqual(t, planar, ha)
}

func TestGeodesicConverterSubtractsHoles(t *testing.T) {
	withHole := Parse("POLYGON((0 0, 0.02 0, 0.02 0.02, 0 0.02, 0 0), (0.005 0.005, 0.015 0.005, 0.015 0.015, 0.005 0.015, 0.005 0.005))")
	solid := Parse("POLYGON((0 0, 0.02 0, 0.02 0.02, 0 0.02, 0 0))")
	require.NotNil(t, withHole)
	require.NotNil(t, solid)

	c := GeodesicConverter{}
	full, err := c.SquareMeters(solid)
	require.NoError(t, err)
	holed, err := c.SquareMeters(withHole)
	require.NoError(t, err)
	assert.InDelta(t, full*0.75, holed, full*0.001)
}

func TestGeodesicConverterIgnoresOrientation(t *testing.T) {
	ccw := Parse("POLYGON((0 0, 0.01 0, 0.01 0.01, 0 0.01, 0 0))")
	cw := Parse("POLYGON((0 0, 0 0.01, 0.01 0.01, 0.01 0, 0 0))")
	require.NotNil(t, ccw)
	require.NotNil(t, cw)

	a, err := GeodesicConverter{}.SquareMeters(ccw)
	require.NoError(t, err)
	b, err := GeodesicConverter{}.SquareMeters(cw)
	require.NoError(t, err)
	assert.InDelta(t, a, b, 1e-6*a)
}

// utmSquareWKT returns a square of about the given area at lon/lat, with the
// longitude side widened for latitude.
func utmSquareWKT(lon, lat, hectares float64) string {
	dy := math.Sqrt(hectares*SquareMetersPerHectare) / MetersPerDegreeLat
	dx := dy / math.Cos(lat*math.Pi/180)
	return fmt.Sprintf("POLYGON((%[1]v %[2]v, %[3]v %[2]v, %[3]v %[4]v, %[1]v %[4]v, %[1]v %[2]v))",
		lon, lat, lon+dx, lat+dy)
}

func TestProjectedConverter(t *testing.T) {
	g := Parse(utmSquareWKT(-51, -15, 100))
	require.NotNil(t, g)

	projected, err := ProjectedConverter{}.Hectares(g)
	require.NoError(t, err)
	geodesic, err := GeodesicConverter{}.Hectares(g)
	require.NoError(t, err)

	assert.InDelta(t, geodesic, projected, geodesic*0.01)
	assert.NotEqual(t, geodesic, projected)

	explicit, err := ProjectedConverter{SourceCRS: DefaultSourceCRS, TargetCRS: DefaultProjectedCRS}.Hectares(g)
	require.NoError(t, err)
	assert.Equal(t, projected, explicit)
}

func TestProjectedConverterSubtractsHoles(t *testing.T) {
	solid := Parse("POLYGON((-51 -15, -50.98 -15, -50.98 -14.98, -51 -14.98, -51 -15))")
	withHole := Parse("POLYGON((-51 -15, -50.98 -15, -50.98 -14.98, -51 -14.98, -51 -15), " +
		"(-50.995 -14.995, -50.985 -14.995, -50.985 -14.985, -50.995 -14.985, -50.995 -14.995))")
	require.NotNil(t, solid)
	require.NotNil(t, withHole)

	full, err := ProjectedConverter{}.SquareMeters(solid)
	require.NoError(t, err)
	holed, err := ProjectedConverter{}.SquareMeters(withHole)
	require.NoError(t, err)
	assert.InDelta(t, full*0.75, holed, full*0.005)
}

func TestProjectedConverterErrors(t *testing.T) {
	g := Parse(utmSquareWKT(-51, -15, 100))
	require.NotNil(t, g)

	var err error
	assert.NotPanics(t, func() {
		_, err = ProjectedConverter{TargetCRS: "EPSG:0"}.Hectares(g)
	})
	assert.Error(t, err)

	assert.NotPanics(t, func() {
		_, err = ProjectedConverter{SourceCRS: "not a crs"}.SquareMeters(g)
	})
	assert.Error(t, err)

	_, err = ProjectedConverter{}.Hectares(Parse("LINESTRING(-51 -15, -50 -14)"))
	assert.ErrorIs(t, err, ErrNotPolygonal)
}

func TestPolygons(t *testing.T) {
	mp := Parse("MULTIPOLYGON(((0 0, 1 0, 1 1, 0 1, 0 0)), ((2 2, 3 2, 3 3, 2 3, 2 2)))")
	require.NotNil(t, mp)
	polygons, err := Polygons(mp)
	require.NoError(t, err)
	assert.Len(t, polygons, 2)

	_, err = Polygons(Parse("LINESTRING(0 0, 1 1)"))
	assert.ErrorIs(t, err, ErrNotPolygonal)

	_, err = Polygons(nil)
	assert.ErrorIs(t, err, ErrNilGeometry)
}

func TestMultiPolygonWKT(t *testing.T) {
	shell := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}

	text, err := PolygonWKT([][][2]float64{shell})
	require.NoError(t, err)
	g := Parse(text)
	require.NotNil(t, g)
	assert.Equal(t, geos.TypeIDPolygon, g.TypeID())

	other := [][2]float64{{2, 2}, {3, 2}, {3, 3}, {2, 3}, {2, 2}}
	text, err = MultiPolygonWKT([][][][2]float64{{shell}, {other}})
	require.NoError(t, err)
	g = Parse(text)
	require.NotNil(t, g)
	assert.Equal(t, geos.TypeIDMultiPolygon, g.TypeID())
	assert.InDelta(t, 2, g.Area(), 1e-9)

	_, err = MultiPolygonWKT(nil)
	assert.ErrorIs(t, err, ErrEmptyGeometry)
}

func TestNewAreaConverter(t *testing.T) {
	c, err := NewAreaConverter(StrategyPlanar, AreaOptions{})
	require.NoError(t, err)
	assert.IsType(t, PlanarConverter{}, c)

	c, err = NewAreaConverter("", AreaOptions{})
	require.NoError(t, err)
	assert.IsType(t, GeodesicConverter{}, c)

	c, err = NewAreaConverter(StrategyProjected, AreaOptions{TargetCRS: "EPSG:31983"})
	require.NoError(t, err)
	assert.Equal(t, ProjectedConverter{TargetCRS: "EPSG:31983"}, c)

	_, err = NewAreaConverter("mercator", AreaOptions{})
	assert.ErrorIs(t, err, ErrUnknownAreaKey)
}
