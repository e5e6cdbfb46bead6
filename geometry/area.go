package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geos"
)

const (
	// MetersPerDegreeLat is the length of one degree of latitude.
	MetersPerDegreeLat = 111320.0

	SquareMetersPerHectare = 10000.0

	// EarthRadiusMeters is the mean radius used for spherical areas.
	EarthRadiusMeters = 1000 * 6371
)

var (
	ErrNilGeometry    = errors.New("geometry is nil")
	ErrNotPolygonal   = errors.New("geometry is not polygonal")
	ErrEmptyGeometry  = errors.New("geometry is empty")
	ErrUnknownAreaKey = errors.New("unknown area strategy")
)

// AreaConverter measures a lon/lat geometry in hectares.
type AreaConverter interface {
	Hectares(g *geos.Geom) (float64, error)
}

// Strategy names accepted by NewAreaConverter.
const (
	StrategyPlanar    = "planar"
	StrategyGeodesic  = "geodesic"
	StrategyProjected = "projected"
)

// AreaOptions carries the knobs of every strategy; each one reads only its own.
type AreaOptions struct {
	MetersPerDegree float64
	RadiusMeters    float64
	SourceCRS       string
	TargetCRS       string
}

func NewAreaConverter(strategy string, opts AreaOptions) (AreaConverter, error) {
	switch strategy {
	case StrategyPlanar:
		return PlanarConverter{MetersPerDegree: opts.MetersPerDegree}, nil
	case "", StrategyGeodesic:
		return GeodesicConverter{RadiusMeters: opts.RadiusMeters}, nil
	case StrategyProjected:
		return ProjectedConverter{SourceCRS: opts.SourceCRS, TargetCRS: opts.TargetCRS}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAreaKey, strategy)
}

// PlanarConverter scales the degree² area by the meters per degree at the
// centroid latitude. Good enough for parcel-sized shapes.
type PlanarConverter struct {
	MetersPerDegree float64
}

func (c PlanarConverter) Hectares(g *geos.Geom) (ha float64, err error) {
	defer recoverInto(&err)

	if g == nil {
		return 0, ErrNilGeometry
	}
	if g.IsEmpty() {
		return 0, nil
	}

	k := c.MetersPerDegree
	if k <= 0 {
		k = MetersPerDegreeLat
	}

	centroid := g.Centroid()
	if centroid == nil || centroid.IsEmpty() {
		return 0, ErrEmptyGeometry
	}
	lonScale := math.Cos(centroid.Y()*math.Pi/180) * k

	return math.Abs(g.Area()*k*lonScale) / SquareMetersPerHectare, nil
}

// recoverInto turns a GEOS panic into an error on the named return.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("geos: %v", r)
	}
}
