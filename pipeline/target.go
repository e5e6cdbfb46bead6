package pipeline

import (
	"errors"
	"strings"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/geometry"
	"github.com/bsaid97/go-overlap-checker/logger"
)

var (
	ErrEmptyTarget    = errors.New("target geometry is empty")
	ErrInvalidTarget  = errors.New("target geometry is invalid")
	ErrParcelNotFound = errors.New("parcel not found")
)

// GeometryTarget is the area under analysis. AreaHa and AreaM2 are nil when
// the area could not be measured; that never stops an analysis.
type GeometryTarget struct {
	WKT    string
	Geom   *geos.Geom
	AreaM2 *float64
	AreaHa *float64
}

// NewTarget parses text, repairing it when needed, and measures it with area.
func NewTarget(text string, area geometry.AreaConverter) (*GeometryTarget, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyTarget
	}
	g := geometry.Parse(text)
	if g == nil || g.IsEmpty() || !geometry.IsPolygonal(g) {
		return nil, ErrInvalidTarget
	}

	t := &GeometryTarget{WKT: text, Geom: g}
	if area == nil {
		return t, nil
	}
	ha, err := area.Hectares(g)
	if err != nil {
		logger.L().Warn("target area unavailable", zap.Error(err))
		return t, nil
	}
	m2 := ha * geometry.SquareMetersPerHectare
	t.AreaHa, t.AreaM2 = &ha, &m2
	return t, nil
}

// Bounds is the target's envelope, or nil for an empty target.
func (t *GeometryTarget) Bounds() *geos.Box2D {
	if t == nil || t.Geom == nil || t.Geom.IsEmpty() {
		return nil
	}
	return t.Geom.Bounds()
}
