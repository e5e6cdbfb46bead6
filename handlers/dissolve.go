package handlers

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/geometry"
	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/utils"
)

var ErrNoPolygons = errors.New("upload holds no usable polygons")

// CascadedUnion unions geometries pairwise, halving the list each level.
// Inputs are left untouched; intermediate unions are destroyed.
func CascadedUnion(geometries []*geos.Geom) (*geos.Geom, error) {
	switch len(geometries) {
	case 0:
		return nil, ErrNoPolygons
	case 1:
		return geometries[0], nil
	}

	mid := len(geometries) / 2
	left, err := CascadedUnion(geometries[:mid])
	if err != nil {
		return nil, err
	}
	right, err := CascadedUnion(geometries[mid:])
	if err != nil {
		return nil, err
	}

	result := left.Union(right)

	if mid > 1 {
		left.Destroy()
	}
	if len(geometries)-mid > 1 {
		right.Destroy()
	}
	return result, nil
}

// DissolveShapefile reads an uploaded shapefile (.shp or .zip) and returns
// its polygons merged into one target as WKT, truncated to the stored
// precision. Features that do not parse are skipped.
func DissolveShapefile(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("dissolving upload: %v", r)
		}
	}()

	features, err := utils.ReadShapefile(path)
	if err != nil {
		return "", err
	}

	geometries := make([]*geos.Geom, 0, len(features))
	for i, f := range features {
		g := geometry.Parse(f.WKT)
		if g == nil || !geometry.IsPolygonal(g) {
			logger.L().Debug("skipping upload feature", zap.Int("index", i))
			continue
		}
		geometries = append(geometries, g)
	}

	finalUnion, err := CascadedUnion(geometries)
	if err != nil {
		return "", err
	}
	if !finalUnion.IsValid() {
		finalUnion = finalUnion.MakeValidWithParams(geos.MakeValidStructure, geos.MakeValidDiscardCollapsed)
	}

	truncated, err := utils.TruncateFullGeometry(finalUnion)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPolygons, err)
	}
	logger.L().Debug("upload dissolved",
		zap.Int("features", len(features)),
		zap.Int("polygons", len(geometries)),
		zap.Bool("valid", truncated.IsValid()),
	)
	return truncated.ToWKT(), nil
}
