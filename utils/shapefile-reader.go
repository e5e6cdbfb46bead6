package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/geometry"
	"github.com/bsaid97/go-overlap-checker/logger"
)

// ShapeFeature is one polygon feature of a shapefile as WKT plus its DBF
// attributes keyed by field name.
type ShapeFeature struct {
	WKT        string
	Attributes map[string]string
}

type shapeReader interface {
	Next() bool
	Shape() (int, shp.Shape)
	Attribute(n int) string
	Fields() []shp.Field
	Err() error
	Close() error
}

// ReadShapefile reads every polygon feature of a .shp file, or of the single
// shapefile inside a .zip archive. Non-polygon shapes are skipped.
func ReadShapefile(path string) ([]ShapeFeature, error) {
	var (
		reader shapeReader
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		reader, err = shp.OpenZip(path)
	case ".shp":
		reader, err = shp.Open(path)
	default:
		return nil, fmt.Errorf("unsupported shapefile extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer reader.Close()

	fields := reader.Fields()
	features := make([]ShapeFeature, 0)
	for reader.Next() {
		n, shape := reader.Shape()
		rings, ok := polygonRings(shape)
		if !ok {
			logger.L().Debug("skipping non-polygon shape", zap.Int("index", n))
			continue
		}

		text, err := ringsToWKT(rings)
		if err != nil {
			logger.L().Warn("failed to encode shape", zap.Int("index", n), zap.Error(err))
			continue
		}

		attributes := make(map[string]string, len(fields))
		for i, f := range fields {
			attributes[f.String()] = strings.Trim(reader.Attribute(i), " \x00")
		}
		features = append(features, ShapeFeature{WKT: text, Attributes: attributes})
	}
	if err := reader.Err(); err != nil {
		return features, fmt.Errorf("failed to read shapefile %s: %w", path, err)
	}
	return features, nil
}

func polygonRings(shape shp.Shape) ([][]shp.Point, bool) {
	var parts []int32
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	default:
		return nil, false
	}

	rings := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			continue
		}
		rings = append(rings, points[start:end])
	}
	return rings, len(rings) > 0
}

// ringsToWKT groups shapefile rings into polygons. Clockwise rings are shells;
// counter-clockwise rings are holes of the shell before them.
func ringsToWKT(rings [][]shp.Point) (string, error) {
	var polygons [][][][2]float64
	for _, ring := range rings {
		coords := make([][2]float64, len(ring))
		for i, p := range ring {
			x, y := TruncateCoordinates(p.X, p.Y)
			coords[i] = [2]float64{x, y}
		}
		if n := len(coords); n > 0 && coords[0] != coords[n-1] {
			coords = append(coords, coords[0])
		}
		if len(coords) < 4 {
			continue
		}

		if isClockwise(coords) || len(polygons) == 0 {
			polygons = append(polygons, [][][2]float64{coords})
			continue
		}
		last := len(polygons) - 1
		polygons[last] = append(polygons[last], coords)
	}
	return geometry.MultiPolygonWKT(polygons)
}

func isClockwise(ring [][2]float64) bool {
	var a float64
	n := len(ring)
	for i := 0; i < n; i++ {
		p1, p2 := ring[i], ring[(i+1)%n]
		a += (p2[0] - p1[0]) * (p1[1] + p2[1])
	}
	return a > 0
}
