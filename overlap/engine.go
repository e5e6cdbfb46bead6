// Package overlap measures how much of one polygon lies over another.
package overlap

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/geometry"
	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/metrics"
)

const (
	DefaultMinOverlapHa = 0.0001
	DefaultCacheSize    = 2048
)

type Options struct {
	// MinOverlapHa is the sliver floor; smaller intersections count as none.
	MinOverlapHa float64
	CacheSize    int
	// Prepared enables the prepared-geometry fast path for the first operand.
	Prepared bool
	// Area measures intersections. Defaults to the planar strategy.
	Area geometry.AreaConverter
}

func DefaultOptions() Options {
	return Options{
		MinOverlapHa: DefaultMinOverlapHa,
		CacheSize:    DefaultCacheSize,
		Prepared:     true,
		Area:         geometry.PlanarConverter{MetersPerDegree: geometry.MetersPerDegreeLat},
	}
}

// Stats counts engine work since construction.
type Stats struct {
	ParseHits        int64
	ParseMisses      int64
	BoundsRejections int64
	ExactTests       int64
}

// Engine computes pairwise overlap areas. It is safe for concurrent use; its
// caches only memoize parsing and may be evicted at any time.
type Engine struct {
	minOverlapHa float64
	area         geometry.AreaConverter
	parsed       *lru.Cache[string, *geos.Geom]
	prepared     *lru.Cache[string, *geos.PrepGeom]

	parseHits        atomic.Int64
	parseMisses      atomic.Int64
	boundsRejections atomic.Int64
	exactTests       atomic.Int64
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.MinOverlapHa < 0 {
		opts.MinOverlapHa = 0
	}
	if opts.Area == nil {
		opts.Area = geometry.PlanarConverter{}
	}

	parsed, err := lru.New[string, *geos.Geom](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		minOverlapHa: opts.MinOverlapHa,
		area:         opts.Area,
		parsed:       parsed,
	}
	if opts.Prepared {
		e.prepared, err = lru.New[string, *geos.PrepGeom](opts.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// OverlapHa returns the intersection area of a and b in hectares. nil means
// the pair could not be evaluated; zero means no overlap or a sliver below
// the floor.
func (e *Engine) OverlapHa(a, b string) (result *float64) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Debug("overlap computation failed", zap.Any("panic", r))
			result = nil
		}
	}()

	ga := e.Parse(a)
	if ga == nil {
		return nil
	}
	gb := e.Parse(b)
	if gb == nil {
		return nil
	}

	if !geometry.BoundsIntersect(ga, gb) {
		e.boundsRejections.Add(1)
		metrics.BoundsRejectionsTotal.Inc()
		return hectares(0)
	}

	e.exactTests.Add(1)
	if !e.intersects(a, ga, gb) {
		return hectares(0)
	}

	inter := ga.Intersection(gb)
	if inter == nil || inter.IsEmpty() {
		return hectares(0)
	}

	ha, err := e.area.Hectares(inter)
	if err != nil {
		logger.L().Debug("intersection area failed", zap.Error(err))
		return nil
	}
	if ha < e.minOverlapHa {
		return hectares(0)
	}
	return hectares(ha)
}

// Parse is geometry.Parse behind the engine's cache. Failures are cached too.
func (e *Engine) Parse(text string) *geos.Geom {
	if g, ok := e.parsed.Get(text); ok {
		e.parseHits.Add(1)
		metrics.ParseCacheHitsTotal.Inc()
		return g
	}
	e.parseMisses.Add(1)
	metrics.ParseCacheMissesTotal.Inc()

	g := geometry.Parse(text)
	e.parsed.Add(text, g)
	return g
}

func (e *Engine) intersects(key string, ga, gb *geos.Geom) bool {
	if e.prepared == nil {
		return ga.Intersects(gb)
	}
	pg, ok := e.prepared.Get(key)
	if !ok {
		pg = ga.Prepare()
		e.prepared.Add(key, pg)
	}
	return pg.Intersects(gb)
}

// Area exposes the converter used for intersections so callers can measure
// denominators with the same strategy.
func (e *Engine) Area() geometry.AreaConverter {
	return e.area
}

func (e *Engine) MinOverlapHa() float64 {
	return e.minOverlapHa
}

func (e *Engine) Stats() Stats {
	return Stats{
		ParseHits:        e.parseHits.Load(),
		ParseMisses:      e.parseMisses.Load(),
		BoundsRejections: e.boundsRejections.Load(),
		ExactTests:       e.exactTests.Load(),
	}
}

func hectares(v float64) *float64 {
	return &v
}
