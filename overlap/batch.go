package overlap

import (
	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/geometry"
	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/utils"
)

// BatchChecker screens one target against a materialized batch of candidate
// geometries and reports only the largest overlap.
type BatchChecker struct {
	MinOverlapHa float64
	NodeCapacity int
	// Area defaults to the geodesic strategy.
	Area geometry.AreaConverter
}

func NewBatchChecker(minOverlapHa float64) *BatchChecker {
	return &BatchChecker{
		MinOverlapHa: minOverlapHa,
		NodeCapacity: 10,
		Area:         geometry.GeodesicConverter{},
	}
}

// MaxOverlapHa returns the largest intersection between target and any
// candidate at or above the sliver floor, or zero. Candidates that do not
// parse are dropped, as is an unparseable target.
func (c *BatchChecker) MaxOverlapHa(target string, candidates []string) (best float64) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Warn("batch overlap check failed", zap.Any("panic", r))
		}
	}()

	tg := geometry.Parse(target)
	if tg == nil || len(candidates) == 0 {
		return 0
	}

	index := utils.NewSpatialIndex(c.NodeCapacity)
	for i, text := range candidates {
		g := geometry.Parse(text)
		if g == nil {
			continue
		}
		if err := index.AddGeometry(g, i); err != nil {
			logger.L().Warn("indexing candidate", zap.Int("index", i), zap.Error(err))
		}
	}

	area := c.Area
	if area == nil {
		area = geometry.GeodesicConverter{}
	}

	for _, candidate := range index.Candidates(tg) {
		if !tg.Intersects(candidate.Geom) {
			continue
		}
		inter := tg.Intersection(candidate.Geom)
		if inter == nil || inter.IsEmpty() {
			continue
		}
		ha, err := area.Hectares(inter)
		if err != nil {
			logger.L().Debug("candidate area failed", zap.Int("index", candidate.Index), zap.Error(err))
			continue
		}
		if ha >= c.MinOverlapHa && ha > best {
			best = ha
		}
	}
	return best
}
