package utils

import (
	"errors"
	"sort"

	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

// SpatialIndex is an STR-tree over parsed geometries. Add everything first:
// GEOS builds the tree on the first query and refuses inserts afterwards.
type SpatialIndex struct {
	tree       *geos.STRtree
	geometries []*IndexedGeometry
	queried    bool
}

var errIndexFrozen = errors.New("spatial index already queried")

type IndexedGeometry struct {
	Geom  *geos.Geom
	Index int
}

func NewSpatialIndex(nodeCapacity int) *SpatialIndex {
	if nodeCapacity < 2 {
		nodeCapacity = 10
	}
	return &SpatialIndex{
		tree:       geos.DefaultContext.NewSTRtree(nodeCapacity),
		geometries: make([]*IndexedGeometry, 0),
	}
}

func (si *SpatialIndex) AddGeometry(geom *geos.Geom, index int) error {
	if geom == nil {
		logger.L().Warn("nil geometry passed to AddGeometry", zap.Int("index", index))
		return nil
	}
	if si.queried {
		return errIndexFrozen
	}

	indexedGeom := &IndexedGeometry{Geom: geom, Index: index}
	if err := si.tree.Insert(geom, indexedGeom); err != nil {
		return err
	}
	si.geometries = append(si.geometries, indexedGeom)
	return nil
}

func (si *SpatialIndex) Len() int {
	return len(si.geometries)
}

// Candidates returns the geometries whose envelopes intersect the envelope of
// geom, ordered by Index. Exact tests are left to the caller.
func (si *SpatialIndex) Candidates(geom *geos.Geom) []*IndexedGeometry {
	if geom == nil || len(si.geometries) == 0 {
		return []*IndexedGeometry{}
	}
	si.queried = true

	// The callback runs with the GEOS context locked, so it only collects.
	candidates := make([]*IndexedGeometry, 0)
	si.tree.Query(geom, func(value any) {
		if ig, ok := value.(*IndexedGeometry); ok {
			candidates = append(candidates, ig)
		}
	})

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Index < candidates[j].Index
	})
	return candidates
}
