package pipeline

import (
	"context"
	"fmt"

	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/overlap"
	"github.com/bsaid97/go-overlap-checker/store"
)

// Screen returns the largest overlap, in hectares, between wkt and any record
// of the layer of the given kind. Unlike Analyze a layer load failure is
// returned to the caller.
func (a *Analyzer) Screen(ctx context.Context, wkt string, kind layers.Kind) (float64, error) {
	target, err := NewTarget(wkt, nil)
	if err != nil {
		return 0, err
	}

	spec := a.spec(kind)
	layer, err := a.Source.Load(ctx, spec, store.LoadOptions{Bounds: target.Bounds()})
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", spec.DisplayName(), err)
	}

	candidates := make([]string, len(layer.Records))
	for i, rec := range layer.Records {
		candidates[i] = rec.Geometry
	}

	checker := a.Screener
	if checker == nil {
		checker = overlap.NewBatchChecker(overlap.DefaultMinOverlapHa)
	}
	return checker.MaxOverlapHa(target.WKT, candidates), nil
}
