// Package pipeline runs a target geometry against every reference layer and
// assembles the report.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bsaid97/go-overlap-checker/geometry"
	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/report"
)

// LayerInput is one layer's loaded records. Total is the full size of the
// layer for the summary; when smaller than len(Records) the latter is used.
type LayerInput struct {
	Spec    layers.Spec
	Records []layers.Record
	Total   int
}

type Pipeline struct {
	Processor *layers.Processor
	// Area measures the target for the report only.
	Area geometry.AreaConverter
}

func New(processor *layers.Processor, area geometry.AreaConverter) *Pipeline {
	return &Pipeline{Processor: processor, Area: area}
}

// Run analyzes target against inputs. Only an empty or unusable target is an
// error; every other failure shows up as not-evaluated counts.
func (p *Pipeline) Run(ctx context.Context, target string, inputs []LayerInput) (*report.FinalResult, error) {
	t, err := NewTarget(target, p.Area)
	if err != nil {
		return nil, err
	}
	return p.RunTarget(ctx, t, inputs), nil
}

// RunTarget is Run for an already parsed target.
func (p *Pipeline) RunTarget(ctx context.Context, t *GeometryTarget, inputs []LayerInput) *report.FinalResult {
	start := time.Now()
	outcomes := make([]report.LayerOutcome, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			outcomes[i] = p.runLayer(gctx, t.WKT, in)
			return nil
		})
	}
	_ = g.Wait()

	res := report.Build(report.Combine(outcomes), t.AreaHa)
	logger.L().Debug("analysis finished",
		zap.Int("layers", len(inputs)),
		zap.Int("found", res.TotalOverlap),
		zap.Int("not_evaluated", res.NotEvaluated),
		zap.Duration("took", time.Since(start)),
	)
	return res
}

func (p *Pipeline) runLayer(ctx context.Context, target string, in LayerInput) (out report.LayerOutcome) {
	count := in.Total
	if count < len(in.Records) {
		count = len(in.Records)
	}
	name := in.Spec.DisplayName()

	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("layer processing failed", zap.String("layer", name), zap.Any("panic", r))
			out = report.LayerOutcome{
				Result:      report.NewBaseResult(name, nil, len(in.Records)),
				RecordCount: count,
			}
		}
	}()

	return report.LayerOutcome{
		Result:      p.Processor.Process(ctx, target, in.Records, in.Spec),
		RecordCount: count,
	}
}
