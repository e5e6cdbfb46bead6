package layers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/metrics"
	"github.com/bsaid97/go-overlap-checker/overlap"
	"github.com/bsaid97/go-overlap-checker/report"
	"github.com/bsaid97/go-overlap-checker/utils"
)

// Processor applies the overlap engine to every record of one layer. A
// failing record is counted as not evaluated and never stops the others.
type Processor struct {
	Engine    *overlap.Engine
	Threshold float64
	Workers   *utils.ParallelProcessor

	policyFor func(Kind) (Policy, bool)
}

func NewProcessor(engine *overlap.Engine, threshold float64, workers *utils.ParallelProcessor) *Processor {
	if workers == nil {
		workers = utils.NewParallelProcessor(0)
	}
	return &Processor{
		Engine:    engine,
		Threshold: threshold,
		Workers:   workers,
		policyFor: PolicyFor,
	}
}

type outcome struct {
	item         *report.OverlapItem
	notEvaluated bool
	excluded     bool
}

// Process evaluates records against target. Records still queued when ctx is
// done are counted as not evaluated.
func (p *Processor) Process(ctx context.Context, target string, records []Record, spec Spec) report.BaseResult {
	name := spec.DisplayName()
	if len(records) == 0 {
		return report.NewBaseResult(name, nil, 0)
	}

	policy, ok := p.policyFor(spec.Kind)
	if !ok {
		logger.L().Error("no policy for layer kind", zap.String("kind", string(spec.Kind)))
		return report.NewBaseResult(name, nil, len(records))
	}

	start := time.Now()
	outcomes := utils.ProcessBatch(p.Workers, records, func(_ int, rec Record) outcome {
		if ctx.Err() != nil {
			return outcome{notEvaluated: true}
		}
		return p.evaluate(target, rec, policy, name)
	}, name)

	items := make([]report.OverlapItem, 0)
	notEvaluated, excluded := 0, 0
	for _, o := range outcomes {
		switch {
		case o.notEvaluated:
			notEvaluated++
		case o.excluded:
			excluded++
		case o.item != nil:
			items = append(items, *o.item)
		}
	}

	layer := string(spec.Kind)
	metrics.RecordsTotal.WithLabelValues(layer, metrics.OutcomeFound).Add(float64(len(items)))
	metrics.RecordsTotal.WithLabelValues(layer, metrics.OutcomeExcluded).Add(float64(excluded))
	metrics.RecordsTotal.WithLabelValues(layer, metrics.OutcomeNotEvaluated).Add(float64(notEvaluated))
	metrics.RecordsTotal.WithLabelValues(layer, metrics.OutcomeNoOverlap).Add(float64(len(records) - len(items) - excluded - notEvaluated))
	metrics.LayerDurationMs.WithLabelValues(layer).Observe(float64(time.Since(start).Milliseconds()))

	logger.L().Debug("layer processed",
		zap.String("layer", name),
		zap.Int("records", len(records)),
		zap.Int("found", len(items)),
		zap.Int("excluded", excluded),
		zap.Int("not_evaluated", notEvaluated),
		zap.Duration("took", time.Since(start)),
	)
	return report.NewBaseResult(name, items, notEvaluated)
}

func (p *Processor) evaluate(target string, rec Record, policy Policy, name string) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Debug("record processing failed", zap.String("layer", name), zap.Any("panic", r))
			out = outcome{notEvaluated: true}
		}
	}()

	ha := p.Engine.OverlapHa(target, rec.Geometry)
	if ha == nil {
		return outcome{notEvaluated: true}
	}
	if *ha <= 0 {
		return outcome{}
	}

	if policy.UsesSubjectArea && !overlap.ShouldInclude(*ha, p.subjectAreaHa(rec.Geometry), p.Threshold) {
		return outcome{excluded: true}
	}

	return outcome{item: &report.OverlapItem{
		AreaHa:     *ha,
		Layer:      string(policy.Kind),
		Attributes: policy.Describe(rec, name),
	}}
}

// subjectAreaHa measures a record with the engine's own area strategy so the
// inclusion ratio compares like with like. Failures yield nil.
func (p *Processor) subjectAreaHa(text string) *float64 {
	g := p.Engine.Parse(text)
	if g == nil {
		return nil
	}
	ha, err := p.Engine.Area().Hectares(g)
	if err != nil {
		return nil
	}
	return &ha
}
