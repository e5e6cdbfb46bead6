package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/metrics"
	"github.com/bsaid97/go-overlap-checker/overlap"
	"github.com/bsaid97/go-overlap-checker/report"
	"github.com/bsaid97/go-overlap-checker/reportcache"
	"github.com/bsaid97/go-overlap-checker/store"
)

// Analysis outcomes used as the "outcome" label of metrics.AnalysesTotal.
const (
	outcomeOK            = "ok"
	outcomeEmptyTarget   = "empty_target"
	outcomeInvalidTarget = "invalid_target"
	outcomeNotFound      = "not_found"
)

// Request asks for one analysis. ExcludeParcel removes that parcel number
// from the parcel layer so a parcel is never reported against itself.
type Request struct {
	WKT           string `json:"wkt"`
	ExcludeParcel string `json:"car,omitempty"`
}

// ReportCache stores finished reports. Implementations swallow their own
// failures.
type ReportCache interface {
	Get(ctx context.Context, key string) (*report.FinalResult, bool)
	Set(ctx context.Context, key string, res *report.FinalResult)
}

// Analyzer loads the configured layers from a store and runs the pipeline
// over them.
type Analyzer struct {
	Source   store.Source
	Specs    []layers.Spec
	Pipeline *Pipeline
	// Timeout bounds a whole analysis; zero means none.
	Timeout time.Duration
	Cache   ReportCache
	// Screener backs Screen; nil uses a geodesic checker with the default floor.
	Screener *overlap.BatchChecker
}

func NewAnalyzer(source store.Source, specs []layers.Spec, p *Pipeline) *Analyzer {
	return &Analyzer{Source: source, Specs: specs, Pipeline: p}
}

func (a *Analyzer) Analyze(ctx context.Context, req Request) (res *report.FinalResult, err error) {
	start := time.Now()
	defer func() {
		switch {
		case errors.Is(err, ErrEmptyTarget):
			metrics.AnalysesTotal.WithLabelValues(outcomeEmptyTarget).Inc()
		case errors.Is(err, ErrInvalidTarget):
			metrics.AnalysesTotal.WithLabelValues(outcomeInvalidTarget).Inc()
		case err == nil:
			metrics.AnalysesTotal.WithLabelValues(outcomeOK).Inc()
			metrics.AnalysisDurationMs.Observe(float64(time.Since(start).Milliseconds()))
		}
	}()

	target, err := NewTarget(req.WKT, a.Pipeline.Area)
	if err != nil {
		return nil, err
	}
	exclude := strings.TrimSpace(req.ExcludeParcel)

	key := reportcache.Key(target.WKT, exclude, a.layerNames())
	if a.Cache != nil {
		if cached, ok := a.Cache.Get(ctx, key); ok {
			logger.L().Debug("report served from cache", zap.String("key", key))
			return cached, nil
		}
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	inputs := a.load(ctx, store.LoadOptions{ExcludeParcel: exclude, Bounds: target.Bounds()})
	res = a.Pipeline.RunTarget(ctx, target, inputs)

	// A report cut short by the deadline is not worth keeping.
	if a.Cache != nil && ctx.Err() == nil {
		a.Cache.Set(ctx, key, res)
	}
	return res, nil
}

// AnalyzeParcel analyzes the registered parcel with the given number against
// every layer, leaving the parcel itself out.
func (a *Analyzer) AnalyzeParcel(ctx context.Context, number string) (*report.FinalResult, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		metrics.AnalysesTotal.WithLabelValues(outcomeNotFound).Inc()
		return nil, ErrParcelNotFound
	}
	geom, ok, err := a.Source.FindParcel(ctx, a.spec(layers.KindParcel), number)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(geom) == "" {
		metrics.AnalysesTotal.WithLabelValues(outcomeNotFound).Inc()
		return nil, ErrParcelNotFound
	}
	return a.Analyze(ctx, Request{WKT: geom, ExcludeParcel: number})
}

// load fetches every layer concurrently. A layer that fails to load is
// logged and analyzed as empty.
func (a *Analyzer) load(ctx context.Context, opts store.LoadOptions) []LayerInput {
	inputs := make([]LayerInput, len(a.Specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range a.Specs {
		inputs[i] = LayerInput{Spec: spec}
		g.Go(func() error {
			start := time.Now()
			layer, err := a.Source.Load(gctx, spec, opts)
			if err != nil {
				logger.L().Warn("layer load failed, treating as empty",
					zap.String("layer", spec.DisplayName()), zap.Error(err))
				metrics.LayerLoadFailuresTotal.WithLabelValues(string(spec.Kind)).Inc()
				return nil
			}
			logger.L().Debug("layer loaded",
				zap.String("layer", spec.DisplayName()),
				zap.Int("records", len(layer.Records)),
				zap.Int("total", layer.Total),
				zap.Duration("took", time.Since(start)),
			)
			inputs[i] = LayerInput{Spec: spec, Records: layer.Records, Total: layer.Total}
			return nil
		})
	}
	_ = g.Wait()
	return inputs
}

func (a *Analyzer) spec(kind layers.Kind) layers.Spec {
	for _, s := range a.Specs {
		if s.Kind == kind {
			return s
		}
	}
	return layers.Spec{Kind: kind}.WithDefaults()
}

func (a *Analyzer) layerNames() []string {
	names := make([]string, len(a.Specs))
	for i, s := range a.Specs {
		names[i] = s.DisplayName()
	}
	return names
}
