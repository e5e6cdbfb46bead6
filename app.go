package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/config"
	"github.com/bsaid97/go-overlap-checker/geometry"
	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/overlap"
	"github.com/bsaid97/go-overlap-checker/pipeline"
	"github.com/bsaid97/go-overlap-checker/reportcache"
	"github.com/bsaid97/go-overlap-checker/store"
	"github.com/bsaid97/go-overlap-checker/utils"
)

type app struct {
	analyzer *pipeline.Analyzer
	source   store.Source
	cache    *reportcache.Redis
}

// newApp wires the analyzer from cfg. progress, when set, receives per-layer
// progress snapshots.
func newApp(ctx context.Context, cfg *config.Config, progress utils.ProgressFunc) (*app, error) {
	engine, err := overlap.NewEngine(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	workers := utils.NewParallelProcessor(cfg.Workers)
	workers.Progress = progress
	processor := layers.NewProcessor(engine, cfg.Threshold, workers)

	area, err := geometry.NewAreaConverter(cfg.AreaStrategy, cfg.AreaOptions)
	if err != nil {
		return nil, err
	}

	specs, err := config.LoadLayers(cfg.LayersFile)
	if err != nil {
		return nil, err
	}

	source, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	analyzer := pipeline.NewAnalyzer(source, specs, pipeline.New(processor, area))
	analyzer.Timeout = cfg.Timeout
	analyzer.Screener = overlap.NewBatchChecker(cfg.Engine.MinOverlapHa)

	a := &app{analyzer: analyzer, source: source}
	if cache := reportcache.Open(cfg.Redis); cache != nil {
		a.cache = cache
		analyzer.Cache = cache
	}

	logger.L().Info("analyzer ready",
		zap.String("store", cfg.Store.Driver),
		zap.Int("layers", len(specs)),
		zap.String("target_area", cfg.AreaStrategy),
		zap.Int("workers", workers.NumWorkers),
		zap.Bool("report_cache", a.cache != nil),
	)
	return a, nil
}

func (a *app) Close() {
	if err := a.source.Close(); err != nil {
		logger.L().Warn("closing store", zap.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		logger.L().Warn("closing report cache", zap.Error(err))
	}
}
