package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/logger"
)

// CSV reads one <table>.csv per layer from Dir. The header row names the
// columns.
type CSV struct {
	Dir   string
	cache *fileCache
}

func NewCSV(dir string) *CSV {
	return &CSV{Dir: dir, cache: newFileCache()}
}

func (c *CSV) path(spec layers.Spec) string {
	return filepath.Join(c.Dir, spec.Table+".csv")
}

func (c *CSV) Load(ctx context.Context, spec layers.Spec, opts LoadOptions) (Layer, error) {
	if err := ctx.Err(); err != nil {
		return Layer{}, err
	}
	all, err := c.records(spec)
	if err != nil {
		return Layer{}, err
	}
	return newLayer(spec, all, len(all), opts), nil
}

func (c *CSV) FindParcel(ctx context.Context, spec layers.Spec, number string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	all, err := c.records(spec)
	if err != nil {
		return "", false, err
	}
	for _, rec := range all {
		if rec.Field(layers.FieldParcelNumber) == number {
			return rec.Geometry, true, nil
		}
	}
	return "", false, nil
}

func (c *CSV) Close() error { return nil }

func (c *CSV) records(spec layers.Spec) ([]layers.Record, error) {
	records, err := c.cache.get(c.path(spec), func(path string) ([]layers.Record, error) {
		records, err := readCSV(path, spec)
		if err == nil {
			logger.L().Debug("csv layer loaded", zap.String("path", path), zap.Int("records", len(records)))
		}
		return records, err
	})
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", spec.Kind, err)
	}
	return records, nil
}

func readCSV(path string, spec layers.Spec) ([]layers.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []layers.Record{}, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	geomCol, ok := columns[spec.GeometryField]
	if !ok {
		return nil, fmt.Errorf("%s has no %q column", path, spec.GeometryField)
	}

	records := make([]layers.Record, 0)
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", path, line, err)
		}
		geom := cell(row, geomCol)
		if geom == "" {
			continue
		}

		fields := make(map[string]string, len(spec.Fields))
		for key := range spec.Fields {
			if i, ok := columns[spec.Column(key)]; ok {
				fields[key] = cell(row, i)
			}
		}
		records = append(records, layers.Record{Geometry: geom, Fields: fields})
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
