package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/utils"
)

// Shapefile reads <table>.shp, or <table>.zip holding a single shapefile,
// per layer from Dir. DBF field names are matched through the layer's field
// map, so Fields usually needs overriding to the 10-character DBF names.
type Shapefile struct {
	Dir   string
	cache *fileCache
}

func NewShapefile(dir string) *Shapefile {
	return &Shapefile{Dir: dir, cache: newFileCache()}
}

func (s *Shapefile) path(spec layers.Spec) string {
	shpPath := filepath.Join(s.Dir, spec.Table+".shp")
	if _, err := os.Stat(shpPath); err == nil {
		return shpPath
	}
	return filepath.Join(s.Dir, spec.Table+".zip")
}

func (s *Shapefile) records(spec layers.Spec) ([]layers.Record, error) {
	records, err := s.cache.get(s.path(spec), func(path string) ([]layers.Record, error) {
		features, err := utils.ReadShapefile(path)
		if err != nil {
			return nil, err
		}
		records := make([]layers.Record, 0, len(features))
		for _, f := range features {
			fields := make(map[string]string, len(spec.Fields))
			for key := range spec.Fields {
				if v, ok := f.Attributes[spec.Column(key)]; ok {
					fields[key] = v
				}
			}
			records = append(records, layers.Record{Geometry: f.WKT, Fields: fields})
		}
		return records, nil
	})
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", spec.Kind, err)
	}
	return records, nil
}

func (s *Shapefile) Load(ctx context.Context, spec layers.Spec, opts LoadOptions) (Layer, error) {
	if err := ctx.Err(); err != nil {
		return Layer{}, err
	}
	all, err := s.records(spec)
	if err != nil {
		return Layer{}, err
	}
	return newLayer(spec, all, len(all), opts), nil
}

func (s *Shapefile) FindParcel(ctx context.Context, spec layers.Spec, number string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	all, err := s.records(spec)
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

func (s *Shapefile) Close() error { return nil }
