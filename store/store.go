// Package store loads reference-layer records for an analysis.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-overlap-checker/layers"
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrNoGeometry    = errors.New("record has no geometry")
)

// LoadOptions narrows a load. Sources that cannot filter by Bounds return
// every record; the engine's own bounds test makes that safe.
type LoadOptions struct {
	// ExcludeParcel drops the parcel with this number from the parcel layer.
	ExcludeParcel string
	Bounds        *geos.Box2D
}

// Layer is what a source returns for one layer. Total is the size of the
// whole layer less any excluded parcel; bounds filtering does not shrink it.
type Layer struct {
	Records []layers.Record
	Total   int
}

type Source interface {
	Load(ctx context.Context, spec layers.Spec, opts LoadOptions) (Layer, error)
	// FindParcel returns the geometry text of the parcel with the given number.
	FindParcel(ctx context.Context, spec layers.Spec, number string) (string, bool, error)
	Close() error
}

// Config selects and configures a source.
type Config struct {
	Driver string
	DSN    string
	Dir    string
}

const (
	DriverMemory    = "memory"
	DriverCSV       = "csv"
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverShapefile = "shapefile"
)

func Open(ctx context.Context, cfg Config) (Source, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverCSV:
		return NewCSV(cfg.Dir), nil
	case DriverShapefile:
		return NewShapefile(cfg.Dir), nil
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, cfg.Driver, cfg.DSN)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

func excluded(spec layers.Spec, rec layers.Record, opts LoadOptions) bool {
	if spec.Kind != layers.KindParcel || opts.ExcludeParcel == "" {
		return false
	}
	return rec.Field(layers.FieldParcelNumber) == opts.ExcludeParcel
}

// newLayer filters records and takes the dropped ones off total.
func newLayer(spec layers.Spec, records []layers.Record, total int, opts LoadOptions) Layer {
	kept := filter(spec, records, opts)
	total -= len(records) - len(kept)
	if total < len(kept) {
		total = len(kept)
	}
	return Layer{Records: kept, Total: total}
}

// filter applies LoadOptions.ExcludeParcel, returning a fresh slice.
func filter(spec layers.Spec, records []layers.Record, opts LoadOptions) []layers.Record {
	out := make([]layers.Record, 0, len(records))
	for _, rec := range records {
		if excluded(spec, rec, opts) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
