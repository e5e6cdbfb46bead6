package store

import (
	"context"
	"sync"

	"github.com/bsaid97/go-overlap-checker/layers"
)

// Memory keeps layers in process. It backs tests and embedded use.
type Memory struct {
	mu     sync.RWMutex
	layers map[layers.Kind][]layers.Record
	errs   map[layers.Kind]error
}

func NewMemory() *Memory {
	return &Memory{
		layers: make(map[layers.Kind][]layers.Record),
		errs:   make(map[layers.Kind]error),
	}
}

func (m *Memory) Put(kind layers.Kind, records []layers.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layers[kind] = append([]layers.Record(nil), records...)
}

// Fail makes every later load of kind return err.
func (m *Memory) Fail(kind layers.Kind, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind] = err
}

func (m *Memory) Load(ctx context.Context, spec layers.Spec, opts LoadOptions) (Layer, error) {
	if err := ctx.Err(); err != nil {
		return Layer{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.errs[spec.Kind]; err != nil {
		return Layer{}, err
	}
	all := m.layers[spec.Kind]
	return newLayer(spec, all, len(all), opts), nil
}

func (m *Memory) FindParcel(ctx context.Context, spec layers.Spec, number string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.layers[layers.KindParcel] {
		if rec.Field(layers.FieldParcelNumber) == number {
			return rec.Geometry, rec.Geometry != "", nil
		}
	}
	return "", false, nil
}

func (m *Memory) Close() error { return nil }
