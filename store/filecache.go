package store

import (
	"os"
	"sync"
	"time"

	"github.com/bsaid97/go-overlap-checker/layers"
)

// fileCache keeps parsed layer files until their size or modification time
// changes.
type fileCache struct {
	mu      sync.Mutex
	entries map[string]fileEntry
}

type fileEntry struct {
	modTime time.Time
	size    int64
	records []layers.Record
}

func newFileCache() *fileCache {
	return &fileCache{entries: make(map[string]fileEntry)}
}

func (c *fileCache) get(path string, load func(string) ([]layers.Record, error)) ([]layers.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.records, nil
	}

	records, err := load(path)
	if err != nil {
		return nil, err
	}
	c.entries[path] = fileEntry{modTime: info.ModTime(), size: info.Size(), records: records}
	return records, nil
}
