// Package jsonstore persists record collections as single JSON files on disk.
//
// Each collection is one ordered JSON array rewritten whole on every mutation.
// Reads are served from an in-memory cache; writes replace the cache before
// touching the file, so readers never observe a partially applied mutation.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Collection is a whole-file JSON array of records of type T.
type Collection[T any] struct {
	path string

	mu      sync.RWMutex
	records []T
}

// Open loads the collection at path, creating an empty one if the file
// does not exist yet.
func Open[T any](path string) (*Collection[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonstore: create data dir: %w", err)
	}

	c := &Collection[T]{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("jsonstore: read %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("jsonstore: init %s: %w", path, err)
		}
		return c, nil
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.records); err != nil {
			return nil, fmt.Errorf("jsonstore: decode %s: %w", path, err)
		}
	}
	return c, nil
}

// All returns a copy of every record in insertion order.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.records))
	copy(out, c.records)
	return out
}

// Len reports the number of records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Find returns the first record matching the predicate.
func (c *Collection[T]) Find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.records {
		if match(rec) {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Update runs fn over the current records under the collection lock and
// persists the returned slice. The cache is refreshed before the file write,
// and the whole file is rewritten through a rename so a crashed write never
// leaves a truncated collection behind.
func (c *Collection[T]) Update(fn func(records []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	working := make([]T, len(c.records))
	copy(working, c.records)

	next, err := fn(working)
	if err != nil {
		return err
	}
	if next == nil {
		next = []T{}
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonstore: encode %s: %w", c.path, err)
	}

	c.records = next

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jsonstore: write %s: %w", c.path, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("jsonstore: replace %s: %w", c.path, err)
	}
	return nil
}
