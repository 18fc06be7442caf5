package masterdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Collection provides indexed access to one JSON snapshot file. Every access
// stats the file and reloads it when the modification time changed. The index
// is rebuilt off to the side and swapped in under the write lock, so readers
// observe either the previous or the new fully built index, never a partial
// one. When a reload fails to parse, the previous index is retained and the
// access fails with ErrUnavailable.
type Collection[T any] struct {
	path string
	keys map[string]func(T) int64

	mu      sync.RWMutex
	loaded  bool
	mtime   time.Time
	records []T
	index   map[string]map[int64][]int
}

func newCollection[T any](path string, keys map[string]func(T) int64) *Collection[T] {
	return &Collection[T]{
		path: path,
		keys: keys,
	}
}

// refresh reloads the backing file if it changed since the last load.
func (c *Collection[T]) refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ErrUnavailable, c.path, err)
	}

	c.mu.RLock()
	fresh := c.loaded && info.ModTime().Equal(c.mtime)
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrUnavailable, c.path, err)
	}

	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrUnavailable, c.path, err)
	}

	index := make(map[string]map[int64][]int, len(c.keys))
	for key, extract := range c.keys {
		byValue := make(map[int64][]int)
		for i, record := range records {
			v := extract(record)
			byValue[v] = append(byValue[v], i)
		}
		index[key] = byValue
	}

	c.mu.Lock()
	c.records = records
	c.index = index
	c.mtime = info.ModTime()
	c.loaded = true
	c.mu.Unlock()

	return nil
}

// All returns every record in file order.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.records))
	copy(out, c.records)
	return out, nil
}

// positions returns the record positions matching key=value.
func (c *Collection[T]) positions(key string, value int64) ([]int, error) {
	byValue, ok := c.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return byValue[value], nil
}

// FindByID returns the record whose id index matches id.
func (c *Collection[T]) FindByID(ctx context.Context, id int64) (T, bool, error) {
	return c.FindBy(ctx, KeyID, id)
}

// FindBy returns the first record (in file order) whose key matches value.
func (c *Collection[T]) FindBy(ctx context.Context, key string, value int64) (T, bool, error) {
	var zero T
	if err := c.refresh(ctx); err != nil {
		return zero, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, err := c.positions(key, value)
	if err != nil || len(pos) == 0 {
		return zero, false, err
	}
	return c.records[pos[0]], true, nil
}

// FindLastBy returns the last record (in file order) whose key matches value.
func (c *Collection[T]) FindLastBy(ctx context.Context, key string, value int64) (T, bool, error) {
	var zero T
	if err := c.refresh(ctx); err != nil {
		return zero, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, err := c.positions(key, value)
	if err != nil || len(pos) == 0 {
		return zero, false, err
	}
	return c.records[pos[len(pos)-1]], true, nil
}

// AllBy returns every record whose key matches value, in file order.
func (c *Collection[T]) AllBy(ctx context.Context, key string, value int64) ([]T, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, err := c.positions(key, value)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(pos))
	for _, i := range pos {
		out = append(out, c.records[i])
	}
	return out, nil
}

// CollectBy returns every record whose key matches any of values, in the
// order the values are given.
func (c *Collection[T]) CollectBy(ctx context.Context, key string, values []int64) ([]T, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for _, v := range values {
		pos, err := c.positions(key, v)
		if err != nil {
			return nil, err
		}
		for _, i := range pos {
			out = append(out, c.records[i])
		}
	}
	return out, nil
}
