package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/pkg/metrics"
)

type storeKey struct {
	region  model.Region
	eventID int
}

// Registry hands out open stores keyed by (region, event id), opening each
// database lazily on first use and keeping the handle until closed.
type Registry struct {
	root string

	mu     sync.Mutex
	stores map[storeKey]*Store
}

// NewRegistry creates an empty registry rooted at the given directory.
func NewRegistry(root string) *Registry {
	return &Registry{
		root:   root,
		stores: make(map[storeKey]*Store),
	}
}

// Get returns the store for the given region and event, opening it if
// needed.
func (r *Registry) Get(ctx context.Context, region model.Region, eventID int) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := storeKey{region: region, eventID: eventID}
	if s, ok := r.stores[key]; ok {
		return s, nil
	}

	s, err := Open(ctx, Path(r.root, region, eventID), region, eventID)
	if err != nil {
		return nil, fmt.Errorf("open store %s/%d: %w", region, eventID, err)
	}
	r.stores[key] = s
	metrics.UpdateOpenStores(len(r.stores))
	return s, nil
}

// CloseAll closes the listed stores for the region, or every store of the
// region when no event ids are given.
func (r *Registry) CloseAll(region model.Region, eventIDs ...int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if len(eventIDs) == 0 {
		for key, s := range r.stores {
			if key.region != region {
				continue
			}
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			delete(r.stores, key)
		}
	} else {
		for _, id := range eventIDs {
			key := storeKey{region: region, eventID: id}
			s, ok := r.stores[key]
			if !ok {
				continue
			}
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			delete(r.stores, key)
		}
	}
	metrics.UpdateOpenStores(len(r.stores))
	return errors.Join(errs...)
}

// CloseStale closes every open store of the region that does not belong to
// the current event, chapter sub-leaderboards of that event included.
func (r *Registry) CloseStale(region model.Region, currentEventID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := model.PrimaryEventID(currentEventID)
	var errs []error
	for key, s := range r.stores {
		if key.region != region {
			continue
		}
		if model.PrimaryEventID(key.eventID) == current {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.stores, key)
	}
	metrics.UpdateOpenStores(len(r.stores))
	return errors.Join(errs...)
}

// OpenCount reports how many stores are currently open.
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
