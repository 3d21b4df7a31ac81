// Package facility memoizes the facility records behind the static map
// layers. The records are fetched at most once per session; concurrent
// callers share the in-flight request.
package facility

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/joeblew999/daurin/internal/model"
)

// State is the cache lifecycle: empty -> pending -> populated. A failed
// fetch returns the cache to empty so the next toggle retries.
type State int

const (
	StateEmpty State = iota
	StatePending
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePopulated:
		return "populated"
	}
	return "empty"
}

const flightKey = "facilities"

// FetchFunc loads every facility category in one call.
type FetchFunc func(ctx context.Context) (*model.Facilities, error)

// Cache is safe for concurrent use.
type Cache struct {
	fetch FetchFunc
	group singleflight.Group

	mu    sync.Mutex
	state State
	data  *model.Facilities
}

// NewCache creates an empty cache.
func NewCache(fetch FetchFunc) *Cache {
	return &Cache{fetch: fetch}
}

// State reports the current lifecycle state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Get returns the cached facilities, fetching them if the cache is empty.
// The shared fetch is not cancelled when one waiter's ctx is.
func (c *Cache) Get(ctx context.Context) (*model.Facilities, error) {
	c.mu.Lock()
	if c.state == StatePopulated {
		data := c.data
		c.mu.Unlock()
		return data, nil
	}
	c.state = StatePending
	// Joining the flight under mu: the flight settles the state and forgets
	// its key under mu too, so a caller that sets pending either joins a
	// flight that has yet to settle or starts a new one.
	ch := c.group.DoChan(flightKey, func() (any, error) {
		data, err := c.fetch(context.WithoutCancel(ctx))
		c.mu.Lock()
		defer c.mu.Unlock()
		defer c.group.Forget(flightKey)
		if err != nil {
			c.state = StateEmpty
			return nil, err
		}
		c.state = StatePopulated
		c.data = data
		return data, nil
	})
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("fetching facilities: %w", res.Err)
		}
		return res.Val.(*model.Facilities), nil
	}
}

// Records returns the cached records of one category.
func (c *Cache) Records(ctx context.Context, category string) ([]model.FacilityRecord, error) {
	data, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	recs, ok := data.ByCategory(category)
	if !ok {
		return nil, fmt.Errorf("unknown facility category %q", category)
	}
	return recs, nil
}
