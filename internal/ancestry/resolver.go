// Package ancestry resolves Drive parent links and decides subtree membership.
package ancestry

import (
	"context"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"
)

// ParentLookup fetches the parent ids of an item from the remote provider
type ParentLookup interface {
	Parents(ctx context.Context, itemID string) ([]string, error)
}

// Resolver memoizes parent lookups. Entries are never refreshed while resident;
// the LRU bound is the only way an entry leaves the cache.
type Resolver struct {
	lookup ParentLookup
	mu     sync.Mutex
	cache  *lru.Cache
	group  singleflight.Group
}

// NewResolver creates a resolver holding at most maxEntries items (0 = unbounded)
func NewResolver(lookup ParentLookup, maxEntries int) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  lru.New(maxEntries),
	}
}

func (r *Resolver) cached(id string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.([]string), true
}

// Parents returns the parent ids of id, consulting the remote provider at most once per resident id.
// Lookup failures are returned as-is and leave the cache untouched.
func (r *Resolver) Parents(ctx context.Context, id string) ([]string, error) {
	if parents, ok := r.cached(id); ok {
		return parents, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		// Another caller may have filled it between our miss and acquiring the flight
		if parents, ok := r.cached(id); ok {
			return parents, nil
		}
		parents, err := r.lookup.Parents(ctx, id)
		if err != nil {
			return nil, err
		}
		parents = append([]string(nil), parents...)

		r.mu.Lock()
		r.cache.Add(id, parents)
		r.mu.Unlock()
		return parents, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Prime records parents already known from a change entry, unless id is resident
func (r *Resolver) Prime(id string, parents []string) {
	if id == "" || len(parents) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache.Get(id); ok {
		return
	}
	r.cache.Add(id, append([]string(nil), parents...))
}

// Len returns the number of resident entries
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// IsDescendantOf climbs parent links from id and reports whether rootID is reached.
// A node without parents ends its branch; the climb fails once every branch has ended.
func (r *Resolver) IsDescendantOf(ctx context.Context, id, rootID string) (bool, error) {
	stack := []string{id}
	visited := map[string]struct{}{id: {}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		parents, err := r.Parents(ctx, current)
		if err != nil {
			return false, err
		}
		for _, p := range parents {
			if p == rootID {
				return true, nil
			}
		}
		for _, p := range parents {
			if _, seen := visited[p]; seen {
				continue
			}
			visited[p] = struct{}{}
			stack = append(stack, p)
		}
	}
	return false, nil
}
