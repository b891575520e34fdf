/*
chain.go - Prórroga chain resolution

An incapacity episode is a simple forward path: an origin record followed
by zero or more prórrogas, each referencing its immediate predecessor.
The original system resolved these chains with a recursive query; here
the walk is an explicit iteration over the predecessor index, guarded by
a visited set so a corrupted link can never loop forever.
*/
package incapacity

import (
	"context"
	"fmt"
	"sort"
)

// ChainResolver walks prórroga chains through the store.
type ChainResolver struct {
	Store Store
}

func NewChainResolver(store Store) *ChainResolver {
	return &ChainResolver{Store: store}
}

// Origin walks predecessor links backwards from id until it reaches the
// record with no predecessor.
func (r *ChainResolver) Origin(ctx context.Context, id int64) (*Incapacity, error) {
	visited := make(map[int64]bool)

	current, err := r.Store.GetIncapacity(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &NotFoundError{Kind: "incapacity", ID: id}
	}

	for current.PredecessorID != nil {
		if visited[current.ID] {
			return nil, fmt.Errorf("prorroga chain cycle at incapacity %d", current.ID)
		}
		visited[current.ID] = true

		prev, err := r.Store.GetIncapacity(ctx, *current.PredecessorID)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			return nil, &NotFoundError{Kind: "predecessor", ID: *current.PredecessorID}
		}
		current = prev
	}
	return current, nil
}

// Descendants enumerates every prórroga reachable forward from originID,
// ordered by start date, excluding the origin itself.
func (r *ChainResolver) Descendants(ctx context.Context, originID int64) ([]Incapacity, error) {
	origin, err := r.Store.GetIncapacity(ctx, originID)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, &NotFoundError{Kind: "incapacity", ID: originID}
	}

	var chain []Incapacity
	visited := map[int64]bool{originID: true}

	current := origin
	for {
		next, err := r.Store.Successor(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		if visited[next.ID] {
			return nil, fmt.Errorf("prorroga chain cycle at incapacity %d", next.ID)
		}
		visited[next.ID] = true
		chain = append(chain, *next)
		current = next
	}

	sort.Slice(chain, func(i, j int) bool {
		return chain[i].StartDate.Before(chain[j].StartDate)
	})
	return chain, nil
}

// TotalAccumulatedDays sums the origin's days with every descendant's.
func (r *ChainResolver) TotalAccumulatedDays(ctx context.Context, originID int64) (int, error) {
	origin, err := r.Store.GetIncapacity(ctx, originID)
	if err != nil {
		return 0, err
	}
	if origin == nil {
		return 0, &NotFoundError{Kind: "incapacity", ID: originID}
	}

	total := origin.TotalDays
	chain, err := r.Descendants(ctx, originID)
	if err != nil {
		return 0, err
	}
	for _, inc := range chain {
		total += inc.TotalDays
	}
	return total, nil
}
