package graph

import (
	"context"
	"fmt"
)

// Provider supplies node attributes and adjacency. Implementations may be
// slow or partial; a missing node is reported with ok=false, not an error.
type Provider interface {
	GetNode(ctx context.Context, id string) (NodeSnapshot, bool, error)
	GetNeighbors(ctx context.Context, id string, maxDepth int) ([]NodeSnapshot, error)
}

// FetchMode selects how a Context is assembled from a Provider.
type FetchMode string

const (
	// FetchRadius attaches every node within MaxDepth hops of a seed directly
	// to that seed.
	FetchRadius FetchMode = "radius"
	// FetchExpand walks outward one hop at a time so adjacency reflects real edges.
	FetchExpand FetchMode = "expand"
)

// DefaultMaxDepth bounds the hop radius of a fetch.
const DefaultMaxDepth = 3

// FetchOptions configures FetchContext.
type FetchOptions struct {
	Mode     FetchMode
	MaxDepth int
	// OnError is called for every failed provider call. It may be nil.
	OnError func(op, nodeID string, err error)
}

// FetchStats summarises one fetch.
type FetchStats struct {
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
	Errors       int `json:"errors"`
	MissingSeeds int `json:"missing_seeds"`
}

// FetchContext gathers the graph context around seeds. Provider failures
// never abort the fetch: the failed call is counted and the context built so
// far is returned, in the worst case an empty one.
func FetchContext(ctx context.Context, p Provider, seeds []string, opts FetchOptions) (*Context, FetchStats) {
	gc := NewContext()
	var stats FetchStats
	if p == nil {
		return gc, stats
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	fail := func(op, id string, err error) {
		stats.Errors++
		if opts.OnError != nil {
			opts.OnError(op, id, err)
		}
	}

	for _, id := range seeds {
		if ctx.Err() != nil {
			break
		}
		n, ok, err := p.GetNode(ctx, id)
		switch {
		case err != nil:
			fail("get_node", id, err)
		case !ok:
			stats.MissingSeeds++
		default:
			gc.addNode(n)
		}
	}

	switch opts.Mode {
	case FetchExpand:
		fetchExpand(ctx, p, gc, seeds, opts.MaxDepth, fail)
	default:
		fetchRadius(ctx, p, gc, seeds, opts.MaxDepth, fail)
	}

	stats.Nodes = gc.NodeCount()
	stats.Edges = gc.EdgeCount()
	return gc, stats
}

func fetchRadius(ctx context.Context, p Provider, gc *Context, seeds []string, depth int, fail func(string, string, error)) {
	for _, id := range seeds {
		if ctx.Err() != nil {
			return
		}
		neighbors, err := p.GetNeighbors(ctx, id, depth)
		if err != nil {
			fail("get_neighbors", id, err)
			continue
		}
		for _, n := range neighbors {
			if n.ID == "" || n.ID == id {
				continue
			}
			gc.addNode(n)
			gc.addEdge(id, n.ID)
		}
	}
}

func fetchExpand(ctx context.Context, p Provider, gc *Context, seeds []string, depth int, fail func(string, string, error)) {
	visited := make(map[string]bool, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if !visited[id] {
			visited[id] = true
			frontier = append(frontier, id)
		}
	}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			if ctx.Err() != nil {
				return
			}
			neighbors, err := p.GetNeighbors(ctx, id, 1)
			if err != nil {
				fail("get_neighbors", id, err)
				continue
			}
			for _, n := range neighbors {
				if n.ID == "" || n.ID == id {
					continue
				}
				gc.addNode(n)
				gc.addEdge(id, n.ID)
				if !visited[n.ID] {
					visited[n.ID] = true
					next = append(next, n.ID)
				}
			}
		}
		frontier = next
	}
}

// ParseFetchMode validates a mode name. The empty string selects FetchRadius.
func ParseFetchMode(s string) (FetchMode, error) {
	switch FetchMode(s) {
	case "", FetchRadius:
		return FetchRadius, nil
	case FetchExpand:
		return FetchExpand, nil
	}
	return "", fmt.Errorf("unknown graph fetch mode %q", s)
}
