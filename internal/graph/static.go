package graph

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Edge is a dependency from Source to Target: a failure of Source may
// propagate to Target.
type Edge struct {
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
}

// File is the YAML layout of a static graph.
type File struct {
	Undirected bool         `yaml:"undirected"`
	Nodes      []nodeRecord `yaml:"nodes"`
	Edges      []Edge       `yaml:"edges"`
}

// StaticProvider serves a fixed in-memory graph. Neighbour order follows
// edge declaration order.
type StaticProvider struct {
	nodes map[string]NodeSnapshot
	out   map[string][]string
}

// NewStaticProvider builds a provider from snapshots and directed edges.
// Edge endpoints without a snapshot are kept in the adjacency but reported
// as absent by GetNode.
func NewStaticProvider(nodes []NodeSnapshot, edges []Edge) *StaticProvider {
	p := &StaticProvider{
		nodes: make(map[string]NodeSnapshot, len(nodes)),
		out:   make(map[string][]string),
	}
	for _, n := range nodes {
		p.nodes[n.ID] = n
	}
	for _, e := range edges {
		p.out[e.Source] = append(p.out[e.Source], e.Target)
	}
	return p
}

// LoadStaticProvider reads a YAML graph file.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	return ParseStaticProvider(b)
}

// ParseStaticProvider decodes a YAML graph document.
func ParseStaticProvider(b []byte) (*StaticProvider, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	nodes := make([]NodeSnapshot, 0, len(f.Nodes))
	for i, r := range f.Nodes {
		if r.ID == "" {
			return nil, fmt.Errorf("parse graph: node %d has no node_id", i)
		}
		nodes = append(nodes, r.snapshot())
	}
	edges := f.Edges
	if f.Undirected {
		edges = make([]Edge, 0, 2*len(f.Edges))
		for _, e := range f.Edges {
			edges = append(edges, e, Edge{Source: e.Target, Target: e.Source})
		}
	}
	return NewStaticProvider(nodes, edges), nil
}

// GetNode implements Provider.
func (p *StaticProvider) GetNode(_ context.Context, id string) (NodeSnapshot, bool, error) {
	n, ok := p.nodes[id]
	return n, ok, nil
}

// GetNeighbors returns the nodes reachable from id within maxDepth hops in
// breadth-first order, excluding id. Endpoints without a snapshot are
// omitted, the same way the knowledge graph only returns stored nodes.
func (p *StaticProvider) GetNeighbors(_ context.Context, id string, maxDepth int) ([]NodeSnapshot, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	visited := map[string]bool{id: true}
	frontier := []string{id}
	var out []NodeSnapshot
	for hop := 0; hop < maxDepth && len(frontier) > 0; hop++ {
		var next []string
		for _, cur := range frontier {
			for _, nb := range p.out[cur] {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				next = append(next, nb)
				if n, ok := p.nodes[nb]; ok {
					out = append(out, n)
				}
			}
		}
		frontier = next
	}
	return out, nil
}
