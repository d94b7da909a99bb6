// Package graph holds the read-only infrastructure topology a simulation runs against
// and the providers that supply it.
package graph

import "math"

// Attribute defaults applied when a provider omits a value. They match what the
// knowledge graph service assumes for unset node properties.
const (
	DefaultCapacity    = 1.0
	DefaultLoad        = 0.0
	DefaultHealth      = 1.0
	DefaultCriticality = 0.5

	// impactCapacityScale normalises capacity into [0,1] for the impact score.
	impactCapacityScale = 10000.0
)

// NodeSnapshot is the state of one infrastructure asset at fetch time.
type NodeSnapshot struct {
	ID               string  `json:"node_id" yaml:"node_id"`
	NodeType         string  `json:"node_type,omitempty" yaml:"node_type,omitempty"`
	Name             string  `json:"name,omitempty" yaml:"name,omitempty"`
	Capacity         float64 `json:"capacity" yaml:"capacity"`
	CurrentLoad      float64 `json:"current_load" yaml:"current_load"`
	HealthStatus     float64 `json:"health_status" yaml:"health_status"`
	CriticalityScore float64 `json:"criticality_score" yaml:"criticality_score"`
}

// LoadRatio returns load/capacity, or 0 when capacity is not positive.
func (n NodeSnapshot) LoadRatio() float64 {
	if n.Capacity <= 0 {
		return 0
	}
	return n.CurrentLoad / n.Capacity
}

// ImpactScore weighs criticality against normalised capacity.
func (n NodeSnapshot) ImpactScore() float64 {
	return n.CriticalityScore*0.7 + math.Min(n.Capacity/impactCapacityScale, 1)*0.3
}

// nodeRecord is the wire form of a node. Pointer fields distinguish
// "absent" from zero so defaults can be applied.
type nodeRecord struct {
	ID               string   `json:"node_id" yaml:"node_id"`
	NodeType         string   `json:"node_type" yaml:"node_type"`
	Name             string   `json:"name" yaml:"name"`
	Capacity         *float64 `json:"capacity" yaml:"capacity"`
	CurrentLoad      *float64 `json:"current_load" yaml:"current_load"`
	HealthStatus     *float64 `json:"health_status" yaml:"health_status"`
	CriticalityScore *float64 `json:"criticality_score" yaml:"criticality_score"`
}

func (r nodeRecord) snapshot() NodeSnapshot {
	n := NodeSnapshot{
		ID:               r.ID,
		NodeType:         r.NodeType,
		Name:             r.Name,
		Capacity:         DefaultCapacity,
		CurrentLoad:      DefaultLoad,
		HealthStatus:     DefaultHealth,
		CriticalityScore: DefaultCriticality,
	}
	// A zero capacity is treated like a missing one, as the knowledge graph does.
	if r.Capacity != nil && *r.Capacity != 0 {
		n.Capacity = *r.Capacity
	}
	if r.CurrentLoad != nil {
		n.CurrentLoad = *r.CurrentLoad
	}
	if r.HealthStatus != nil {
		n.HealthStatus = *r.HealthStatus
	}
	if r.CriticalityScore != nil {
		n.CriticalityScore = *r.CriticalityScore
	}
	return n
}

// Context is the node attribute table and adjacency relation for one
// simulation request. It is built once and must not be mutated afterwards.
type Context struct {
	Nodes     map[string]NodeSnapshot `json:"nodes"`
	Adjacency map[string][]string     `json:"adjacency"`
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{
		Nodes:     make(map[string]NodeSnapshot),
		Adjacency: make(map[string][]string),
	}
}

// Node returns the snapshot for id.
func (c *Context) Node(id string) (NodeSnapshot, bool) {
	if c == nil {
		return NodeSnapshot{}, false
	}
	n, ok := c.Nodes[id]
	return n, ok
}

// Neighbors returns the ordered neighbour ids of id.
func (c *Context) Neighbors(id string) []string {
	if c == nil {
		return nil
	}
	return c.Adjacency[id]
}

// NodeCount returns the number of distinct node ids known to the context,
// counting adjacency endpoints that have no snapshot.
func (c *Context) NodeCount() int {
	return len(c.known())
}

// SizeWith is NodeCount plus the ids in extra the context does not know.
// Seeds always fail, so a simulation graph is the context plus its seeds.
func (c *Context) SizeWith(extra []string) int {
	seen := c.known()
	for _, id := range extra {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func (c *Context) known() map[string]struct{} {
	if c == nil {
		return map[string]struct{}{}
	}
	seen := make(map[string]struct{}, len(c.Nodes))
	for id := range c.Nodes {
		seen[id] = struct{}{}
	}
	for src, dsts := range c.Adjacency {
		seen[src] = struct{}{}
		for _, d := range dsts {
			seen[d] = struct{}{}
		}
	}
	return seen
}

// EdgeCount returns the number of adjacency entries.
func (c *Context) EdgeCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, dsts := range c.Adjacency {
		n += len(dsts)
	}
	return n
}

func (c *Context) addNode(n NodeSnapshot) {
	if _, ok := c.Nodes[n.ID]; !ok {
		c.Nodes[n.ID] = n
	}
}

func (c *Context) addEdge(src, dst string) {
	c.Adjacency[src] = append(c.Adjacency[src], dst)
}
