package analysis

import (
	"cmp"
	"slices"
	"strings"

	"cascade-sim/internal/sim"
)

const (
	maxBottlenecks   = 10
	maxCriticalPaths = 5
)

// RankBottlenecks scores every failed node by the sum of 1/(t+1) over its
// failure times t and returns the k highest, ties broken by node id.
func RankBottlenecks(runs []sim.RunResult, k int) []Bottleneck {
	scores := make(map[string]float64)
	for i := range runs {
		for _, f := range runs[i].Failures {
			scores[f.NodeID] += 1 / (f.Time + 1)
		}
	}
	out := make([]Bottleneck, 0, len(scores))
	for id, s := range scores {
		out = append(out, Bottleneck{NodeID: id, Importance: s})
	}
	slices.SortFunc(out, func(a, b Bottleneck) int {
		if c := cmp.Compare(b.Importance, a.Importance); c != 0 {
			return c
		}
		return strings.Compare(a.NodeID, b.NodeID)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// CausalPaths reconstructs the seed-to-leaf chains of one run. A leaf is a
// failed node that caused no other failure. Paths follow discovery order of
// their leaves.
func CausalPaths(r *sim.RunResult) [][]string {
	causes := make(map[string]bool, len(r.Failures))
	parent := make(map[string]string, len(r.Failures))
	for _, f := range r.Failures {
		parent[f.NodeID] = f.CausedBy
		if f.CausedBy != "" {
			causes[f.CausedBy] = true
		}
	}
	var paths [][]string
	for _, f := range r.Failures {
		if causes[f.NodeID] {
			continue
		}
		path := []string{f.NodeID}
		// Causal links point to earlier failures; the length guard only stops malformed input.
		for cur := parent[f.NodeID]; cur != "" && len(path) <= len(r.Failures); cur = parent[cur] {
			path = append(path, cur)
		}
		slices.Reverse(path)
		paths = append(paths, path)
	}
	return paths
}

// ExtractCriticalPaths counts identical causal paths across runs and returns
// the k most frequent. Ties keep first-appearance order.
func ExtractCriticalPaths(runs []sim.RunResult, k int) []CriticalPath {
	index := make(map[string]int)
	var all []CriticalPath
	for i := range runs {
		for _, p := range CausalPaths(&runs[i]) {
			key := strings.Join(p, "\x00")
			if j, ok := index[key]; ok {
				all[j].Count++
				continue
			}
			index[key] = len(all)
			all = append(all, CriticalPath{Nodes: p, Count: 1})
		}
	}
	slices.SortStableFunc(all, func(a, b CriticalPath) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(all) > k {
		all = all[:k]
	}
	for i := range all {
		all[i].Frequency = float64(all[i].Count) / float64(len(runs))
	}
	return all
}

// BuildFailureTree lists the seed failures of r under a synthetic root.
func BuildFailureTree(r *sim.RunResult) *FailureTree {
	t := &FailureTree{}
	t.Root.Children = []TreeNode{}
	for _, f := range r.Failures {
		if f.CausedBy != "" {
			continue
		}
		t.Root.Children = append(t.Root.Children, TreeNode{NodeID: f.NodeID, FailureTime: f.Time, Impact: f.Impact})
	}
	return t
}
