package analysis

import (
	"fmt"

	"cascade-sim/internal/scenario"
)

const (
	highCascadeProbability = 0.7
	severeImpactScore      = 50.0
	rapidCascadeMinutes    = 30.0
)

// Recommend maps the aggregate metrics to mitigation advice. Every matching
// rule fires, in a fixed order.
func Recommend(res *AggregateResult, sc *scenario.Parameters) []string {
	recs := []string{}
	if len(res.BottleneckNodes) > 0 {
		recs = append(recs, fmt.Sprintf("Critical: Reinforce node '%s' - identified as primary bottleneck with highest cascade risk", res.BottleneckNodes[0]))
	}
	if res.CascadeProbability > highCascadeProbability {
		recs = append(recs, fmt.Sprintf("High cascade risk (%.1f%%): Implement redundant pathways and load balancing", res.CascadeProbability*100))
	}
	if res.TotalImpactScore > severeImpactScore {
		recs = append(recs, "Severe impact potential: Deploy rapid response teams and establish emergency protocols")
	}
	if res.MeanCascadeTimeMinutes < rapidCascadeMinutes {
		recs = append(recs, fmt.Sprintf("Rapid cascade detected (avg %.1f min): Implement automated failover systems", res.MeanCascadeTimeMinutes))
	}
	if sc.RecoveryEnabled {
		recs = append(recs, "Enable proactive maintenance for high-risk nodes identified in simulation")
	}
	return recs
}
