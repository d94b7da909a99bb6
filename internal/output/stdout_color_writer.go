// StdoutWriter prints a human-friendly, optionally colorized result summary.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"cascade-sim/internal/analysis"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

const recommendationWidth = 76

// StdoutWriter prints results as a readable summary. With colorize unset it
// falls back to one JSON line per result.
type StdoutWriter struct {
	out      io.Writer
	colorize bool
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(colorize bool) *StdoutWriter {
	return &StdoutWriter{out: os.Stdout, colorize: colorize}
}

func (w *StdoutWriter) paint(color, s string) string {
	if !w.colorize {
		return s
	}
	return color + s + colorReset
}

// probabilityColor grades a failure probability red, yellow or green.
func probabilityColor(p float64) string {
	switch {
	case p >= 0.7:
		return colorRed
	case p >= 0.3:
		return colorYellow
	default:
		return colorGreen
	}
}

// WriteResult implements ResultWriter.
func (w *StdoutWriter) WriteResult(res *analysis.AggregateResult) error {
	if !w.colorize {
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	}

	fmt.Fprintf(w.out, "%s %s %s\n",
		w.paint(colorGray, "["+res.EndTime.Format(time.RFC3339)+"]"),
		w.paint(colorBlue, "scenario="+res.ScenarioName),
		w.paint(colorGray, "id="+res.ID))
	if res.Cancelled {
		fmt.Fprintln(w.out, w.paint(colorYellow, fmt.Sprintf("cancelled after %d of %d runs", res.RunsCompleted, res.RunsRequested)))
	}

	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Runs:\t%d/%d\n", res.RunsCompleted, res.RunsRequested)
	fmt.Fprintf(tw, "Graph:\t%d nodes, %d edges, %d fetch errors\n", res.GraphNodes, res.GraphEdges, res.GraphFetchErrors)
	fmt.Fprintf(tw, "Affected nodes:\t%.2f (CI %d-%d)\n", res.TotalAffectedNodes, res.AffectedNodesCI[0], res.AffectedNodesCI[1])
	fmt.Fprintf(tw, "Impact score:\t%.2f (CI %.2f-%.2f)\n", res.TotalImpactScore, res.ImpactScoreCI[0], res.ImpactScoreCI[1])
	fmt.Fprintf(tw, "Cascade depth:\t%.2f\n", res.CascadeDepth)
	fmt.Fprintf(tw, "Mean cascade time (min):\t%.1f\n", res.MeanCascadeTimeMinutes)
	fmt.Fprintf(tw, "Cascade probability:\t%s\n", w.paint(probabilityColor(res.CascadeProbability), fmt.Sprintf("%.3f", res.CascadeProbability)))
	fmt.Fprintf(tw, "Computation (s):\t%.3f\n", res.ComputationSeconds)
	tw.Flush()

	if len(res.Bottlenecks) > 0 {
		fmt.Fprintln(w.out, "\nBottlenecks:")
		tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Rank\tNode\tImportance\tP(fail)\n")
		for i, b := range res.Bottlenecks {
			p := res.FailureProbabilityByNode[b.NodeID]
			fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\n", i+1, w.paint(colorMagenta, b.NodeID), b.Importance,
				w.paint(probabilityColor(p), fmt.Sprintf("%.3f", p)))
		}
		tw.Flush()
	}

	if len(res.CriticalPaths) > 0 {
		fmt.Fprintln(w.out, "\nCritical paths:")
		for _, cp := range res.CriticalPaths {
			fmt.Fprintf(w.out, "  %s %s\n", w.paint(colorCyan, fmt.Sprintf("%5.1f%%", cp.Frequency*100)), strings.Join(cp.Nodes, " -> "))
		}
	}

	if len(res.Recommendations) > 0 {
		fmt.Fprintln(w.out, "\nRecommendations:")
		for _, r := range res.Recommendations {
			wrapped := wordwrap.String(r, recommendationWidth)
			fmt.Fprintf(w.out, "  - %s\n", strings.ReplaceAll(wrapped, "\n", "\n    "))
		}
	}
	fmt.Fprintln(w.out)
	return nil
}
