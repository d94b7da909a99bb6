package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"cascade-sim/internal/analysis"
	"cascade-sim/internal/montecarlo"
	"cascade-sim/internal/scenario"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func testScenario() *scenario.Parameters {
	p := scenario.Default()
	p.Name = "heatwave"
	p.InitialFailureNodes = []string{"A"}
	p.EventType = scenario.EventHeatwave
	p.EventSeverity = 0.8
	p.MonteCarloRuns = 10
	return &p
}

func testResult() *analysis.AggregateResult {
	return &analysis.AggregateResult{
		ScenarioName:             "heatwave",
		RunsRequested:            10,
		RunsCompleted:            10,
		FailureProbabilityByNode: map[string]float64{"A": 1, "B": 0.5},
		MeanTimeToFailureByNode:  map[string]float64{"A": 0, "B": 30},
		BottleneckNodes:          []string{"A", "B"},
		Bottlenecks:              []analysis.Bottleneck{{NodeID: "A", Importance: 1}, {NodeID: "B", Importance: 0.25}},
		CriticalPaths:            []analysis.CriticalPath{{Nodes: []string{"A", "B"}, Count: 5, Frequency: 0.5}},
		Recommendations:          []string{"Implement redundancy for critical nodes: A, B"},
	}
}

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	w.Progress(montecarlo.Progress{Completed: 5, Total: 10})
	if _, ok := p.msgs[0].(progressMsg); !ok {
		t.Fatalf("expected progressMsg, got %T", p.msgs[0])
	}
	if err := w.WriteResult(testResult()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := p.msgs[1].(resultMsg); !ok {
		t.Fatalf("expected resultMsg, got %T", p.msgs[1])
	}
	w.Fail(errors.New("boom"))
	if _, ok := p.msgs[2].(errMsg); !ok {
		t.Fatalf("expected errMsg, got %T", p.msgs[2])
	}
}

func TestTUIWriterSplitsLogLines(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p}
	if _, err := w.Write([]byte("first\nsec")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(p.msgs) != 1 {
		t.Fatalf("expected 1 complete line, got %d", len(p.msgs))
	}
	if _, err := w.Write([]byte("ond\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(p.msgs) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(p.msgs))
	}
	if got := p.msgs[1].(logMsg).line; got != "second" {
		t.Fatalf("line = %q, want second", got)
	}
}

func TestProgressAndSummaryView(t *testing.T) {
	m := newTUIModel(testScenario(), 100)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = mi.(tuiModel)
	mi, _ = m.Update(progressMsg{montecarlo.Progress{Completed: 5, Total: 10}})
	m = mi.(tuiModel)
	if m.fraction() != 0.5 {
		t.Fatalf("fraction = %v, want 0.5", m.fraction())
	}
	if !strings.Contains(m.View(), "5/10") || !strings.Contains(m.View(), "running") {
		t.Fatalf("progress not rendered: %q", m.View())
	}

	mi, _ = m.Update(resultMsg{testResult()})
	m = mi.(tuiModel)
	view := m.View()
	for _, want := range []string{"10/10", "Bottlenecks", "Critical paths", "Recommendations", "redundancy"} {
		if !strings.Contains(view, want) {
			t.Fatalf("missing %q in view", want)
		}
	}
	if len(m.table.Rows()) != 2 {
		t.Fatalf("expected 2 bottleneck rows, got %d", len(m.table.Rows()))
	}
}

func TestErrorView(t *testing.T) {
	m := newTUIModel(testScenario(), 80)
	mi, _ := m.Update(errMsg{errors.New("graph unavailable")})
	m = mi.(tuiModel)
	if !strings.Contains(m.View(), "graph unavailable") {
		t.Fatalf("error not rendered")
	}
}

func TestWrapToggle(t *testing.T) {
	m := newTUIModel(testScenario(), 20)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 40})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "one two three four five six"})
	m = mi.(tuiModel)
	if n := m.vp.TotalLineCount(); n != 1 {
		t.Fatalf("expected a single line before wrap, got %d", n)
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	if n := m.vp.TotalLineCount(); n < 2 {
		t.Fatalf("expected wrapped content, got %d lines", n)
	}
}

func TestScrollAndHelpToggle(t *testing.T) {
	m := newTUIModel(testScenario(), 80)
	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Fatalf("autoscroll not disabled")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	m = mi.(tuiModel)
	if !strings.HasPrefix(m.View(), "Key Bindings:") {
		t.Fatalf("help view not shown")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
}
