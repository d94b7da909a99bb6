// Package tui shows simulation progress and the final forecast in a
// bubbletea terminal UI.
package tui

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"cascade-sim/internal/analysis"
	"cascade-sim/internal/montecarlo"
	"cascade-sim/internal/scenario"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

type logMsg struct{ line string }

type progressMsg struct{ montecarlo.Progress }

type resultMsg struct{ res *analysis.AggregateResult }

type errMsg struct{ err error }

const (
	defaultWidth  = 80
	maxLogLines   = 500
	progressWidth = 50
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// TUIWriter drives the terminal UI. It receives progress reports and the
// final result, and doubles as an io.Writer for log lines.
type TUIWriter struct {
	program teaProgram
	done    chan struct{}

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewTUIWriter starts a bubbletea program for sc.
func NewTUIWriter(sc *scenario.Parameters) *TUIWriter {
	width := defaultWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	m := newTUIModel(sc, width)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w := &TUIWriter{program: p, done: make(chan struct{})}
	go func() {
		_, _ = p.Run()
		close(w.done)
	}()
	return w
}

// Progress forwards a progress report. It matches montecarlo.ProgressFunc.
func (w *TUIWriter) Progress(p montecarlo.Progress) {
	w.program.Send(progressMsg{p})
}

// WriteResult implements output.ResultWriter.
func (w *TUIWriter) WriteResult(res *analysis.AggregateResult) error {
	w.program.Send(resultMsg{res})
	return nil
}

// Fail shows err in place of a result.
func (w *TUIWriter) Fail(err error) {
	w.program.Send(errMsg{err})
}

// Write splits p into lines and appends them to the log pane.
func (w *TUIWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line stays buffered
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.program.Send(logMsg{line: strings.TrimRight(line, "\n")})
	}
	return len(p), nil
}

// Wait blocks until the user quits the UI.
func (w *TUIWriter) Wait() {
	if w.done != nil {
		<-w.done
	}
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	w.Wait()
	return nil
}

type tuiModel struct {
	sc         *scenario.Parameters
	bar        progress.Model
	table      table.Model
	vp         viewport.Model
	logs       []string
	progress   montecarlo.Progress
	result     *analysis.AggregateResult
	err        error
	width      int
	height     int
	wrap       bool
	autoscroll bool
	help       bool
	started    time.Time
}

func newTUIModel(sc *scenario.Parameters, width int) tuiModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = progressWidth
	cols := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Node", Width: 24},
		{Title: "Importance", Width: 10},
		{Title: "P(fail)", Width: 8},
		{Title: "MTTF (min)", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(1))
	m := tuiModel{
		sc:         sc,
		bar:        bar,
		table:      t,
		vp:         viewport.New(width, 5),
		width:      width,
		autoscroll: true,
		progress:   montecarlo.Progress{Scenario: sc.Name, Total: sc.MonteCarloRuns},
		started:    time.Now(),
	}
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		if msg.Width-4 < progressWidth {
			m.bar.Width = max(msg.Width-4, 10)
		}
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "h", "?":
			m.help = !m.help
		default:
			if !m.autoscroll {
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case progressMsg:
		m.progress = msg.Progress
	case resultMsg:
		m.result = msg.res
		m.progress.Completed = msg.res.RunsCompleted
		m.table.SetRows(bottleneckRows(msg.res))
		m.table.SetHeight(len(msg.res.Bottlenecks) + 1)
		m.updateViewportHeight()
	case errMsg:
		m.err = msg.err
	}
	return m, nil
}

func bottleneckRows(res *analysis.AggregateResult) []table.Row {
	rows := make([]table.Row, 0, len(res.Bottlenecks))
	for i, b := range res.Bottlenecks {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			b.NodeID,
			fmt.Sprintf("%.3f", b.Importance),
			fmt.Sprintf("%.3f", res.FailureProbabilityByNode[b.NodeID]),
			fmt.Sprintf("%.1f", res.MeanTimeToFailureByNode[b.NodeID]),
		})
	}
	return rows
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderBody()) + lipgloss.Height(m.renderBottom()) + 4
	h := m.height - used
	if h < 3 {
		h = 3
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) fraction() float64 {
	if m.progress.Total <= 0 {
		return 0
	}
	return float64(m.progress.Completed) / float64(m.progress.Total)
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := dimStyle.Render(strings.Repeat("─", max(m.width, 1)))
	sections := []string{
		m.renderHeader(),
		divider,
		m.renderBody(),
		divider,
		dimStyle.Render("Log:"),
		m.vp.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	title := titleStyle.Render("Cascade simulation: " + m.sc.Name)
	params := fmt.Sprintf("event=%s severity=%.2f seeds=%s horizon=%dh runs=%d base_p=%.2f scheduling=%s",
		m.sc.EventType, m.sc.EventSeverity, strings.Join(m.sc.Seeds(), ","),
		m.sc.HorizonHours, m.sc.MonteCarloRuns, m.sc.BasePropagationProbability, m.sc.Mode())
	if m.width > 0 {
		params = wordwrap.String(params, m.width)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render(params))
}

func (m tuiModel) renderBody() string {
	bar := fmt.Sprintf("%s %d/%d", m.bar.ViewAs(m.fraction()), m.progress.Completed, m.progress.Total)
	switch {
	case m.err != nil:
		return lipgloss.JoinVertical(lipgloss.Left, bar, errStyle.Render("simulation failed: "+m.err.Error()))
	case m.result == nil:
		return lipgloss.JoinVertical(lipgloss.Left, bar, dimStyle.Render("running..."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, m.renderSummary())
}

func (m tuiModel) renderSummary() string {
	res := m.result
	status := okStyle.Render("complete")
	if res.Cancelled {
		status = warnStyle.Render(fmt.Sprintf("cancelled after %d runs", res.RunsCompleted))
	}
	stats := fmt.Sprintf("%s | affected %.2f [%d-%d] | impact %.2f [%.2f-%.2f] | depth %.2f | P(cascade) %.3f | %.2fs",
		status,
		res.TotalAffectedNodes, res.AffectedNodesCI[0], res.AffectedNodesCI[1],
		res.TotalImpactScore, res.ImpactScoreCI[0], res.ImpactScoreCI[1],
		res.CascadeDepth, res.CascadeProbability, res.ComputationSeconds)
	parts := []string{stats}
	if len(res.Bottlenecks) > 0 {
		parts = append(parts, "", titleStyle.Render("Bottlenecks"), m.table.View())
	}
	if len(res.CriticalPaths) > 0 {
		parts = append(parts, "", titleStyle.Render("Critical paths"))
		for _, cp := range res.CriticalPaths {
			parts = append(parts, fmt.Sprintf("%5.1f%%  %s", cp.Frequency*100, strings.Join(cp.Nodes, " → ")))
		}
	}
	if len(res.Recommendations) > 0 {
		parts = append(parts, "", titleStyle.Render("Recommendations"))
		width := m.width - 2
		if width < 20 {
			width = defaultWidth
		}
		for _, r := range res.Recommendations {
			parts = append(parts, "• "+wordwrap.String(r, width))
		}
	}
	return strings.Join(parts, "\n")
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	elapsed := m.progress.Elapsed
	if elapsed == 0 && m.result != nil {
		elapsed = time.Duration(m.result.ComputationSeconds * float64(time.Second))
	}
	return fmt.Sprintf("elapsed %s | Wrap %s | Scroll %s | h help | q quit",
		elapsed.Round(time.Millisecond), indicator(m.wrap), indicator(m.autoscroll))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for log lines",
		" s  toggle auto-scroll",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
