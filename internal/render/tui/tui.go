package tui

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/planlens/planlens/internal/analyzer"
	"github.com/planlens/planlens/internal/insight"
)

// Options controls how the TUI renderer behaves.
type Options struct {
	EnableColor  bool
	MaxRows      int
	ShowInsights bool
	BarWidth     int
}

// Render prints the verdict, the grouped cost tables, and the top operators.
func Render(w io.Writer, report *analyzer.Report, opts Options) error {
	if w == nil {
		return errors.New("tui: writer is nil")
	}
	if report == nil {
		return errors.New("tui: empty report")
	}

	if opts.BarWidth <= 0 {
		opts.BarWidth = 20
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 10
	}

	s := report.Summary
	verdict := s.DominantFactor
	if opts.EnableColor {
		verdict = applyColor(verdict, colorForFactor(s.DominantFactor))
	}
	confidence := ""
	if s.LowConfidence {
		confidence = " (low confidence)"
	}
	_, _ = fmt.Fprintf(w, "Verdict: %s%s\n", verdict, confidence)
	_, _ = fmt.Fprintf(w, "  %s\n\n", s.DominantExplain)

	_, _ = fmt.Fprintf(w, "Execution %.3f ms | Planning %.3f ms | Total %.3f ms\n",
		s.ExecutionTimeMs, s.PlanningTimeMs, s.TotalTimeMs)
	_, _ = fmt.Fprintf(w, "Nodes %d | Buffers %d blocks (~%s) | Read ratio %.1f%%\n",
		s.NodeCount, s.BuffersTotal.Total(), insight.HumanizeBuffers(s.BuffersTotal.Total()), s.BuffersReadRatio*100)
	_, _ = fmt.Fprintf(w, "Scores: planner %.2f | io %.2f | cpu %.2f | execution %.2f\n\n",
		s.DominantScores[analyzer.FactorPlanner],
		s.DominantScores[analyzer.FactorIO],
		s.DominantScores[analyzer.FactorCPU],
		s.DominantScores[analyzer.FactorExecution])

	renderRows(w, "By operator", report.ByNodeType, opts)
	renderRows(w, "By table", report.ByTable, opts)
	renderRows(w, "By index", report.ByIndex, opts)
	renderTopNodes(w, report.TopNodes, opts)

	if opts.ShowInsights {
		renderInsights(w, report, opts)
	}

	return nil
}

func renderRows(w io.Writer, title string, rows []analyzer.AggregateRow, opts Options) {
	if len(rows) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "%s:\n", title)
	limit := len(rows)
	if limit > opts.MaxRows {
		limit = opts.MaxRows
	}
	for _, row := range rows[:limit] {
		label := row.NodeType
		if row.Table != "" {
			label += " on " + row.Table
		}
		if row.Index != "" {
			label += " using " + row.Index
		}

		bar := drawBar(row.SelfTimePct/100, opts.BarWidth)
		if opts.EnableColor {
			if color := pickColor(row.SelfTimePct / 100); color != "" {
				bar = applyColor(bar, color)
			}
		}

		line := fmt.Sprintf("  %-40s x%-3d self %8.2f ms %5.1f%% %s rows %.0f",
			label, row.Count, row.SelfTimeMs, row.SelfTimePct, bar, row.SelfRows)
		if buf := row.BufferMetrics.Total(); buf > 0 {
			line += fmt.Sprintf(" buf %d", buf)
		}
		_, _ = fmt.Fprintln(w, line)
	}
	if len(rows) > limit {
		_, _ = fmt.Fprintf(w, "  ... (%d more rows)\n", len(rows)-limit)
	}
	_, _ = fmt.Fprintln(w)
}

func renderTopNodes(w io.Writer, nodes []analyzer.TopNode, opts Options) {
	if len(nodes) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "Top nodes:")
	limit := len(nodes)
	if limit > opts.MaxRows {
		limit = opts.MaxRows
	}
	for _, n := range nodes[:limit] {
		label := n.NodeType
		if n.Table != "" {
			label += " on " + n.Table
		}
		if n.Index != "" {
			label += " using " + n.Index
		}
		line := fmt.Sprintf("  %-40s self %8.2f ms %5.1f%% rows %.0f", label, n.SelfTimeMs, n.SelfTimePct, n.SelfRows)
		if buf := n.BufferMetrics.Total(); buf > 0 {
			line += fmt.Sprintf(" buf %d (~%s)", buf, insight.HumanizeBuffers(buf))
		}
		_, _ = fmt.Fprintln(w, line)
	}
	if len(nodes) > limit {
		_, _ = fmt.Fprintf(w, "  ... (%d more nodes)\n", len(nodes)-limit)
	}
	_, _ = fmt.Fprintln(w)
}

func renderInsights(w io.Writer, report *analyzer.Report, opts Options) {
	messages := insight.BuildMessages(report)
	if len(messages) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "Insights:")
	for _, msg := range messages {
		text := msg.Text
		if opts.EnableColor {
			if color := colorForSeverity(msg.Severity); color != "" {
				text = applyColor(text, color)
			}
		}
		_, _ = fmt.Fprintf(w, "  - [%s] %s\n", msg.Severity, text)
	}
	_, _ = fmt.Fprintln(w)
}

func drawBar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	clamped := ratio
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 1 {
		clamped = 1
	}
	fill := int(math.Round(clamped * float64(width)))
	if clamped > 0 && fill == 0 {
		fill = 1
	}
	if fill > width {
		fill = width
	}
	return strings.Repeat("#", fill) + strings.Repeat("-", width-fill)
}

func pickColor(ratio float64) string {
	switch {
	case ratio >= 0.40:
		return "red"
	case ratio >= 0.20:
		return "yellow"
	case ratio >= 0.10:
		return "cyan"
	default:
		return ""
	}
}

func colorForFactor(factor string) string {
	switch factor {
	case analyzer.FactorIO:
		return "red"
	case analyzer.FactorCPU:
		return "yellow"
	case analyzer.FactorPlanner:
		return "cyan"
	default:
		return ""
	}
}

func colorForSeverity(severity insight.Severity) string {
	switch severity {
	case insight.SeverityCritical:
		return "red"
	case insight.SeverityWarning:
		return "yellow"
	default:
		return ""
	}
}

func applyColor(text, color string) string {
	code := ""
	switch color {
	case "red":
		code = "\033[31m"
	case "yellow":
		code = "\033[33m"
	case "cyan":
		code = "\033[36m"
	default:
		return text
	}
	return code + text + "\033[0m"
}
