package insight

import (
	"fmt"
	"strings"

	"github.com/planlens/planlens/internal/analyzer"
	"github.com/planlens/planlens/internal/config"
)

// Severity expresses the urgency of an insight message.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Message represents an actionable observation about a report.
type Message struct {
	Severity Severity
	Text     string
}

// BuildMessages derives human-readable observations from a report. The
// messages complement the verdict: they point at the concrete operator,
// table, or counter behind it.
func BuildMessages(report *analyzer.Report) []Message {
	if report == nil {
		return nil
	}
	var out []Message

	if msg := hotspotMessage(report); msg != nil {
		out = append(out, *msg)
	}
	if msg := bufferMessage(report); msg != nil {
		out = append(out, *msg)
	}
	if msg := spillMessage(report); msg != nil {
		out = append(out, *msg)
	}
	if msg := planningMessage(report); msg != nil {
		out = append(out, *msg)
	}
	if report.Summary.LowConfidence {
		out = append(out, Message{
			Severity: SeverityInfo,
			Text:     "Timings are sub-millisecond; the verdict is low confidence and may reflect measurement noise",
		})
	}

	return out
}

func hotspotMessage(report *analyzer.Report) *Message {
	if len(report.TopNodes) == 0 {
		return nil
	}
	cfg := config.Active().Insights
	hot := report.TopNodes[0]
	if hot.SelfTimeMs <= 0 {
		return nil
	}

	text := fmt.Sprintf("Hot spot: %s self %.2f ms (%.1f%%)", nodeLabel(hot.NodeType, hot.Table, hot.Index), hot.SelfTimeMs, hot.SelfTimePct)
	if buf := hot.BufferMetrics.Total(); buf > 0 {
		text += fmt.Sprintf(", buffers %d (~%s)", buf, HumanizeBuffers(buf))
	}
	if strings.Contains(hot.NodeType, "Seq Scan") && hot.Table != "" {
		text += " — consider adding an index or tightening the filter"
	}

	severity := SeverityInfo
	switch {
	case hot.SelfTimePct >= cfg.HotspotCriticalPercent:
		severity = SeverityCritical
	case hot.SelfTimePct >= cfg.HotspotWarningPercent:
		severity = SeverityWarning
	}
	return &Message{Severity: severity, Text: text}
}

func bufferMessage(report *analyzer.Report) *Message {
	cfg := config.Active().Insights
	total := report.Summary.BuffersTotal.Total()
	if total < cfg.BufferWarningBlocks {
		return nil
	}
	text := fmt.Sprintf("Buffer traffic: %d blocks (~%s), read ratio %.1f%%",
		total, HumanizeBuffers(total), report.Summary.BuffersReadRatio*100)
	severity := SeverityWarning
	if total >= cfg.BufferCriticalBlocks {
		severity = SeverityCritical
	}
	return &Message{Severity: severity, Text: text}
}

func spillMessage(report *analyzer.Report) *Message {
	cfg := config.Active().Insights
	tempOps := report.Summary.BuffersTotal.TempOps()
	if tempOps < cfg.SpillWarningBlocks {
		return nil
	}
	worst := ""
	for _, row := range report.ByNodeType {
		if row.BufferMetrics.TempOps() > 0 {
			worst = row.NodeType
			break
		}
	}
	text := fmt.Sprintf("Temp spill: %d temp blocks (~%s)", tempOps, HumanizeBuffers(tempOps))
	if worst != "" {
		text += fmt.Sprintf(", mostly from %s", worst)
	}
	text += " — consider increasing work_mem"
	severity := SeverityWarning
	if tempOps >= cfg.SpillCriticalBlocks {
		severity = SeverityCritical
	}
	return &Message{Severity: severity, Text: text}
}

func planningMessage(report *analyzer.Report) *Message {
	cfg := config.Active().Insights
	s := report.Summary
	if s.PlanningRatio < cfg.PlanningNoticeRatio || s.PlanningTimeMs <= 0 {
		return nil
	}
	text := fmt.Sprintf("Planning consumed %.1f%% of total time (%.3f ms)", s.PlanningRatio*100, s.PlanningTimeMs)
	severity := SeverityInfo
	if s.DominantFactor == analyzer.FactorPlanner {
		severity = SeverityWarning
		text += " — consider prepared statements or plan caching"
	}
	return &Message{Severity: severity, Text: text}
}

func nodeLabel(nodeType, table, index string) string {
	label := nodeType
	if table != "" {
		label += " on " + table
	}
	if index != "" {
		label += " using " + index
	}
	return label
}

// HumanizeBuffers converts a buffer count into a readable size using 8KiB blocks.
func HumanizeBuffers(blocks int64) string {
	if blocks <= 0 {
		return "0"
	}
	const blockSize = 8192
	bytes := float64(blocks * blockSize)
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.2f GiB", bytes/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.2f MiB", bytes/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.2f KiB", bytes/(1<<10))
	default:
		return fmt.Sprintf("%.0f B", bytes)
	}
}
