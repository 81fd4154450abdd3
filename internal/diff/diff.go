package diff

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/planlens/planlens/internal/analyzer"
	"github.com/planlens/planlens/internal/config"
	"github.com/planlens/planlens/internal/insight"
)

// Options configures the diff sensitivity.
type Options struct {
	MinSelfTimeDeltaMs float64
	MinPercentChange   float64
	MaxItems           int
}

// Report summarises the delta between two plan reports.
type Report struct {
	Summary      SummaryDiff `json:"summary"`
	Regressions  []Entry     `json:"regressions"`
	Improvements []Entry     `json:"improvements"`
	Options      Options     `json:"-"`
}

// SummaryDiff covers high-level timing and verdict differences.
type SummaryDiff struct {
	BaseExecutionMs   float64 `json:"base_execution_ms"`
	TargetExecutionMs float64 `json:"target_execution_ms"`
	DeltaExecutionMs  float64 `json:"delta_execution_ms"`
	PercentExecution  float64 `json:"percent_execution"`
	BasePlanningMs    float64 `json:"base_planning_ms"`
	TargetPlanningMs  float64 `json:"target_planning_ms"`
	DeltaPlanningMs   float64 `json:"delta_planning_ms"`
	PercentPlanning   float64 `json:"percent_planning"`
	BaseFactor        string  `json:"base_factor"`
	TargetFactor      string  `json:"target_factor"`
	FactorChanged     bool    `json:"factor_changed"`
}

// Entry captures the delta for one operator kind.
type Entry struct {
	Signature        string  `json:"signature"`
	BaseSelfMs       float64 `json:"base_self_ms"`
	TargetSelfMs     float64 `json:"target_self_ms"`
	DeltaSelfMs      float64 `json:"delta_self_ms"`
	PercentChange    float64 `json:"percent_change"`
	BaseRows         float64 `json:"base_rows"`
	TargetRows       float64 `json:"target_rows"`
	BaseBuffers      int64   `json:"base_buffers"`
	TargetBuffers    int64   `json:"target_buffers"`
	DeltaBuffers     int64   `json:"delta_buffers"`
	BaseTempBlocks   int64   `json:"base_temp_blocks"`
	TargetTempBlocks int64   `json:"target_temp_blocks"`
	DeltaTempBlocks  int64   `json:"delta_temp_blocks"`
}

type aggregated struct {
	SelfMs     float64
	Rows       float64
	Buffers    int64
	TempBlocks int64
}

// Compare builds a diff report for two analyses of the same query.
func Compare(base, target *analyzer.Report, opts Options) (*Report, error) {
	if base == nil {
		return nil, fmt.Errorf("diff: base report missing")
	}
	if target == nil {
		return nil, fmt.Errorf("diff: target report missing")
	}

	opts = applyDefaults(opts)

	baseAgg := bySignature(base)
	targetAgg := bySignature(target)

	var regressions, improvements []Entry
	for _, sig := range unionKeys(baseAgg, targetAgg) {
		entry := buildEntry(sig, baseAgg[sig], targetAgg[sig])
		if passesRegression(entry, opts) {
			regressions = append(regressions, entry)
		} else if passesImprovement(entry, opts) {
			improvements = append(improvements, entry)
		}
	}

	sort.Slice(regressions, func(i, j int) bool {
		return regressions[i].DeltaSelfMs > regressions[j].DeltaSelfMs
	})
	sort.Slice(improvements, func(i, j int) bool {
		return improvements[i].DeltaSelfMs < improvements[j].DeltaSelfMs
	})

	if opts.MaxItems > 0 {
		if len(regressions) > opts.MaxItems {
			regressions = regressions[:opts.MaxItems]
		}
		if len(improvements) > opts.MaxItems {
			improvements = improvements[:opts.MaxItems]
		}
	}

	bs, ts := base.Summary, target.Summary
	return &Report{
		Summary: SummaryDiff{
			BaseExecutionMs:   bs.ExecutionTimeMs,
			TargetExecutionMs: ts.ExecutionTimeMs,
			DeltaExecutionMs:  ts.ExecutionTimeMs - bs.ExecutionTimeMs,
			PercentExecution:  percentChange(bs.ExecutionTimeMs, ts.ExecutionTimeMs),
			BasePlanningMs:    bs.PlanningTimeMs,
			TargetPlanningMs:  ts.PlanningTimeMs,
			DeltaPlanningMs:   ts.PlanningTimeMs - bs.PlanningTimeMs,
			PercentPlanning:   percentChange(bs.PlanningTimeMs, ts.PlanningTimeMs),
			BaseFactor:        bs.DominantFactor,
			TargetFactor:      ts.DominantFactor,
			FactorChanged:     bs.DominantFactor != ts.DominantFactor,
		},
		Regressions:  regressions,
		Improvements: improvements,
		Options:      opts,
	}, nil
}

// Text renders the report as a plain-text summary.
func (r *Report) Text() string {
	var b strings.Builder
	b.WriteString("Diff summary\n")
	_, _ = fmt.Fprintf(&b, "  Execution: %.3f ms -> %.3f ms (%+.3f ms, %+.1f%%)\n",
		r.Summary.BaseExecutionMs, r.Summary.TargetExecutionMs,
		r.Summary.DeltaExecutionMs, r.Summary.PercentExecution)
	_, _ = fmt.Fprintf(&b, "  Planning:  %.3f ms -> %.3f ms (%+.3f ms, %+.1f%%)\n",
		r.Summary.BasePlanningMs, r.Summary.TargetPlanningMs,
		r.Summary.DeltaPlanningMs, r.Summary.PercentPlanning)
	if r.Summary.FactorChanged {
		_, _ = fmt.Fprintf(&b, "  Verdict:   %s -> %s\n", r.Summary.BaseFactor, r.Summary.TargetFactor)
	} else {
		_, _ = fmt.Fprintf(&b, "  Verdict:   %s (unchanged)\n", r.Summary.BaseFactor)
	}

	b.WriteString("\nRegressions\n")
	writeEntries(&b, r.Regressions)
	b.WriteString("\nImprovements\n")
	writeEntries(&b, r.Improvements)
	return b.String()
}

func writeEntries(b *strings.Builder, entries []Entry) {
	if len(entries) == 0 {
		b.WriteString("  none above threshold\n")
		return
	}
	for _, entry := range entries {
		_, _ = fmt.Fprintf(b, "  %-28s %.2f ms -> %.2f ms (%+.2f ms, %+.1f%%)",
			entry.Signature, entry.BaseSelfMs, entry.TargetSelfMs, entry.DeltaSelfMs, entry.PercentChange)
		if entry.DeltaTempBlocks != 0 {
			_, _ = fmt.Fprintf(b, ", temp %+d blocks (~%s)", entry.DeltaTempBlocks, insight.HumanizeBuffers(abs64(entry.DeltaTempBlocks)))
		} else if entry.DeltaBuffers != 0 {
			_, _ = fmt.Fprintf(b, ", buffers %+d blocks", entry.DeltaBuffers)
		}
		b.WriteString("\n")
	}
}

// JSON marshals the diff report into an indented JSON document.
func (r *Report) JSON() ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}
	type alias Report
	return json.MarshalIndent((*alias)(r), "", "  ")
}

// bySignature folds the by-operator grouping into a signature map. The
// by-operator view conserves total self time, so deltas over it account for
// the whole plan.
func bySignature(report *analyzer.Report) map[string]aggregated {
	result := map[string]aggregated{}
	for _, row := range report.ByNodeType {
		entry := result[row.NodeType]
		entry.SelfMs += row.SelfTimeMs
		entry.Rows += row.SelfRows
		entry.Buffers += row.BufferMetrics.Total()
		entry.TempBlocks += row.BufferMetrics.TempOps()
		result[row.NodeType] = entry
	}
	return result
}

func unionKeys(base, target map[string]aggregated) []string {
	seen := map[string]struct{}{}
	for k := range base {
		seen[k] = struct{}{}
	}
	for k := range target {
		seen[k] = struct{}{}
	}
	all := make([]string, 0, len(seen))
	for k := range seen {
		all = append(all, k)
	}
	sort.Strings(all)
	return all
}

func buildEntry(sig string, base, target aggregated) Entry {
	return Entry{
		Signature:        sig,
		BaseSelfMs:       base.SelfMs,
		TargetSelfMs:     target.SelfMs,
		DeltaSelfMs:      target.SelfMs - base.SelfMs,
		PercentChange:    percentChange(base.SelfMs, target.SelfMs),
		BaseRows:         base.Rows,
		TargetRows:       target.Rows,
		BaseBuffers:      base.Buffers,
		TargetBuffers:    target.Buffers,
		DeltaBuffers:     target.Buffers - base.Buffers,
		BaseTempBlocks:   base.TempBlocks,
		TargetTempBlocks: target.TempBlocks,
		DeltaTempBlocks:  target.TempBlocks - base.TempBlocks,
	}
}

func passesRegression(entry Entry, opts Options) bool {
	return entry.DeltaSelfMs >= opts.MinSelfTimeDeltaMs && entry.PercentChange >= opts.MinPercentChange
}

func passesImprovement(entry Entry, opts Options) bool {
	return entry.DeltaSelfMs <= -opts.MinSelfTimeDeltaMs && entry.PercentChange <= -opts.MinPercentChange
}

func percentChange(base, target float64) float64 {
	const eps = 1e-9
	if math.Abs(base) <= eps {
		if math.Abs(target) <= eps {
			return 0
		}
		if target > 0 {
			return 100
		}
		return -100
	}
	return (target - base) / base * 100
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func applyDefaults(opts Options) Options {
	cfg := config.Active().Diff
	if opts.MinSelfTimeDeltaMs <= 0 {
		opts.MinSelfTimeDeltaMs = cfg.MinSelfDeltaMs
	}
	if opts.MinPercentChange <= 0 {
		opts.MinPercentChange = cfg.MinPercentChange
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = cfg.MaxItems
	}
	return opts
}
