package analyzer

import (
	"errors"

	"github.com/planlens/planlens/internal/model"
)

// DefaultTopN bounds the top-nodes drilldown view unless the caller asks
// otherwise.
const DefaultTopN = 25

// Options controls optional parts of the report.
type Options struct {
	IncludeTopNodes bool
	TopN            int
}

// DefaultOptions returns the options used when callers pass nothing special.
func DefaultOptions() Options {
	return Options{IncludeTopNodes: true, TopN: DefaultTopN}
}

// Report is the full analysis output: the verdict summary plus the three
// grouped cost views and the optional drilldown list.
type Report struct {
	Summary    Summary        `json:"summary"`
	ByNodeType []AggregateRow `json:"by_node_type"`
	ByTable    []AggregateRow `json:"by_table"`
	ByIndex    []AggregateRow `json:"by_index"`
	TopNodes   []TopNode      `json:"top_nodes,omitempty"`
}

// Analyze derives the performance breakdown for a parsed plan. Pure: no
// I/O, no mutation of the input, safe for concurrent callers.
func Analyze(explain *model.Explain, opts Options) (*Report, error) {
	if explain == nil || explain.Plan == nil {
		return nil, errors.New("analyze: missing plan")
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}

	nodes := Collect(explain.Plan)

	// Execution time is the preferred denominator; fall back to the sum of
	// self times, and never divide by zero.
	denom := explain.ExecutionTime
	if denom <= 0 {
		for _, n := range nodes {
			denom += n.SelfMs
		}
	}
	if denom <= 0 {
		denom = 1.0
	}

	summary := Classify(nodes, explain.ExecutionTime, explain.PlanningTime)
	summary.DenominatorMs = denom

	report := &Report{
		Summary:    summary,
		ByNodeType: ByNodeType(nodes, denom),
		ByTable:    ByTable(nodes, denom),
		ByIndex:    ByIndex(nodes, denom),
	}
	if opts.IncludeTopNodes {
		report.TopNodes = TopNodes(nodes, denom, opts.TopN)
	}
	return report, nil
}
