package analyzer

import (
	"sort"

	"github.com/planlens/planlens/internal/model"
)

// AggregateRow is one finalized grouping row. Depending on the grouping it
// is keyed by operator kind alone, by (table, kind), or by (index, kind).
// The embedded BufferMetrics flatten into the row's JSON fields.
type AggregateRow struct {
	NodeType    string  `json:"node_type"`
	Table       string  `json:"table,omitempty"`
	Index       string  `json:"index,omitempty"`
	Count       int     `json:"count"`
	SelfTimeMs  float64 `json:"self_time_ms"`
	SelfRows    float64 `json:"self_rows"`
	SelfTimePct float64 `json:"self_time_pct"`
	model.BufferMetrics
}

// TopNode is one entry of the most-expensive-operators drilldown view.
type TopNode struct {
	NodeType    string  `json:"node_type"`
	Table       string  `json:"table,omitempty"`
	Index       string  `json:"index,omitempty"`
	SelfTimeMs  float64 `json:"self_time_ms"`
	SelfTimePct float64 `json:"self_time_pct"`
	SelfRows    float64 `json:"self_rows"`
	model.BufferMetrics
}

// aggregateBy accumulates nodes into rows. keyOf returns the identity row
// for a node, or false to exclude it from the grouping. Rows are created in
// encounter order, finalized against denom, and sorted by self time
// descending; the stable sort keeps encounter order for ties so output is
// reproducible.
func aggregateBy(nodes []model.NodeMetrics, denom float64, keyOf func(model.NodeMetrics) (AggregateRow, bool)) []AggregateRow {
	type key struct {
		nodeType string
		table    string
		index    string
	}
	seen := map[key]int{}
	rows := []AggregateRow{}

	for _, n := range nodes {
		identity, ok := keyOf(n)
		if !ok {
			continue
		}
		k := key{nodeType: identity.NodeType, table: identity.Table, index: identity.Index}
		i, exists := seen[k]
		if !exists {
			i = len(rows)
			seen[k] = i
			rows = append(rows, identity)
		}
		rows[i].Count++
		rows[i].SelfTimeMs += n.SelfMs
		rows[i].SelfRows += n.SelfRows
		rows[i].BufferMetrics.Add(n.Buffers)
	}

	finalizeRows(rows, denom)
	return rows
}

func finalizeRows(rows []AggregateRow, denom float64) {
	if denom <= 0 {
		denom = 1.0
	}
	for i := range rows {
		rows[i].SelfTimePct = 100.0 * rows[i].SelfTimeMs / denom
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SelfTimeMs > rows[j].SelfTimeMs
	})
}

// ByNodeType groups every node by operator kind.
func ByNodeType(nodes []model.NodeMetrics, denom float64) []AggregateRow {
	return aggregateBy(nodes, denom, func(n model.NodeMetrics) (AggregateRow, bool) {
		return AggregateRow{NodeType: n.NodeType}, true
	})
}

// ByTable groups nodes carrying a table identity by (table, operator kind).
func ByTable(nodes []model.NodeMetrics, denom float64) []AggregateRow {
	return aggregateBy(nodes, denom, func(n model.NodeMetrics) (AggregateRow, bool) {
		if n.Table == "" {
			return AggregateRow{}, false
		}
		return AggregateRow{NodeType: n.NodeType, Table: n.Table}, true
	})
}

// ByIndex groups nodes carrying an index name by (index, operator kind).
func ByIndex(nodes []model.NodeMetrics, denom float64) []AggregateRow {
	return aggregateBy(nodes, denom, func(n model.NodeMetrics) (AggregateRow, bool) {
		if n.Index == "" {
			return AggregateRow{}, false
		}
		return AggregateRow{NodeType: n.NodeType, Index: n.Index}, true
	})
}

// TopNodes returns the limit most expensive operators by self time. The view
// is independent of the groupings and exists for drilldown display.
func TopNodes(nodes []model.NodeMetrics, denom float64, limit int) []TopNode {
	if limit <= 0 || len(nodes) == 0 {
		return nil
	}
	if denom <= 0 {
		denom = 1.0
	}

	ranked := make([]model.NodeMetrics, len(nodes))
	copy(ranked, nodes)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SelfMs > ranked[j].SelfMs
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]TopNode, 0, len(ranked))
	for _, n := range ranked {
		out = append(out, TopNode{
			NodeType:      n.NodeType,
			Table:         n.Table,
			Index:         n.Index,
			SelfTimeMs:    n.SelfMs,
			SelfTimePct:   100.0 * n.SelfMs / denom,
			SelfRows:      n.SelfRows,
			BufferMetrics: n.Buffers,
		})
	}
	return out
}
