package analyzer

import "github.com/planlens/planlens/internal/model"

// UnknownNodeType substitutes for operators whose kind is missing from the
// trace.
const UnknownNodeType = "UNKNOWN"

// Collect walks the plan tree and returns one NodeMetrics record per
// operator, in post-order (children before their parent).
func Collect(root *model.PlanNode) []model.NodeMetrics {
	if root == nil {
		return nil
	}
	var out []model.NodeMetrics
	walk(root, &out)
	return out
}

// walk computes inclusive and exclusive (self) time for node and its
// subtree, appending records to out. Returns the inclusive time so the
// caller can subtract it from its own.
func walk(node *model.PlanNode, out *[]model.NodeMetrics) float64 {
	loops := node.ActualLoops
	if loops <= 0 {
		// A zero multiplier would erase legitimate cost.
		loops = 1
	}
	inclusive := node.ActualTotalTime * loops

	var childSum float64
	for _, child := range node.Children {
		childSum += walk(child, out)
	}

	self := inclusive - childSum
	if self < 0 {
		// Instrumentation rounding can produce tiny negatives.
		self = 0
	}

	nodeType := node.NodeType
	if nodeType == "" {
		nodeType = UnknownNodeType
	}

	table := ""
	if node.RelationName != "" {
		table = node.RelationName
		if node.Schema != "" {
			table = node.Schema + "." + node.RelationName
		}
	}

	*out = append(*out, model.NodeMetrics{
		NodeType:    nodeType,
		InclusiveMs: inclusive,
		SelfMs:      self,
		SelfRows:    node.ActualRows * loops,
		Table:       table,
		Index:       node.IndexName,
		Buffers:     node.Buffers,
	})
	return inclusive
}
