package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planlens/planlens/internal/model"
)

func TestCollectExclusiveTime(t *testing.T) {
	root := &model.PlanNode{
		NodeType:        "Hash Join",
		ActualTotalTime: 100,
		ActualLoops:     1,
		Children: []*model.PlanNode{
			{NodeType: "Seq Scan", ActualTotalTime: 40, ActualLoops: 1},
		},
	}

	nodes := Collect(root)
	require.Len(t, nodes, 2)

	// Post-order: child first.
	require.Equal(t, "Seq Scan", nodes[0].NodeType)
	require.InDelta(t, 40.0, nodes[0].SelfMs, 1e-9)
	require.Equal(t, "Hash Join", nodes[1].NodeType)
	require.InDelta(t, 60.0, nodes[1].SelfMs, 1e-9)
	require.InDelta(t, 100.0, nodes[1].InclusiveMs, 1e-9)
}

func TestCollectLoopsScaleTime(t *testing.T) {
	root := &model.PlanNode{
		NodeType:        "Nested Loop",
		ActualTotalTime: 90,
		ActualLoops:     1,
		Children: []*model.PlanNode{
			{NodeType: "Index Scan", ActualTotalTime: 0.5, ActualRows: 10, ActualLoops: 100},
		},
	}

	nodes := Collect(root)
	require.Len(t, nodes, 2)
	require.InDelta(t, 50.0, nodes[0].InclusiveMs, 1e-9)
	require.InDelta(t, 1000.0, nodes[0].SelfRows, 1e-9)
	require.InDelta(t, 40.0, nodes[1].SelfMs, 1e-9)
}

func TestCollectZeroAndMissingLoopsTreatedAsOne(t *testing.T) {
	for _, loops := range []float64{0, -1} {
		nodes := Collect(&model.PlanNode{NodeType: "Seq Scan", ActualTotalTime: 5, ActualRows: 7, ActualLoops: loops})
		require.Len(t, nodes, 1)
		require.InDelta(t, 5.0, nodes[0].InclusiveMs, 1e-9)
		require.InDelta(t, 7.0, nodes[0].SelfRows, 1e-9)
	}
}

func TestCollectClampsNegativeSelfTime(t *testing.T) {
	// Children report more inclusive time than the parent; instrumentation
	// rounding can do this.
	root := &model.PlanNode{
		NodeType:        "Limit",
		ActualTotalTime: 10,
		ActualLoops:     1,
		Children: []*model.PlanNode{
			{NodeType: "Sort", ActualTotalTime: 12, ActualLoops: 1},
		},
	}

	nodes := Collect(root)
	require.InDelta(t, 0.0, nodes[1].SelfMs, 1e-9)
	for _, n := range nodes {
		require.GreaterOrEqual(t, n.SelfMs, 0.0)
	}
}

func TestCollectUnknownNodeType(t *testing.T) {
	nodes := Collect(&model.PlanNode{ActualTotalTime: 1, ActualLoops: 1})
	require.Len(t, nodes, 1)
	require.Equal(t, UnknownNodeType, nodes[0].NodeType)
}

func TestCollectTableIdentity(t *testing.T) {
	nodes := Collect(&model.PlanNode{NodeType: "Seq Scan", RelationName: "orders", Schema: "public"})
	require.Equal(t, "public.orders", nodes[0].Table)

	nodes = Collect(&model.PlanNode{NodeType: "Seq Scan", RelationName: "orders"})
	require.Equal(t, "orders", nodes[0].Table)

	nodes = Collect(&model.PlanNode{NodeType: "Sort", Schema: "public"})
	require.Empty(t, nodes[0].Table)
}

func TestCollectPostOrderCoversEveryNode(t *testing.T) {
	root := &model.PlanNode{
		NodeType:        "Gather",
		ActualTotalTime: 30,
		ActualLoops:     1,
		Children: []*model.PlanNode{
			{NodeType: "Hash Join", ActualTotalTime: 20, ActualLoops: 1, Children: []*model.PlanNode{
				{NodeType: "Seq Scan", ActualTotalTime: 8, ActualLoops: 1},
				{NodeType: "Hash", ActualTotalTime: 6, ActualLoops: 1, Children: []*model.PlanNode{
					{NodeType: "Seq Scan", ActualTotalTime: 4, ActualLoops: 1},
				}},
			}},
		},
	}

	nodes := Collect(root)
	require.Len(t, nodes, 5)
	// Parent appears after its subtree.
	require.Equal(t, "Gather", nodes[len(nodes)-1].NodeType)

	var selfSum float64
	for _, n := range nodes {
		selfSum += n.SelfMs
	}
	require.InDelta(t, 30.0, selfSum, 1e-9)
}
