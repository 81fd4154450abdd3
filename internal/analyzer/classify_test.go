package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planlens/planlens/internal/model"
)

func TestClassifyPlannerDominated(t *testing.T) {
	s := Classify(nil, 20, 80)
	require.Equal(t, FactorPlanner, s.DominantFactor)
	require.InDelta(t, 0.8, s.PlanningRatio, 1e-9)
	require.False(t, s.LowConfidence)
	require.Contains(t, s.DominantExplain, "Planning time dominates")
}

func TestClassifyIODominated(t *testing.T) {
	nodes := []model.NodeMetrics{
		{NodeType: "Seq Scan", SelfMs: 45, Buffers: model.BufferMetrics{SharedRead: 5000}},
	}
	s := Classify(nodes, 50, 1)
	require.Equal(t, FactorIO, s.DominantFactor)
	require.GreaterOrEqual(t, s.DominantScores[FactorIO], 0.8)
	require.InDelta(t, 1.0, s.BuffersReadRatio, 1e-9)
	require.Contains(t, s.DominantExplain, "IO-bound")
}

func TestClassifyCPUDominated(t *testing.T) {
	nodes := []model.NodeMetrics{
		{NodeType: "Sort", SelfMs: 7, Buffers: model.BufferMetrics{SharedHit: 40}},
		{NodeType: "Seq Scan", SelfMs: 5, Buffers: model.BufferMetrics{SharedHit: 200, SharedRead: 3}},
	}
	s := Classify(nodes, 12, 0.4)
	require.Equal(t, FactorCPU, s.DominantFactor)
	require.InDelta(t, 0.9, s.DominantScores[FactorCPU], 1e-9)
	require.Contains(t, s.DominantExplain, "CPU-bound")
}

func TestClassifyCPUScoreLowerWithTempSpill(t *testing.T) {
	nodes := []model.NodeMetrics{
		{NodeType: "Sort", SelfMs: 10, Buffers: model.BufferMetrics{SharedHit: 500, TempRead: 2, TempWritten: 3}},
	}
	s := Classify(nodes, 12, 0.4)
	require.InDelta(t, 0.6, s.DominantScores[FactorCPU], 1e-9)
}

func TestClassifyExecutionDominated(t *testing.T) {
	// Read ratio sits between the CPU and IO gates, so neither override fires.
	nodes := []model.NodeMetrics{
		{NodeType: "Hash Join", SelfMs: 20, Buffers: model.BufferMetrics{SharedHit: 1800, SharedRead: 200}},
	}
	s := Classify(nodes, 24.5, 0.6)
	require.Equal(t, FactorExecution, s.DominantFactor)
	require.False(t, s.LowConfidence)
	require.Contains(t, s.DominantExplain, "Execution time dominates overall")
}

func TestClassifyTinyTotalExecution(t *testing.T) {
	s := Classify(nil, 0.3, 0.1)
	require.Equal(t, FactorExecution, s.DominantFactor)
	require.True(t, s.LowConfidence)
	require.Contains(t, s.DominantExplain, "sub-millisecond")
}

func TestClassifyTinyTotalPlanner(t *testing.T) {
	// Planning beats execution by ratio even though it never clears the
	// absolute 1ms gate.
	s := Classify(nil, 0.1, 0.4)
	require.Equal(t, FactorPlanner, s.DominantFactor)
	require.True(t, s.LowConfidence)
	require.Contains(t, s.DominantExplain, "sub-millisecond")
}

func TestClassifyTinyTotalKeepsPick(t *testing.T) {
	// Neither tiny-total branch clears the 0.55 ratio, so the IO pick from
	// the score phase survives, still flagged low confidence.
	nodes := []model.NodeMetrics{
		{NodeType: "Seq Scan", SelfMs: 0.2, Buffers: model.BufferMetrics{SharedRead: 500}},
	}
	s := Classify(nodes, 0.28, 0.3)
	require.True(t, s.LowConfidence)
	require.Equal(t, FactorIO, s.DominantFactor)
	require.Contains(t, s.DominantExplain, "IO-bound")
}

func TestClassifyZeroTimes(t *testing.T) {
	s := Classify(nil, 0, 0)
	require.Zero(t, s.PlanningRatio)
	require.Zero(t, s.ExecutionRatio)
	require.False(t, s.LowConfidence)
	// All scores are zero; the fixed priority order keeps the first category.
	require.Equal(t, FactorPlanner, s.DominantFactor)
}

func TestClassifyDeterministic(t *testing.T) {
	nodes := []model.NodeMetrics{
		{NodeType: "Seq Scan", SelfMs: 45, Buffers: model.BufferMetrics{SharedRead: 5000, SharedHit: 123}},
		{NodeType: "Sort", SelfMs: 3, Buffers: model.BufferMetrics{TempRead: 64, TempWritten: 70}},
	}
	first := Classify(nodes, 50, 1)
	second := Classify(nodes, 50, 1)
	require.Equal(t, first.DominantFactor, second.DominantFactor)
	require.Equal(t, first.DominantExplain, second.DominantExplain)
	require.Equal(t, first.DominantScores, second.DominantScores)
}

func TestClassifyTempOpsRaiseIOScore(t *testing.T) {
	nodes := []model.NodeMetrics{
		{NodeType: "Sort", SelfMs: 30, Buffers: model.BufferMetrics{SharedHit: 10000, TempRead: 100, TempWritten: 100}},
	}
	s := Classify(nodes, 40, 0.5)
	// Read ratio is tiny but temp traffic alone contributes 0.4.
	require.InDelta(t, 0.4, s.DominantScores[FactorIO], 1e-2)
}
