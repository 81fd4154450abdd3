package analyzer

import (
	"github.com/planlens/planlens/internal/config"
	"github.com/planlens/planlens/internal/model"
)

// Dominant-factor categories. Downstream tooling treats the chosen category
// as ground truth, so classification must be deterministic.
const (
	FactorPlanner   = "planner_dominated"
	FactorIO        = "io_dominated"
	FactorCPU       = "cpu_dominated"
	FactorExecution = "execution_dominated"
)

// Summary is the verdict block of a report: timing ratios, buffer ratios,
// per-category scores, and the dominant factor with its explanation.
type Summary struct {
	ExecutionTimeMs  float64             `json:"execution_time_ms"`
	PlanningTimeMs   float64             `json:"planning_time_ms"`
	TotalTimeMs      float64             `json:"total_time_ms"`
	PlanningRatio    float64             `json:"planning_ratio"`
	ExecutionRatio   float64             `json:"execution_ratio"`
	NodeCount        int                 `json:"node_count"`
	DenominatorMs    float64             `json:"denominator_ms_for_pct"`
	BuffersTotal     model.BufferMetrics `json:"buffers_total"`
	BuffersReadRatio float64             `json:"buffers_read_ratio"`
	DominantScores   map[string]float64  `json:"dominant_scores"`
	DominantFactor   string              `json:"dominant_factor"`
	DominantExplain  string              `json:"dominant_explain"`
	LowConfidence    bool                `json:"low_confidence"`
}

// Classify scores the four cost categories and picks the dominant one.
// Pure and side-effect free: identical inputs always produce the identical
// verdict. The caller fills DenominatorMs afterwards.
func Classify(nodes []model.NodeMetrics, executionTimeMs, planningTimeMs float64) Summary {
	cfg := config.Active().Classifier

	var bufSum model.BufferMetrics
	for _, n := range nodes {
		bufSum.Add(n.Buffers)
	}

	totalTimeMs := planningTimeMs + executionTimeMs
	planningRatio := 0.0
	executionRatio := 0.0
	if totalTimeMs > 0 {
		planningRatio = planningTimeMs / totalTimeMs
		executionRatio = executionTimeMs / totalTimeMs
	}

	readBlocks := bufSum.ReadBlocks()
	tempOps := bufSum.TempOps()
	totalBufOps := readBlocks + bufSum.HitBlocks() + bufSum.TempWritten + bufSum.SharedWritten + bufSum.LocalWritten
	readRatio := 0.0
	if totalBufOps > 0 {
		readRatio = float64(readBlocks) / float64(totalBufOps)
	}

	scorePlanner := 0.0
	if planningTimeMs >= cfg.PlanningAbsMs {
		scorePlanner = planningRatio
	}

	scoreIO := 0.0
	if readRatio >= cfg.IOReadRatio {
		scoreIO += min(1.0, readRatio/cfg.IOReadRatioSaturate)
	}
	if readBlocks >= cfg.IOReadBlocks {
		scoreIO += 0.3
	}
	if tempOps >= cfg.IOTempOps {
		scoreIO += 0.4
	}
	scoreIO = min(1.5, scoreIO)

	scoreCPU := 0.0
	if executionTimeMs >= cfg.CPUMinExecMs && executionRatio >= cfg.CPUMinExecRatio && readRatio <= cfg.CPULowReadRatio {
		if tempOps == 0 {
			scoreCPU = 0.9
		} else {
			scoreCPU = 0.6
		}
	}

	scoreExec := executionRatio

	// Fixed priority order breaks ties: the first maximal score wins.
	ranked := []struct {
		factor string
		score  float64
	}{
		{FactorPlanner, scorePlanner},
		{FactorIO, scoreIO},
		{FactorCPU, scoreCPU},
		{FactorExecution, scoreExec},
	}
	dominant := ranked[0].factor
	best := ranked[0].score
	for _, c := range ranked[1:] {
		if c.score > best {
			dominant = c.factor
			best = c.score
		}
	}

	lowConfidence := false

	// Guardrails, applied in order; later rules overwrite the initial pick.
	if planningTimeMs >= cfg.PlanningAbsMs && planningRatio >= cfg.PlanningDomRatio {
		dominant = FactorPlanner
	} else if scoreIO >= cfg.OverrideScore && executionRatio >= cfg.OverrideExecRatio {
		dominant = FactorIO
	} else if scoreCPU >= cfg.OverrideScore && executionRatio >= cfg.OverrideExecRatio {
		dominant = FactorCPU
	}

	// Sub-millisecond totals are mostly noise: re-decide by ratio alone,
	// ignoring the absolute planning-time gate. When neither direction
	// clears the softer ratio the prior pick stands, still flagged.
	if totalTimeMs > 0 && totalTimeMs < cfg.TinyTotalMs {
		lowConfidence = true
		if planningTimeMs > executionTimeMs && planningRatio >= cfg.TinyRatioDom {
			dominant = FactorPlanner
		} else if executionTimeMs >= planningTimeMs && executionRatio >= cfg.TinyRatioDom {
			dominant = FactorExecution
		}
	}

	return Summary{
		ExecutionTimeMs:  executionTimeMs,
		PlanningTimeMs:   planningTimeMs,
		TotalTimeMs:      totalTimeMs,
		PlanningRatio:    planningRatio,
		ExecutionRatio:   executionRatio,
		NodeCount:        len(nodes),
		BuffersTotal:     bufSum,
		BuffersReadRatio: readRatio,
		DominantScores: map[string]float64{
			FactorPlanner:   scorePlanner,
			FactorIO:        scoreIO,
			FactorCPU:       scoreCPU,
			FactorExecution: scoreExec,
		},
		DominantFactor:  dominant,
		DominantExplain: explainFor(dominant, lowConfidence),
		LowConfidence:   lowConfidence,
	}
}

// explainFor selects the fixed explanation for a (category, lowConfidence)
// pair. The texts are a closed set; nothing here is generated.
func explainFor(factor string, lowConfidence bool) string {
	switch factor {
	case FactorPlanner:
		if lowConfidence {
			return "Planning exceeds execution, but timings are sub-millisecond (low confidence). " +
				"This often reflects measurement noise and planner overhead on trivial queries."
		}
		return "Planning time dominates execution. If this query runs frequently, consider prepared statements / plan caching."
	case FactorIO:
		return "Buffer reads (and/or temp activity) are significant, suggesting IO-bound execution. " +
			"Consider indexes, reducing scanned rows, work_mem (if temp spill), and cache effectiveness."
	case FactorCPU:
		return "Execution time dominates while buffer reads are low (mostly cache hits), suggesting CPU-bound work " +
			"(joins/aggregates/sorts/functions). Consider reducing row counts earlier, optimizing joins/expressions, " +
			"and checking for expensive functions."
	default:
		if lowConfidence {
			return "Execution exceeds planning, but timings are sub-millisecond (low confidence). " +
				"This often reflects measurement noise on trivial queries."
		}
		return "Execution time dominates overall. Investigate the most expensive nodes (top_nodes) and table/index breakdown."
	}
}
