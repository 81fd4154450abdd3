package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Config holds tunable thresholds for verdict classification, insight
// scoring, and diff reporting.
type Config struct {
	Classifier ClassifierConfig `json:"classifier"`
	Insights   InsightConfig    `json:"insights"`
	Diff       DiffConfig       `json:"diff"`
}

// ClassifierConfig gathers every threshold the dominant-factor heuristic
// uses, so the gates can be tuned or tested without touching control flow.
type ClassifierConfig struct {
	PlanningAbsMs       float64 `json:"planning_abs_ms"`
	PlanningDomRatio    float64 `json:"planning_dom_ratio"`
	IOReadRatio         float64 `json:"io_read_ratio"`
	IOReadRatioSaturate float64 `json:"io_read_ratio_saturate"`
	IOReadBlocks        int64   `json:"io_read_blocks"`
	IOTempOps           int64   `json:"io_temp_ops"`
	CPUMinExecMs        float64 `json:"cpu_min_exec_ms"`
	CPUMinExecRatio     float64 `json:"cpu_min_exec_ratio"`
	CPULowReadRatio     float64 `json:"cpu_low_read_ratio"`
	OverrideScore       float64 `json:"override_score"`
	OverrideExecRatio   float64 `json:"override_exec_ratio"`
	TinyTotalMs         float64 `json:"tiny_total_ms"`
	TinyRatioDom        float64 `json:"tiny_ratio_dom"`
}

// InsightConfig defines thresholds for insight generation.
type InsightConfig struct {
	HotspotCriticalPercent float64 `json:"hotspot_critical_percent"`
	HotspotWarningPercent  float64 `json:"hotspot_warning_percent"`
	BufferWarningBlocks    int64   `json:"buffer_warning_blocks"`
	BufferCriticalBlocks   int64   `json:"buffer_critical_blocks"`
	SpillWarningBlocks     int64   `json:"spill_warning_blocks"`
	SpillCriticalBlocks    int64   `json:"spill_critical_blocks"`
	PlanningNoticeRatio    float64 `json:"planning_notice_ratio"`
}

// DiffConfig defines thresholds for diff summaries.
type DiffConfig struct {
	MinSelfDeltaMs   float64 `json:"min_self_delta_ms"`
	MinPercentChange float64 `json:"min_percent_change"`
	MaxItems         int     `json:"max_items"`
	CriticalDeltaMs  float64 `json:"critical_delta_ms"`
	WarningDeltaMs   float64 `json:"warning_delta_ms"`
}

var (
	mu     sync.RWMutex
	active = Default()
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Classifier: ClassifierConfig{
			PlanningAbsMs:       1.0,
			PlanningDomRatio:    0.60,
			IOReadRatio:         0.20,
			IOReadRatioSaturate: 0.50,
			IOReadBlocks:        256,
			IOTempOps:           128,
			CPUMinExecMs:        2.0,
			CPUMinExecRatio:     0.60,
			CPULowReadRatio:     0.05,
			OverrideScore:       0.8,
			OverrideExecRatio:   0.5,
			TinyTotalMs:         1.0,
			TinyRatioDom:        0.55,
		},
		Insights: InsightConfig{
			HotspotCriticalPercent: 40.0,
			HotspotWarningPercent:  20.0,
			BufferWarningBlocks:    5000,
			BufferCriticalBlocks:   50000,
			SpillWarningBlocks:     128,
			SpillCriticalBlocks:    20000,
			PlanningNoticeRatio:    0.30,
		},
		Diff: DiffConfig{
			MinSelfDeltaMs:   2.0,
			MinPercentChange: 5.0,
			MaxItems:         8,
			CriticalDeltaMs:  10.0,
			WarningDeltaMs:   5.0,
		},
	}
}

// Active returns the currently applied configuration.
func Active() Config {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Use replaces the active configuration.
func Use(cfg Config) {
	mu.Lock()
	active = cfg
	mu.Unlock()
}

// Apply loads configuration from the provided path (JSON). Empty path resets to default.
func Apply(path string) error {
	if path == "" {
		Use(Default())
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	Use(cfg)
	return nil
}
