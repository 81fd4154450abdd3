package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planlens/planlens/internal/config"
	"github.com/planlens/planlens/test"
)

func TestDefaultThresholdsAreSet(t *testing.T) {
	cfg := config.Default()
	require.Greater(t, cfg.Classifier.PlanningAbsMs, 0.0)
	require.Greater(t, cfg.Classifier.PlanningDomRatio, 0.0)
	require.Greater(t, cfg.Insights.HotspotCriticalPercent, 0.0)
	require.Greater(t, cfg.Diff.MaxItems, 0)
}

func TestApplyDefaultAndFile(t *testing.T) {
	config.Use(config.Default())
	t.Cleanup(func() { config.Use(config.Default()) })

	root := test.RootPath(t)
	path := filepath.Join(root, "samples", "config.example.json")
	require.NoError(t, config.Apply(path))

	cfg := config.Active()
	require.InDelta(t, 0.5, cfg.Classifier.PlanningDomRatio, 1e-9)
	require.InDelta(t, 50.0, cfg.Insights.HotspotCriticalPercent, 1e-9)
	require.Equal(t, 12, cfg.Diff.MaxItems)

	// Fields the file leaves out keep their defaults.
	require.InDelta(t, config.Default().Classifier.IOReadRatio, cfg.Classifier.IOReadRatio, 1e-9)
	require.Equal(t, config.Default().Insights.BufferWarningBlocks, cfg.Insights.BufferWarningBlocks)

	require.NoError(t, config.Apply(""))
	require.Equal(t, config.Default(), config.Active())
}

func TestApplyMissingFile(t *testing.T) {
	require.Error(t, config.Apply(filepath.Join(t.TempDir(), "does-not-exist.json")))
}

func TestApplyInvalidJSON(t *testing.T) {
	config.Use(config.Default())
	t.Cleanup(func() { config.Use(config.Default()) })

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	require.Error(t, config.Apply(path))
}
