package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planlens/planlens/internal/render/tui"
	"github.com/planlens/planlens/test"
)

func TestRenderSampleReport(t *testing.T) {
	report := test.LoadSampleReport(t, "orders_join.json")

	var buf bytes.Buffer
	require.NoError(t, tui.Render(&buf, report, tui.Options{}))

	out := buf.String()
	require.Contains(t, out, "Verdict: execution_dominated")
	require.Contains(t, out, "Execution 24.500 ms | Planning 0.600 ms | Total 25.100 ms")
	require.Contains(t, out, "By operator:")
	require.Contains(t, out, "By table:")
	require.Contains(t, out, "Seq Scan on public.orders")
	require.Contains(t, out, "Top nodes:")
	require.NotContains(t, out, "By index:")
	require.NotContains(t, out, "\033[")
}

func TestRenderColorAndInsights(t *testing.T) {
	report := test.LoadSampleReport(t, "seqscan_io.json")

	var buf bytes.Buffer
	require.NoError(t, tui.Render(&buf, report, tui.Options{EnableColor: true, ShowInsights: true}))

	out := buf.String()
	require.Contains(t, out, "\033[31m")
	require.Contains(t, out, "Insights:")
	require.Contains(t, out, "Hot spot")
}

func TestRenderLowConfidenceMarker(t *testing.T) {
	report := test.LoadSampleReport(t, "tiny.json")

	var buf bytes.Buffer
	require.NoError(t, tui.Render(&buf, report, tui.Options{}))
	require.Contains(t, buf.String(), "(low confidence)")
}

func TestRenderMaxRowsTruncates(t *testing.T) {
	report := test.LoadSampleReport(t, "orders_join.json")

	var buf bytes.Buffer
	require.NoError(t, tui.Render(&buf, report, tui.Options{MaxRows: 1}))

	out := buf.String()
	require.Contains(t, out, "... (2 more rows)")
	require.Equal(t, 1, strings.Count(out, "more nodes"))
}

func TestRenderNilInputs(t *testing.T) {
	report := test.LoadSampleReport(t, "orders_join.json")
	require.Error(t, tui.Render(nil, report, tui.Options{}))

	var buf bytes.Buffer
	require.Error(t, tui.Render(&buf, nil, tui.Options{}))
}
