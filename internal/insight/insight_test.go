package insight_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planlens/planlens/internal/analyzer"
	"github.com/planlens/planlens/internal/insight"
	"github.com/planlens/planlens/test"
)

func TestBuildMessagesNilReport(t *testing.T) {
	require.Nil(t, insight.BuildMessages(nil))
}

func TestBuildMessagesIOHotspot(t *testing.T) {
	report := test.LoadSampleReport(t, "seqscan_io.json")
	msgs := insight.BuildMessages(report)
	require.Len(t, msgs, 2)

	// The Seq Scan burns 83% of execution time, well past the critical gate.
	require.Equal(t, insight.SeverityCritical, msgs[0].Severity)
	require.Contains(t, msgs[0].Text, "Hot spot")
	require.Contains(t, msgs[0].Text, "Seq Scan on public.events")
	require.Contains(t, msgs[0].Text, "consider adding an index")

	require.Equal(t, insight.SeverityWarning, msgs[1].Severity)
	require.Contains(t, msgs[1].Text, "Buffer traffic")
}

func TestBuildMessagesPlannerHeavy(t *testing.T) {
	report := test.LoadSampleReport(t, "planner_heavy.json")
	msgs := insight.BuildMessages(report)
	require.Len(t, msgs, 2)

	require.Contains(t, msgs[0].Text, "Index Scan on public.accounts using accounts_pkey")

	require.Equal(t, insight.SeverityWarning, msgs[1].Severity)
	require.Contains(t, msgs[1].Text, "Planning consumed 80.0%")
	require.Contains(t, msgs[1].Text, "prepared statements")
}

func TestBuildMessagesLowConfidence(t *testing.T) {
	report := test.LoadSampleReport(t, "tiny.json")
	msgs := insight.BuildMessages(report)

	var found bool
	for _, m := range msgs {
		if m.Severity == insight.SeverityInfo && m.Text == "Timings are sub-millisecond; the verdict is low confidence and may reflect measurement noise" {
			found = true
		}
	}
	require.True(t, found)
}

func TestBuildMessagesQuietReport(t *testing.T) {
	// A balanced join with modest buffer traffic only yields the hotspot note.
	report := test.LoadSampleReport(t, "orders_join.json")
	msgs := insight.BuildMessages(report)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].Text, "Hot spot")
	require.Equal(t, insight.SeverityCritical, msgs[0].Severity)
}

func TestHumanizeBuffers(t *testing.T) {
	require.Equal(t, "0", insight.HumanizeBuffers(0))
	require.Equal(t, "8.00 KiB", insight.HumanizeBuffers(1))
	require.Equal(t, "1.00 MiB", insight.HumanizeBuffers(128))
	require.Equal(t, "1.00 GiB", insight.HumanizeBuffers(131072))
}

func TestBuildMessagesSkipZeroHotspot(t *testing.T) {
	report := &analyzer.Report{
		TopNodes: []analyzer.TopNode{{NodeType: "Result"}},
	}
	require.Empty(t, insight.BuildMessages(report))
}
