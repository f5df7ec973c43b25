package decisiontable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func concentrationGrid() [][]string {
	rows := [][]string{{"in:country", "in:age", "out:allowed"}}
	for i := 0; i < 150; i++ {
		rows = append(rows, []string{"UK", ">=18", "true"})
	}
	rows = append(rows, []string{"US", "", "false"})
	return rows
}

func TestProfileReportsColumns(t *testing.T) {
	tbl, err := Parse(simpleGrid(), Options{})
	require.NoError(t, err)

	p := tbl.Profile()
	require.Equal(t, 3, len(p.Columns))
	require.Equal(t, 3, p.RowCount)
	require.True(t, p.HasIndex)
}

func TestFunnelStages(t *testing.T) {
	tbl, err := Parse(simpleGrid(), Options{})
	require.NoError(t, err)

	report, err := tbl.Funnel(map[string]any{"country": "UK", "age": 21}, false)
	require.NoError(t, err)
	require.NotEmpty(t, report.Stages)
	require.Equal(t, "candidates", report.Stages[0].Name)
}

func TestConcentrationRequiresIndex(t *testing.T) {
	grid := [][]string{
		{"in:score", "out:band"},
		{">=0", "any"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)
	_, err = tbl.Concentration(5)
	require.Error(t, err)
}

func TestConcentrationBanding(t *testing.T) {
	tbl, err := Parse(concentrationGrid(), Options{})
	require.NoError(t, err)

	report, err := tbl.Concentration(5)
	require.NoError(t, err)
	require.Equal(t, "high", report.Band)
}

func TestAdviseRecommendsProfileForLargeUnindexedTable(t *testing.T) {
	rows := [][]string{{"in:x", "out:y"}}
	for i := 0; i < 250; i++ {
		rows = append(rows, []string{">0", "ok"})
	}
	tbl, err := Parse(rows, Options{})
	require.NoError(t, err)

	recs := Advise(tbl)
	require.NotEmpty(t, recs)
	require.Equal(t, "profile_table", recs[0].ToolName)
}

func TestDecideTracedRecordsVisits(t *testing.T) {
	tbl, err := Parse(simpleGrid(), Options{})
	require.NoError(t, err)

	store := NewTraceStore(10)
	out, traceID, err := tbl.DecideTraced(map[string]any{"country": "UK", "age": 21}, false, store)
	require.NoError(t, err)
	require.Equal(t, "true", out["allowed"])
	require.NotEmpty(t, traceID)

	tr, ok := store.Get(traceID)
	require.True(t, ok)
	require.NotEmpty(t, tr.Visits)
	require.Equal(t, OutcomeAccepted, tr.Visits[0].Outcome)
}
