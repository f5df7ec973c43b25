package decisiontable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func simpleGrid() [][]string {
	return [][]string{
		{"in:country", "in:age", "out:allowed"},
		{"UK", ">=18", "true"},
		{"UK", "<18", "false"},
		{"US", "", "false"},
	}
}

func TestParseAndDecideFirstMatch(t *testing.T) {
	tbl, err := Parse(simpleGrid(), Options{})
	require.NoError(t, err)
	require.NotNil(t, tbl)

	out, err := tbl.Decide(map[string]any{"country": "UK", "age": 21}, false)
	require.NoError(t, err)
	require.Equal(t, "true", out["allowed"])

	out, err = tbl.Decide(map[string]any{"country": "UK", "age": 10}, false)
	require.NoError(t, err)
	require.Equal(t, "false", out["allowed"])

	out, err = tbl.Decide(map[string]any{"country": "US", "age": 99}, false)
	require.NoError(t, err)
	require.Equal(t, "false", out["allowed"])
}

func TestParseRejectsEmptyTable(t *testing.T) {
	_, err := Parse(nil, Options{})
	require.Error(t, err)
}

func TestParseRejectsMissingInColumn(t *testing.T) {
	grid := [][]string{
		{"out:result"},
		{"x"},
	}
	_, err := Parse(grid, Options{})
	require.Error(t, err)
}

func TestParseRejectsMissingOutColumn(t *testing.T) {
	grid := [][]string{
		{"in:x"},
		{"1"},
	}
	_, err := Parse(grid, Options{})
	require.Error(t, err)
}

func TestGuardColumnCond(t *testing.T) {
	grid := [][]string{
		{"in:x", "cond:", "out:result"},
		{"1", ":y == 10", "matched"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)

	out, err := tbl.Decide(map[string]any{"x": "1", "y": 10}, false)
	require.NoError(t, err)
	require.Equal(t, "matched", out["result"])

	out, err = tbl.Decide(map[string]any{"x": "1", "y": 11}, false)
	require.NoError(t, err)
	require.NotContains(t, out, "result")
}

func TestIfColumnGatesOutput(t *testing.T) {
	grid := [][]string{
		{"in:x", "out:score", "if:"},
		{"1", "10", ":score == 10"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)

	out, err := tbl.Decide(map[string]any{"x": "1"}, false)
	require.NoError(t, err)
	require.Equal(t, "10", out["score"])
}

func TestAccumulateMode(t *testing.T) {
	grid := [][]string{
		{"accumulate"},
		{"in:x", "out:a", "out:b"},
		{"1", "first", ""},
		{"1", "", "second"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)
	require.Equal(t, Accumulate, tbl.opts.Mode)

	out, err := tbl.Decide(map[string]any{"x": "1"}, false)
	require.NoError(t, err)
	require.Equal(t, "first", out["a"])
	require.Equal(t, "second", out["b"])
	require.Equal(t, true, out["multi_result"])
}

// TestAccumulateModeSequence exercises the worked example of a table whose
// picked rows share a single output column: every picked row's value must
// survive in row order as a sequence, not just the last one scanned.
func TestAccumulateModeSequence(t *testing.T) {
	grid := [][]string{
		{"accumulate"},
		{"in:topic", "in:region", "out:team"},
		{"sports", "Europe", "Alice"},
		{"sports", "", "Bob"},
		{"", "", "Carol"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)

	out, err := tbl.Decide(map[string]any{"topic": "sports", "region": "Europe"}, false)
	require.NoError(t, err)
	require.Equal(t, []any{"Alice", "Bob", "Carol"}, out["team"])
	require.Equal(t, true, out["multi_result"])
}

func TestSymbolizeKeysNormalizesNames(t *testing.T) {
	grid := [][]string{
		{"in:x", "out:my result"},
		{"1", "ok"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)

	out, err := tbl.Decide(map[string]any{"x": "1"}, true)
	require.NoError(t, err)
	require.Equal(t, "ok", out["my_result"])
}

func TestSetDefaultAppliedWhenFieldAbsent(t *testing.T) {
	grid := [][]string{
		{"in:x", "set:y", "out:result"},
		{"1", "fallback", "matched"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)

	// y is absent from the input; the column-wide default derived from the
	// first data row's "fallback" cell fills it in before matching, so the
	// row's own "fallback" constant in the y column still matches.
	out, err := tbl.Decide(map[string]any{"x": "1"}, false)
	require.NoError(t, err)
	require.Equal(t, "matched", out["result"])

	// A bare set: column assigns unconditionally, so a supplied y is
	// replaced by the default as well and the row still matches.
	out, err = tbl.Decide(map[string]any{"x": "1", "y": "other"}, false)
	require.NoError(t, err)
	require.Equal(t, "matched", out["result"])
}

func TestRangeAndNumericMatchers(t *testing.T) {
	grid := [][]string{
		{"in:score", "out:band"},
		{"0..59", "fail"},
		{"60...80", "pass"},
		{">=80", "distinction"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)

	cases := []struct {
		score float64
		want  string
	}{
		{30, "fail"},
		{60, "pass"},
		{79, "pass"},
		{80, "distinction"},
		{95, "distinction"},
	}
	for _, c := range cases {
		out, err := tbl.Decide(map[string]any{"score": c.score}, false)
		require.NoError(t, err)
		require.Equal(t, c.want, out["band"], "score %v", c.score)
	}
}

// TestPathPartitionedTable exercises the nested-input path model: each
// data row's path cell names a top-level key whose value must itself be a
// mapping, and that group's own in-columns are matched against the nested
// mapping's fields, not the top-level input.
func TestPathPartitionedTable(t *testing.T) {
	grid := [][]string{
		{"path:", "in:role", "in:status", "out:greeting"},
		{"user", "admin", "", "hello-admin"},
		{"user", "guest", "", "hello-guest"},
		{"order", "", "shipped", "order-shipped"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)
	require.True(t, tbl.hasPath)

	out, err := tbl.Decide(map[string]any{
		"user":  map[string]any{"role": "admin"},
		"order": map[string]any{"status": "shipped"},
	}, false)
	require.NoError(t, err)
	require.Equal(t, "hello-admin", out["greeting"])

	// A flat (non-mapping) value at the path key must not be descended into
	// and must not match.
	out, err = tbl.Decide(map[string]any{"user": "admin"}, false)
	require.NoError(t, err)
	require.NotContains(t, out, "greeting")

	// Neither declared path group resolves against this input.
	out, err = tbl.Decide(map[string]any{"other": map[string]any{"role": "admin"}}, false)
	require.NoError(t, err)
	require.NotContains(t, out, "greeting")
}

// TestPathAccumulateMergesAcrossGroups confirms accumulate mode scans every
// resolvable path group and concatenates per-column results across groups in
// declaration order, rather than stopping at the first group as first-match
// does.
func TestPathAccumulateMergesAcrossGroups(t *testing.T) {
	grid := [][]string{
		{"accumulate"},
		{"path:", "in:x", "out:val"},
		{"g1", "yes", "A"},
		{"g1", "yes", "B"},
		{"g2", "yes", "C"},
	}
	tbl, err := Parse(grid, Options{})
	require.NoError(t, err)

	out, err := tbl.Decide(map[string]any{
		"g1": map[string]any{"x": "yes"},
		"g2": map[string]any{"x": "yes"},
	}, false)
	require.NoError(t, err)
	require.Equal(t, []any{"A", "B", "C"}, out["val"])
	require.Equal(t, true, out["multi_result"])
}
