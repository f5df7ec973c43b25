package gridsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFromCSVString(t *testing.T) {
	rows, err := FromCSVString("in:x,out:y\n1,ok\n", ',')
	require.NoError(t, err)
	require.Equal(t, [][]string{{"in:x", "out:y"}, {"1", "ok"}}, rows)
}

func TestFromCSVFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.csv")
	require.NoError(t, os.WriteFile(path, []byte("in:x,out:y\n1,ok\n"), 0o644))

	rows, err := FromCSVFile(path, ',')
	require.NoError(t, err)
	require.Equal(t, 2, len(rows))
}

func createTwoRegionWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	sh := "Sheet1"
	require.NoError(t, f.SetSheetRow(sh, "A1", &[]string{"in:x", "out:y"}))
	require.NoError(t, f.SetSheetRow(sh, "A2", &[]string{"1", "ok"}))
	require.NoError(t, f.SetSheetRow(sh, "A3", &[]string{"2", "no"}))

	require.NoError(t, f.SetSheetRow(sh, "E6", &[]string{"in:a", "out:b"}))
	require.NoError(t, f.SetSheetRow(sh, "E7", &[]string{"3", "yes"}))

	dir := t.TempDir()
	path := filepath.Join(dir, "regions.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestDetectRegionsFindsMultipleCandidates(t *testing.T) {
	path := createTwoRegionWorkbook(t)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	regions, err := DetectRegions(f, "Sheet1", 5, 0, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(regions), 2)
	for _, r := range regions {
		require.GreaterOrEqual(t, r.Confidence, 0.0)
		require.LessOrEqual(t, r.Confidence, 1.0)
	}
}

func TestFromXLSXRegionReturnsGrid(t *testing.T) {
	path := createTwoRegionWorkbook(t)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	grid, region, err := FromXLSXRegion(f, "Sheet1")
	require.NoError(t, err)
	require.NotEmpty(t, grid)
	require.NotEmpty(t, region.Range)
}
