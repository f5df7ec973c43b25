package gridsource

import (
	"fmt"
	"strings"

	"github.com/vinodismyname/decitable/pkg/decisiontable"
	"github.com/xuri/excelize/v2"
)

// FromXLSXFile opens path and returns FromXLSXSheet's result for sheet.
func FromXLSXFile(path, sheet, cellRange string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, decisiontable.WrapFile(path, err)
	}
	defer f.Close()

	rows, err := FromXLSXSheet(f, sheet, cellRange)
	if err != nil {
		return nil, decisiontable.WrapFile(path, err)
	}
	return rows, nil
}

// FromXLSXSheet reads sheet from an already-open workbook. When cellRange is
// non-empty it is resolved as an A1-style range ("A1:D12"); otherwise the
// sheet's full used range is read.
func FromXLSXSheet(f *excelize.File, sheet, cellRange string) ([][]string, error) {
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("gridsource: read sheet %q: %w", sheet, err)
	}
	if strings.TrimSpace(cellRange) == "" {
		return all, nil
	}

	x1, y1, x2, y2, err := resolveRange(cellRange)
	if err != nil {
		return nil, err
	}
	return sliceGrid(all, x1, y1, x2, y2), nil
}

func resolveRange(cellRange string) (x1, y1, x2, y2 int, err error) {
	parts := strings.Split(cellRange, ":")
	if len(parts) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("gridsource: invalid range %q", cellRange)
	}
	x1, y1, err = excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("gridsource: invalid range start %q: %w", parts[0], err)
	}
	x2, y2, err = excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("gridsource: invalid range end %q: %w", parts[1], err)
	}
	if x2 < x1 || y2 < y1 {
		return 0, 0, 0, 0, fmt.Errorf("gridsource: range %q is inverted", cellRange)
	}
	return x1, y1, x2, y2, nil
}

// sliceGrid extracts the 1-based inclusive [x1,y1]-[x2,y2] block from all,
// padding short rows with empty cells.
func sliceGrid(all [][]string, x1, y1, x2, y2 int) [][]string {
	out := make([][]string, 0, y2-y1+1)
	for y := y1; y <= y2; y++ {
		row := make([]string, x2-x1+1)
		if y-1 < len(all) {
			src := all[y-1]
			for x := x1; x <= x2; x++ {
				if x-1 < len(src) {
					row[x-x1] = src[x-1]
				}
			}
		}
		out = append(out, row)
	}
	return out
}
