package gridsource

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Region is a detected rectangular block of non-empty cells within a
// worksheet, a candidate decision-table grid.
type Region struct {
	Range      string
	Rows       int
	Cols       int
	Confidence float64
}

// DetectRegions scans sheet for rectangular blocks of non-empty cells using
// 4-directional connected-component BFS, ranks them by a header-shape and
// size heuristic, and returns the top maxRegions candidates highest
// confidence first. Adapted from the workbook-insights table detector: the
// same presence-grid BFS and confidence scoring, trimmed to the
// decision-table use case of picking one grid region rather than reporting
// every candidate's header preview.
func DetectRegions(f *excelize.File, sheet string, maxRegions, maxScanRows, maxScanCols int) ([]Region, error) {
	if maxRegions <= 0 || maxRegions > 10 {
		maxRegions = 5
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("gridsource: read sheet %q: %w", sheet, err)
	}

	scanRows := len(rows)
	if maxScanRows > 0 && scanRows > maxScanRows {
		scanRows = maxScanRows
	}
	scanCols := 0
	for i := 0; i < scanRows; i++ {
		if len(rows[i]) > scanCols {
			scanCols = len(rows[i])
		}
	}
	if maxScanCols > 0 && scanCols > maxScanCols {
		scanCols = maxScanCols
	}
	if scanRows == 0 || scanCols == 0 {
		return nil, nil
	}

	present := make([][]bool, scanRows)
	vals := make([][]string, scanRows)
	for r := 0; r < scanRows; r++ {
		present[r] = make([]bool, scanCols)
		vals[r] = make([]string, scanCols)
		for c := 0; c < scanCols && c < len(rows[r]); c++ {
			v := strings.TrimSpace(rows[r][c])
			if v != "" {
				present[r][c] = true
				vals[r][c] = v
			}
		}
	}

	type rect struct{ r1, c1, r2, c2 int }
	visited := make([][]bool, scanRows)
	for i := range visited {
		visited[i] = make([]bool, scanCols)
	}

	var comps []rect
	var queue [][2]int
	for r := 0; r < scanRows; r++ {
		for c := 0; c < scanCols; c++ {
			if !present[r][c] || visited[r][c] {
				continue
			}
			visited[r][c] = true
			queue = queue[:0]
			queue = append(queue, [2]int{r, c})
			rr1, cc1, rr2, cc2 := r, c, r, c
			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				cr, cc := p[0], p[1]
				if cr < rr1 {
					rr1 = cr
				}
				if cr > rr2 {
					rr2 = cr
				}
				if cc < cc1 {
					cc1 = cc
				}
				if cc > cc2 {
					cc2 = cc
				}
				neighbors := [][2]int{{cr - 1, cc}, {cr + 1, cc}, {cr, cc - 1}, {cr, cc + 1}}
				for _, n := range neighbors {
					nr, nc := n[0], n[1]
					if nr < 0 || nr >= scanRows || nc < 0 || nc >= scanCols {
						continue
					}
					if present[nr][nc] && !visited[nr][nc] {
						visited[nr][nc] = true
						queue = append(queue, [2]int{nr, nc})
					}
				}
			}
			if (rr2-rr1+1) >= 2 && (cc2-cc1+1) >= 2 {
				comps = append(comps, rect{rr1, cc1, rr2, cc2})
			}
		}
	}

	regions := make([]Region, 0, len(comps))
	for _, rc := range comps {
		header := vals[rc.r1][rc.c1 : rc.c2+1]
		hconf := headerConfidence(header)
		area := float64((rc.r2 - rc.r1 + 1) * (rc.c2 - rc.c1 + 1))
		maxArea := float64(scanRows * scanCols)
		sconf := 0.0
		if area > 1 && maxArea > 1 {
			sconf = clamp01(math.Log2(area) / math.Log2(maxArea))
		}
		conf := 0.6*hconf + 0.4*sconf

		tl, _ := excelize.CoordinatesToCellName(rc.c1+1, rc.r1+1)
		br, _ := excelize.CoordinatesToCellName(rc.c2+1, rc.r2+1)
		regions = append(regions, Region{
			Range:      tl + ":" + br,
			Rows:       rc.r2 - rc.r1 + 1,
			Cols:       rc.c2 - rc.c1 + 1,
			Confidence: round3(conf),
		})
	}

	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Confidence > regions[j].Confidence })
	if len(regions) > maxRegions {
		regions = regions[:maxRegions]
	}
	return regions, nil
}

// FromXLSXRegion is a convenience wrapper combining DetectRegions' top
// candidate with FromXLSXSheet, for callers that want "best guess grid"
// rather than a ranked candidate list.
func FromXLSXRegion(f *excelize.File, sheet string) ([][]string, Region, error) {
	regions, err := DetectRegions(f, sheet, 1, 0, 0)
	if err != nil {
		return nil, Region{}, err
	}
	if len(regions) == 0 {
		return nil, Region{}, fmt.Errorf("gridsource: no table-shaped region found on sheet %q", sheet)
	}
	grid, err := FromXLSXSheet(f, sheet, regions[0].Range)
	if err != nil {
		return nil, Region{}, err
	}
	return grid, regions[0], nil
}

func headerConfidence(hdr []string) float64 {
	nonEmpty, numeric := 0, 0
	uniq := map[string]struct{}{}
	for _, v := range hdr {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
			numeric++
		}
		uniq[strings.ToLower(s)] = struct{}{}
	}
	if nonEmpty == 0 {
		return 0
	}
	uniqRatio := float64(len(uniq)) / float64(nonEmpty)
	numericRatio := float64(numeric) / float64(nonEmpty)
	return clamp01(0.5*uniqRatio + 0.5*(1.0-numericRatio))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
