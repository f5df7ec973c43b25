package decisiontable

// FunnelStage is one named step of a match funnel.
type FunnelStage struct {
	Name       string
	Count      int
	Conversion float64 // Count / previous stage's Count, 1.0 for the first stage
}

// FunnelReport is the result of Table.Funnel.
type FunnelReport struct {
	Stages     []FunnelStage
	Bottleneck string // name of the stage with the largest absolute drop
}

// Funnel runs the same candidate-row selection a Decide call would use but
// stops short of accepting/rejecting, reporting how many rows survive each
// stage of the match algorithm: candidates visited, constant-column survivors,
// predicate-column survivors, and if: guard survivors (reported in both
// first-match and accumulate mode). This diagnoses "why didn't row N match" without requiring the
// caller to hand-trace the match algorithm themselves.
//
// For a path-partitioned table, the funnel diagnoses the first declared path
// group whose segments resolve against input -- the same group a first-match
// Decide call would land on first -- against that group's own rows and its
// descended sub-mapping.
func (t *Table) Funnel(input map[string]any, symbolizeKeys bool) (FunnelReport, error) {
	normalized := t.normalizeInput(input)

	var candidates []*ScanRow
	var hash, scanCols map[string]any
	if t.hasPath {
		rows, groupHash, groupScanCols, ok := t.resolvePathGroup(normalized)
		if !ok {
			return FunnelReport{
				Stages:     []FunnelStage{{Name: "candidates", Count: 0, Conversion: 1.0}},
				Bottleneck: "candidates",
			}, nil
		}
		candidates, hash, scanCols = rows, groupHash, groupScanCols
	} else {
		hash = normalized
		scanCols = scanColumns(t.dict, hash)
		candidates = t.candidateRows(scanCols)
	}

	var report FunnelReport
	report.Stages = append(report.Stages, FunnelStage{Name: "candidates", Count: len(candidates), Conversion: 1.0})

	constSurvivors := 0
	for _, row := range candidates {
		if constantsMatch(row, scanCols) {
			constSurvivors++
		}
	}
	report.Stages = append(report.Stages, stage("constant_match", constSurvivors, len(candidates)))

	predSurvivors := 0
	for _, row := range candidates {
		if constantsMatch(row, scanCols) && row.Match(scanCols, hash) {
			predSurvivors++
		}
	}
	report.Stages = append(report.Stages, stage("predicate_match", predSurvivors, constSurvivors))

	ifSurvivors := 0
	for _, row := range candidates {
		if !constantsMatch(row, scanCols) || !row.Match(scanCols, hash) {
			continue
		}
		if _, accepted := t.rowOutput(row); accepted {
			ifSurvivors++
		}
	}
	report.Stages = append(report.Stages, stage("if_guard", ifSurvivors, predSurvivors))

	maxDrop := -1
	for i := 1; i < len(report.Stages); i++ {
		drop := report.Stages[i-1].Count - report.Stages[i].Count
		if drop > maxDrop {
			maxDrop = drop
			report.Bottleneck = report.Stages[i].Name
		}
	}

	return report, nil
}

func stage(name string, count, prev int) FunnelStage {
	conv := 0.0
	if prev > 0 {
		conv = float64(count) / float64(prev)
	}
	return FunnelStage{Name: name, Count: count, Conversion: conv}
}

func constantsMatch(row *ScanRow, scanCols map[string]any) bool {
	for name, want := range row.Constants {
		got, ok := scanCols[name]
		if !ok || toStr(got) != want {
			return false
		}
	}
	return true
}
