package decisiontable

import "sort"

// Recommendation suggests one diagnostic worth running next, priority-
// ordered.
type Recommendation struct {
	ToolName   string
	Confidence float64
	Rationale  string
	Priority   int
}

// largeTableRowThreshold is the row count above which a missing index
// becomes worth flagging proactively.
const largeTableRowThreshold = 200

// Advise inspects a compiled table's static shape -- row count, whether it
// has an index, whether any out column compiles to a predicate, whether
// Profile would raise a warning -- and returns a priority-ordered list of
// diagnostics likely to be useful next. It is purely static: no I/O, no
// representative input required.
func Advise(t *Table) []Recommendation {
	var recs []Recommendation

	if t.index == nil && !t.hasPath && len(t.rows) > largeTableRowThreshold {
		recs = append(recs, Recommendation{
			ToolName:   "profile_table",
			Confidence: 0.8,
			Rationale:  "table has no index and exceeds the row threshold where a disqualified key column is the likely cause -- run profile_table to find a column whose predicate cells block indexing",
			Priority:   1,
		})
	}

	profile := t.Profile()
	if len(profile.Columns) > 0 {
		for _, col := range profile.Columns {
			if len(col.Warnings) > 0 {
				recs = append(recs, Recommendation{
					ToolName:   "profile_table",
					Confidence: 0.6,
					Rationale:  "column " + col.Name + " raised a structural warning",
					Priority:   2,
				})
				break
			}
		}
	}

	outsFunctions := false
	for _, e := range t.dict.All {
		if e.Kind == ColOut {
			for _, row := range t.rows {
				if cv, ok := row.Outs[e.Name]; ok && cv.Kind == CellProc {
					outsFunctions = true
					break
				}
			}
		}
		if outsFunctions {
			break
		}
	}
	if outsFunctions && len(t.rows) > largeTableRowThreshold/2 {
		recs = append(recs, Recommendation{
			ToolName:   "funnel_table",
			Confidence: 0.7,
			Rationale:  "table computes output fields from predicates on a sizeable row set -- run funnel_table against a representative input to see which stage eliminates candidates",
			Priority:   2,
		})
	}

	if t.index != nil {
		recs = append(recs, Recommendation{
			ToolName:   "concentration_table",
			Confidence: 0.4,
			Rationale:  "table has an index -- concentration_table shows whether indexing actually narrows scans for common key values",
			Priority:   3,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	return recs
}
