package decisiontable

import "fmt"

// ColumnProfileEntry reports one column's cell-kind distribution and
// index participation.
type ColumnProfileEntry struct {
	Name           string
	Kind           ColumnKind
	EmptyFraction  float64
	ConstFraction  float64
	ProcFraction   float64
	Indexed        bool
	Warnings       []string
}

// ProfileReport is the result of Table.Profile.
type ProfileReport struct {
	Columns   []ColumnProfileEntry
	RowCount  int
	HasIndex  bool
	HasPath   bool
}

// Profile walks the column dictionary and row set, reporting each column's
// cell-kind distribution, whether it currently participates in the index's
// key-column set, and structural warnings.
func (t *Table) Profile() ProfileReport {
	report := ProfileReport{
		RowCount: len(t.rows),
		HasIndex: t.index != nil,
		HasPath:  t.hasPath,
	}

	indexed := map[string]bool{}
	if t.index != nil {
		for _, k := range t.index.keyCols {
			indexed[k] = true
		}
	}

	seenOut := map[string]bool{}
	for name := range t.dict.Outs {
		seenOut[name] = true
	}

	for _, entry := range dedupeColumns(t.dict.All) {
		pe := ColumnProfileEntry{Name: entry.Name, Kind: entry.Kind}
		if entry.Kind.isInRole() {
			pe.Indexed = indexed[entry.Name]
		}

		var empty, constant, proc int
		for _, row := range t.rows {
			switch entry.Kind {
			case ColIn, ColSet, ColSetNil, ColSetBlank:
				if _, ok := row.Constants[entry.Name]; ok {
					constant++
				} else if _, ok := row.Procs[entry.Name]; ok {
					proc++
				} else {
					empty++
				}
			case ColGuard:
				hasProc := false
				for _, g := range row.Guards {
					if g != nil {
						hasProc = true
						break
					}
				}
				if hasProc {
					proc++
				} else {
					empty++
				}
			case ColOut:
				cv, ok := row.Outs[entry.Name]
				if !ok || cv.Kind == CellEmpty {
					empty++
				} else if cv.Kind == CellConstant {
					constant++
				} else {
					proc++
				}
			case ColIf:
				if len(row.Ifs) > 0 {
					proc++
				} else {
					empty++
				}
			}
		}
		total := float64(len(t.rows))
		if total > 0 {
			pe.EmptyFraction = float64(empty) / total
			pe.ConstFraction = float64(constant) / total
			pe.ProcFraction = float64(proc) / total
		}

		if entry.Kind.isInRole() && proc > 0 && indexed[entry.Name] {
			pe.Warnings = append(pe.Warnings, fmt.Sprintf("column %q is indexed but also carries predicate cells", entry.Name))
		}
		if entry.Kind == ColIn && t.index == nil && proc == 0 && constant > 0 {
			pe.Warnings = append(pe.Warnings, fmt.Sprintf("column %q has no predicate cells but table has no index", entry.Name))
		}
		if entry.Kind == ColOut {
			if _, dup := t.dict.Ins[entry.Name]; dup {
				pe.Warnings = append(pe.Warnings, fmt.Sprintf("out column name %q collides with an in column", entry.Name))
			}
		}

		report.Columns = append(report.Columns, pe)
	}

	return report
}

// dedupeColumns collapses repeated anonymous guard/if entries and duplicate
// named in/out entries (a set/set-nil/set-blank column shares its name's
// "ins" slot) down to one profile row per distinct (kind, name) pair.
func dedupeColumns(all []ColumnEntry) []ColumnEntry {
	seen := map[string]bool{}
	out := make([]ColumnEntry, 0, len(all))
	for _, e := range all {
		key := fmt.Sprintf("%d:%s", e.Kind, e.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
