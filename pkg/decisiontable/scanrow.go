package decisiontable

// ScanRow is one compiled data row: the constant and predicate cells used to
// decide whether the row matches a given input, plus its output cells and
// optional path segment.
type ScanRow struct {
	Index int // 0-based position among data rows

	// Constants maps in-role column name -> required literal value. A row
	// whose constant cells all equal the corresponding scanned input values
	// is a structural candidate; Procs are then consulted.
	Constants map[string]string

	// Procs maps in-role column name -> compiled predicate cell (CellProc
	// only; CellEmpty cells are omitted entirely and always match).
	Procs map[string]*Proc

	// Guards holds the row's anonymous cond: column predicates, each
	// evaluated against the full input hash.
	Guards []*Proc

	// Outs maps out-role column name -> compiled output cell.
	Outs map[string]CellValue

	// Ifs holds the row's anonymous if: column predicates (and named "if"
	// cells are folded in here too), each evaluated against the
	// output-under-construction hash; all must be truthy for the row's
	// outputs to be accepted.
	Ifs []*Proc

	// Path holds this row's path segment values, one per path column, in
	// path-column order, empty when the table has no path columns.
	Path []string

	// HasPredicate reports whether any in-role cell in this row (including
	// guards) is a compiled predicate rather than a plain constant.
	// multi_result detection does not consult it; it looks only at out
	// predicates and the match count.
	HasPredicate bool
}

// compileScanRow compiles one data row against the column dictionary.
func compileScanRow(rowIdx int, row []string, dict *ColumnDict, matchers []Matcher, opts *Options) (*ScanRow, error) {
	sr := &ScanRow{
		Index:     rowIdx,
		Constants: map[string]string{},
		Procs:     map[string]*Proc{},
		Outs:      map[string]CellValue{},
	}

	for _, entry := range dict.All {
		var raw string
		if entry.Index < len(row) {
			raw = row[entry.Index]
		}
		textOnly := opts.textOnlyColumn(entry.Index)
		ctx := MatchContext{RegexpImplicit: opts.RegexpImplicit}

		cv, err := compileCell(raw, entry.Kind, textOnly, matchers, ctx)
		if err != nil {
			if ce, ok := err.(*Error); ok {
				ce.Row = rowIdx + 2 // +1 header, +1 for 1-based; Parse adds any option-row offset
				ce.Col = entry.Index
			}
			return nil, err
		}

		switch entry.Kind {
		case ColIn, ColSet, ColSetNil, ColSetBlank:
			switch cv.Kind {
			case CellEmpty:
				// absent predicate: column imposes no constraint this row
			case CellConstant:
				sr.Constants[entry.Name] = cv.Constant
			case CellProc:
				sr.Procs[entry.Name] = cv.Proc
				sr.HasPredicate = true
			}
		case ColGuard:
			if cv.Kind == CellProc {
				sr.Guards = append(sr.Guards, cv.Proc)
				sr.HasPredicate = true
			}
		case ColOut:
			sr.Outs[entry.Name] = cv
		case ColIf:
			if cv.Kind == CellProc {
				sr.Ifs = append(sr.Ifs, cv.Proc)
			} else if cv.Kind == CellConstant {
				lit := cv.Constant
				sr.Ifs = append(sr.Ifs, &Proc{Kind: ProcGuard, OutFn: func(map[string]any) any { return lit }})
			}
		case ColPath:
			sr.Path = append(sr.Path, raw)
		}
	}

	return sr, nil
}

// Match reports whether this row matches a fully-scanned input hash, per
// the match? algorithm: every constant cell must equal the input's
// scanned value for that column, every proc cell's predicate must return
// true, and every guard predicate (evaluated against the whole hash) must
// return true. Columns absent from this row (CellEmpty) impose no
// constraint.
func (sr *ScanRow) Match(scanCols map[string]any, hash map[string]any) bool {
	for name, want := range sr.Constants {
		got, ok := scanCols[name]
		if !ok || toStr(got) != want {
			return false
		}
	}
	for name, p := range sr.Procs {
		val := scanCols[name]
		if !p.InFn(val, hash) {
			return false
		}
	}
	for _, g := range sr.Guards {
		if !g.InFn(nil, hash) {
			return false
		}
	}
	return true
}
