package decisiontable

// outOrder returns out-role column names in grid column order, for
// deterministic row-output assembly (map iteration order is not stable).
func (t *Table) outOrder() []string {
	names := make([]string, 0, len(t.dict.Outs))
	for _, e := range t.dict.All {
		if e.Kind == ColOut {
			names = append(names, e.Name)
		}
	}
	return names
}

func (t *Table) evalOutputCell(cv CellValue, building map[string]any) any {
	switch cv.Kind {
	case CellConstant:
		return cv.Constant
	case CellProc:
		if cv.Proc.OutFn != nil {
			return cv.Proc.OutFn(building)
		}
		return nil
	default:
		return nil
	}
}

// rowOutput evaluates one matched row's out and if columns against a
// freshly-built output hash, returning the assigned fields and whether every
// if: guard (anonymous or named) accepted the row.
func (t *Table) rowOutput(row *ScanRow) (map[string]any, bool) {
	out := make(map[string]any, len(row.Outs))
	for _, name := range t.outOrder() {
		cv, ok := row.Outs[name]
		if !ok || cv.Kind == CellEmpty {
			continue
		}
		out[name] = t.evalOutputCell(cv, out)
	}
	for _, ifp := range row.Ifs {
		if ifp.OutFn == nil {
			continue
		}
		if !truthy(ifp.OutFn(out)) {
			return out, false
		}
	}
	return out, true
}

// decisionAccumulator collects picked-row outputs in pick order, one slice
// per output column, so that output assembly can apply §4.6.1's rule
// uniformly: a column with exactly one contributing row collapses to a
// scalar, any other count yields the pick-order sequence. Running a
// first-match scan through the same accumulator and stopping after the
// first accepted row produces exactly one contribution per column, which
// collapses to a scalar for free -- first-match and accumulate share this
// type rather than diverging into separate assembly code paths.
type decisionAccumulator struct {
	values             map[string][]any
	order              []string
	matchCount         int
	hasPredicateOutput bool
}

func newDecisionAccumulator() *decisionAccumulator {
	return &decisionAccumulator{values: map[string][]any{}}
}

// add records one accepted row's output fields.
func (acc *decisionAccumulator) add(row *ScanRow, out map[string]any, outOrder []string) {
	acc.matchCount++
	for _, name := range outOrder {
		v, ok := out[name]
		if !ok {
			continue
		}
		if cv, ok := row.Outs[name]; ok && cv.Kind == CellProc {
			acc.hasPredicateOutput = true
		}
		if _, seen := acc.values[name]; !seen {
			acc.order = append(acc.order, name)
		}
		acc.values[name] = append(acc.values[name], v)
	}
}

// assemble builds the final result map: a column contributed to by exactly
// one picked row collapses to a scalar, any other count yields the
// pick-order sequence, per invariant 5 ("result[c] equals the sequence, or
// scalar if exactly one picked row, of r[c] for every picked row r in row
// order"). When at least one row was accepted, multi_result reports whether
// more than one row was accepted or any accepted row computed an output
// field from a predicate rather than a plain constant (see DESIGN.md's Open
// Question decision); when no row was accepted the result is an empty map.
func (acc *decisionAccumulator) assemble(symbolizeKeys bool) map[string]any {
	result := make(map[string]any, len(acc.order)+1)
	for _, name := range acc.order {
		vs := acc.values[name]
		key := name
		if symbolizeKeys {
			key = sanitizeName(name)
		}
		if len(vs) == 1 {
			result[key] = vs[0]
		} else {
			result[key] = vs
		}
	}
	if acc.matchCount > 0 {
		result["multi_result"] = acc.matchCount > 1 || acc.hasPredicateOutput
	}
	return result
}

// candidateRows selects the rows a non-path query must scan, applying the
// constant-column index when available.
func (t *Table) candidateRows(scanCols map[string]any) []*ScanRow {
	if t.index != nil {
		return t.index.Lookup(scanCols, t.rows)
	}
	return t.rows
}

// scanInto runs rows against hash/scanCols, matching and folding every
// accepted row's output into acc, honoring FirstMatch/Accumulate
// termination. onVisit, if non-nil, is called for every row visited -- matched
// or not -- with its outcome, supporting DecideTraced's row-by-row history;
// plain Decide calls pass nil.
func (t *Table) scanInto(acc *decisionAccumulator, rows []*ScanRow, hash, scanCols map[string]any, onVisit func(*ScanRow, VisitOutcome)) {
	for _, row := range rows {
		if !constantsMatch(row, scanCols) {
			if onVisit != nil {
				onVisit(row, OutcomeConstantMismatch)
			}
			continue
		}
		if !row.Match(scanCols, hash) {
			if onVisit != nil {
				onVisit(row, OutcomePredicateRejected)
			}
			continue
		}
		out, accepted := t.rowOutput(row)
		if !accepted {
			if onVisit != nil {
				onVisit(row, OutcomeIfGuardRejected)
			}
			continue
		}
		if onVisit != nil {
			onVisit(row, OutcomeAccepted)
		}
		acc.add(row, out, t.outOrder())
		if t.opts.Mode == FirstMatch {
			return
		}
	}
}

// resolvePathGroup returns the first declared path group (in declaration
// order) whose segments descend to a nested mapping within hash, along with
// that mapping re-parsed as a fresh C6 input and its scan columns. Used by
// Funnel to pick the same group a first-match Decide call would land on.
func (t *Table) resolvePathGroup(hash map[string]any) (rows []*ScanRow, groupHash, scanCols map[string]any, ok bool) {
	for _, g := range t.pathGroups {
		sub, found := descendPath(hash, g.segments)
		if !found {
			continue
		}
		gh := t.normalizeInput(sub)
		return g.rows, gh, scanColumns(t.dict, gh), true
	}
	return nil, nil, nil, false
}

// decidePath runs the path scanner (§4.7): for each declared path group in
// declaration order, descend hash along the group's segments into a nested
// sub-mapping, normalize that sub-mapping as a fresh input, and scan the
// group's own rows against it. First-match mode returns the first group's
// non-empty result. Accumulate mode scans every resolvable group into one
// shared accumulator, which merges results per output column by pick-order
// sequence concatenation across groups for free.
func (t *Table) decidePath(hash map[string]any, onVisit func(*ScanRow, VisitOutcome)) *decisionAccumulator {
	if t.opts.Mode == FirstMatch {
		for _, g := range t.pathGroups {
			sub, ok := descendPath(hash, g.segments)
			if !ok {
				continue
			}
			groupHash := t.normalizeInput(sub)
			scanCols := scanColumns(t.dict, groupHash)
			acc := newDecisionAccumulator()
			t.scanInto(acc, g.rows, groupHash, scanCols, onVisit)
			if acc.matchCount > 0 {
				return acc
			}
		}
		return newDecisionAccumulator()
	}

	acc := newDecisionAccumulator()
	for _, g := range t.pathGroups {
		sub, ok := descendPath(hash, g.segments)
		if !ok {
			continue
		}
		groupHash := t.normalizeInput(sub)
		scanCols := scanColumns(t.dict, groupHash)
		t.scanInto(acc, g.rows, groupHash, scanCols, onVisit)
	}
	return acc
}

// decide is the shared core of Decide and DecideTraced: dispatch to the path
// scanner when the table declares path columns, else scan candidates from
// the index or a full linear scan. onVisit, if non-nil, receives every row
// visited along with its outcome.
func (t *Table) decide(hash map[string]any, onVisit func(*ScanRow, VisitOutcome)) *decisionAccumulator {
	if t.hasPath {
		return t.decidePath(hash, onVisit)
	}
	scanCols := scanColumns(t.dict, hash)
	candidates := t.candidateRows(scanCols)
	acc := newDecisionAccumulator()
	t.scanInto(acc, candidates, hash, scanCols, onVisit)
	return acc
}

// Decide evaluates input against the compiled table and returns the
// resulting output record. When the table declares path columns, dispatch
// goes to the path scanner (§4.7) and hash is used only to resolve each
// group's nested sub-mapping; otherwise the table's index or a full linear
// scan supplies candidate rows directly against the top-level hash.
//
// symbolizeKeys, mirroring the source engine's Ruby symbol-vs-string key
// convention, forces every returned field name through the same
// whitespace-to-underscore normalization applied to header names. Out column
// names are already normalized that way when the header is parsed, so the
// returned names are the same whether it is true or false.
func (t *Table) Decide(input map[string]any, symbolizeKeys bool) (map[string]any, error) {
	hash := t.normalizeInput(input)
	acc := t.decide(hash, nil)
	return acc.assemble(symbolizeKeys), nil
}
