package decisiontable

import "sort"

// Index accelerates lookup by pruning the scan range to the contiguous
// block(s) of rows that could possibly match a given key-column tuple. It
// only covers columns where every data row supplies a plain constant (no
// predicate, no absence) -- "key columns" -- and the table
// falls back to a full linear scan when no such columns exist.
type Index struct {
	// keyCols lists the in-role column names usable as index keys, in
	// lexical order (stable regardless of map iteration order).
	keyCols []string

	// ranges maps a key tuple (keyCols values joined with a separator not
	// expected to appear in rule data) to the contiguous [start, end) row
	// ranges sharing that tuple, in ascending row order. A key tuple usually
	// collapses to a single contiguous range when the source grid groups its
	// rows by key, but rows are never reordered to force that, so a tuple
	// that recurs non-contiguously in the grid yields more than one range.
	ranges map[string][][2]int

	rows []*ScanRow
}

const indexKeySep = "\x1f"

// buildIndex inspects dict's in-role columns and builds an Index over
// whichever subset every row supplies as a plain constant. Returns nil
// (meaning: fall back to a full linear scan) if no column qualifies.
func buildIndex(rows []*ScanRow, dict *ColumnDict) *Index {
	candidates := make([]string, 0, len(dict.Ins))
	for name := range dict.Ins {
		qualifies := true
		for _, r := range rows {
			if _, ok := r.Constants[name]; !ok {
				qualifies = false
				break
			}
		}
		if qualifies {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Strings(candidates)

	idx := &Index{keyCols: candidates, ranges: map[string][][2]int{}, rows: rows}

	start := 0
	curKey := ""
	open := false
	for i, r := range rows {
		key := idx.keyFor(r.Constants)
		if !open {
			start, curKey, open = i, key, true
			continue
		}
		if key != curKey {
			idx.ranges[curKey] = append(idx.ranges[curKey], [2]int{start, i})
			start, curKey = i, key
		}
	}
	if open {
		idx.ranges[curKey] = append(idx.ranges[curKey], [2]int{start, len(rows)})
	}

	return idx
}

func (idx *Index) keyFor(values map[string]string) string {
	s := ""
	for i, name := range idx.keyCols {
		if i > 0 {
			s += indexKeySep
		}
		s += values[name]
	}
	return s
}

// Lookup returns the candidate rows for a scanned input in original row
// order, pruned to the range(s) matching the key tuple. Returns the full row
// set when the input has no scanned value for a key column, and nil when the
// key tuple is not in the index.
func (idx *Index) Lookup(scanCols map[string]any, all []*ScanRow) []*ScanRow {
	key := ""
	for i, name := range idx.keyCols {
		v, ok := scanCols[name]
		if !ok {
			return all
		}
		if i > 0 {
			key += indexKeySep
		}
		key += toStr(v)
	}
	rngs, ok := idx.ranges[key]
	if !ok {
		return nil
	}
	if len(rngs) == 1 {
		return idx.rows[rngs[0][0]:rngs[0][1]]
	}
	out := make([]*ScanRow, 0)
	for _, rng := range rngs {
		out = append(out, idx.rows[rng[0]:rng[1]]...)
	}
	return out
}
