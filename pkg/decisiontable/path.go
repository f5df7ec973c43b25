package decisiontable

import "strings"

// pathGroup is one declared path-segment sequence and the rows that share
// it, in declaration order -- one entry per distinct sequence of literal
// path-column cell values found while compiling the table.
type pathGroup struct {
	segments []string
	rows     []*ScanRow
}

// buildPathGroups buckets rows by their Path segment values, preserving the
// order in which each distinct sequence was first seen so the path scanner
// can iterate groups in declaration order.
func buildPathGroups(rows []*ScanRow) []*pathGroup {
	seen := map[string]*pathGroup{}
	var groups []*pathGroup
	for _, r := range rows {
		key := strings.Join(r.Path, "\x00")
		g, ok := seen[key]
		if !ok {
			g = &pathGroup{segments: append([]string(nil), r.Path...)}
			seen[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}
	return groups
}

// descendPath walks hash along segs, requiring every intermediate value and
// the final result to be a mapping. Returns ok=false when a segment is
// absent or the traversal hits a non-mapping value, per the path scanner's
// "look up the sub-mapping at path_segments; if missing or non-mapping,
// skip" rule.
func descendPath(hash map[string]any, segs []string) (map[string]any, bool) {
	cur := hash
	for _, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return nil, false
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = m
	}
	return cur, true
}
