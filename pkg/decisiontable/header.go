package decisiontable

import (
	"regexp"
	"strings"
)

var headerCellRe = regexp.MustCompile(`(?i)^(in/text|out/text|set/nil|set/blank|in|out|set|path|cond|if)\s*:\s*(.*)$`)

var optionKeywords = map[string]bool{
	"first_match":     true,
	"accumulate":      true,
	"regexp_implicit": true,
	"text_only":       true,
	"string_search":   true,
}

// parsedOptionsRow reports whether row is a pre-header option row: every
// non-blank cell is a recognized bare keyword and no cell uses "key: value"
// header syntax.
func parsedOptionsRow(row []string) (map[string]bool, bool) {
	found := map[string]bool{}
	matched := false
	for _, cell := range row {
		c := strings.ToLower(strings.TrimSpace(cell))
		if c == "" {
			continue
		}
		if !optionKeywords[c] {
			return nil, false
		}
		found[c] = true
		matched = true
	}
	return found, matched
}

// headerKeywordKind maps one normalized header keyword to a column kind and
// whether cells in that column should be compiled as plain text regardless
// of table-wide text_only.
func headerKeywordKind(keyword string) (kind ColumnKind, textOnly bool) {
	switch strings.ToLower(keyword) {
	case "in":
		return ColIn, false
	case "in/text":
		return ColIn, true
	case "out":
		return ColOut, false
	case "out/text":
		return ColOut, true
	case "set":
		return ColSet, false
	case "set/nil":
		return ColSetNil, false
	case "set/blank":
		return ColSetBlank, false
	case "path":
		return ColPath, false
	case "cond":
		// "cond" is an anonymous input-role guard column; see DESIGN.md for
		// why this does not map to a literal "in" column despite the
		// normalization table's shorthand.
		return ColGuard, false
	case "if":
		return ColIf, false
	}
	return ColIn, false
}

// parseHeaderRow compiles one header row into a ColumnDict. blank header
// cells are dropped from the dictionary entirely but keep their
// grid index as a gap so downstream row scanning can skip them.
func parseHeaderRow(row []string) (*ColumnDict, []int, error) {
	dict := newColumnDict()
	var dataCols []int
	for i, raw := range row {
		cell := strings.TrimSpace(raw)
		if cell == "" {
			continue
		}
		m := headerCellRe.FindStringSubmatch(cell)
		if m == nil {
			return nil, nil, cellErr(1, i, "unrecognized header cell %q", raw)
		}
		kind, _ := headerKeywordKind(m[1])
		name := sanitizeName(strings.TrimSpace(m[2]))
		if name == "" && !kind.anonymousAllowed() {
			return nil, nil, cellErr(1, i, "column of type %s requires a name", kind)
		}
		entry := ColumnEntry{Index: i, Kind: kind, Name: name}
		if err := dict.add(entry); err != nil {
			return nil, nil, err
		}
		dataCols = append(dataCols, i)
	}
	if len(dict.Ins) == 0 && len(dict.Guards) == 0 {
		return nil, nil, structErr("table has no in-role column")
	}
	if len(dict.Outs) == 0 && len(dict.Ifs) == 0 {
		return nil, nil, structErr("table has no out-role column")
	}
	return dict, dataCols, nil
}

// headerTextOnly reports the per-column text_only override recorded during
// parseHeaderRow, re-derived from the raw cell text since ColumnEntry itself
// does not carry it (only Parse needs it, at compile time).
func headerTextOnly(row []string, idx int) bool {
	if idx < 0 || idx >= len(row) {
		return false
	}
	m := headerCellRe.FindStringSubmatch(strings.TrimSpace(row[idx]))
	if m == nil {
		return false
	}
	_, textOnly := headerKeywordKind(m[1])
	return textOnly
}
