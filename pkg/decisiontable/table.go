package decisiontable

import "strings"

// MatchersMode selects how a Table resolves its compile-time matcher
// dispatch list: the default set, every cell forced to a plain constant, or
// a caller-supplied list (see DESIGN.md's Open Question decision).
type MatchersMode int

const (
	// MatchersDefault uses DefaultMatchers().
	MatchersDefault MatchersMode = iota
	// MatchersDisabled compiles every cell as a plain constant, bypassing
	// matcher dispatch entirely.
	MatchersDisabled
	// MatchersCustom uses the Options.Matchers list verbatim, in order.
	MatchersCustom
)

// DecisionMode selects first-match or accumulate row-collection semantics
// for Table.Decide.
type DecisionMode int

const (
	FirstMatch DecisionMode = iota
	Accumulate
)

// Options configures Parse.
type Options struct {
	// RegexpImplicit enables the Pattern matcher's implicit-regexp fallback
	// for pre-header-row-level "regexp_implicit" or an explicit override
	// here; Parse honors whichever the caller sets plus any pre-header
	// option row found in the grid.
	RegexpImplicit bool
	// TextOnly disables matcher dispatch for every column's cells, treating
	// every non-empty cell as a literal constant.
	TextOnly bool
	// StringSearch is reserved for a future substring-search matcher
	// variant; currently only recorded, not consulted.
	StringSearch bool
	// Mode selects first-match vs. accumulate row collection. Zero value is
	// FirstMatch, the documented default.
	Mode DecisionMode
	// MatchersMode and Matchers together select the compile-time matcher
	// dispatch list; see MatchersMode.
	MatchersKind MatchersMode
	Matchers     []Matcher

	// textOnlyCols records per-column in/text or out/text header overrides
	// discovered while parsing the header row; populated by Parse, not by
	// the caller.
	textOnlyCols map[int]bool
}

func (o *Options) textOnlyColumn(idx int) bool {
	if o.TextOnly || o.MatchersKind == MatchersDisabled {
		return true
	}
	if o.textOnlyCols == nil {
		return false
	}
	return o.textOnlyCols[idx]
}

func (o *Options) effectiveMatchers() []Matcher {
	switch o.MatchersKind {
	case MatchersDisabled:
		return nil
	case MatchersCustom:
		return o.Matchers
	default:
		return DefaultMatchers()
	}
}

// Table is an immutable compiled decision table, safe for concurrent
// Decide calls without external locking.
type Table struct {
	dict       *ColumnDict
	rows       []*ScanRow
	opts       Options
	index      *Index
	pathGroups []*pathGroup

	// hasPath reports whether the table is path-partitioned.
	hasPath bool

	// outputNames lists every distinct out-role column name. Parse fills it;
	// nothing else in this package reads it.
	outputNames []string
}

// Parse is the engine's single public entry point: it compiles a tabular
// rule grid into an immutable Table.
func Parse(data [][]string, opts Options) (*Table, error) {
	if len(data) == 0 {
		return nil, structErr("table has no rows")
	}

	headerIdx := 0
	if kws, ok := parsedOptionsRow(data[0]); ok && len(data) > 1 {
		applyOptionRow(&opts, kws)
		headerIdx = 1
	}
	if headerIdx >= len(data) {
		return nil, structErr("table has no header row")
	}

	dict, _, err := parseHeaderRow(data[headerIdx])
	if err != nil {
		if ce, ok := err.(*Error); ok && ce.Row > 0 {
			ce.Row += headerIdx
		}
		return nil, err
	}

	textOnlyCols := map[int]bool{}
	for _, e := range dict.All {
		if headerTextOnly(data[headerIdx], e.Index) {
			textOnlyCols[e.Index] = true
		}
	}
	opts.textOnlyCols = textOnlyCols

	matchers := opts.effectiveMatchers()

	t := &Table{dict: dict, opts: opts}
	t.hasPath = len(dict.PathCols) > 0

	for name := range dict.Outs {
		t.outputNames = append(t.outputNames, name)
	}

	dataRows := data[headerIdx+1:]
	rows := make([]*ScanRow, 0, len(dataRows))
	for i, raw := range dataRows {
		if isBlankRow(raw) {
			continue
		}
		sr, err := compileScanRow(i, raw, dict, matchers, &opts)
		if err != nil {
			if ce, ok := err.(*Error); ok && ce.Row > 0 {
				ce.Row += headerIdx
			}
			return nil, err
		}
		rows = append(rows, sr)
	}
	if len(rows) == 0 {
		return nil, structErr("table has no data rows")
	}
	t.rows = rows

	if err := t.buildDefaults(dataRows, dict, matchers); err != nil {
		return nil, err
	}

	if t.hasPath {
		t.pathGroups = buildPathGroups(rows)
	} else {
		t.index = buildIndex(rows, dict)
	}

	return t, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func applyOptionRow(opts *Options, kws map[string]bool) {
	if kws["accumulate"] {
		opts.Mode = Accumulate
	}
	if kws["first_match"] {
		opts.Mode = FirstMatch
	}
	if kws["regexp_implicit"] {
		opts.RegexpImplicit = true
	}
	if kws["text_only"] {
		opts.TextOnly = true
	}
	if kws["string_search"] {
		opts.StringSearch = true
	}
}

// buildDefaults derives column-level set/set-nil/set-blank defaults from the
// first data row's cell in each such column, per DESIGN.md's Open Question
// decision.
func (t *Table) buildDefaults(dataRows [][]string, dict *ColumnDict, matchers []Matcher) error {
	if len(dataRows) == 0 {
		return nil
	}
	first := dataRows[0]
	for _, entry := range dict.All {
		if entry.Kind != ColSet && entry.Kind != ColSetNil && entry.Kind != ColSetBlank {
			continue
		}
		var raw string
		if entry.Index < len(first) {
			raw = first[entry.Index]
		}
		textOnly := t.opts.textOnlyColumn(entry.Index)
		// Defaults are compiled in output role, so only output-role matchers
		// are tried. With the default matcher list the Constant matcher
		// comes before Guard for out columns and claims every non-empty
		// cell, so the default is the cell's literal text; a value-producing
		// OutFn results only from a custom list that puts an output-role
		// matcher ahead of Constant.
		cv, err := compileCell(raw, ColOut, textOnly, matchers, MatchContext{RegexpImplicit: t.opts.RegexpImplicit})
		if err != nil {
			return err
		}
		t.dict.Defaults = append(t.dict.Defaults, DefaultEntry{
			Name:  entry.Name,
			Kind:  entry.Kind,
			Value: cv,
		})
	}
	return nil
}
