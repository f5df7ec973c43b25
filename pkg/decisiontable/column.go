package decisiontable

import "regexp"

// ColumnEntry describes one compiled column: its role, its field name (empty
// for anonymous guard/if/path columns), and its position in the grid.
type ColumnEntry struct {
	Index int
	Kind  ColumnKind
	Name  string
}

// DefaultEntry records a column-level default-assignment function derived
// from a set/set-nil/set-blank column, per the "first data row
// supplies the column-wide default" resolution (see DESIGN.md).
type DefaultEntry struct {
	Name     string
	Kind     ColumnKind // ColSet, ColSetNil, or ColSetBlank
	Value    CellValue
	IfGuards []CellValue // not populated by Parse and not consulted when defaults are applied
}

// ColumnDict is the compiled header: buckets of named/anonymous columns by
// role, plus the set of column-level defaults.
type ColumnDict struct {
	Ins      map[string]ColumnEntry
	Outs     map[string]ColumnEntry
	Guards   []ColumnEntry // anonymous ColGuard entries
	Ifs      []ColumnEntry // anonymous ColIf entries
	PathCols []ColumnEntry
	Defaults []DefaultEntry

	// All holds every column in grid order, including anonymous ones, for
	// scan-row classification (C3).
	All []ColumnEntry
}

func newColumnDict() *ColumnDict {
	return &ColumnDict{
		Ins:  map[string]ColumnEntry{},
		Outs: map[string]ColumnEntry{},
	}
}

var nameSanitizeRe = regexp.MustCompile(`\s+`)

// sanitizeName converts header whitespace to underscores.
func sanitizeName(s string) string {
	return nameSanitizeRe.ReplaceAllString(s, "_")
}

func (d *ColumnDict) add(entry ColumnEntry) error {
	d.All = append(d.All, entry)
	switch entry.Kind {
	case ColIn, ColSet, ColSetNil, ColSetBlank:
		if entry.Name == "" {
			return cellErr(1, entry.Index, "column of type %s requires a name", entry.Kind)
		}
		if _, dup := d.Ins[entry.Name]; dup {
			return structErr("duplicate in-role column name %q", entry.Name)
		}
		d.Ins[entry.Name] = entry
	case ColOut:
		if entry.Name == "" {
			return cellErr(1, entry.Index, "column of type %s requires a name", entry.Kind)
		}
		if _, dup := d.Outs[entry.Name]; dup {
			return structErr("duplicate out column name %q", entry.Name)
		}
		d.Outs[entry.Name] = entry
	case ColGuard:
		d.Guards = append(d.Guards, entry)
		if entry.Name != "" {
			d.Ins[entry.Name] = entry
		}
	case ColIf:
		d.Ifs = append(d.Ifs, entry)
		if entry.Name != "" {
			d.Outs[entry.Name] = entry
		}
	case ColPath:
		// Anonymous permitted: a path column's cell supplies a literal
		// descent segment, not a named field read from the input hash, so
		// it has no use for a name the way an in/out column does.
		d.PathCols = append(d.PathCols, entry)
	}
	return nil
}
