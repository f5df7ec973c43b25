// Package gridsource loads the tabular rule grids decisiontable.Parse
// consumes, from CSV/TSV text and from Excel worksheets.
package gridsource

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/vinodismyname/decitable/pkg/decisiontable"
)

// FromCSVString parses CSV text into a [][]string grid. comma selects the
// field delimiter (',' for CSV, '\t' for TSV).
func FromCSVString(data string, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader([]byte(data)))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gridsource: parse csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// FromCSVFile reads path (expected already validated by the caller's
// security allow-list) and parses it as CSV/TSV, returning errors wrapped
// with decisiontable.WrapFile so callers see the originating path.
func FromCSVFile(path string, comma rune) ([][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, decisiontable.WrapFile(path, err)
	}
	rows, err := FromCSVString(string(b), comma)
	if err != nil {
		return nil, decisiontable.WrapFile(path, err)
	}
	return rows, nil
}
