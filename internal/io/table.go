package io

import (
	"fmt"
	"strings"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Table is a header-addressed CSV table
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadTable loads a CSV file with a header row
func ReadTable(path string) (*Table, error) {
	records, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.InvalidInput(path + ": empty table")
	}

	t := &Table{Header: records[0], Rows: records[1:], index: make(map[string]int, len(records[0]))}
	for i, h := range t.Header {
		t.index[strings.TrimSpace(h)] = i
	}
	return t, nil
}

// Has reports whether the table has the named column
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require fails with InvalidInput unless every named column exists
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if !t.Has(n) {
			return errors.InvalidInput(fmt.Sprintf("missing column %q", n))
		}
	}
	return nil
}

// String returns the cell of row i in the named column
func (t *Table) String(i int, name string) string {
	return strings.TrimSpace(t.Rows[i][t.index[name]])
}

// Float parses the cell of row i in the named column
func (t *Table) Float(i int, name string) (float64, error) {
	v, err := ParseFloat(t.Rows[i][t.index[name]])
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("row %d column %s: %v", i+1, name, err))
	}
	return v, nil
}

// Floats parses the whole named column
func (t *Table) Floats(name string) ([]float64, error) {
	if err := t.Require(name); err != nil {
		return nil, err
	}
	out := make([]float64, len(t.Rows))
	for i := range t.Rows {
		v, err := t.Float(i, name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
