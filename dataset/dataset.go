// Package dataset provides the in-memory tabular data layer for a
// change-from-baseline analysis: CSV ingestion, filtering to an
// analysis population, and derivation of change and percent change
// from each subject's baseline measurement.
//
// A Dataset is a column-oriented table of float64 values with named
// columns.  It is treated as immutable after construction; the
// derivation functions return new Dataset values.
package dataset

import (
	"fmt"
)

// Dataset is an immutable column-oriented table of numeric data.
type Dataset struct {
	names []string
	cols  [][]float64
}

// New constructs a Dataset from columns and their names.  All columns
// must have the same length.
func New(cols [][]float64, names []string) (*Dataset, error) {

	if len(cols) != len(names) {
		return nil, fmt.Errorf("dataset: %d columns but %d names", len(cols), len(names))
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("dataset: no columns")
	}
	n := len(cols[0])
	for j, c := range cols {
		if len(c) != n {
			return nil, fmt.Errorf("dataset: column %s has length %d, expected %d",
				names[j], len(c), n)
		}
	}

	return &Dataset{names: names, cols: cols}, nil
}

// Names returns the column names in order.
func (ds *Dataset) Names() []string {
	return ds.names
}

// NumObs returns the number of rows.
func (ds *Dataset) NumObs() int {
	return len(ds.cols[0])
}

// NumVar returns the number of columns.
func (ds *Dataset) NumVar() int {
	return len(ds.cols)
}

// Pos returns the position of the named column, or -1 if not present.
func (ds *Dataset) Pos(name string) int {
	for j, na := range ds.names {
		if na == name {
			return j
		}
	}
	return -1
}

// Col returns the named column.  The returned slice is shared with the
// Dataset and must not be modified.
func (ds *Dataset) Col(name string) ([]float64, error) {
	j := ds.Pos(name)
	if j == -1 {
		return nil, &DataError{Column: name, Reason: "column not found"}
	}
	return ds.cols[j], nil
}

// Select returns a new Dataset containing the rows for which keep is true.
func (ds *Dataset) Select(keep []bool) (*Dataset, error) {

	if len(keep) != ds.NumObs() {
		return nil, fmt.Errorf("dataset: selector has length %d, expected %d",
			len(keep), ds.NumObs())
	}

	cols := make([][]float64, ds.NumVar())
	for j, c := range ds.cols {
		for i, k := range keep {
			if k {
				cols[j] = append(cols[j], c[i])
			}
		}
	}

	names := append([]string(nil), ds.names...)
	return &Dataset{names: names, cols: cols}, nil
}

// Extend returns a new Dataset with additional columns appended.
func (ds *Dataset) Extend(cols [][]float64, names []string) (*Dataset, error) {

	allCols := append(append([][]float64(nil), ds.cols...), cols...)
	allNames := append(append([]string(nil), ds.names...), names...)
	return New(allCols, allNames)
}
