package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kshedden/dstream/dstream"
)

// FromCSV reads the named columns from CSV data.  The first row must
// be a header.  Columns not listed in cols are ignored.  A required
// column that is absent from the header, or a listed column containing
// a value that cannot be parsed as a number, is reported as a
// DataError naming the column.
func FromCSV(r io.Reader, cols []string) (*Dataset, error) {

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv: %w", err)
	}

	// Check the header up front so a missing column is reported by
	// name rather than surfacing as a parse failure downstream.
	head, err := csv.NewReader(bytes.NewReader(raw)).Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv header: %w", err)
	}
	have := make(map[string]bool)
	for _, h := range head {
		have[h] = true
	}
	for _, c := range cols {
		if !have[c] {
			return nil, columnError(c, "required column not found in csv header")
		}
	}

	var types []dstream.VarType
	for _, c := range cols {
		types = append(types, dstream.VarType{Name: c, Type: dstream.Float64})
	}

	dst := dstream.FromCSV(bytes.NewReader(raw)).SetTypes(types).ChunkSize(1024).HasHeader().Done()
	dsc := dstream.MemCopy(dst, false)

	// Flatten the chunked stream into plain columns, in the caller's
	// column order.
	pos := make(map[string]int)
	for j, na := range dsc.Names() {
		pos[na] = j
	}

	out := make([][]float64, len(cols))
	dsc.Reset()
	for dsc.Next() {
		for j, c := range cols {
			z := dsc.GetPos(pos[c]).([]float64)
			out[j] = append(out[j], z...)
		}
	}

	// dstream converts unparseable fields to NaN; surface them as
	// data errors rather than letting them flow into the model.
	for j, c := range cols {
		for i, v := range out[j] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &DataError{
					Column: c,
					Row:    i,
					Reason: "unparseable or missing value",
				}
			}
		}
	}

	return New(out, append([]string(nil), cols...))
}

// LoadCSV reads the named columns from a CSV file.
func LoadCSV(path string, cols []string) (*Dataset, error) {

	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer fid.Close()

	return FromCSV(fid, cols)
}
