package dataset

import (
	"fmt"
)

// DataError describes a defect in the input data: a missing required
// column, an unparseable or non-finite value, or a subject whose
// baseline records violate the one-baseline-per-subject invariant.
// The offending column and subject are named so the failure can be
// traced back to the source data.
type DataError struct {

	// Column is the name of the offending column, if applicable.
	Column string

	// Subject is the identifier of the offending subject, if
	// applicable.  Subject identifiers are numeric in the source
	// data and are formatted with %g.
	Subject float64

	// HasSubject reports whether Subject is meaningful.
	HasSubject bool

	// Row is the zero-based row index of the offending value, or
	// -1 if not applicable.
	Row int

	// Reason describes the defect.
	Reason string
}

func (e *DataError) Error() string {

	s := "dataset: " + e.Reason
	if e.Column != "" {
		s += fmt.Sprintf(" (column %s", e.Column)
		if e.Row >= 0 {
			s += fmt.Sprintf(", row %d", e.Row)
		}
		s += ")"
	}
	if e.HasSubject {
		s += fmt.Sprintf(" (subject %g)", e.Subject)
	}
	return s
}

func subjectError(subject float64, reason string) *DataError {
	return &DataError{Subject: subject, HasSubject: true, Row: -1, Reason: reason}
}

func columnError(column, reason string) *DataError {
	return &DataError{Column: column, Row: -1, Reason: reason}
}
