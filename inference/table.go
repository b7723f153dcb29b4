package inference

import (
	"bytes"
	"fmt"
	"strings"
)

// Fmter formats a column of summary values for display.  The argument
// is the column's values, the returned strings are the formatted cells
// in order.
type Fmter func(interface{}) []string

// NumFmt returns a Fmter that renders a []float64 column with the
// given Sprintf format.
func NumFmt(f string) Fmter {
	return func(c interface{}) []string {
		var u []string
		for _, x := range c.([]float64) {
			u = append(u, fmt.Sprintf(f, x))
		}
		return u
	}
}

// StrFmt is a Fmter that renders a []string column as-is.
func StrFmt(c interface{}) []string {
	return append([]string(nil), c.([]string)...)
}

// SummaryTable renders a fitted model or derived-statistics summary
// as fixed-width text.
type SummaryTable struct {

	// Title, centered over the table
	Title string

	// Column names
	ColNames []string

	// Formatters for the column values, one per column
	ColFmt []Fmter

	// Cols[j] is the j^th column.  Its concrete type must be
	// accepted by ColFmt[j].
	Cols []interface{}

	// Key/value lines shown above the column block
	Top []string

	// Messages displayed below the table
	Msg []string
}

// String returns the table as a string.
func (s *SummaryTable) String() string {

	var cells [][]string
	var wx []int
	nrow := 0
	for j, c := range s.Cols {
		u := s.ColFmt[j](c)
		cells = append(cells, u)
		w := len(s.ColNames[j])
		for _, x := range u {
			if len(x) > w {
				w = len(x)
			}
		}
		wx = append(wx, w+2)
		if len(u) > nrow {
			nrow = len(u)
		}
	}

	tw := 0
	for _, w := range wx {
		tw += w
	}
	if tw < len(s.Title) {
		tw = len(s.Title)
	}
	for _, t := range s.Top {
		if tw < len(t) {
			tw = len(t)
		}
	}

	line := func(c string) string {
		return strings.Repeat(c, tw) + "\n"
	}

	var buf bytes.Buffer

	k := (tw - len(s.Title)) / 2
	if k < 0 {
		k = 0
	}
	buf.WriteString(strings.Repeat(" ", k))
	buf.WriteString(s.Title)
	buf.WriteString("\n")
	buf.WriteString(line("="))

	if len(s.Top) > 0 {
		for _, t := range s.Top {
			buf.WriteString(t)
			buf.WriteString("\n")
		}
		buf.WriteString(line("-"))
	}

	for j, c := range s.ColNames {
		fmt.Fprintf(&buf, "%*s", wx[j], c)
	}
	buf.WriteString("\n")
	buf.WriteString(line("-"))

	for i := 0; i < nrow; i++ {
		for j := range cells {
			v := ""
			if i < len(cells[j]) {
				v = cells[j][i]
			}
			fmt.Fprintf(&buf, "%*s", wx[j], v)
		}
		buf.WriteString("\n")
	}
	buf.WriteString(line("-"))

	for _, msg := range s.Msg {
		buf.WriteString(msg)
		buf.WriteString("\n")
	}

	return buf.String()
}
