package journal

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/clinstat/cfbcontrast/emmeans"
)

// WriteCSV writes a contrast table as CSV.  Not-estimable rows have
// empty statistic fields and estimable=0, so a downstream reader
// cannot mistake them for a zero effect.
func WriteCSV(w io.Writer, tab *emmeans.ContrastTable) error {

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"visit", "subgroup", "estimate", "se", "lower", "upper", "estimable"}); err != nil {
		return err
	}

	for _, c := range tab.Records {
		row := []string{ftoa(c.Visit), ftoa(c.Subgroup), "", "", "", "", "0"}
		if c.Estimable {
			row[2] = ftoa(c.Estimate)
			row[3] = ftoa(c.SE)
			row[4] = ftoa(c.Lower)
			row[5] = ftoa(c.Upper)
			row[6] = "1"
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
