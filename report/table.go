// Package report renders contrast tables for people: a fixed-width
// text summary and a point-range chart of the treatment effect by
// visit and subgroup.
package report

import (
	"fmt"

	"github.com/clinstat/cfbcontrast/emmeans"
	"github.com/clinstat/cfbcontrast/inference"
)

// ContrastSummary renders a contrast table as text.  Not-estimable
// combinations show "NE" rather than numbers.
func ContrastSummary(tab *emmeans.ContrastTable) *inference.SummaryTable {

	var visit, subgroup, est, se, lower, upper []string
	ne := 0
	for _, c := range tab.Records {
		visit = append(visit, fmt.Sprintf("%g", c.Visit))
		subgroup = append(subgroup, fmt.Sprintf("%g", c.Subgroup))
		if c.Estimable {
			est = append(est, fmt.Sprintf("%.3f", c.Estimate))
			se = append(se, fmt.Sprintf("%.3f", c.SE))
			lower = append(lower, fmt.Sprintf("%.3f", c.Lower))
			upper = append(upper, fmt.Sprintf("%.3f", c.Upper))
		} else {
			ne++
			est = append(est, "NE")
			se = append(se, "NE")
			lower = append(lower, "NE")
			upper = append(upper, "NE")
		}
	}

	dir := fmt.Sprintf("Contrast: treatment %g minus %g", tab.Active, tab.Placebo)
	if tab.BenefitPositive {
		dir = fmt.Sprintf("Contrast: -(treatment %g minus %g), positive = benefit",
			tab.Active, tab.Placebo)
	}
	top := []string{
		dir,
		fmt.Sprintf("Interval half-width: %.2f x SE", tab.CIMult),
	}

	var msg []string
	if ne > 0 {
		msg = append(msg, fmt.Sprintf("%d combination(s) not estimable (no supporting data)", ne))
	}

	return &inference.SummaryTable{
		Title:    "Treatment contrasts by visit and subgroup",
		ColNames: []string{"Visit", "Subgroup", "Estimate", "SE", "Lower", "Upper"},
		ColFmt: []inference.Fmter{
			inference.StrFmt, inference.StrFmt, inference.StrFmt,
			inference.StrFmt, inference.StrFmt, inference.StrFmt,
		},
		Cols: []interface{}{visit, subgroup, est, se, lower, upper},
		Top:  top,
		Msg:  msg,
	}
}
