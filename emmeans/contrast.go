package emmeans

import (
	"fmt"
	"math"
)

// Contrast is the estimated active-versus-placebo difference in
// marginal means at one visit and subgroup level, reported under the
// configured sign convention with its standard error and confidence
// bounds.
type Contrast struct {
	Visit    float64
	Subgroup float64

	// Estimate is the reported contrast.  Under the
	// benefit-positive convention it is the negated
	// active-minus-placebo difference, so a positive value means
	// greater weight loss under active treatment.
	Estimate float64
	SE       float64
	Lower    float64
	Upper    float64

	// Estimable is false when either marginal mean entering the
	// contrast is not estimable; the numeric fields are then
	// meaningless and must not be read as a zero effect.
	Estimable bool
}

// ContrastTable is the full set of per-visit, per-subgroup treatment
// contrasts, one row per (visit, subgroup) combination.
type ContrastTable struct {
	Records []Contrast

	// The comparison and convention the table was built under.
	Active          float64
	Placebo         float64
	BenefitPositive bool
	CIMult          float64
}

// TreatmentContrasts computes the active-versus-placebo contrast for
// every (visit, subgroup) combination of the grid.
func (g *Grid) TreatmentContrasts() (*ContrastTable, error) {

	cfg := g.cfg

	type key struct{ visit, subgroup float64 }
	active := make(map[key]*Record)
	placebo := make(map[key]*Record)

	for _, r := range g.Records {
		k := key{r.Visit, r.Subgroup}
		switch r.Treatment {
		case cfg.Active:
			active[k] = r
		case cfg.Placebo:
			placebo[k] = r
		}
	}

	tab := &ContrastTable{
		Active:          cfg.Active,
		Placebo:         cfg.Placebo,
		BenefitPositive: cfg.BenefitPositive,
		CIMult:          cfg.CIMult,
	}

	for _, r := range g.Records {
		if r.Treatment != cfg.Active {
			continue
		}
		k := key{r.Visit, r.Subgroup}
		ra, rp := active[k], placebo[k]
		if ra == nil || rp == nil {
			return nil, fmt.Errorf("emmeans: no %g/%g pair at visit %g, subgroup %g",
				cfg.Active, cfg.Placebo, r.Visit, r.Subgroup)
		}

		con := Contrast{Visit: r.Visit, Subgroup: r.Subgroup}

		if ra.Estimable && rp.Estimable {
			diff := ra.Mean - rp.Mean
			d := make([]float64, g.p)
			for j := range d {
				d[j] = ra.vec[j] - rp.vec[j]
			}
			se := quadformSE(d, g.vcov, g.p)

			est := diff
			if cfg.BenefitPositive {
				est = -diff
			}
			con.Estimate = est
			con.SE = se
			con.Lower = est - cfg.CIMult*se
			con.Upper = est + cfg.CIMult*se
			con.Estimable = true
		}

		tab.Records = append(tab.Records, con)
	}

	return tab, nil
}

// quadformSE returns sqrt(x' V x) for the row-vectorized p-by-p
// matrix vcov.
func quadformSE(x, vcov []float64, p int) float64 {

	var va float64
	for j1 := 0; j1 < p; j1++ {
		for j2 := 0; j2 < p; j2++ {
			va += x[j1] * vcov[j1*p+j2] * x[j2]
		}
	}
	return math.Sqrt(va)
}
