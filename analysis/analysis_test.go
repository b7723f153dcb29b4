package analysis

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/clinstat/cfbcontrast/config"
	"github.com/clinstat/cfbcontrast/dataset"
)

func scalarClose(x, y, eps float64) bool {
	return math.Abs(x-y) <= eps
}

type obs struct {
	id, day, value, marker, trt float64
}

func writeCSV(t *testing.T, rows []obs) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.csv")
	fid, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fid.Close()

	fmt.Fprintln(fid, "ID,NOMTIME,PROFDAY,LIDV,MARKER,TRT")
	for _, r := range rows {
		fmt.Fprintf(fid, "%g,%g,%g,%g,%g,%g\n",
			r.id, 24*r.day, r.day, r.value, r.marker, r.trt)
	}
	return path
}

// recoveryRows builds the eight-subject synthetic trial: two subjects
// per treatment arm per subgroup, a baseline visit and a single
// post-baseline visit at day 84.  The active arm loses exactly 2.0
// units in both subgroups and placebo is flat.  The perturbations are
// orthogonal to the design, so the fit recovers the generating effect
// exactly.
func recoveryRows() []obs {

	type subj struct {
		id, trt, grp, base, e float64
	}
	subjects := []subj{
		{1, 0, 0, 88, 0.1},
		{2, 0, 0, 92, -0.1},
		{3, 1, 0, 89, -0.1},
		{4, 1, 0, 93, 0.1},
		{5, 0, 1, 87, 0.2},
		{6, 0, 1, 91, -0.2},
		{7, 1, 1, 90, -0.2},
		{8, 1, 1, 94, 0.2},
	}

	var rows []obs
	for _, s := range subjects {
		rows = append(rows, obs{s.id, 0, s.base, s.grp, s.trt})
		v := s.base - 2*s.trt + s.e
		rows = append(rows, obs{s.id, 84, v, s.grp, s.trt})
	}
	return rows
}

func TestRunRecoversTreatmentEffect(t *testing.T) {

	cfg := config.Default()
	cfg.Input = writeCSV(t, recoveryRows())

	rslt, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	// One post-baseline visit, two subgroups.
	tab := rslt.Contrasts
	if len(tab.Records) != 2 {
		t.Fatalf("got %d contrasts, want 2", len(tab.Records))
	}

	// The generating active-minus-placebo effect is -2.0 in both
	// subgroups; the stored benefit-positive contrast is +2.0.
	for _, c := range tab.Records {
		if !c.Estimable {
			t.Fatalf("contrast at day=%g grp=%g not estimable", c.Visit, c.Subgroup)
		}
		if c.Visit != 84 {
			t.Errorf("visit: got %g, want 84", c.Visit)
		}
		if !scalarClose(c.Estimate, 2.0, 0.05) {
			t.Errorf("contrast at grp=%g: got %f, want 2.0", c.Subgroup, c.Estimate)
		}
		if !(c.SE > 0) {
			t.Errorf("bad standard error %f", c.SE)
		}
		if !scalarClose(c.Lower, c.Estimate-1.96*c.SE, 1e-10) ||
			!scalarClose(c.Upper, c.Estimate+1.96*c.SE, 1e-10) {
			t.Errorf("confidence bounds inconsistent with estimate and SE: %+v", c)
		}
	}

	// No subgroup-by-treatment interaction was generated, so the two
	// subgroup contrasts agree.
	if !scalarClose(tab.Records[0].Estimate, tab.Records[1].Estimate, 0.05) {
		t.Errorf("subgroup contrasts differ: %f vs %f",
			tab.Records[0].Estimate, tab.Records[1].Estimate)
	}

	// The derived dataset carries the change columns for the
	// post-baseline rows only.
	if rslt.Derived.NumObs() != 8 {
		t.Errorf("derived rows: got %d, want 8", rslt.Derived.NumObs())
	}
	for _, na := range []string{dataset.BaselineCol, dataset.ChangeCol, dataset.PctChangeCol} {
		if rslt.Derived.Pos(na) == -1 {
			t.Errorf("derived dataset lacks column %s", na)
		}
	}
}

// missingCellRows extends the synthetic trial with a week-8 visit (day
// 56) and removes the week-8 records of the biomarker-negative placebo
// subjects, leaving that cell empty.
func missingCellRows() []obs {

	type subj struct {
		id, trt, grp, base float64
		e                  [2]float64
	}
	subjects := []subj{
		{1, 0, 0, 88, [2]float64{0.1, -0.1}},
		{2, 0, 0, 92, [2]float64{-0.1, 0.1}},
		{3, 1, 0, 89, [2]float64{-0.15, 0.1}},
		{4, 1, 0, 93, [2]float64{0.15, -0.1}},
		{5, 0, 1, 87, [2]float64{0.2, -0.15}},
		{6, 0, 1, 91, [2]float64{-0.2, 0.15}},
		{7, 1, 1, 90, [2]float64{-0.1, 0.2}},
		{8, 1, 1, 94, [2]float64{0.1, -0.2}},
	}

	var rows []obs
	for _, s := range subjects {
		rows = append(rows, obs{s.id, 0, s.base, s.grp, s.trt})
		for k, day := range []float64{56, 84} {
			if day == 56 && s.trt == 0 && s.grp == 0 {
				continue
			}
			ramp := day / 84
			v := s.base - 2*s.trt*ramp + s.e[k]
			rows = append(rows, obs{s.id, day, v, s.grp, s.trt})
		}
	}
	return rows
}

func TestRunMissingCellNotEstimable(t *testing.T) {

	cfg := config.Default()
	cfg.Input = writeCSV(t, missingCellRows())

	rslt, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	tab := rslt.Contrasts
	if len(tab.Records) != 4 {
		t.Fatalf("got %d contrasts, want 4", len(tab.Records))
	}

	for _, c := range tab.Records {
		ne := c.Visit == 56 && c.Subgroup == 0
		if ne && c.Estimable {
			t.Errorf("contrast for the empty cell reported estimable")
		}
		if !ne && !c.Estimable {
			t.Errorf("contrast at day=%g grp=%g should be estimable", c.Visit, c.Subgroup)
		}
	}
}

func TestRunIdempotent(t *testing.T) {

	cfg := config.Default()
	cfg.Input = writeCSV(t, recoveryRows())

	r1, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	t1, t2 := r1.Contrasts.Records, r2.Contrasts.Records
	if len(t1) != len(t2) {
		t.Fatalf("contrast tables differ in length: %d vs %d", len(t1), len(t2))
	}
	for i := range t1 {
		if t1[i] != t2[i] {
			t.Errorf("contrast %d differs between runs: %+v vs %+v", i, t1[i], t2[i])
		}
	}
}

func TestRunValidatesConfig(t *testing.T) {

	cfg := config.Default()
	// No input file set.
	if _, err := Run(cfg, nil); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestRunEmptyAfterFilter(t *testing.T) {

	rows := recoveryRows()
	path := filepath.Join(t.TempDir(), "input.csv")
	fid, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprintln(fid, "ID,NOMTIME,PROFDAY,LIDV,MARKER,TRT,DOSE")
	for _, r := range rows {
		fmt.Fprintf(fid, "%g,%g,%g,%g,%g,%g,50\n",
			r.id, 24*r.day, r.day, r.value, r.marker, r.trt)
	}
	fid.Close()

	cfg := config.Default()
	cfg.Input = path
	cfg.Filter.Doses = []float64{100}

	if _, err := Run(cfg, nil); err == nil {
		t.Fatal("expected error when no observations survive the filter")
	}
}
