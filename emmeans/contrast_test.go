package emmeans

import (
	"math"
	"testing"
)

func scalarClose(x, y, eps float64) bool {
	return math.Abs(x-y) <= eps
}

// twoVisitGrid builds a grid directly so the contrast arithmetic can be
// checked against hand-computed values.  Visit 2 has a non-estimable
// placebo cell.
func twoVisitGrid(cfg *Config) *Grid {

	vcov := []float64{
		0.04, 0,
		0, 0.09,
	}

	return &Grid{
		cfg:  cfg,
		p:    2,
		vcov: vcov,
		Records: []*Record{
			{Visit: 1, Treatment: 0, Subgroup: 0, Mean: 5, SE: 0.2, Estimable: true, vec: []float64{1, 0}},
			{Visit: 1, Treatment: 1, Subgroup: 0, Mean: 4, SE: 0.3, Estimable: true, vec: []float64{0, 1}},
			{Visit: 2, Treatment: 0, Subgroup: 0},
			{Visit: 2, Treatment: 1, Subgroup: 0, Mean: 3, SE: 0.3, Estimable: true, vec: []float64{0, 1}},
		},
	}
}

func TestTreatmentContrasts(t *testing.T) {

	cfg := DefaultConfig("day", "trt", "grp", 1, 0)
	g := twoVisitGrid(cfg)

	tab, err := g.TreatmentContrasts()
	if err != nil {
		t.Fatal(err)
	}

	if tab.Active != 1 || tab.Placebo != 0 || !tab.BenefitPositive || tab.CIMult != 1.96 {
		t.Fatalf("table does not carry the comparison configuration: %+v", tab)
	}
	if len(tab.Records) != 2 {
		t.Fatalf("got %d contrasts, want 2", len(tab.Records))
	}

	// Visit 1: active minus placebo is 4 - 5 = -1, stored negated.
	c1 := tab.Records[0]
	if !c1.Estimable {
		t.Fatal("visit 1 contrast should be estimable")
	}
	if !scalarClose(c1.Estimate, 1, 1e-12) {
		t.Errorf("estimate: got %f, want 1", c1.Estimate)
	}
	wantSE := math.Sqrt(0.04 + 0.09)
	if !scalarClose(c1.SE, wantSE, 1e-12) {
		t.Errorf("se: got %f, want %f", c1.SE, wantSE)
	}
	if !scalarClose(c1.Lower, c1.Estimate-1.96*c1.SE, 1e-12) {
		t.Errorf("lower bound: got %f", c1.Lower)
	}
	if !scalarClose(c1.Upper, c1.Estimate+1.96*c1.SE, 1e-12) {
		t.Errorf("upper bound: got %f", c1.Upper)
	}

	// Visit 2: the placebo mean is not estimable, so neither is the
	// contrast.
	c2 := tab.Records[1]
	if c2.Estimable {
		t.Error("visit 2 contrast should not be estimable")
	}
	if c2.Visit != 2 {
		t.Errorf("visit: got %g, want 2", c2.Visit)
	}
}

func TestTreatmentContrastsSignConvention(t *testing.T) {

	cfg := DefaultConfig("day", "trt", "grp", 1, 0)
	cfg.BenefitPositive = false
	g := twoVisitGrid(cfg)

	tab, err := g.TreatmentContrasts()
	if err != nil {
		t.Fatal(err)
	}

	// Without the benefit-positive convention the raw difference is
	// reported.
	if !scalarClose(tab.Records[0].Estimate, -1, 1e-12) {
		t.Errorf("estimate: got %f, want -1", tab.Records[0].Estimate)
	}
}

func TestTreatmentContrastsCIMult(t *testing.T) {

	cfg := DefaultConfig("day", "trt", "grp", 1, 0)
	cfg.CIMult = 2.5
	g := twoVisitGrid(cfg)

	tab, err := g.TreatmentContrasts()
	if err != nil {
		t.Fatal(err)
	}

	c := tab.Records[0]
	if !scalarClose(c.Upper-c.Lower, 2*2.5*c.SE, 1e-12) {
		t.Errorf("interval width: got %f, want %f", c.Upper-c.Lower, 2*2.5*c.SE)
	}
}

func TestTreatmentContrastsMissingArm(t *testing.T) {

	cfg := DefaultConfig("day", "trt", "grp", 1, 0)
	g := &Grid{
		cfg: cfg,
		p:   1,
		Records: []*Record{
			{Visit: 1, Treatment: 1, Subgroup: 0, Mean: 4, Estimable: true, vec: []float64{1}},
		},
	}

	if _, err := g.TreatmentContrasts(); err == nil {
		t.Fatal("expected error when the placebo arm is absent from the grid")
	}
}
