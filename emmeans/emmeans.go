// Package emmeans computes estimated marginal means over the
// treatment-by-visit-by-subgroup grid of a fitted linear mixed model,
// and the treatment-versus-placebo contrasts at each visit and
// subgroup level with delta-method standard errors.
//
// Grid cells with no supporting observations are carried as explicit
// not-estimable records rather than numeric zeros, so downstream
// rendering can annotate or skip them.
package emmeans

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/clinstat/cfbcontrast/dataset"
	"github.com/clinstat/cfbcontrast/lmm"
)

// Config controls the marginal-mean grid and contrast computation.
type Config struct {

	// VisitVar, TreatmentVar and SubgroupVar name the three factors
	// spanning the grid.  They must be categorical variables of the
	// fitted design.
	VisitVar     string
	TreatmentVar string
	SubgroupVar  string

	// Active and Placebo are the treatment levels being contrasted.
	Active  float64
	Placebo float64

	// BenefitPositive selects the reporting sign convention: when
	// true the stored contrast is the negated active-minus-placebo
	// difference, so that a positive value represents treatment
	// benefit for a response where lower is better (weight loss).
	BenefitPositive bool

	// CIMult is the half-width multiplier for the confidence
	// bounds (1.96 for an approximate 95% interval).
	CIMult float64
}

// DefaultConfig returns a Config with the benefit-positive sign
// convention and approximate 95% confidence bounds.
func DefaultConfig(visit, treatment, subgroup string, active, placebo float64) *Config {
	return &Config{
		VisitVar:        visit,
		TreatmentVar:    treatment,
		SubgroupVar:     subgroup,
		Active:          active,
		Placebo:         placebo,
		BenefitPositive: true,
		CIMult:          1.96,
	}
}

// Record is the fitted marginal mean of the response at one grid
// point, with covariates not in the grid held at their sample means.
type Record struct {

	// Grid point location.
	Visit     float64
	Treatment float64
	Subgroup  float64

	// Fitted mean and its standard error.
	Mean float64
	SE   float64

	// Estimable is false when the cell has no supporting
	// observations or depends on a design column dropped from the
	// fit; Mean and SE are then meaningless.
	Estimable bool

	// The prediction vector over the kept design columns.
	vec []float64
}

// Grid holds the marginal means for every combination of treatment,
// visit and subgroup.
type Grid struct {
	Records []*Record

	cfg  *Config
	p    int
	vcov []float64
}

// covariateMeans returns the mean of each named column of ds.
func covariateMeans(ds *dataset.Dataset, names []string) (map[string]float64, error) {

	means := make(map[string]float64)
	for _, na := range names {
		x, err := ds.Col(na)
		if err != nil {
			return nil, err
		}
		means[na] = floats.Sum(x) / float64(len(x))
	}
	return means, nil
}

// ComputeGrid evaluates the fitted model at every combination of the
// three grid factors, holding all other design variables at their
// sample means in ds (which must be the dataset the model was fit to).
func ComputeGrid(rslt *lmm.LMMResults, ds *dataset.Dataset, cfg *Config) (*Grid, error) {

	model := rslt.Model()
	design := model.Design()

	var visits, treatments, subgroups []float64
	var held []string
	for _, v := range design.Variables() {
		switch v.Name {
		case cfg.VisitVar:
			visits = v.Levels
		case cfg.TreatmentVar:
			treatments = v.Levels
		case cfg.SubgroupVar:
			subgroups = v.Levels
		default:
			held = append(held, v.Name)
		}
	}
	if visits == nil {
		return nil, fmt.Errorf("emmeans: %s is not a categorical design variable", cfg.VisitVar)
	}
	if treatments == nil {
		return nil, fmt.Errorf("emmeans: %s is not a categorical design variable", cfg.TreatmentVar)
	}
	if subgroups == nil {
		return nil, fmt.Errorf("emmeans: %s is not a categorical design variable", cfg.SubgroupVar)
	}

	means, err := covariateMeans(ds, held)
	if err != nil {
		return nil, err
	}

	counts, err := cellCounts(ds, cfg)
	if err != nil {
		return nil, err
	}

	params := rslt.Params()
	vcov := rslt.VCov()
	kept := model.Kept()
	p := len(params)
	full := make([]float64, design.NumCols())

	g := &Grid{cfg: cfg, p: p, vcov: vcov}

	vals := make(map[string]float64)
	for na, mn := range means {
		vals[na] = mn
	}

	for _, vv := range visits {
		for _, tv := range treatments {
			for _, sv := range subgroups {
				vals[cfg.VisitVar] = vv
				vals[cfg.TreatmentVar] = tv
				vals[cfg.SubgroupVar] = sv

				if err := design.Row(vals, full); err != nil {
					return nil, err
				}

				rec := &Record{Visit: vv, Treatment: tv, Subgroup: sv}

				// A cell with no data, or one whose prediction
				// row violates a null-space constraint of the
				// rank-reduced design, is not estimable.
				rec.Estimable = counts[cell{vv, tv, sv}] > 0 && model.Estimable(full)

				if rec.Estimable {
					vec := make([]float64, p)
					for j, k := range kept {
						vec[j] = full[k]
					}
					rec.vec = vec
					rec.Mean = floats.Dot(params, vec)
					rec.SE = quadformSE(vec, vcov, p)
				}

				g.Records = append(g.Records, rec)
			}
		}
	}

	return g, nil
}

type cell struct {
	visit, treatment, subgroup float64
}

func cellCounts(ds *dataset.Dataset, cfg *Config) (map[cell]int, error) {

	vv, err := ds.Col(cfg.VisitVar)
	if err != nil {
		return nil, err
	}
	tv, err := ds.Col(cfg.TreatmentVar)
	if err != nil {
		return nil, err
	}
	sv, err := ds.Col(cfg.SubgroupVar)
	if err != nil {
		return nil, err
	}

	counts := make(map[cell]int)
	for i := range vv {
		counts[cell{vv[i], tv[i], sv[i]}]++
	}
	return counts, nil
}
