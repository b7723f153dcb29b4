// Package analysis runs the full change-from-baseline pipeline: load
// the input file, filter to the configured population, derive each
// subject's change from baseline, fit the mixed model, and compute the
// per-visit, per-subgroup treatment contrasts.  One call, one
// deterministic batch computation.
package analysis

import (
	"fmt"
	"log"

	"github.com/clinstat/cfbcontrast/config"
	"github.com/clinstat/cfbcontrast/dataset"
	"github.com/clinstat/cfbcontrast/emmeans"
	"github.com/clinstat/cfbcontrast/lmm"
)

// Result holds the outputs of one pipeline run.
type Result struct {

	// Derived is the post-baseline analysis dataset with the
	// baseline, change and percent-change columns appended.
	Derived *dataset.Dataset

	// Model is the fitted mixed model.
	Model *lmm.LMMResults

	// Grid holds the marginal means over treatment, visit and
	// subgroup.
	Grid *emmeans.Grid

	// Contrasts is the per-visit, per-subgroup treatment contrast
	// table.
	Contrasts *emmeans.ContrastTable
}

// Run executes the pipeline for cfg.  lg may be nil to suppress fit
// diagnostics.  Identical input and configuration always produce an
// identical contrast table: there is no stochastic step and the
// optimizer start is fixed.
func Run(cfg *config.Analysis, lg *log.Logger) (*Result, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	co := cfg.Columns

	cols := []string{co.Subject, co.Time, co.Day, co.Value, co.Subgroup, co.Treatment}
	filt := dataset.Filter{}
	if cfg.Filter.Study != nil {
		filt.StudyVar, filt.Study = co.Study, *cfg.Filter.Study
		cols = append(cols, co.Study)
	}
	if cfg.Filter.Part != nil {
		filt.PartVar, filt.Part = co.Part, *cfg.Filter.Part
		cols = append(cols, co.Part)
	}
	if cfg.Filter.Compartment != nil {
		filt.CompartmentVar, filt.Compartment = co.Compartment, *cfg.Filter.Compartment
		cols = append(cols, co.Compartment)
	}
	if len(cfg.Filter.Doses) > 0 {
		filt.DoseVar, filt.Doses = co.Dose, cfg.Filter.Doses
		cols = append(cols, co.Dose)
	}

	ds, err := dataset.LoadCSV(cfg.Input, cols)
	if err != nil {
		return nil, err
	}

	ds, err = filt.Apply(ds)
	if err != nil {
		return nil, err
	}
	if ds.NumObs() == 0 {
		return nil, fmt.Errorf("analysis: no observations remain after filtering")
	}

	derived, err := dataset.DeriveChange(ds, co.Subject, co.Day, co.Value, cfg.BaselineDay)
	if err != nil {
		return nil, err
	}

	rslt, err := fitModel(derived, cfg, lg)
	if err != nil {
		return nil, err
	}

	emcfg := emmeans.DefaultConfig(co.Day, co.Treatment, co.Subgroup,
		cfg.Comparison.Active, cfg.Comparison.Placebo)
	emcfg.BenefitPositive = cfg.Comparison.BenefitPositive
	emcfg.CIMult = cfg.CIMultiplier

	grid, err := emmeans.ComputeGrid(rslt, derived, emcfg)
	if err != nil {
		return nil, err
	}

	tab, err := grid.TreatmentContrasts()
	if err != nil {
		return nil, err
	}

	return &Result{
		Derived:   derived,
		Model:     rslt,
		Grid:      grid,
		Contrasts: tab,
	}, nil
}

// fitModel builds and fits the mixed model on the derived dataset:
// fixed effects for baseline, visit, treatment, subgroup and their
// interactions up to the three-way subgroup-by-visit-by-treatment
// term, with a random intercept and slope over time per subject.
func fitModel(derived *dataset.Dataset, cfg *config.Analysis, lg *log.Logger) (*lmm.LMMResults, error) {

	co := cfg.Columns

	visits, err := dataset.Levels(derived, co.Day)
	if err != nil {
		return nil, err
	}
	treatments, err := dataset.Levels(derived, co.Treatment)
	if err != nil {
		return nil, err
	}
	subgroups, err := dataset.Levels(derived, co.Subgroup)
	if err != nil {
		return nil, err
	}

	vars := []lmm.Variable{
		lmm.Continuous(dataset.BaselineCol),
		lmm.Factor(co.Day, visits),
		lmm.Factor(co.Treatment, treatments),
		lmm.Factor(co.Subgroup, subgroups),
	}
	terms := lmm.ModelTerms(dataset.BaselineCol, co.Day, co.Treatment, co.Subgroup)

	design, err := lmm.NewDesign(vars, terms)
	if err != nil {
		return nil, err
	}

	lcfg := lmm.DefaultLMMConfig()
	lcfg.Log = lg

	model, err := lmm.NewLMM(derived, co.Value, design, co.Subject, co.Time, lcfg)
	if err != nil {
		return nil, err
	}

	rslt, err := model.Fit()
	if err != nil {
		return nil, fmt.Errorf("analysis: model fit: %w", err)
	}

	return rslt, nil
}
