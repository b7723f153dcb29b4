// Package config defines the analysis configuration: input location,
// column naming, the population filter, the model comparison, and
// output destinations.  Configurations load from YAML; JSON documents
// parse too, since YAML is a superset of JSON.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Columns maps the roles the pipeline needs onto the input file's
// column names.
type Columns struct {
	Subject     string `json:"subject" yaml:"subject"`
	Study       string `json:"study" yaml:"study"`
	Part        string `json:"part" yaml:"part"`
	Compartment string `json:"compartment" yaml:"compartment"`
	Dose        string `json:"dose" yaml:"dose"`
	Time        string `json:"time" yaml:"time"`
	Day         string `json:"day" yaml:"day"`
	Value       string `json:"value" yaml:"value"`
	Subgroup    string `json:"subgroup" yaml:"subgroup"`
	Treatment   string `json:"treatment" yaml:"treatment"`
}

// FilterSpec restricts the input to one analysis population.  A nil
// criterion is not applied; an empty dose list admits all doses.
type FilterSpec struct {
	Study       *float64  `json:"study,omitempty" yaml:"study,omitempty"`
	Part        *float64  `json:"part,omitempty" yaml:"part,omitempty"`
	Compartment *float64  `json:"compartment,omitempty" yaml:"compartment,omitempty"`
	Doses       []float64 `json:"doses,omitempty" yaml:"doses,omitempty"`
}

// Comparison selects the treatment contrast and its reporting sign.
type Comparison struct {
	Active  float64 `json:"active" yaml:"active"`
	Placebo float64 `json:"placebo" yaml:"placebo"`

	// BenefitPositive stores the negated active-minus-placebo
	// difference so that positive contrasts represent treatment
	// benefit.
	BenefitPositive bool `json:"benefit_positive" yaml:"benefit_positive"`
}

// Output names the optional artifacts of a run.
type Output struct {
	Plot string `json:"plot,omitempty" yaml:"plot,omitempty"`
	CSV  string `json:"csv,omitempty" yaml:"csv,omitempty"`
	DB   string `json:"db,omitempty" yaml:"db,omitempty"`
}

// Analysis is the complete configuration of one pipeline run.
type Analysis struct {
	Input        string     `json:"input" yaml:"input"`
	Columns      Columns    `json:"columns" yaml:"columns"`
	Filter       FilterSpec `json:"filter" yaml:"filter"`
	BaselineDay  float64    `json:"baseline_day" yaml:"baseline_day"`
	CIMultiplier float64    `json:"ci_multiplier" yaml:"ci_multiplier"`
	Comparison   Comparison `json:"comparison" yaml:"comparison"`
	Output       Output     `json:"output" yaml:"output"`
}

// Default returns an Analysis with the conventional column names of
// the source dataset, a day-zero baseline, an approximate 95%
// interval, and the benefit-positive active-vs-placebo comparison.
func Default() *Analysis {
	return &Analysis{
		Columns: Columns{
			Subject:     "ID",
			Study:       "STUDYID",
			Part:        "PART",
			Compartment: "CMT",
			Dose:        "DOSE",
			Time:        "NOMTIME",
			Day:         "PROFDAY",
			Value:       "LIDV",
			Subgroup:    "MARKER",
			Treatment:   "TRT",
		},
		BaselineDay:  0,
		CIMultiplier: 1.96,
		Comparison: Comparison{
			Active:          1,
			Placebo:         0,
			BenefitPositive: true,
		},
	}
}

// LoadFromFile loads a configuration from a YAML or JSON file.
// Omitted fields keep their defaults.
func LoadFromFile(path string) (*Analysis, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Analysis) Validate() error {

	if c.Input == "" {
		return fmt.Errorf("config: input file not set")
	}
	if c.CIMultiplier <= 0 {
		return fmt.Errorf("config: ci_multiplier must be positive, got %g", c.CIMultiplier)
	}
	if c.Comparison.Active == c.Comparison.Placebo {
		return fmt.Errorf("config: comparison arms must differ, both are %g", c.Comparison.Active)
	}

	need := map[string]string{
		"subject":   c.Columns.Subject,
		"time":      c.Columns.Time,
		"day":       c.Columns.Day,
		"value":     c.Columns.Value,
		"subgroup":  c.Columns.Subgroup,
		"treatment": c.Columns.Treatment,
	}
	for role, na := range need {
		if na == "" {
			return fmt.Errorf("config: no column name for %s", role)
		}
	}

	return nil
}
