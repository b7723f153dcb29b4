package lmm

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/clinstat/cfbcontrast/dataset"
)

// Variable describes one model variable.  A categorical variable lists
// its levels, with Levels[0] taken as the reference level; a continuous
// variable has nil Levels.
type Variable struct {
	Name   string
	Levels []float64
}

// Continuous returns a continuous Variable.
func Continuous(name string) Variable {
	return Variable{Name: name}
}

// Factor returns a categorical Variable with the given levels.  The
// first level is the reference level and gets no indicator column.
func Factor(name string, levels []float64) Variable {
	return Variable{Name: name, Levels: levels}
}

// Term is a product term over model variables, identified by name.  A
// term with a single variable is a main effect; with several it is an
// interaction.
type Term []string

// ModelTerms returns the fixed-effect terms of the standard
// change-from-baseline model: baseline, visit, treatment and subgroup
// main effects plus the baseline-by-visit, treatment-by-visit,
// subgroup-by-treatment, subgroup-by-visit and
// subgroup-by-visit-by-treatment interactions.
func ModelTerms(baseline, visit, treatment, subgroup string) []Term {
	return []Term{
		{baseline},
		{visit},
		{treatment},
		{subgroup},
		{baseline, visit},
		{treatment, visit},
		{subgroup, treatment},
		{subgroup, visit},
		{subgroup, visit, treatment},
	}
}

// colDef defines one design-matrix column as a product of factors: for
// a continuous variable the factor is the value itself, for a
// categorical variable it is the indicator of one non-reference level.
type colDef struct {
	vars   []int
	levels []float64
	cont   []bool
	name   string
}

// Design expands variables and product terms into design-matrix
// columns with dummy coding and deterministic coefficient names.  The
// leading column is always the intercept, named "icept" by convention.
type Design struct {
	vars []Variable
	vpos map[string]int
	cols []colDef
}

// NewDesign constructs a Design for the given variables and terms.
func NewDesign(vars []Variable, terms []Term) (*Design, error) {

	d := &Design{
		vars: vars,
		vpos: make(map[string]int),
	}
	for i, v := range vars {
		if _, ok := d.vpos[v.Name]; ok {
			return nil, fmt.Errorf("lmm: duplicate design variable %s", v.Name)
		}
		d.vpos[v.Name] = i
	}

	// Intercept
	d.cols = append(d.cols, colDef{name: "icept"})

	for _, term := range terms {
		cols, err := d.expand(term)
		if err != nil {
			return nil, err
		}
		d.cols = append(d.cols, cols...)
	}

	return d, nil
}

// expand produces the columns of one product term: the cartesian
// product of each variable's contrast columns.  A factor with a single
// level contributes no contrast, so any term containing it expands to
// nothing.
func (d *Design) expand(term Term) ([]colDef, error) {

	cols := []colDef{{}}
	for _, vname := range term {
		vi, ok := d.vpos[vname]
		if !ok {
			return nil, fmt.Errorf("lmm: term variable %s not declared", vname)
		}
		v := d.vars[vi]

		var next []colDef
		for _, c := range cols {
			if v.Levels == nil {
				nc := c.clone()
				nc.vars = append(nc.vars, vi)
				nc.levels = append(nc.levels, 0)
				nc.cont = append(nc.cont, true)
				nc.appendName(v.Name)
				next = append(next, nc)
				continue
			}
			for _, lv := range v.Levels[1:] {
				nc := c.clone()
				nc.vars = append(nc.vars, vi)
				nc.levels = append(nc.levels, lv)
				nc.cont = append(nc.cont, false)
				nc.appendName(fmt.Sprintf("%s=%g", v.Name, lv))
				next = append(next, nc)
			}
		}
		cols = next
	}

	return cols, nil
}

func (c colDef) clone() colDef {
	return colDef{
		vars:   append([]int(nil), c.vars...),
		levels: append([]float64(nil), c.levels...),
		cont:   append([]bool(nil), c.cont...),
		name:   c.name,
	}
}

func (c *colDef) appendName(part string) {
	if c.name == "" {
		c.name = part
	} else {
		c.name = c.name + ":" + part
	}
}

// NumCols returns the number of design columns, intercept included.
func (d *Design) NumCols() int {
	return len(d.cols)
}

// Names returns the coefficient names in column order.
func (d *Design) Names() []string {
	var na []string
	for _, c := range d.cols {
		na = append(na, c.name)
	}
	return na
}

// Variables returns the design variables in declaration order.
func (d *Design) Variables() []Variable {
	return d.vars
}

// VarNames returns the names of the variables the design references.
func (d *Design) VarNames() []string {
	var na []string
	for _, v := range d.vars {
		na = append(na, v.Name)
	}
	return na
}

// Row fills out with the design row for one observation whose variable
// values are given by vals.  out must have length NumCols.
func (d *Design) Row(vals map[string]float64, out []float64) error {

	if len(out) != len(d.cols) {
		panic(fmt.Sprintf("lmm: design row has length %d, expected %d", len(out), len(d.cols)))
	}

	for _, v := range d.vars {
		if _, ok := vals[v.Name]; !ok {
			return fmt.Errorf("lmm: no value for design variable %s", v.Name)
		}
	}

	for j, c := range d.cols {
		p := 1.0
		for k, vi := range c.vars {
			v := vals[d.vars[vi].Name]
			if c.cont[k] {
				p *= v
			} else if v != c.levels[k] {
				p = 0
				break
			}
		}
		out[j] = p
	}

	return nil
}

// Matrix builds the design matrix for all rows of ds.
func (d *Design) Matrix(ds *dataset.Dataset) (*mat.Dense, error) {

	cols := make([][]float64, len(d.vars))
	for i, v := range d.vars {
		x, err := ds.Col(v.Name)
		if err != nil {
			return nil, err
		}
		cols[i] = x
	}

	n := ds.NumObs()
	p := len(d.cols)
	x := mat.NewDense(n, p, nil)
	vals := make(map[string]float64, len(d.vars))
	row := make([]float64, p)

	for i := 0; i < n; i++ {
		for k, v := range d.vars {
			vals[v.Name] = cols[k][i]
		}
		if err := d.Row(vals, row); err != nil {
			return nil, err
		}
		x.SetRow(i, row)
	}

	return x, nil
}

// String describes the design for diagnostics.
func (d *Design) String() string {
	return strings.Join(d.Names(), " + ")
}
