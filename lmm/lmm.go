// Package lmm fits a linear mixed model for repeated clinical
// measurements: arbitrary fixed-effect product terms over categorical
// and continuous covariates, plus a per-subject random intercept and
// random slope over time.  Estimation is by restricted maximum
// likelihood with the fixed effects and residual variance profiled
// out, leaving a three-parameter optimization over the Cholesky factor
// of the relative random-effect covariance.
package lmm

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/clinstat/cfbcontrast/dataset"
)

// LMMConfig defines configuration parameters for a linear mixed model fit.
type LMMConfig struct {

	// Log, if not nil, receives fit diagnostics and failure dumps.
	Log *log.Logger

	// Start contains starting values for the three covariance
	// parameters (lower Cholesky factor of the relative
	// random-effect covariance), in the order L11, L21, L22.
	Start []float64

	// OptMethod is the gonum optimization method used to fit the model.
	OptMethod optimize.Method

	// OptSettings configures the gonum optimization routine.
	OptSettings *optimize.Settings
}

// DefaultLMMConfig returns a default configuration for a linear mixed
// model fit.  The REML criterion is optimized with Nelder-Mead since
// its gradient is not available in closed form here.
func DefaultLMMConfig() *LMMConfig {
	return &LMMConfig{
		OptMethod: &optimize.NelderMead{},
		Start:     []float64{1, 0, 1},
	}
}

// LMM describes a linear mixed model to be fit to grouped data.
type LMM struct {
	design *Design

	// Kept design columns after removing aliased ones, and the
	// names of the removed columns.
	keep       []int
	dropped    []string
	droppedPos []int

	// aliasCoefs[i] expresses dropped column droppedPos[i] as a
	// linear combination of the kept columns over the observed
	// rows; used for estimability checks.
	aliasCoefs [][]float64

	// Names of the kept coefficients.
	xnames []string

	// Per-subject data blocks: responses, fixed-effect design and
	// random-effect design (intercept and time).
	y []*mat.VecDense
	x []*mat.Dense
	z []*mat.Dense

	// Subject identifiers in block order.
	subjects []float64

	// Total observations and number of kept coefficients.
	n int
	p int

	config *LMMConfig
}

// NewLMM builds a linear mixed model for the response yname over the
// fixed-effect design, with a random intercept and a random slope over
// timeVar for each level of subjectVar.  Design columns that are
// linearly dependent on earlier columns (for example the interaction
// contrast of a treatment cell with no observations) are dropped from
// the fit and reported through the results.
func NewLMM(ds *dataset.Dataset, yname string, design *Design, subjectVar, timeVar string, config *LMMConfig) (*LMM, error) {

	if config == nil {
		config = DefaultLMMConfig()
	}

	yv, err := ds.Col(yname)
	if err != nil {
		return nil, err
	}
	subj, err := ds.Col(subjectVar)
	if err != nil {
		return nil, err
	}
	tm, err := ds.Col(timeVar)
	if err != nil {
		return nil, err
	}

	xfull, err := design.Matrix(ds)
	if err != nil {
		return nil, err
	}

	n := ds.NumObs()
	if n == 0 {
		return nil, fmt.Errorf("lmm: no observations")
	}

	keep, droppedPos := dropAliased(xfull)
	p := len(keep)
	if n <= p {
		return nil, fmt.Errorf("lmm: %d observations cannot identify %d coefficients", n, p)
	}

	names := design.Names()
	var xnames, dropped []string
	for _, j := range keep {
		xnames = append(xnames, names[j])
	}
	for _, j := range droppedPos {
		dropped = append(dropped, names[j])
	}

	// Group rows by subject in order of first appearance.
	bix := make(map[float64]int)
	var subjects []float64
	var rows [][]int
	for i, s := range subj {
		b, ok := bix[s]
		if !ok {
			b = len(subjects)
			bix[s] = b
			subjects = append(subjects, s)
			rows = append(rows, nil)
		}
		rows[b] = append(rows[b], i)
	}

	aliasCoefs, err := aliasRepresentations(xfull, keep, droppedPos)
	if err != nil {
		return nil, err
	}

	m := &LMM{
		design:     design,
		keep:       keep,
		dropped:    dropped,
		droppedPos: droppedPos,
		aliasCoefs: aliasCoefs,
		xnames:     xnames,
		subjects:   subjects,
		n:          n,
		p:          p,
		config:     config,
	}

	for _, rix := range rows {
		ni := len(rix)
		yb := mat.NewVecDense(ni, nil)
		xb := mat.NewDense(ni, p, nil)
		zb := mat.NewDense(ni, 2, nil)
		for i, r := range rix {
			yb.SetVec(i, yv[r])
			for j, k := range keep {
				xb.Set(i, j, xfull.At(r, k))
			}
			zb.Set(i, 0, 1)
			zb.Set(i, 1, tm[r])
		}
		m.y = append(m.y, yb)
		m.x = append(m.x, xb)
		m.z = append(m.z, zb)
	}

	return m, nil
}

// NumObs returns the number of observations the model is fit to.
func (m *LMM) NumObs() int {
	return m.n
}

// NumGroups returns the number of subjects.
func (m *LMM) NumGroups() int {
	return len(m.subjects)
}

// NumParams returns the number of fixed-effect coefficients after
// dropping aliased columns.
func (m *LMM) NumParams() int {
	return m.p
}

// Names returns the names of the kept fixed-effect coefficients.
func (m *LMM) Names() []string {
	return m.xnames
}

// Design returns the full fixed-effect design, including any columns
// dropped from the fit.
func (m *LMM) Design() *Design {
	return m.design
}

// Kept returns the positions in the full design of the columns used in
// the fit.
func (m *LMM) Kept() []int {
	return m.keep
}

// Dropped returns the names of design columns removed because they
// were linearly dependent on earlier columns.
func (m *LMM) Dropped() []string {
	return m.dropped
}

// dropAliased scans the columns of x left to right and keeps those
// that are not (numerically) linear combinations of the columns kept
// so far, using modified Gram-Schmidt.  It returns the kept and the
// dropped column positions.
func dropAliased(x *mat.Dense) ([]int, []int) {

	n, p := x.Dims()
	const tol = 1e-8

	var basis [][]float64
	var keep []int
	var droppedPos []int

	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, x)
		nrm0 := floats.Norm(col, 2)
		if nrm0 == 0 {
			droppedPos = append(droppedPos, j)
			continue
		}
		v := append([]float64(nil), col...)
		for _, q := range basis {
			c := floats.Dot(q, v)
			floats.AddScaled(v, -c, q)
		}
		if floats.Norm(v, 2) <= tol*nrm0 {
			droppedPos = append(droppedPos, j)
			continue
		}
		floats.Scale(1/floats.Norm(v, 2), v)
		basis = append(basis, v)
		keep = append(keep, j)
	}

	return keep, droppedPos
}

// aliasRepresentations solves, for each dropped column, its exact
// representation as a linear combination of the kept columns over the
// observed rows.  Each representation defines a null-space constraint
// of the design that estimable linear functions must satisfy.
func aliasRepresentations(x *mat.Dense, keep, droppedPos []int) ([][]float64, error) {

	if len(droppedPos) == 0 {
		return nil, nil
	}

	n, _ := x.Dims()
	p := len(keep)

	xk := mat.NewDense(n, p, nil)
	col := make([]float64, n)
	for j, k := range keep {
		mat.Col(col, k, x)
		xk.SetCol(j, col)
	}

	var qr mat.QR
	qr.Factorize(xk)

	coefs := make([][]float64, len(droppedPos))
	b := mat.NewDense(n, 1, nil)
	c := mat.NewDense(p, 1, nil)
	for i, j := range droppedPos {
		mat.Col(col, j, x)
		b.SetCol(0, col)
		if err := qr.SolveTo(c, false, b); err != nil {
			return nil, fmt.Errorf("lmm: aliased column %d: %w", j, err)
		}
		cc := make([]float64, p)
		for k := 0; k < p; k++ {
			cc[k] = c.At(k, 0)
		}
		coefs[i] = cc
	}

	return coefs, nil
}

// Estimable reports whether the linear function given by the full
// design row x (length Design().NumCols()) is estimable under the
// observed data: it must satisfy every null-space constraint induced
// by the aliased columns.
func (m *LMM) Estimable(x []float64) bool {

	scale := 1 + floats.Norm(x, 2)
	for i, j := range m.droppedPos {
		v := x[j]
		for k, kk := range m.keep {
			v -= m.aliasCoefs[i][k] * x[kk]
		}
		if math.Abs(v) > 1e-6*scale {
			return false
		}
	}
	return true
}

// thetaValid reports whether the covariance parameter point can form a
// usable Cholesky factor.
func thetaValid(theta []float64) bool {
	for _, t := range theta {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return false
		}
	}
	return true
}
