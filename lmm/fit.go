package lmm

import (
	"fmt"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/optimize"

	"github.com/clinstat/cfbcontrast/inference"
)

// LMMResults describes the results of a fitted linear mixed model.
type LMMResults struct {
	inference.BaseResults

	model  *LMM
	theta  []float64
	sigma2 float64
}

// Model returns the model the results were produced from.
func (rslt *LMMResults) Model() *LMM {
	return rslt.model
}

// ResidVar returns the estimated residual variance.
func (rslt *LMMResults) ResidVar() float64 {
	return rslt.sigma2
}

// RandCov returns the estimated random-effect covariance on the data
// scale: intercept variance, intercept/slope covariance, and slope
// variance.
func (rslt *LMMResults) RandCov() (float64, float64, float64) {
	t0, t1, t2 := rslt.theta[0], rslt.theta[1], rslt.theta[2]
	s2 := rslt.sigma2
	return s2 * t0 * t0, s2 * t0 * t1, s2 * (t1*t1 + t2*t2)
}

// Summary returns a text summary of the fitted model.
func (rslt *LMMResults) Summary() *inference.SummaryTable {

	m := rslt.model

	vi, cv, vs := rslt.RandCov()
	top := []string{
		fmt.Sprintf("Observations:     %d", m.NumObs()),
		fmt.Sprintf("Subjects:         %d", m.NumGroups()),
		fmt.Sprintf("REML loglike:     %.3f", rslt.LogLike()),
		fmt.Sprintf("Residual SD:      %.4f", math.Sqrt(rslt.sigma2)),
		fmt.Sprintf("Rand icept SD:    %.4f", math.Sqrt(vi)),
		fmt.Sprintf("Rand slope SD:    %.4f", math.Sqrt(vs)),
		fmt.Sprintf("Icept/slope cov:  %.4f", cv),
	}

	var msg []string
	if len(m.Dropped()) > 0 {
		msg = append(msg, fmt.Sprintf("%d aliased design columns dropped:", len(m.Dropped())))
		for _, na := range m.Dropped() {
			msg = append(msg, "    "+na)
		}
	}

	return &inference.SummaryTable{
		Title:    "Linear mixed model (REML)",
		ColNames: []string{"Variable", "Coefficient", "SE", "Z-score", "P-value"},
		ColFmt: []inference.Fmter{
			inference.StrFmt,
			inference.NumFmt("%.4f"),
			inference.NumFmt("%.4f"),
			inference.NumFmt("%.3f"),
			inference.NumFmt("%.3f"),
		},
		Cols: []interface{}{
			rslt.Names(),
			rslt.Params(),
			rslt.StdErr(),
			rslt.ZScores(),
			rslt.PValues(),
		},
		Top: top,
		Msg: msg,
	}
}

// failMessage writes information that can help diagnose optimization
// failures.
func (m *LMM) failMessage(optrslt *optimize.Result) {

	lg := m.config.Log
	if lg == nil {
		lg = log.New(os.Stderr, "", 0)
	}

	lg.Printf("REML optimization failed at theta = %v, criterion = %f", optrslt.X, optrslt.F)

	min, max := m.y[0].Len(), m.y[0].Len()
	for _, y := range m.y {
		if y.Len() < min {
			min = y.Len()
		}
		if y.Len() > max {
			max = y.Len()
		}
	}
	lg.Printf("%d observations on %d subjects (%d to %d per subject)",
		m.n, len(m.subjects), min, max)
	lg.Printf("%d fixed-effect coefficients:", m.p)
	for _, na := range m.xnames {
		lg.Printf("    %s", na)
	}
	if len(m.dropped) > 0 {
		lg.Printf("%d aliased columns dropped: %v", len(m.dropped), m.dropped)
	}
}

// Fit fits the model to the data.  On optimizer failure the partial
// results at the last point are returned together with the error, and
// diagnostics are written to the configured logger.
func (m *LMM) Fit() (*LMMResults, error) {

	start := m.config.Start
	if start == nil {
		start = []float64{1, 0, 1}
	}
	if len(start) != 3 {
		return nil, fmt.Errorf("lmm: start must have length 3, got %d", len(start))
	}

	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			pr := m.profile(theta)
			if !pr.ok {
				return math.Inf(1)
			}
			return pr.crit
		},
	}

	method := m.config.OptMethod
	if method == nil {
		method = &optimize.NelderMead{}
	}

	optrslt, err := optimize.Minimize(problem, start, m.config.OptSettings, method)
	if err != nil {
		if optrslt == nil {
			return nil, fmt.Errorf("lmm: REML optimization failed: %w", err)
		}
		m.failMessage(optrslt)
		pr := m.profile(optrslt.X)
		rslt := &LMMResults{
			BaseResults: inference.NewBaseResults(-0.5*optrslt.F, pr.beta, m.xnames, nil),
			model:       m,
			theta:       append([]float64(nil), optrslt.X...),
			sigma2:      pr.sigma2,
		}
		return rslt, fmt.Errorf("lmm: REML optimization failed: %w", err)
	}
	if err := optrslt.Status.Err(); err != nil {
		return nil, fmt.Errorf("lmm: REML optimization did not converge: %w", err)
	}

	theta := append([]float64(nil), optrslt.X...)
	pr := m.profile(theta)
	if !pr.ok {
		return nil, fmt.Errorf("lmm: singular covariance at REML optimum (theta = %v)", theta)
	}

	// vcov(beta) = sigma2 * (X' V*^{-1} X)^{-1}, vectorized by row.
	vcov := make([]float64, m.p*m.p)
	for i := 0; i < m.p; i++ {
		for j := 0; j < m.p; j++ {
			vcov[i*m.p+j] = pr.sigma2 * pr.ainv.At(i, j)
		}
	}

	if m.config.Log != nil {
		m.config.Log.Printf("lmm: converged in %d evaluations, REML loglike %.4f",
			optrslt.FuncEvaluations, pr.loglike)
	}

	return &LMMResults{
		BaseResults: inference.NewBaseResults(pr.loglike, pr.beta, m.xnames, vcov),
		model:       m,
		theta:       theta,
		sigma2:      pr.sigma2,
	}, nil
}
