// Package inference holds the shared results machinery for fitted
// regression models: parameter estimates, their sampling covariance,
// and the derived standard errors, Z-scores and p-values, together
// with a plain-text summary table renderer.
package inference

import (
	"math"
)

// Dtype is the scalar type used for all data and parameter values.
type Dtype = float64

// Resultser is a fitted model that exposes its coefficient estimates
// and their sampling covariance for downstream computations such as
// marginal means and contrasts.
type Resultser interface {
	Names() []string
	Params() []float64
	VCov() []float64
	StdErr() []float64
}

// BaseResults contains the results after fitting a model to data.
type BaseResults struct {
	loglike float64
	params  []float64
	names   []string
	vcov    []float64
	stderr  []float64
	zscores []float64
	pvalues []float64
}

// NewBaseResults returns a BaseResults for a model with the given
// log-likelihood, parameter estimates, parameter names, and vectorized
// sampling covariance matrix.  vcov may be nil if the covariance could
// not be obtained, in which case the derived quantities are nil too.
func NewBaseResults(loglike float64, params []float64, names []string, vcov []float64) BaseResults {
	return BaseResults{
		loglike: loglike,
		params:  params,
		names:   names,
		vcov:    vcov,
	}
}

// Names returns the names of the parameters in the model.
func (rslt *BaseResults) Names() []string {
	return rslt.names
}

// Params returns the point estimates of the parameters in the model.
func (rslt *BaseResults) Params() []float64 {
	return rslt.params
}

// VCov returns the sampling variance/covariance matrix of the
// parameter estimates, vectorized to one dimension by row.
func (rslt *BaseResults) VCov() []float64 {
	return rslt.vcov
}

// LogLike returns the log-likelihood or objective function value for
// the fitted model.
func (rslt *BaseResults) LogLike() float64 {
	return rslt.loglike
}

// StdErr returns the standard errors of the parameter estimates.
func (rslt *BaseResults) StdErr() []float64 {

	// No vcov, no standard errors
	if rslt.vcov == nil {
		return nil
	}

	p := len(rslt.params)
	if rslt.stderr != nil {
		return rslt.stderr
	}
	rslt.stderr = make([]float64, p)

	for i := range rslt.stderr {
		rslt.stderr[i] = math.Sqrt(rslt.vcov[i*p+i])
	}

	return rslt.stderr
}

// ZScores returns the parameter estimates divided by their standard errors.
func (rslt *BaseResults) ZScores() []float64 {

	if rslt.vcov == nil {
		return nil
	}

	if rslt.zscores != nil {
		return rslt.zscores
	}
	rslt.zscores = make([]float64, len(rslt.params))

	std := rslt.StdErr()
	for i := range std {
		rslt.zscores[i] = rslt.params[i] / std[i]
	}

	return rslt.zscores
}

func normcdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt(2))
}

// PValues returns the p-values for the null hypothesis that each
// parameter's population value is equal to zero.
func (rslt *BaseResults) PValues() []float64 {

	if rslt.vcov == nil {
		return nil
	}

	if rslt.pvalues != nil {
		return rslt.pvalues
	}
	rslt.pvalues = make([]float64, len(rslt.params))

	for i, z := range rslt.ZScores() {
		rslt.pvalues[i] = 2 * normcdf(-math.Abs(z))
	}

	return rslt.pvalues
}
