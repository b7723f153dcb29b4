package lmm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// remlProfile holds the quantities computed at one covariance
// parameter point with the fixed effects and residual variance
// profiled out.
type remlProfile struct {

	// The REML criterion to minimize (-2 restricted log-likelihood
	// up to an additive constant).
	crit float64

	// Profiled fixed-effect estimates.
	beta []float64

	// Profiled residual variance estimate.
	sigma2 float64

	// Inverse of the whitened cross-product matrix; vcov of beta
	// is sigma2 times this.
	ainv *mat.SymDense

	// Restricted log-likelihood including constants.
	loglike float64

	// ok is false when the point is numerically unusable (the
	// marginal covariance or the cross-product matrix failed to
	// factor).
	ok bool
}

// profile evaluates the profiled REML criterion at theta, the lower
// Cholesky factor (L11, L21, L22) of the random-effect covariance
// relative to the residual variance.  For each subject the marginal
// covariance is V = Z L L' Z' + I; beta solves the whitened normal
// equations and sigma2 is the REML residual variance estimate.
func (m *LMM) profile(theta []float64) remlProfile {

	if !thetaValid(theta) {
		return remlProfile{ok: false}
	}

	lf := mat.NewDense(2, 2, []float64{theta[0], 0, theta[1], theta[2]})

	p := m.p
	a := mat.NewDense(p, p, nil)
	bv := mat.NewVecDense(p, nil)
	logdetV := 0.0

	// Per-subject solved blocks retained for the residual pass.
	vix := make([]*mat.Dense, len(m.y))
	viy := make([]*mat.VecDense, len(m.y))

	var chol mat.Cholesky
	for i := range m.y {
		ni := m.y[i].Len()

		// V = (Z L)(Z L)' + I
		w := mat.NewDense(ni, 2, nil)
		w.Mul(m.z[i], lf)
		vd := mat.NewDense(ni, ni, nil)
		vd.Mul(w, w.T())
		vs := mat.NewSymDense(ni, nil)
		for r := 0; r < ni; r++ {
			for c := r; c < ni; c++ {
				v := vd.At(r, c)
				if r == c {
					v += 1
				}
				vs.SetSym(r, c, v)
			}
		}

		if ok := chol.Factorize(vs); !ok {
			return remlProfile{ok: false}
		}
		logdetV += chol.LogDet()

		vx := mat.NewDense(ni, p, nil)
		if err := chol.SolveTo(vx, m.x[i]); err != nil {
			return remlProfile{ok: false}
		}
		vy := mat.NewVecDense(ni, nil)
		if err := chol.SolveVecTo(vy, m.y[i]); err != nil {
			return remlProfile{ok: false}
		}
		vix[i] = vx
		viy[i] = vy

		var xtvx mat.Dense
		xtvx.Mul(m.x[i].T(), vx)
		a.Add(a, &xtvx)

		var xtvy mat.VecDense
		xtvy.MulVec(m.x[i].T(), vy)
		bv.AddVec(bv, &xtvy)
	}

	as := mat.NewSymDense(p, nil)
	for r := 0; r < p; r++ {
		for c := r; c < p; c++ {
			as.SetSym(r, c, 0.5*(a.At(r, c)+a.At(c, r)))
		}
	}

	var cholA mat.Cholesky
	if ok := cholA.Factorize(as); !ok {
		return remlProfile{ok: false}
	}
	logdetA := cholA.LogDet()

	beta := mat.NewVecDense(p, nil)
	if err := cholA.SolveVecTo(beta, bv); err != nil {
		return remlProfile{ok: false}
	}

	// Weighted residual sum of squares r' V^{-1} r accumulated as
	// y'V^{-1}y - 2 b'beta + beta'A beta, but computed directly per
	// subject for numerical clarity.
	rss := 0.0
	for i := range m.y {
		ni := m.y[i].Len()
		fit := mat.NewVecDense(ni, nil)
		fit.MulVec(m.x[i], beta)
		for r := 0; r < ni; r++ {
			rr := m.y[i].AtVec(r) - fit.AtVec(r)
			// V^{-1} r computed from the retained solves:
			// (V^{-1}y - V^{-1}X beta)_r
			var vxb float64
			for j := 0; j < p; j++ {
				vxb += vix[i].At(r, j) * beta.AtVec(j)
			}
			rss += rr * (viy[i].AtVec(r) - vxb)
		}
	}
	if rss <= 0 || math.IsNaN(rss) {
		return remlProfile{ok: false}
	}

	ndf := float64(m.n - m.p)
	sigma2 := rss / ndf

	crit := ndf*math.Log(sigma2) + logdetV + logdetA
	loglike := -0.5 * (crit + ndf*(1+math.Log(2*math.Pi)))

	ainv := mat.NewSymDense(p, nil)
	if err := cholA.InverseTo(ainv); err != nil {
		return remlProfile{ok: false}
	}

	bcopy := make([]float64, p)
	copy(bcopy, beta.RawVector().Data)

	return remlProfile{
		crit:    crit,
		beta:    bcopy,
		sigma2:  sigma2,
		ainv:    ainv,
		loglike: loglike,
		ok:      true,
	}
}
