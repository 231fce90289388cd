package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxCondition is the largest condition number FitOLS accepts before it
// reports the design as singular.
const MaxCondition = 1e12

// SingularMatrixError reports a rank-deficient design. Callers are expected
// to fall back to LeastSquares when they see it.
type SingularMatrixError struct {
	Rank int
	Cols int
	Cond float64
}

func (e *SingularMatrixError) Error() string {
	if e.Rank < 0 {
		return fmt.Sprintf("singular matrix (%d columns)", e.Cols)
	}
	return fmt.Sprintf("singular matrix: rank %d < %d columns (cond %.3g)", e.Rank, e.Cols, e.Cond)
}

// Regressor is anything that maps a feature vector to a prediction.
type Regressor interface {
	Predict(x []float64) (float64, error)
	Coefficients() []Coefficient
}

// Coefficient is one fitted term. Inference fields are NaN when the solver
// does not provide them.
type Coefficient struct {
	Name   string
	Value  float64
	StdErr float64
	T      float64
	P      float64
}

// OLSResult is a full-rank ordinary least squares fit with inference.
type OLSResult struct {
	Features []string
	Coef     []float64
	StdErr   []float64
	TValues  []float64
	// PValues are two-sided Student's t tail probabilities; nil when the fit
	// has no residual degrees of freedom.
	PValues []float64
	R2      float64
	AdjR2   float64
	N       int
	DF      int
	Sigma2  float64
}

// FitOLS regresses y on X exactly as given; include a ConstName column for
// an intercept. A rank-deficient or ill-conditioned X yields a
// *SingularMatrixError and no result.
func FitOLS(X mat.Matrix, y []float64, features []string) (*OLSResult, error) {
	n, p := X.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("ols: %d targets for %d rows", len(y), n)
	}
	if features != nil {
		if err := checkWidth(len(features), p); err != nil {
			return nil, err
		}
	}
	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, errors.New("ols: svd factorization failed")
	}
	sv := svd.Values(nil)
	rank := numericalRank(sv, n, p)
	cond := math.Inf(1)
	if len(sv) > 0 && sv[len(sv)-1] > 0 {
		cond = sv[0] / sv[len(sv)-1]
	}
	if rank < p || cond > MaxCondition {
		return nil, &SingularMatrixError{Rank: rank, Cols: p, Cond: cond}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	beta := pinvSolve(&u, &v, sv, y, p)

	fitted := predictAll(X, beta)
	res := &OLSResult{Coef: beta, N: n, DF: n - p}
	if features != nil {
		res.Features = append([]string(nil), features...)
	}
	ssRes, ssTot := sumsOfSquares(y, fitted, hasConstant(X))
	if ssTot > 0 {
		res.R2 = 1 - ssRes/ssTot
	}
	if res.DF > 0 {
		res.Sigma2 = ssRes / float64(res.DF)
		dfModel := p
		if hasConstant(X) {
			dfModel--
		}
		res.AdjR2 = 1 - (1-res.R2)*float64(n-p+dfModel)/float64(res.DF)
		res.StdErr = make([]float64, p)
		res.TValues = make([]float64, p)
		res.PValues = make([]float64, p)
		tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(res.DF)}
		for j := 0; j < p; j++ {
			// diag((X'X)^-1) = sum_k V[j,k]^2 / s_k^2
			d := 0.0
			for k := 0; k < p; k++ {
				d += v.At(j, k) * v.At(j, k) / (sv[k] * sv[k])
			}
			se := math.Sqrt(res.Sigma2 * d)
			res.StdErr[j] = se
			if se > 0 {
				res.TValues[j] = beta[j] / se
				res.PValues[j] = 2 * tdist.Survival(math.Abs(res.TValues[j]))
			} else {
				res.TValues[j] = math.Inf(1)
				res.PValues[j] = 0
			}
		}
	} else {
		res.AdjR2 = math.NaN()
	}
	return res, nil
}

// Predict applies the fitted coefficients. x must line up with Features,
// including the intercept column when the fit had one.
func (r *OLSResult) Predict(x []float64) (float64, error) {
	if err := checkWidth(len(x), len(r.Coef)); err != nil {
		return 0, err
	}
	s := 0.0
	for j, b := range r.Coef {
		s += b * x[j]
	}
	return s, nil
}

// Coefficients lists every term with its inference statistics.
func (r *OLSResult) Coefficients() []Coefficient {
	out := make([]Coefficient, len(r.Coef))
	for j, b := range r.Coef {
		c := Coefficient{Name: name(r.Features, j), Value: b, StdErr: math.NaN(), T: math.NaN(), P: math.NaN()}
		if r.PValues != nil {
			c.StdErr, c.T, c.P = r.StdErr[j], r.TValues[j], r.PValues[j]
		}
		out[j] = c
	}
	return out
}

// Significant lists terms whose p-value is below alpha.
func (r *OLSResult) Significant(alpha float64) []string {
	var out []string
	for _, c := range r.Coefficients() {
		if !math.IsNaN(c.P) && c.P < alpha {
			out = append(out, c.Name)
		}
	}
	return out
}

// LeastSquares is the rank-tolerant fallback: the minimum-norm solution via
// the pseudo-inverse. With FitIntercept, X must not contain a ConstName
// column; the intercept is estimated from centered data.
type LeastSquares struct {
	FitIntercept bool
}

// LinearModel is a LeastSquares fit. It carries no inference statistics.
type LinearModel struct {
	Features  []string
	Coef      []float64
	Intercept float64
	R2        float64
	Rank      int
}

// Fit solves min ||y - Xb|| for the minimum-norm b.
func (l LeastSquares) Fit(X mat.Matrix, y []float64, features []string) (*LinearModel, error) {
	n, p := X.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("least squares: %d targets for %d rows", len(y), n)
	}
	if features != nil {
		if err := checkWidth(len(features), p); err != nil {
			return nil, err
		}
	}
	A := mat.DenseCopyOf(X)
	b := append([]float64(nil), y...)
	xMean := make([]float64, p)
	yMean := 0.0
	if l.FitIntercept {
		for j := 0; j < p; j++ {
			s := 0.0
			for i := 0; i < n; i++ {
				s += A.At(i, j)
			}
			xMean[j] = s / float64(n)
			for i := 0; i < n; i++ {
				A.Set(i, j, A.At(i, j)-xMean[j])
			}
		}
		for _, v := range b {
			yMean += v
		}
		yMean /= float64(n)
		for i := range b {
			b[i] -= yMean
		}
	}

	out := &LinearModel{Coef: make([]float64, p)}
	if features != nil {
		out.Features = append([]string(nil), features...)
	}
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, errors.New("least squares: svd factorization failed")
	}
	sv := svd.Values(nil)
	out.Rank = numericalRank(sv, n, p)
	if out.Rank > 0 {
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		out.Coef = pinvSolve(&u, &v, sv, b, p)
	}
	if l.FitIntercept {
		out.Intercept = yMean
		for j := range out.Coef {
			out.Intercept -= out.Coef[j] * xMean[j]
		}
	}
	pred := make([]float64, n)
	for i := 0; i < n; i++ {
		s := out.Intercept
		for j := 0; j < p; j++ {
			s += out.Coef[j] * X.At(i, j)
		}
		pred[i] = s
	}
	out.R2 = R2(y, pred)
	return out, nil
}

// Predict applies the fitted model to one feature vector.
func (m *LinearModel) Predict(x []float64) (float64, error) {
	if err := checkWidth(len(x), len(m.Coef)); err != nil {
		return 0, err
	}
	s := m.Intercept
	for j, b := range m.Coef {
		s += b * x[j]
	}
	return s, nil
}

// Coefficients lists the intercept (when fitted) followed by the weights.
func (m *LinearModel) Coefficients() []Coefficient {
	nan := math.NaN()
	out := []Coefficient{{Name: "intercept", Value: m.Intercept, StdErr: nan, T: nan, P: nan}}
	for j, b := range m.Coef {
		out = append(out, Coefficient{Name: name(m.Features, j), Value: b, StdErr: nan, T: nan, P: nan})
	}
	return out
}

func name(features []string, j int) string {
	if j < len(features) {
		return features[j]
	}
	return fmt.Sprintf("x%d", j)
}

// numericalRank counts singular values above the LAPACK-style cutoff.
func numericalRank(sv []float64, n, p int) int {
	if len(sv) == 0 {
		return 0
	}
	dim := n
	if p > dim {
		dim = p
	}
	tol := sv[0] * float64(dim) * 2.220446049250313e-16
	r := 0
	for _, s := range sv {
		if s > tol {
			r++
		}
	}
	return r
}

// pinvSolve computes V diag(1/s) U' y over the non-negligible singular values.
func pinvSolve(u, v *mat.Dense, sv, y []float64, p int) []float64 {
	n, _ := u.Dims()
	rank := numericalRank(sv, n, p)
	beta := make([]float64, p)
	for k := 0; k < rank; k++ {
		uy := 0.0
		for i := 0; i < n; i++ {
			uy += u.At(i, k) * y[i]
		}
		coef := uy / sv[k]
		for j := 0; j < p; j++ {
			beta[j] += v.At(j, k) * coef
		}
	}
	return beta
}

func predictAll(X mat.Matrix, beta []float64) []float64 {
	n, p := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := 0.0
		for j := 0; j < p; j++ {
			s += X.At(i, j) * beta[j]
		}
		out[i] = s
	}
	return out
}

func hasConstant(X mat.Matrix) bool {
	n, p := X.Dims()
	for j := 0; j < p; j++ {
		constant := true
		for i := 0; i < n; i++ {
			if X.At(i, j) != 1 {
				constant = false
				break
			}
		}
		if constant {
			return true
		}
	}
	return false
}

// sumsOfSquares returns the residual and total sums of squares; the total
// is centered when the design has an intercept.
func sumsOfSquares(y, fitted []float64, centered bool) (ssRes, ssTot float64) {
	r := residuals(y, fitted)
	ssRes = floats.Dot(r, r)
	d := append([]float64(nil), y...)
	if centered {
		floats.AddConst(-stat.Mean(y, nil), d)
	}
	return ssRes, floats.Dot(d, d)
}
