package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Logistic fits a binary logistic regression by iteratively reweighted
// least squares (Newton steps on the log-likelihood). Penalty is an L2
// weight on the coefficients; the intercept is never penalized. Penalty 1
// matches the default regularization of common ML toolkits, 0 is plain
// maximum likelihood.
type Logistic struct {
	Penalty   float64
	MaxIter   int
	Tol       float64
	Threshold float64
}

// NewLogistic returns a Logistic with the usual defaults.
func NewLogistic() *Logistic {
	return &Logistic{Penalty: 1, MaxIter: 100, Tol: 1e-8, Threshold: 0.5}
}

// LogisticModel is a fitted classifier. Feature vectors passed to it must
// list the features in the same order as Features.
type LogisticModel struct {
	Features   []string
	Coef       []float64
	Intercept  float64
	Threshold  float64
	Iterations int
	Converged  bool
}

// Fit estimates the model on X (no intercept column) and 0/1 labels y.
func (l *Logistic) Fit(X mat.Matrix, y []float64, features []string) (*LogisticModel, error) {
	n, p := X.Dims()
	if n == 0 {
		return nil, errors.New("logistic: empty training set")
	}
	if len(y) != n {
		return nil, fmt.Errorf("logistic: %d labels for %d rows", len(y), n)
	}
	if features != nil {
		if err := checkWidth(len(features), p); err != nil {
			return nil, err
		}
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("logistic: label %v at row %d is not 0/1", v, i)
		}
	}
	maxIter := l.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}
	tol := l.Tol
	if tol <= 0 {
		tol = 1e-8
	}

	// augmented design: column 0 is the intercept
	d := p + 1
	A := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		A.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			A.Set(i, j+1, X.At(i, j))
		}
	}

	beta := mat.NewVecDense(d, nil)
	eta := mat.NewVecDense(n, nil)
	prob := make([]float64, n)
	out := &LogisticModel{Threshold: l.threshold()}
	for it := 0; it < maxIter; it++ {
		out.Iterations = it + 1
		eta.MulVec(A, beta)
		grad := mat.NewVecDense(d, nil)
		H := mat.NewSymDense(d, nil)
		for i := 0; i < n; i++ {
			prob[i] = sigmoid(eta.AtVec(i))
			w := prob[i] * (1 - prob[i])
			r := y[i] - prob[i]
			for a := 0; a < d; a++ {
				xa := A.At(i, a)
				grad.SetVec(a, grad.AtVec(a)+xa*r)
				for b := a; b < d; b++ {
					H.SetSym(a, b, H.At(a, b)+w*xa*A.At(i, b))
				}
			}
		}
		for a := 1; a < d; a++ {
			grad.SetVec(a, grad.AtVec(a)-l.Penalty*beta.AtVec(a))
			H.SetSym(a, a, H.At(a, a)+l.Penalty)
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(H); !ok {
			return nil, &SingularMatrixError{Rank: -1, Cols: d}
		}
		step := mat.NewVecDense(d, nil)
		if err := chol.SolveVecTo(step, grad); err != nil {
			return nil, fmt.Errorf("logistic: newton step: %w", err)
		}
		beta.AddVec(beta, step)
		if mat.Norm(step, math.Inf(1)) < tol {
			out.Converged = true
			break
		}
	}

	out.Intercept = beta.AtVec(0)
	out.Coef = make([]float64, p)
	for j := range out.Coef {
		out.Coef[j] = beta.AtVec(j + 1)
	}
	if features != nil {
		out.Features = append([]string(nil), features...)
	}
	return out, nil
}

func (l *Logistic) threshold() float64 {
	if l.Threshold <= 0 || l.Threshold >= 1 {
		return 0.5
	}
	return l.Threshold
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// PredictProba returns P(y=1 | x).
func (m *LogisticModel) PredictProba(x []float64) (float64, error) {
	if err := checkWidth(len(x), len(m.Coef)); err != nil {
		return 0, err
	}
	z := m.Intercept
	for j, c := range m.Coef {
		z += c * x[j]
	}
	return sigmoid(z), nil
}

// Predict thresholds PredictProba.
func (m *LogisticModel) Predict(x []float64) (int, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p >= m.Threshold {
		return 1, nil
	}
	return 0, nil
}

// PredictAll thresholds every row of X.
func (m *LogisticModel) PredictAll(X mat.Matrix) ([]int, error) {
	rows := Rows(X)
	pred := make([]int, len(rows))
	for i, x := range rows {
		p, err := m.Predict(x)
		if err != nil {
			return nil, err
		}
		pred[i] = p
	}
	return pred, nil
}

// Score compares the thresholded predictions for X with the 0/1 labels y.
func (m *LogisticModel) Score(X mat.Matrix, y []float64) (ClassificationScores, error) {
	r, _ := X.Dims()
	if r != len(y) {
		return ClassificationScores{}, fmt.Errorf("score: %d labels for %d rows", len(y), r)
	}
	pred, err := m.PredictAll(X)
	if err != nil {
		return ClassificationScores{}, err
	}
	truth := make([]int, len(y))
	for i, v := range y {
		truth[i] = int(v)
	}
	return ScoreClassifier(truth, pred), nil
}

// Accuracy is the share of rows of X whose thresholded prediction equals y.
func (m *LogisticModel) Accuracy(X mat.Matrix, y []float64) (float64, error) {
	s, err := m.Score(X, y)
	if err != nil {
		return 0, err
	}
	return s.Accuracy, nil
}
