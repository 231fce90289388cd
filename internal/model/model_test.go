package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

func blobs() *mat.Dense {
	pts := []float64{
		0, 0, 0.2, 0.1, -0.1, 0.3, 0.1, -0.2,
		10, 10, 10.2, 9.9, 9.8, 10.1, 10.1, 10.3,
		0, 20, 0.3, 19.8, -0.2, 20.1, 0.1, 20.2,
	}
	return mat.NewDense(12, 2, pts)
}

func TestKMeans_SeparatesBlobsDeterministically(t *testing.T) {
	km := NewKMeans(3, 42)
	a, err := km.Fit(blobs())
	require.NoError(t, err)
	b, err := km.Fit(blobs())
	require.NoError(t, err)

	assert.Equal(t, a.Labels, b.Labels, "same seed, same clustering")
	assert.True(t, a.Converged)
	assert.Equal(t, []int{4, 4, 4}, sortedInts(a.Sizes()))
	for blob := 0; blob < 3; blob++ {
		first := a.Labels[blob*4]
		for i := 1; i < 4; i++ {
			assert.Equal(t, first, a.Labels[blob*4+i])
		}
	}

	got, err := a.Predict(mat.NewDense(1, 2, []float64{9.5, 10.5}))
	require.NoError(t, err)
	assert.Equal(t, a.Labels[4], got[0])
}

func TestKMeans_IterationBudgetIsNotFatal(t *testing.T) {
	km := &KMeans{K: 3, MaxIter: 1, NInit: 1, Seed: 7, Tol: 0}
	c, err := km.Fit(blobs())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Iterations)
	assert.Len(t, c.Labels, 12)
}

func TestKMeans_RejectsTooFewPoints(t *testing.T) {
	_, err := NewKMeans(5, 1).Fit(mat.NewDense(2, 1, []float64{1, 2}))
	assert.Error(t, err)
}

func sortedInts(xs []int) []int {
	out := append([]int(nil), xs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func TestLogistic_SeparatesAndChecksWidth(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 6, 7, 8, 9})
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	m, err := NewLogistic().Fit(X, y, []string{"pret_total"})
	require.NoError(t, err)
	assert.True(t, m.Converged)
	assert.Greater(t, m.Coef[0], 0.0)

	acc, err := m.Accuracy(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	lo, err := m.PredictProba([]float64{0})
	require.NoError(t, err)
	hi, err := m.PredictProba([]float64{10})
	require.NoError(t, err)
	assert.Less(t, lo, 0.5)
	assert.Greater(t, hi, 0.5)

	_, err = m.PredictProba([]float64{1, 2})
	assert.ErrorIs(t, err, table.ErrShapeMismatch)

	_, err = NewLogistic().Fit(X, []float64{0, 1, 2, 0, 1, 0, 1, 0}, nil)
	assert.Error(t, err)
}

func TestOLS_RecoversLinearRelation(t *testing.T) {
	// y = 3 + 2*x1 - x2 + small noise
	x1 := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	x2 := []float64{2, 1, 4, 3, 6, 5, 8, 7, 10, 9}
	noise := []float64{0.1, -0.1, 0.05, -0.05, 0.0, 0.1, -0.1, 0.05, -0.05, 0.0}
	X := mat.NewDense(10, 3, nil)
	y := make([]float64, 10)
	for i := range x1 {
		X.Set(i, 0, 1)
		X.Set(i, 1, x1[i])
		X.Set(i, 2, x2[i])
		y[i] = 3 + 2*x1[i] - x2[i] + noise[i]
	}
	res, err := FitOLS(X, y, []string{ConstName, "x1", "x2"})
	require.NoError(t, err)
	assert.InDelta(t, 3, res.Coef[0], 0.3)
	assert.InDelta(t, 2, res.Coef[1], 0.1)
	assert.InDelta(t, -1, res.Coef[2], 0.1)
	assert.Greater(t, res.R2, 0.99)
	assert.Equal(t, 7, res.DF)
	require.Len(t, res.PValues, 3)
	assert.Less(t, res.PValues[1], 0.05)
	assert.Contains(t, res.Significant(0.05), "x1")

	pred, err := res.Predict([]float64{1, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 7, pred, 0.3)
}

func TestOLS_SingularDesignFallsBack(t *testing.T) {
	// x2 = 2*x1: rank deficient
	X := mat.NewDense(4, 3, []float64{
		1, 1, 2,
		1, 2, 4,
		1, 3, 6,
		1, 4, 8,
	})
	y := []float64{3, 5, 7, 9}
	_, err := FitOLS(X, y, nil)
	var se *SingularMatrixError
	require.True(t, errors.As(err, &se), "want SingularMatrixError, got %v", err)
	assert.Equal(t, 2, se.Rank)
	assert.Equal(t, 3, se.Cols)

	lin, err := LeastSquares{}.Fit(X, y, []string{ConstName, "x1", "x2"})
	require.NoError(t, err)
	for i, want := range y {
		got, err := lin.Predict([]float64{1, X.At(i, 1), X.At(i, 2)})
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9)
	}
	assert.InDelta(t, 1.0, lin.R2, 1e-9)
}

func TestRegression_SingleRowRoundTrip(t *testing.T) {
	X := mat.NewDense(1, 2, []float64{1, 4})
	y := []float64{42}

	var reg Regressor
	res, err := FitOLS(X, y, []string{ConstName, "x"})
	if err != nil {
		var se *SingularMatrixError
		require.True(t, errors.As(err, &se))
		lin, err := LeastSquares{}.Fit(X, y, []string{ConstName, "x"})
		require.NoError(t, err)
		reg = lin
	} else {
		reg = res
	}
	got, err := reg.Predict([]float64{1, 4})
	require.NoError(t, err)
	assert.InDelta(t, 42, got, 1e-9)

	centered, err := LeastSquares{FitIntercept: true}.Fit(mat.NewDense(1, 1, []float64{4}), y, nil)
	require.NoError(t, err)
	got, err = centered.Predict([]float64{4})
	require.NoError(t, err)
	assert.InDelta(t, 42, got, 1e-9)
}

func TestDesign_FromTable(t *testing.T) {
	tab, err := table.New("t",
		table.NumColumn("a", []float64{1, 2}),
		table.NumColumn("b", []float64{3, math.NaN()}),
	)
	require.NoError(t, err)
	X, names, err := Design(tab, []string{"a"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{ConstName, "a"}, names)
	assert.Equal(t, 2.0, X.At(1, 1))
	assert.Equal(t, 1.0, X.At(0, 0))

	_, _, err = Design(tab, []string{"b"}, false)
	assert.ErrorIs(t, err, table.ErrMissingValue)
}

func TestMetrics(t *testing.T) {
	assert.Equal(t, 0.0, MSE([]float64{1, 2}, []float64{1, 2}))
	assert.Equal(t, 1.0, R2([]float64{1, 2, 3}, []float64{1, 2, 3}))
	assert.Equal(t, 0.5, Accuracy([]int{1, 0}, []int{1, 1}))
	p, r, f := PrecisionRecallF1([]int{1, 0, 1, 0}, []int{1, 1, 0, 0})
	assert.Equal(t, 0.5, p)
	assert.Equal(t, 0.5, r)
	assert.Equal(t, 0.5, f)
}

func TestScoreRegression(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	pred := []float64{1, 3, 3, 2}
	s := ScoreRegression(y, pred)
	assert.InDelta(t, 1.25, s.MSE, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.RMSE, 1e-12)
	assert.InDelta(t, 0.75, s.MAE, 1e-12)
	// ssRes 5, ssTot 5
	assert.InDelta(t, 0, s.R2, 1e-12)
	assert.Equal(t, 0.0, R2([]float64{2, 2}, []float64{1, 3}))
	assert.True(t, math.IsNaN(MAE(nil, nil)))
}

func TestLogistic_ScoreReportsPrecisionRecall(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 6, 7, 8, 9})
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	m, err := NewLogistic().Fit(X, y, []string{"pret_total"})
	require.NoError(t, err)

	s, err := m.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, ClassificationScores{Accuracy: 1, Precision: 1, Recall: 1, F1: 1}, s)

	pred, err := m.PredictAll(X)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 1}, pred)

	_, err = m.Score(X, y[:3])
	assert.Error(t, err)

	got := ScoreClassifier([]int{1, 0, 1, 0}, []int{1, 1, 0, 0})
	assert.Equal(t, ClassificationScores{Accuracy: 0.5, Precision: 0.5, Recall: 0.5, F1: 0.5}, got)
}
