// Package model fits the stock statistical models used by the analyses:
// k-means clustering, logistic regression and linear least squares.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// ConstName is the name given to the intercept column of a design matrix.
const ConstName = "const"

// Design builds a dense feature matrix from the named numeric columns. With
// intercept a leading column of ones named ConstName is added.
func Design(t *table.Table, columns []string, intercept bool) (*mat.Dense, []string, error) {
	if t.Len() == 0 {
		return nil, nil, fmt.Errorf("design matrix: table %q has no rows", t.Name())
	}
	names := make([]string, 0, len(columns)+1)
	if intercept {
		names = append(names, ConstName)
	}
	names = append(names, columns...)

	cols := make([][]float64, len(columns))
	for j, n := range columns {
		xs, err := t.Floats(n)
		if err != nil {
			return nil, nil, fmt.Errorf("design matrix: %w", err)
		}
		cols[j] = xs
	}
	off := 0
	if intercept {
		off = 1
	}
	X := mat.NewDense(t.Len(), len(names), nil)
	for i := 0; i < t.Len(); i++ {
		if intercept {
			X.Set(i, 0, 1)
		}
		for j := range columns {
			X.Set(i, j+off, cols[j][i])
		}
	}
	return X, names, nil
}

// Target extracts a complete numeric response vector.
func Target(t *table.Table, column string) ([]float64, error) {
	y, err := t.Floats(column)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return y, nil
}

// Rows copies a matrix into row slices.
func Rows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = X.At(i, j)
		}
	}
	return out
}

func checkWidth(got, want int) error {
	if got != want {
		return fmt.Errorf("got %d features, want %d: %w", got, want, table.ErrShapeMismatch)
	}
	return nil
}
