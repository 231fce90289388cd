package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func residuals(yTrue, yPred []float64) []float64 {
	r := make([]float64, len(yTrue))
	floats.SubTo(r, yTrue, yPred)
	return r
}

func MSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return math.NaN()
	}
	r := residuals(yTrue, yPred)
	return floats.Dot(r, r) / float64(len(r))
}

func RMSE(yTrue, yPred []float64) float64 { return math.Sqrt(MSE(yTrue, yPred)) }

func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return math.NaN()
	}
	return floats.Norm(residuals(yTrue, yPred), 1) / float64(len(yTrue))
}

// R2 is the coefficient of determination; 0 when y is constant.
func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return math.NaN()
	}
	if floats.Min(yTrue) == floats.Max(yTrue) {
		return 0
	}
	return stat.RSquaredFrom(yPred, yTrue, nil)
}

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores binary 0/1 predictions against the positive class.
func PrecisionRecallF1(yTrue, yPred []int) (precision, recall, f1 float64) {
	var tp, fp, fn float64
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1 && yTrue[i] == 0:
			fp++
		case yPred[i] == 0 && yTrue[i] == 1:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// RegressionScores are the in-sample fit metrics of a regressor.
type RegressionScores struct {
	R2, MSE, RMSE, MAE float64
}

func ScoreRegression(yTrue, yPred []float64) RegressionScores {
	mse := MSE(yTrue, yPred)
	return RegressionScores{
		R2:   R2(yTrue, yPred),
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAE:  MAE(yTrue, yPred),
	}
}

// ClassificationScores are the in-sample metrics of a binary classifier.
type ClassificationScores struct {
	Accuracy, Precision, Recall, F1 float64
}

func ScoreClassifier(yTrue, yPred []int) ClassificationScores {
	s := ClassificationScores{Accuracy: Accuracy(yTrue, yPred)}
	s.Precision, s.Recall, s.F1 = PrecisionRecallF1(yTrue, yPred)
	return s
}
