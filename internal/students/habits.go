// Package students analyses how study, sleep and lifestyle habits relate to
// exam scores.
package students

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tabloom-cli/internal/aggregate"
	"github.com/KaramelBytes/tabloom-cli/internal/model"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Columns is the input contract.
var Columns = []string{
	"student_id", "exam_score", "study_hours_per_day", "sleep_hours",
	"mental_health_rating", "diet_quality", "exercise_frequency",
}

// Habits are the numeric predictors of exam_score.
var Habits = []string{"study_hours_per_day", "sleep_hours", "mental_health_rating", "exercise_frequency"}

// StudyBoundaries split study_hours_per_day into two-hour bins.
var StudyBoundaries = []float64{0, 2, 4, 6, 8, 10}

// StudyBin is the name of the binned study hours column.
const StudyBin = "study_bin"

// Load reads the habits CSV and checks its columns.
func Load(path string, opt table.LoadOptions) (*table.Table, error) {
	if opt.Kinds == nil {
		opt.Kinds = map[string]table.Kind{"diet_quality": table.KindCategorical}
	}
	t, err := table.LoadFile(path, opt)
	if err != nil {
		return nil, err
	}
	if err := t.Require(Columns...); err != nil {
		return nil, err
	}
	return t, nil
}

// BinStudyHours adds StudyBin over StudyBoundaries.
func BinStudyHours(t *table.Table) (*table.Table, error) {
	return table.Bin(t, "study_hours_per_day", StudyBin, StudyBoundaries, nil)
}

// ScoreByStudy is the mean and count of exam_score per study bin, in bin order.
func ScoreByStudy(binned *table.Table) (*table.Table, error) {
	g, err := aggregate.GroupBy(binned, []string{StudyBin},
		aggregate.Agg("exam_score", aggregate.Mean).As("scor_mediu"),
		aggregate.Agg("exam_score", aggregate.Count).As("numar_studenti"),
	)
	if err != nil {
		return nil, err
	}
	return table.SortBy(g.Named("scor_pe_ore_studiu"), StudyBin, false)
}

// DietPivot is the mean exam score per study bin (rows) and diet quality
// (columns).
func DietPivot(binned *table.Table) (*table.Table, error) {
	p, err := aggregate.PivotTable(binned, StudyBin, "diet_quality", "exam_score", aggregate.Mean)
	if err != nil {
		return nil, err
	}
	p, err = table.SortBy(p, StudyBin, false)
	if err != nil {
		return nil, err
	}
	return p.Named("scor_dieta_ore"), nil
}

// ScoreModel explains exam_score with the habits and the diet dummies.
type ScoreModel struct {
	Regressor model.Regressor
	Features  []string
	OLS       *model.OLSResult
	Fallback  bool
	R2        float64
	Scores    model.RegressionScores
	Actual    []float64
	Predicted []float64
}

// Significant lists the OLS terms below alpha; nil for the fallback.
func (m *ScoreModel) Significant(alpha float64) []string {
	if m.OLS == nil {
		return nil
	}
	return m.OLS.Significant(alpha)
}

func withDietDummies(t *table.Table) (*table.Table, []string, error) {
	enc, err := table.FitOneHot(t, []string{"diet_quality"}, true)
	if err != nil {
		return nil, nil, err
	}
	out, err := enc.Transform(t)
	if err != nil {
		return nil, nil, err
	}
	return out, append(append([]string(nil), Habits...), enc.Columns()...), nil
}

// FitScoreModel fits OLS and falls back to least squares on a singular design.
func FitScoreModel(t *table.Table, log *zap.Logger) (*ScoreModel, error) {
	t, features, err := withDietDummies(t)
	if err != nil {
		return nil, err
	}
	if t, err = table.DropMissing(t, append([]string{"exam_score"}, features...)...); err != nil {
		return nil, err
	}
	y, err := model.Target(t, "exam_score")
	if err != nil {
		return nil, err
	}
	X, names, err := model.Design(t, features, true)
	if err != nil {
		return nil, err
	}
	out := &ScoreModel{Actual: y}
	var rows [][]float64
	ols, err := model.FitOLS(X, y, names)
	var sing *model.SingularMatrixError
	switch {
	case err == nil:
		out.OLS, out.Regressor, out.Features, out.R2 = ols, ols, names, ols.R2
		rows = model.Rows(X)
	case errors.As(err, &sing):
		log.Warn("ols singular, using least squares", zap.Int("rank", sing.Rank), zap.Int("cols", sing.Cols))
		Xf, _, err := model.Design(t, features, false)
		if err != nil {
			return nil, err
		}
		lm, err := model.LeastSquares{FitIntercept: true}.Fit(Xf, y, features)
		if err != nil {
			return nil, fmt.Errorf("score model fallback: %w", err)
		}
		out.Regressor, out.Features, out.R2, out.Fallback = lm, features, lm.R2, true
		rows = model.Rows(Xf)
	default:
		return nil, fmt.Errorf("score model: %w", err)
	}
	out.Predicted = make([]float64, len(rows))
	for i, x := range rows {
		if out.Predicted[i], err = out.Regressor.Predict(x); err != nil {
			return nil, err
		}
	}
	out.Scores = model.ScoreRegression(out.Actual, out.Predicted)
	return out, nil
}

// PassModel classifies exam_score >= pass mark from the habits.
type PassModel struct {
	Model    *model.LogisticModel
	Accuracy float64
	Scores   model.ClassificationScores
	PassRate float64
}

// FitPassModel labels students passed at passMark and fits a logistic model.
func FitPassModel(t *table.Table, passMark float64, lr *model.Logistic) (*PassModel, error) {
	t, err := table.DropMissing(t, append([]string{"exam_score"}, Habits...)...)
	if err != nil {
		return nil, err
	}
	scores, err := t.Floats("exam_score")
	if err != nil {
		return nil, err
	}
	y := make([]float64, len(scores))
	passed := 0
	for i, s := range scores {
		if s >= passMark {
			y[i] = 1
			passed++
		}
	}
	X, _, err := model.Design(t, Habits, false)
	if err != nil {
		return nil, err
	}
	m, err := lr.Fit(X, y, Habits)
	if err != nil {
		return nil, fmt.Errorf("pass model: %w", err)
	}
	sc, err := m.Score(X, y)
	if err != nil {
		return nil, err
	}
	return &PassModel{Model: m, Accuracy: sc.Accuracy, Scores: sc, PassRate: float64(passed) / float64(len(y))}, nil
}

// Clusters partitions students on study hours and exam score.
type Clusters struct {
	Hours      []float64
	Scores     []float64
	Clustering *model.Clustering
}

// ClusterStudents runs k-means on (study_hours_per_day, exam_score).
func ClusterStudents(t *table.Table, km *model.KMeans) (*Clusters, error) {
	t, err := table.DropMissing(t, "study_hours_per_day", "exam_score")
	if err != nil {
		return nil, err
	}
	X, _, err := model.Design(t, []string{"study_hours_per_day", "exam_score"}, false)
	if err != nil {
		return nil, err
	}
	c, err := km.Fit(X)
	if err != nil {
		return nil, fmt.Errorf("student clustering: %w", err)
	}
	hours, _ := t.Floats("study_hours_per_day")
	scores, _ := t.Floats("exam_score")
	return &Clusters{Hours: hours, Scores: scores, Clustering: c}, nil
}
