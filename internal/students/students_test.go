package students

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/logging"
	"github.com/KaramelBytes/tabloom-cli/internal/model"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

var diets = []string{"Poor", "Fair", "Good"}

func writeHabits(t *testing.T, n int) string {
	t.Helper()
	lines := []string{strings.Join(Columns, ",")}
	for i := 0; i < n; i++ {
		study := 0.5 + float64((i*7)%19)*0.5
		sleep := 5 + float64(i%5)
		mental := float64(1 + (i*3)%10)
		exercise := float64(i % 7)
		noise := float64((i*13)%11) - 5
		score := 10 + 5*study + 2*sleep + mental + exercise + noise
		lines = append(lines, fmt.Sprintf("S%04d,%.1f,%.1f,%.1f,%g,%s,%g",
			1000+i, score, study, sleep, mental, diets[(i/2)%3], exercise))
	}
	path := filepath.Join(t.TempDir(), "student_habits_performance.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestBinStudyHours_Labels(t *testing.T) {
	tab, err := table.New("s", table.NumColumn("study_hours_per_day", []float64{1, 3, 7, 11}))
	require.NoError(t, err)
	out, err := BinStudyHours(tab)
	require.NoError(t, err)
	c, err := out.Column(StudyBin)
	require.NoError(t, err)
	assert.Equal(t, "0-2", c.Value(0).String())
	assert.Equal(t, "2-4", c.Value(1).String())
	assert.Equal(t, "6-8", c.Value(2).String())
	assert.True(t, c.Value(3).IsMissing())
}

func TestLoad_RequiresColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("student_id,exam_score\nS1,50\n"), 0o644))
	_, err := Load(path, table.LoadOptions{})
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestScoreByStudyAndPivot(t *testing.T) {
	tab, err := Load(writeHabits(t, 60), table.LoadOptions{})
	require.NoError(t, err)
	binned, err := BinStudyHours(tab)
	require.NoError(t, err)

	by, err := ScoreByStudy(binned)
	require.NoError(t, err)
	counts, err := by.Floats("numar_studenti")
	require.NoError(t, err)
	total := 0.0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 60.0, total)
	bins, _ := by.Column(StudyBin)
	assert.Equal(t, "0-2", bins.Strings()[0])

	pivot, err := DietPivot(binned)
	require.NoError(t, err)
	assert.Equal(t, by.Len(), pivot.Len())
	for _, d := range diets {
		assert.True(t, pivot.Has(d), d)
	}
}

func TestFitScoreModel_RecoversStudyEffect(t *testing.T) {
	tab, err := Load(writeHabits(t, 80), table.LoadOptions{})
	require.NoError(t, err)
	m, err := FitScoreModel(tab, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.False(t, m.Fallback)
	assert.Greater(t, m.R2, 0.8)
	for _, c := range m.Regressor.Coefficients() {
		if c.Name == "study_hours_per_day" {
			assert.InDelta(t, 5, c.Value, 1.5)
			assert.Less(t, c.P, 0.05)
		}
	}
	assert.Contains(t, m.Features, "diet_quality_Good")
	assert.NotContains(t, m.Features, "diet_quality_Fair")
	assert.Contains(t, m.Significant(0.05), "study_hours_per_day")
	assert.InDelta(t, m.R2, m.Scores.R2, 1e-9)
	assert.Greater(t, m.Scores.RMSE, 0.0)
	assert.LessOrEqual(t, m.Scores.MAE, m.Scores.RMSE)
}

func TestFitScoreModel_SingleRowFallsBack(t *testing.T) {
	tab, err := table.New("s",
		table.NumColumn("exam_score", []float64{72}),
		table.NumColumn("study_hours_per_day", []float64{3}),
		table.NumColumn("sleep_hours", []float64{7}),
		table.NumColumn("mental_health_rating", []float64{6}),
		table.NumColumn("exercise_frequency", []float64{2}),
		table.TextColumn("diet_quality", []string{"Good"}),
	)
	require.NoError(t, err)
	log, logs := logging.NewObserved(zapcore.WarnLevel)
	m, err := FitScoreModel(tab, log)
	require.NoError(t, err)
	assert.True(t, m.Fallback)
	assert.Equal(t, 1, logs.Len())
	require.Len(t, m.Predicted, 1)
	assert.InDelta(t, 72, m.Predicted[0], 1e-9)
	assert.Nil(t, m.Significant(0.05))
	assert.InDelta(t, 0, m.Scores.RMSE, 1e-9)
}

func TestFitPassModelAndClusters(t *testing.T) {
	tab, err := Load(writeHabits(t, 80), table.LoadOptions{})
	require.NoError(t, err)
	pm, err := FitPassModel(tab, 70, model.NewLogistic())
	require.NoError(t, err)
	assert.Greater(t, pm.PassRate, 0.0)
	assert.Less(t, pm.PassRate, 1.0)
	assert.Greater(t, pm.Accuracy, 0.7)
	assert.Equal(t, pm.Accuracy, pm.Scores.Accuracy)
	assert.Greater(t, pm.Scores.F1, 0.0)

	cl, err := ClusterStudents(tab, model.NewKMeans(3, 7))
	require.NoError(t, err)
	assert.Len(t, cl.Clustering.Labels, 80)
	assert.Len(t, cl.Hours, 80)
}

func TestRun_WritesCharts(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.ChartWidthIn, cfg.ChartHeightIn = 4, 3
	log, logs := logging.NewObserved(zapcore.InfoLevel)
	var out bytes.Buffer

	res, err := Run(writeHabits(t, 60), *cfg, log, &out)
	require.NoError(t, err)
	for _, f := range []string{ChartScoreByStudy, ChartDietPivot, ChartClusters, ChartRegression} {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, f))
	}
	assert.Len(t, res.Charts, 4)
	assert.Equal(t, 6, logs.FilterMessage("stage done").Len())
	assert.Contains(t, out.String(), "[DATASET SUMMARY]")
	assert.Contains(t, out.String(), "[SCOR PE ORE DE STUDIU]")
	assert.Contains(t, out.String(), res.RunID)
}
