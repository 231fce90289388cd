package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so invocations do not leak
// state into each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args and return stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := tryCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func tryCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	cfg = nil
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// isolateHome points HOME at a temp dir so no user config is read or written.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	os.Setenv("HOME", home)
	return home
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolateHome(t)

	runCmd(t, "config", "set", "clusters", "4")
	runCmd(t, "config", "set", "months", "Ianuarie, Februarie")
	if _, err := os.Stat(filepath.Join(home, ".tabloom", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}

	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "clusters: 4") {
		t.Fatalf("expected saved clusters in show output, got:\n%s", out)
	}
	if !strings.Contains(out, "months: Ianuarie,Februarie") {
		t.Fatalf("expected saved months in show output, got:\n%s", out)
	}
	js := runCmd(t, "config", "show", "--json")
	if !strings.Contains(js, `"clusters": 4`) {
		t.Fatalf("expected JSON output, got:\n%s", js)
	}

	if _, err := tryCmd("config", "set", "clusters", "0"); err == nil {
		t.Fatalf("expected clusters=0 to be rejected")
	}
	if _, err := tryCmd("config", "set", "no_such_key", "1"); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestCLI_AnalyzeWritesOutput(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "vanzari.csv")
	csv := "categorie;pret_total;cantitate\nElectronice;3500,5;1\nAccesorii;60;2\nElectronice;2500;1\n"
	if err := os.WriteFile(data, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	outFile := filepath.Join(home, "summary.md")
	out := runCmd(t, "analyze", data, "--delimiter", ";", "--decimal", "comma", "--group-by", "categorie", "--corr", "-o", outFile)
	if !strings.Contains(out, "Wrote analysis") {
		t.Fatalf("unexpected output: %s", out)
	}
	body, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	for _, want := range []string{"[DATASET SUMMARY]", "[GROUP-BY SUMMARY]", "[CORRELATIONS]"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("summary missing %s:\n%s", want, body)
		}
	}

	noSamples := runCmd(t, "analyze", data, "--delimiter", ";", "--decimal", "comma", "--sample-rows", "0")
	if strings.Contains(noSamples, "[HEAD AND SAMPLE ROWS]") {
		t.Fatalf("expected --sample-rows 0 to drop samples:\n%s", noSamples)
	}

	if _, err := tryCmd("analyze", data, "--delimiter", "|"); err == nil {
		t.Fatalf("expected unsupported delimiter error")
	}
}

func TestCLI_GroupPivotAndBins(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "studenti.csv")
	csv := "study_hours_per_day,diet_quality,exam_score\n1,Good,60\n1.5,Poor,50\n3,Good,70\n3.5,Poor,64\n7,Good,90\n12,Fair,95\n"
	if err := os.WriteFile(data, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	out := runCmd(t, "group", data, "--by", "diet_quality", "--agg", "exam_score:mean:scor", "--agg", "exam_score:count", "--sort", "scor", "--desc")
	if !strings.Contains(out, "| diet_quality | scor | exam_score_count |") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "| Good | 73.33 | 3 |") {
		t.Fatalf("unexpected Good row:\n%s", out)
	}

	out = runCmd(t, "group", data, "--bin", "study_hours_per_day=0,2,4,6,8,10", "--by", "study_hours_per_day_bin",
		"--pivot", "diet_quality", "--agg", "exam_score:mean")
	if !strings.Contains(out, "| 0-2 | 60 | 50 |") {
		t.Fatalf("unexpected pivot:\n%s", out)
	}

	csvOut := filepath.Join(home, "grupat.csv")
	runCmd(t, "group", data, "--by", "diet_quality", "-o", csvOut)
	if _, err := os.Stat(csvOut); err != nil {
		t.Fatalf("missing csv output: %v", err)
	}

	out = runCmd(t, "group", data, "--bin", "study_hours_per_day=0,5,10,20", "--by", "study_hours_per_day_bin",
		"--agg", "exam_score:count:n", "--sort", "study_hours_per_day_bin", "--desc")
	if i, j := strings.Index(out, "| 10-20 |"), strings.Index(out, "| 5-10 |"); i < 0 || j < i {
		t.Fatalf("expected bins in interval order:\n%s", out)
	}

	if _, err := tryCmd("group", data, "--by", "diet_quality", "--agg", "exam_score:mode"); err == nil {
		t.Fatalf("expected unknown aggregation error")
	}
}

func TestParseAggAndBin(t *testing.T) {
	r, err := parseAgg("pret_total:avg:medie")
	if err != nil {
		t.Fatalf("parseAgg: %v", err)
	}
	if r.Column != "pret_total" || r.Op != "mean" || r.Name != "medie" {
		t.Fatalf("unexpected reduction %+v", r)
	}
	for _, bad := range []string{"pret_total", ":sum", "a:sum:b:c"} {
		if _, err := parseAgg(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	col, b, err := parseBin("ore=0, 2,4")
	if err != nil || col != "ore" || len(b) != 3 || b[1] != 2 {
		t.Fatalf("parseBin: %v %v %v", col, b, err)
	}
	if _, _, err := parseBin("ore"); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}

func TestCLI_StudentsRun(t *testing.T) {
	home := isolateHome(t)
	var b strings.Builder
	b.WriteString("student_id,exam_score,study_hours_per_day,sleep_hours,mental_health_rating,diet_quality,exercise_frequency\n")
	diets := []string{"Poor", "Fair", "Good"}
	for i := 0; i < 40; i++ {
		study := 0.5 + float64((i*7)%19)*0.5
		sleep := 5 + float64(i%5)
		mental := 1 + (i*3)%10
		score := 10 + 5*study + 2*sleep + float64(mental) + float64(i%7) + float64((i*13)%11) - 5
		fmt.Fprintf(&b, "S%d,%.1f,%.1f,%.1f,%d,%s,%d\n", i, score, study, sleep, mental, diets[(i/2)%3], i%7)
	}
	data := filepath.Join(home, "habits.csv")
	if err := os.WriteFile(data, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	outDir := filepath.Join(home, "out")
	out := runCmd(t, "students", data, "--out-dir", outDir, "--log-level", "warn")
	if !strings.Contains(out, "[SCOR PE ORE DE STUDIU]") {
		t.Fatalf("missing report section:\n%s", out)
	}
	for _, f := range []string{"scor_pe_ore_studiu.png", "scor_dieta_ore.png", "clusterizare_studenti.png", "regresie_scor.png"} {
		if _, err := os.Stat(filepath.Join(outDir, f)); err != nil {
			t.Fatalf("missing chart %s: %v", f, err)
		}
	}
}

func TestCLI_RetailMissingData(t *testing.T) {
	home := isolateHome(t)
	_, err := tryCmd("retail", "--data-dir", filepath.Join(home, "nope"), "--out-dir", filepath.Join(home, "out"))
	if err == nil {
		t.Fatalf("expected missing data error")
	}
	if !strings.Contains(err.Error(), "vanzari.csv") {
		t.Fatalf("expected error to name the sales file, got %v", err)
	}
}
