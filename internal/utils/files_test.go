package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	first := utils.UniquePath(dir, "metrics", ".summary.md")
	if filepath.Base(first) != "metrics.summary.md" {
		t.Fatalf("unexpected first path %s", first)
	}
	if err := utils.SafeWriteFile(first, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := utils.UniquePath(dir, "metrics", ".summary.md")
	if filepath.Base(second) != "metrics__2.summary.md" {
		t.Fatalf("unexpected second path %s", second)
	}
	if _, err := os.Stat(first + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Vânzări 2024":  "vnzri-2024",
		" Sheet_1 ":     "sheet-1",
		"--Q1 results!": "q1-results",
		"":              "",
	}
	for in, want := range cases {
		if got := utils.Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"clusters": 3})
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	if !strings.Contains(string(b), "\n  \"clusters\": 3") {
		t.Fatalf("expected indented output, got %s", b)
	}
}
