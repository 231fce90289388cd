// Package report renders tables, model summaries and charts.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/model"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Section returns a bracketed section header.
func Section(title string) string {
	return "[" + strings.ToUpper(title) + "]\n"
}

// Cell formats a value for display: whole numbers without decimals, other
// numbers with two, missing as NaN.
func Cell(v table.Value) string {
	if f, ok := v.Float(); ok {
		return Number(f)
	}
	return safeVal(v.String())
}

// Number formats a float the way Cell does.
func Number(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.2f", f)
}

// Markdown renders up to maxRows rows (all when maxRows <= 0) as a pipe table.
func Markdown(t *table.Table, maxRows int) string {
	var b strings.Builder
	cols := t.Columns()
	if len(cols) == 0 {
		return "(empty table)\n"
	}
	b.WriteString("| ")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(c))
	}
	b.WriteString(" |\n|")
	for range cols {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	n := t.Len()
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	for i := 0; i < n; i++ {
		b.WriteString("| ")
		for j := range cols {
			if j > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(Cell(t.ColumnAt(j).Value(i)))
		}
		b.WriteString(" |\n")
	}
	if n < t.Len() {
		fmt.Fprintf(&b, "... %d more rows\n", t.Len()-n)
	}
	return b.String()
}

// Coefficients renders model terms with their inference statistics.
func Coefficients(coefs []model.Coefficient, alpha float64) string {
	var b strings.Builder
	b.WriteString("| term | coef | std err | t | p | significant |\n| --- | --- | --- | --- | --- | --- |\n")
	for _, c := range coefs {
		sig := "-"
		if !math.IsNaN(c.P) {
			sig = "no"
			if c.P < alpha {
				sig = "yes"
			}
		}
		fmt.Fprintf(&b, "| %s | %.4f | %s | %s | %s | %s |\n", safeVal(c.Name), c.Value, stat4(c.StdErr), stat4(c.T), stat4(c.P), sig)
	}
	return b.String()
}

func stat4(f float64) string {
	if math.IsNaN(f) {
		return "-"
	}
	return fmt.Sprintf("%.4f", f)
}

// KeyValues renders a sorted bullet list.
func KeyValues(kv map[string]string) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, kv[k])
	}
	return b.String()
}

func safeVal(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
