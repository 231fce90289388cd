package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/aggregate"
	"github.com/KaramelBytes/tabloom-cli/internal/report"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	grpLoad   loadFlags
	grpBy     []string
	grpAggs   []string
	grpSort   string
	grpDesc   bool
	grpPivot  string
	grpHead   int
	grpBins   []string
	grpOutput string
)

var groupCmd = &cobra.Command{
	Use:   "group <file>",
	Short: "Group, aggregate or pivot a dataset",
	Long: `Group rows by one or more key columns and reduce other columns.

Reductions are given as col:op[:name] with op one of sum, mean, count, size,
min, max, std, var, median, first, nunique. --bin col=b0,b1,... adds a
col_bin column with half-open intervals that can be used as a key. With
--pivot the single --agg is spread into one column per pivot value.`,
	Example: `  tabloom group vanzari.csv --by categorie --agg pret_total:sum --agg profit:mean:profit_mediu --sort pret_total_sum --desc
  tabloom group studenti.csv --bin study_hours_per_day=0,2,4,6,8,10 --by study_hours_per_day_bin --pivot diet_quality --agg exam_score:mean`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lo, err := grpLoad.options()
		if err != nil {
			return err
		}
		t, err := table.LoadFile(args[0], lo)
		if err != nil {
			return err
		}
		for _, spec := range grpBins {
			col, bounds, err := parseBin(spec)
			if err != nil {
				return err
			}
			if t, err = table.Bin(t, col, "", bounds, nil); err != nil {
				return err
			}
		}
		reds := make([]aggregate.Reduction, 0, len(grpAggs))
		for _, a := range grpAggs {
			r, err := parseAgg(a)
			if err != nil {
				return err
			}
			reds = append(reds, r)
		}
		if len(grpBy) == 0 && grpPivot == "" {
			return fmt.Errorf("--by is required")
		}

		var out *table.Table
		if grpPivot != "" {
			if len(grpBy) != 1 || len(reds) != 1 {
				return fmt.Errorf("--pivot needs exactly one --by and one --agg")
			}
			out, err = aggregate.PivotTable(t, grpBy[0], grpPivot, reds[0].Column, reds[0].Op)
		} else {
			if len(reds) == 0 {
				reds = []aggregate.Reduction{aggregate.Agg(grpBy[0], aggregate.Size).As("count")}
			}
			out, err = aggregate.GroupBy(t, grpBy, reds...)
		}
		if err != nil {
			return err
		}
		if grpSort != "" {
			if out, err = table.SortBy(out, grpSort, grpDesc); err != nil {
				return err
			}
		}
		if grpHead > 0 {
			out = table.Head(out, grpHead)
		}
		logger.Debug("grouped", zap.String("file", args[0]), zap.Strings("by", grpBy), zap.Int("groups", out.Len()))

		switch {
		case strings.HasSuffix(strings.ToLower(grpOutput), ".csv"):
			if err := table.WriteCSV(grpOutput, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows to %s\n", out.Len(), grpOutput)
		case grpOutput != "":
			if err := utils.SafeWriteFile(grpOutput, []byte(report.Markdown(out, 0))); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows to %s\n", out.Len(), grpOutput)
		default:
			fmt.Fprint(cmd.OutOrStdout(), report.Markdown(out, 0))
		}
		return nil
	},
}

// parseAgg reads col:op[:name].
func parseAgg(s string) (aggregate.Reduction, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return aggregate.Reduction{}, fmt.Errorf("invalid --agg %q (use col:op[:name])", s)
	}
	op, err := aggregate.ParseOp(parts[1])
	if err != nil {
		return aggregate.Reduction{}, fmt.Errorf("invalid --agg %q: %w", s, err)
	}
	r := aggregate.Agg(parts[0], op)
	if len(parts) == 3 && parts[2] != "" {
		r = r.As(parts[2])
	}
	return r, nil
}

// parseBin reads col=b0,b1,...
func parseBin(s string) (string, []float64, error) {
	col, list, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return "", nil, fmt.Errorf("invalid --bin %q (use col=b0,b1,...)", s)
	}
	var bounds []float64
	for _, f := range strings.Split(list, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid --bin %q: %w", s, err)
		}
		bounds = append(bounds, x)
	}
	return col, bounds, nil
}

func init() {
	rootCmd.AddCommand(groupCmd)
	grpLoad.register(groupCmd)
	f := groupCmd.Flags()
	f.StringSliceVar(&grpBy, "by", nil, "key columns (comma-separated or repeated)")
	f.StringArrayVar(&grpAggs, "agg", nil, "reduction col:op[:name] (repeatable)")
	f.StringVar(&grpSort, "sort", "", "sort the result by this column")
	f.BoolVar(&grpDesc, "desc", false, "sort descending")
	f.StringVar(&grpPivot, "pivot", "", "spread the values of this column into columns")
	f.IntVar(&grpHead, "head", 0, "keep only the first n rows (0 = all)")
	f.StringArrayVar(&grpBins, "bin", nil, "bin a numeric column: col=b0,b1,... (repeatable)")
	f.StringVarP(&grpOutput, "output", "o", "", "write the result to a .csv or Markdown file instead of stdout")
}
