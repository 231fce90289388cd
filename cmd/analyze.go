package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// profileFlags are the profiling flags shared by analyze and analyze-batch.
type profileFlags struct {
	load       loadFlags
	sampleRows int
	maxRows    int
	groupBy    []string
	corr       bool
	corrGroups bool
	outliers   bool
	outlierThr float64
}

func (f *profileFlags) register(cmd *cobra.Command) {
	f.load.register(cmd)
	fs := cmd.Flags()
	fs.IntVar(&f.sampleRows, "sample-rows", 5, "number of sample rows to include")
	fs.IntVar(&f.maxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	fs.StringSliceVar(&f.groupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	fs.BoolVar(&f.corr, "corr", false, "compute Pearson correlations among numeric columns")
	fs.BoolVar(&f.corrGroups, "corr-per-group", false, "compute correlation pairs within each group (may be slower)")
	fs.BoolVar(&f.outliers, "outliers", true, "compute robust outlier counts (MAD)")
	fs.Float64Var(&f.outlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}

func (f *profileFlags) options() (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	lo, err := f.load.options()
	if err != nil {
		return opt, err
	}
	opt.Load = lo
	if f.sampleRows >= 0 {
		opt.SampleRows = f.sampleRows
	}
	if f.maxRows >= 0 {
		opt.MaxRows = f.maxRows
	}
	// Analytics flags
	opt.GroupBy = f.groupBy
	opt.Correlations = f.corr
	opt.CorrPerGroup = f.corrGroups
	opt.Outliers = f.outliers
	if f.outlierThr > 0 {
		opt.OutlierThreshold = f.outlierThr
	}
	return opt, nil
}

var (
	anaFlags      profileFlags
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV/XLSX file and produce a concise summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := anaFlags.options()
		if err != nil {
			return err
		}
		rep, err := analysis.Analyze(path, opt)
		if err != nil {
			return err
		}
		logger.Debug("dataset profiled", zap.String("file", path), zap.Int("rows", rep.Rows), zap.Int("cols", len(rep.Cols)))
		md := rep.Markdown()

		// --output path, or stdout
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
}
