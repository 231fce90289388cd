package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	abFlags            profileFlags
	abOutDir           string
	abSampleRowsOutDir int
	abQuiet            bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files with progress and optional summary files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opt, err := abFlags.options()
		if err != nil {
			return err
		}
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return fmt.Errorf("create --out-dir: %w", err)
			}
			if abSampleRowsOutDir >= 0 {
				opt.SampleRows = abSampleRowsOutDir
			}
		}

		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep, err := analysis.Analyze(path, opt)
			if err != nil {
				return err
			}
			md := rep.Markdown()
			if abOutDir == "" {
				if !abQuiet {
					fmt.Fprintln(out, md)
				}
				continue
			}

			base := filepath.Base(path)
			safe := strings.TrimSuffix(base, filepath.Ext(base))
			if opt.Load.Sheet != "" {
				ss := utils.Slug(opt.Load.Sheet)
				if ss == "" {
					ss = "sheet"
				}
				safe = safe + "__sheet-" + ss
			}
			outFile := utils.UniquePath(abOutDir, safe, ".summary.md")
			if filepath.Base(outFile) != safe+".summary.md" && !abQuiet {
				fmt.Fprintf(out, "⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(outFile))
			}
			if err := utils.SafeWriteFile(outFile, []byte(md)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			logger.Info("summary written", zap.String("file", path), zap.String("summary", outFile))
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote summary %s\n", filepath.Base(outFile))
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for <name>.summary.md files (stdout when empty)")
	analyzeBatchCmd.Flags().IntVar(&abSampleRowsOutDir, "sample-rows-out-dir", -1, "with --out-dir, override sample rows for written summaries (0 disables samples)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
