package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tabloom-cli/internal/students"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	stOutDir   string
	stPassMark float64
)

var studentsCmd = &cobra.Command{
	Use:   "students <file>",
	Short: "Run the student habits analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *currentConfig()
		if stOutDir != "" {
			c.OutputDir = stOutDir
		}
		if cmd.Flags().Changed("pass-mark") {
			c.PassMark = stPassMark
		}
		if err := c.Validate(); err != nil {
			return err
		}
		res, err := students.Run(args[0], c, logger, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		logger.Info("students analysis finished", zap.String("run_id", res.RunID), zap.Int("charts", len(res.Charts)))
		fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Charts written to %s\n", c.OutputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.Flags().StringVar(&stOutDir, "out-dir", "", "directory for charts (overrides config)")
	studentsCmd.Flags().Float64Var(&stPassMark, "pass-mark", 0, "exam score needed to pass (overrides config)")
}
