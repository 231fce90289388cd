package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tabloom-cli/internal/retail"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rtDataDir  string
	rtOutDir   string
	rtWorkbook string
	rtSeed     int64
)

var retailCmd = &cobra.Command{
	Use:   "retail",
	Short: "Run the retail sales analysis",
	Long: `Run the retail sales analysis over vanzari.csv, produse.csv, filiale.csv and
clienti.csv from the data directory. The report is printed to stdout; charts,
the modified sales CSV and the optional workbook go to the output directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *currentConfig()
		if rtDataDir != "" {
			c.DataDir = rtDataDir
		}
		if rtOutDir != "" {
			c.OutputDir = rtOutDir
		}
		if rtWorkbook != "" {
			c.Workbook = rtWorkbook
		}
		if cmd.Flags().Changed("seed") {
			c.Seed = rtSeed
		}
		if err := c.Validate(); err != nil {
			return err
		}
		r := retail.NewRunner(c, logger, cmd.OutOrStdout())
		res, err := r.Run()
		if err != nil {
			return fmt.Errorf("retail analysis (run %s): %w", r.RunID, err)
		}
		logger.Info("retail analysis finished", zap.String("run_id", res.RunID), zap.Int("charts", len(res.Charts)))
		fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Results written to %s\n", c.OutputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(retailCmd)
	retailCmd.Flags().StringVar(&rtDataDir, "data-dir", "", "directory with the input CSV files (overrides config)")
	retailCmd.Flags().StringVar(&rtOutDir, "out-dir", "", "directory for charts and exports (overrides config)")
	retailCmd.Flags().StringVar(&rtWorkbook, "workbook", "", "also export the key tables to this XLSX file")
	retailCmd.Flags().Int64Var(&rtSeed, "seed", 0, "random seed for targets and clustering (overrides config)")
}
