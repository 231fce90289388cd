package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var cfgShowJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tabloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		if cfgShowJSON {
			b, err := utils.PrettyJSON(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "data_dir: %s\n", c.DataDir)
		fmt.Fprintf(out, "output_dir: %s\n", c.OutputDir)
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		}
		if c.DecimalSeparator != "" {
			fmt.Fprintf(out, "decimal_separator: %q\n", c.DecimalSeparator)
		}
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		fmt.Fprintf(out, "chart_width_in: %.1f\n", c.ChartWidthIn)
		fmt.Fprintf(out, "chart_height_in: %.1f\n", c.ChartHeightIn)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "clusters: %d\n", c.Clusters)
		fmt.Fprintf(out, "kmeans_max_iter: %d\n", c.KMeansMaxIter)
		fmt.Fprintf(out, "kmeans_init: %d\n", c.KMeansInit)
		fmt.Fprintf(out, "logistic_penalty: %.3f\n", c.LogisticPenalty)
		fmt.Fprintf(out, "logistic_max_iter: %d\n", c.LogisticMaxIter)
		fmt.Fprintf(out, "decision_threshold: %.3f\n", c.DecisionThreshold)
		fmt.Fprintf(out, "significance_level: %.3f\n", c.SignificanceLevel)
		fmt.Fprintf(out, "vat_rate: %.3f\n", c.VATRate)
		fmt.Fprintf(out, "price_increase: %.3f\n", c.PriceIncrease)
		fmt.Fprintf(out, "branch_placeholder_factor: %g\n", c.BranchPlaceholderFactor)
		fmt.Fprintf(out, "months: %s\n", strings.Join(c.Months, ","))
		if c.Workbook != "" {
			fmt.Fprintf(out, "workbook: %s\n", c.Workbook)
		}
		fmt.Fprintf(out, "pass_mark: %g\n", c.PassMark)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk. Valid keys: " + strings.Join(cfgpkg.Keys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := currentConfig()
		if err := c.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configShowCmd.Flags().BoolVar(&cfgShowJSON, "json", false, "print the configuration as JSON")
}
