package main

import (
	"github.com/spf13/cobra"

	"signal-engine/internal/levels"
)

var (
	levelsCSV    string
	levelsMethod string
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Print pivot and Fibonacci levels for the next bar",
	Long: `Pivots are computed from the last bar of the file; the Fibonacci grid from
the trailing swing window.

Examples:
  evaluate levels --csv btc_1d.csv
  evaluate levels --csv btc_1d.csv --method camarilla`,
	RunE: runLevels,
}

func init() {
	levelsCmd.Flags().StringVar(&levelsCSV, "csv", "", "bar file, '-' for stdin")
	levelsCmd.Flags().StringVar(&levelsMethod, "method", "", "pivot method override (floor, camarilla, woodie)")

	rootCmd.AddCommand(levelsCmd)
}

func runLevels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if levelsMethod != "" {
		if _, err := levels.ParsePivotMethod(levelsMethod); err != nil {
			return err
		}
		cfg.EngineConfig.PivotMethod = levelsMethod
	}
	eng, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	bars, err := readBarsFile(levelsCSV)
	if err != nil {
		return err
	}

	set, err := eng.Levels(bars[len(bars)-1], bars)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), set)
}
