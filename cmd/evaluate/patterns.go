package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"signal-engine/internal/patterns"
)

var (
	patternsCSV string
	patternsAll bool
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Scan a bar file and list recognized candlestick patterns",
	RunE:  runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&patternsCSV, "csv", "", "bar file, '-' for stdin")
	patternsCmd.Flags().BoolVar(&patternsAll, "all", false, "include bars without a pattern")

	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	bars, err := readBarsFile(patternsCSV)
	if err != nil {
		return err
	}

	detected := eng.ScanPatterns(bars)
	byIndex := make(map[int]patterns.PatternResult, len(detected))
	for _, d := range detected {
		byIndex[d.CandleIndex] = d.PatternResult
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCLOSE\tPATTERN\tPOLARITY\tSTRENGTH\tOUTSIDE")

	for i, bar := range bars {
		pr, ok := byIndex[i]
		if !ok {
			if !patternsAll {
				continue
			}
			pr = patterns.NoPattern()
		}
		fmt.Fprintf(tw, "%s\t%.8g\t%s\t%s\t%.2f\t%t\n",
			bar.Timestamp.Format("2006-01-02 15:04"), bar.Close, pr.Type, pr.Polarity, pr.Strength, pr.OutsideBar)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d patterns in %d bars\n", len(detected), len(bars))
	return nil
}
