package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"signal-engine/internal/engine"
	"signal-engine/internal/market"
)

var (
	runCSV       string
	runSymbol    string
	runTimeframe string
	runLast      int
	runSummary   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full evaluation on the latest bar of a CSV file",
	Long: `Run the full pipeline: indicators, levels, pattern, confluence verdict and,
for LONG or SHORT, a trade plan. Prints the evaluation as JSON.

Examples:
  evaluate run --csv btc_1h.csv --symbol BTCUSDT --timeframe 1h
  cat bars.csv | evaluate run --csv - --symbol ETHUSDT --summary`,
	RunE: runEvaluate,
}

func init() {
	runCmd.Flags().StringVar(&runCSV, "csv", "", "bar file, '-' for stdin")
	runCmd.Flags().StringVar(&runSymbol, "symbol", "", "symbol the bars belong to (e.g., BTCUSDT)")
	runCmd.Flags().StringVar(&runTimeframe, "timeframe", "", "bar timeframe label (e.g., 1h)")
	runCmd.Flags().IntVar(&runLast, "last", 0, "only use the last N bars (0 = all)")
	runCmd.Flags().BoolVar(&runSummary, "summary", false, "print a one-line summary instead of JSON")
	_ = runCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(runCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	bars, err := readBarsFile(runCSV)
	if err != nil {
		return err
	}

	ev, err := eng.Evaluate(cmd.Context(), engine.Request{
		Symbol:    runSymbol,
		Timeframe: runTimeframe,
		Bars:      lastBars(bars, runLast),
	})
	if err != nil {
		return err
	}

	if runSummary {
		printSummary(cmd.OutOrStdout(), ev)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), ev)
}

func lastBars(bars []market.Bar, n int) []market.Bar {
	if n <= 0 || n >= len(bars) {
		return bars
	}
	return bars[len(bars)-n:]
}

func printSummary(w io.Writer, ev *engine.Evaluation) {
	v := ev.Verdict
	fmt.Fprintf(w, "%s %s @ %s close %.8g: %s confidence %.2f (long %.2f / short %.2f)\n",
		ev.Symbol, ev.Timeframe, ev.BarTime.Format("2006-01-02 15:04"), ev.Price,
		v.Direction, v.Confidence, v.Long.Confidence, v.Short.Confidence)
	if v.HoldReason != "" {
		fmt.Fprintf(w, "  hold: %s\n", v.HoldReason)
	}
	for _, r := range v.Reasons {
		fmt.Fprintf(w, "  - %s\n", r)
	}
	if ev.Plan != nil {
		fmt.Fprintf(w, "  %s\n", ev.Plan.Summary())
		for _, e := range ev.Plan.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		for _, warn := range ev.Plan.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
