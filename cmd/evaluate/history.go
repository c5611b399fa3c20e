package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signal-engine/internal/database"
)

var (
	historySymbol string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Analyze stored evaluations by confidence bucket",
	Long: `Reads the evaluation history from PostgreSQL and shows how verdicts and
plan validity distribute over confidence, plus how many evaluations each
MinConfidence threshold would have turned into trades.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "only analyze this symbol")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 500, "newest evaluations to analyze")

	rootCmd.AddCommand(historyCmd)
}

// ConfidenceBucket aggregates evaluations whose winning-side confidence falls
// in [MinConf, MaxConf)
type ConfidenceBucket struct {
	MinConf       float64
	MaxConf       float64
	Total         int
	Long          int
	Short         int
	Hold          int
	PlansValid    int
	PlansRejected int
}

// defaultBuckets mirror the confidence labels of the scorer
func defaultBuckets() []ConfidenceBucket {
	return []ConfidenceBucket{
		{MinConf: 0.00, MaxConf: 0.35},
		{MinConf: 0.35, MaxConf: 0.50},
		{MinConf: 0.50, MaxConf: 0.60},
		{MinConf: 0.60, MaxConf: 0.70},
		{MinConf: 0.70, MaxConf: 0.80},
		{MinConf: 0.80, MaxConf: 1.01},
	}
}

// topConfidence is the better of the two direction scores
func topConfidence(r *database.EvaluationRecord) float64 {
	return math.Max(r.LongConfidence, r.ShortConfidence)
}

func bucketize(records []*database.EvaluationRecord, buckets []ConfidenceBucket) []ConfidenceBucket {
	for _, r := range records {
		conf := topConfidence(r)
		for i := range buckets {
			if conf >= buckets[i].MinConf && conf < buckets[i].MaxConf {
				b := &buckets[i]
				b.Total++
				switch r.Direction {
				case "LONG":
					b.Long++
				case "SHORT":
					b.Short++
				default:
					b.Hold++
				}
				if r.PlanValid != nil {
					if *r.PlanValid {
						b.PlansValid++
					} else {
						b.PlansRejected++
					}
				}
				break
			}
		}
	}
	return buckets
}

// ThresholdRow counts evaluations a MinConfidence threshold would admit
type ThresholdRow struct {
	Threshold float64
	Admitted  int
	Excluded  int
}

func thresholdTable(records []*database.EvaluationRecord, thresholds []float64) []ThresholdRow {
	rows := make([]ThresholdRow, len(thresholds))
	for i, th := range thresholds {
		rows[i].Threshold = th
		for _, r := range records {
			if topConfidence(r) >= th {
				rows[i].Admitted++
			} else {
				rows[i].Excluded++
			}
		}
	}
	return rows
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.DatabaseConfig.Enabled {
		return errors.New("database is disabled; set DB_ENABLED=true or database.enabled in the config file")
	}

	dbCfg := cfg.DatabaseConfig
	db, err := database.NewDB(database.Config{
		Host:     dbCfg.Host,
		Port:     dbCfg.Port,
		User:     dbCfg.User,
		Password: dbCfg.Password,
		Database: dbCfg.Database,
		SSLMode:  dbCfg.SSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	records, err := database.NewRepository(db).ListEvaluations(ctx, database.EvaluationFilter{
		Symbol: historySymbol,
		Limit:  historyLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to load evaluations: %w", err)
	}

	printHistory(cmd.OutOrStdout(), records, cfg.EngineConfig.MinConfidence)
	return nil
}

func printHistory(w io.Writer, records []*database.EvaluationRecord, current float64) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "CONFIDENCE DISTRIBUTION")
	fmt.Fprintln(w, rule)

	if len(records) == 0 {
		fmt.Fprintln(w, "\nNo stored evaluations found.")
		return
	}
	fmt.Fprintf(w, "\nAnalyzing %d evaluations...\n\n", len(records))

	fmt.Fprintln(w, "┌─────────────────┬───────┬──────┬───────┬──────┬─────────────┬───────────────┐")
	fmt.Fprintln(w, "│ Confidence      │ Total │ Long │ Short │ Hold │ Plans valid │ Plans invalid │")
	fmt.Fprintln(w, "├─────────────────┼───────┼──────┼───────┼──────┼─────────────┼───────────────┤")
	for _, b := range bucketize(records, defaultBuckets()) {
		fmt.Fprintf(w, "│ %5.0f%% - %5.0f%% │ %5d │ %4d │ %5d │ %4d │ %11d │ %13d │\n",
			b.MinConf*100, math.Min(b.MaxConf, 1)*100,
			b.Total, b.Long, b.Short, b.Hold, b.PlansValid, b.PlansRejected)
	}
	fmt.Fprintln(w, "└─────────────────┴───────┴──────┴───────┴──────┴─────────────┴───────────────┘")

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "THRESHOLD COMPARISON")
	fmt.Fprintln(w, rule)
	for _, row := range thresholdTable(records, []float64{0.35, 0.50, 0.60, 0.70, 0.80}) {
		marker := ""
		if math.Abs(row.Threshold-current) < 1e-9 {
			marker = "  (current)"
		}
		share := float64(row.Admitted) / float64(len(records)) * 100
		fmt.Fprintf(w, "  %3.0f%%: %5d admitted, %5d held (%5.1f%% traded)%s\n",
			row.Threshold*100, row.Admitted, row.Excluded, share, marker)
	}
}
