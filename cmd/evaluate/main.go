// Command evaluate runs the signal engine over bar files from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"signal-engine/config"
	"signal-engine/internal/engine"
	"signal-engine/internal/logging"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Technical level and signal confidence engine",
	Long: `Computes pivot and Fibonacci levels, recognizes candlestick patterns,
scores LONG/SHORT confluence and derives trade plans from OHLCV bars.

Bars are read from CSV with columns timestamp,open,high,low,close[,volume],
oldest first. Timestamps may be RFC3339 or unix seconds/milliseconds.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "WARN"
		if verbose {
			level = "DEBUG"
		}
		logging.SetDefault(logging.NewWithWriter(&logging.Config{Level: level}, os.Stderr))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $CONFIG_FILE or config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config, or the default location
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// loadEngine builds an engine from the loaded configuration
func loadEngine(cfg *config.Config) (*engine.Engine, error) {
	engineCfg, err := cfg.EngineConfig.ToEngineConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(engineCfg, engine.WithLogger(logging.WithComponent("cli")))
}
