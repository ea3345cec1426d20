// Command uuidfreeze inspects what a freeze scope would produce: node-derived
// seeds, seeded identifier streams and the effective project configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"uuidfreeze/internal/logging"
)

var (
	// Global flags
	verbose bool
)

// cliLogger returns the structured logger for the cli category.
func cliLogger() *zap.Logger {
	return logging.Get(logging.CategoryCLI).With()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "uuidfreeze",
	Short: "uuidfreeze - deterministic UUIDs for tests",
	Long: `uuidfreeze reproduces what a frozen test scope generates.

Use it to find the seed a test derives from its name, replay a seeded
identifier stream outside the test, or check which configuration file
and ignore list a test run will pick up.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "Integer seed")
	generateCmd.Flags().StringVar(&genNode, "node", "", "Derive the seed from a test node id instead of --seed")
	generateCmd.Flags().IntVarP(&genCount, "count", "n", 5, "Number of identifiers to print")
	generateCmd.Flags().IntVar(&genVersion, "version", 4, "UUID version (1, 4, 6, 7 or 8)")

	configCmd.PersistentFlags().StringVarP(&configFile, "file", "f", "", "Config file (default: discover uuidfreeze.{yaml,yml,toml} in the working directory)")
	configInitCmd.Flags().StringVar(&initFormat, "format", "yaml", "File format: yaml or toml")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
