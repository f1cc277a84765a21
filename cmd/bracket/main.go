// Command bracket ranks lists with a tournament judged by an LLM, a person
// or a built-in comparator.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ahrav/go-bracket/internal/application"
)

// cli holds the state shared by every subcommand.
type cli struct {
	verbose bool
	config  string
	timeout time.Duration
	logger  *zap.Logger
	loader  *application.ConfigLoader
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "bracket",
		Short: "Rank items with a sub-quadratic elimination tournament",
		Long: `bracket ranks a list of items by putting small matchups to a judge.

Items are read one per line. The judge may be an LLM, a person at the
terminal, or a deterministic comparator, and is configured in YAML.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if c.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&c.config, "config", "c", "", "Tournament configuration file (YAML)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Minute, "Operation timeout")

	root.AddCommand(newRankCmd(c), newBenchCmd(c), newJudgesCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
