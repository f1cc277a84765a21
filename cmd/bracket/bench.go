package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-bracket/infrastructure/judges"
	"github.com/ahrav/go-bracket/internal/application"
	"github.com/ahrav/go-bracket/internal/domain"
)

func newBenchCmd(c *cli) *cobra.Command {
	cfg := application.DefaultBenchConfig()
	var strategy, direction, bias string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure how many matchups tournaments need with a random judge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg.Strategy, err = domain.ParseStrategy(strategy); err != nil {
				return err
			}
			if cfg.Direction, err = domain.ParseDirection(direction); err != nil {
				return err
			}
			if cfg.Bias, err = judges.ParseBias(bias); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			summary, err := application.RunBench(ctx, cfg, c.logger, nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}

	f := cmd.Flags()
	f.IntVarP(&cfg.Items, "items", "n", cfg.Items, "Number of items per tournament")
	f.IntVarP(&cfg.Iterations, "iterations", "i", cfg.Iterations, "Number of tournaments to run")
	f.IntVar(&cfg.MatchupSize, "size", cfg.MatchupSize, "Candidates per matchup")
	f.StringVar(&strategy, "strategy", string(cfg.Strategy), "Outcome strategy: winner, pick or order")
	f.StringVar(&direction, "direction", cfg.Direction.String(), "highest_first or lowest_first")
	f.StringVar(&bias, "bias", string(cfg.Bias), "Judge bias: none, strongest or weakest")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Base seed for shuffles and judges")
	f.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Tournaments run at once")
	return cmd
}
