package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-bracket/infrastructure/llm"
	"github.com/ahrav/go-bracket/infrastructure/middleware"
	"github.com/ahrav/go-bracket/internal/application"
)

type rankOptions struct {
	scores     bool
	metricsOut string
}

func newRankCmd(c *cli) *cobra.Command {
	var opts rankOptions
	cmd := &cobra.Command{
		Use:   "rank [file]",
		Short: "Rank the lines of a file, or of stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, c, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.scores, "scores", false, "Print position and score next to each item")
	cmd.Flags().StringVar(&opts.metricsOut, "metrics-out", "", "Write Prometheus metrics to this file when done")
	return cmd
}

func runRank(cmd *cobra.Command, c *cli, opts rankOptions, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	config, err := c.loadConfig(ctx)
	if err != nil {
		return err
	}

	fromStdin := len(args) == 0 || args[0] == "-"
	if fromStdin && config.Judge.Type == "interactive" {
		return fmt.Errorf("the interactive judge reads answers from stdin; pass the items as a file")
	}
	items, err := readItems(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(registry)
	deps := application.JudgeDeps{
		In:      cmd.InOrStdin(),
		Out:     cmd.ErrOrStderr(),
		Metrics: metrics,
	}
	if config.Judge.Type == "llm" {
		client, err := llm.NewClientFromEnv(config.Judge.Model, c.timeout)
		if err != nil {
			return err
		}
		deps.LLMClient = client
	}

	ranker, err := application.NewRanker(config, nil, deps, c.logger)
	if err != nil {
		return err
	}
	report, err := ranker.Rank(ctx, items)
	if err != nil {
		return err
	}

	c.logger.Info("Ranked items",
		zap.Int("items", len(items)),
		zap.Int("matchups", report.Matchups),
		zap.Int("reprompts", report.Reprompts),
		zap.Duration("duration", report.Duration))

	if opts.metricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.metricsOut, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return printReport(cmd.OutOrStdout(), report, opts.scores)
}

// loadConfig reads the configured file, or returns the default
// configuration when no file is set. One loader serves every load so its
// cache is shared.
func (c *cli) loadConfig(ctx context.Context) (*application.TournamentConfig, error) {
	if c.config == "" {
		return application.DefaultTournamentConfig(), nil
	}
	if c.loader == nil {
		loader, err := application.NewConfigLoader()
		if err != nil {
			return nil, err
		}
		c.loader = loader
	}
	return c.loader.LoadFromFile(ctx, c.config)
}

// readItems returns the non-blank lines of the named file, or of stdin.
func readItems(stdin io.Reader, args []string) ([]string, error) {
	r := stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			return nil, fmt.Errorf("failed to open items: %w", err)
		}
		defer f.Close()
		r = f
	}

	var items []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	return items, nil
}

func printReport(w io.Writer, report *application.Report[string], scores bool) error {
	if !scores {
		for _, item := range report.Ranking {
			if _, err := fmt.Fprintln(w, item); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POSITION\tSCORE\tITEM")
	for _, s := range report.Standings {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", s.Position, s.Score, s.Payload)
	}
	fmt.Fprintf(tw, "\n%d matchups in %v\n", report.Matchups, report.Duration.Round(time.Millisecond))
	return tw.Flush()
}
