package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/llxisdsh/fastrlock/internal/bench"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark",
		Long: `Run every workload against every selected lock, first sequentially
and then from --threads goroutines at once. Each cell is timed
--rounds times and the slowest round is reported.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, v)
		},
	}

	defaults := bench.DefaultConfig()
	cmd.Flags().StringSlice("lock", nil, "locks to test (default all; see list)")
	cmd.Flags().StringSlice("workload", nil, "workloads to run (default all; see list)")
	cmd.Flags().Int("repeat", defaults.Repeat, "sequential iterations per round")
	cmd.Flags().Int("repeat-threaded", defaults.RepeatThreaded, "threaded iterations per round")
	cmd.Flags().Int("threads", defaults.Threads, "goroutines per threaded iteration")
	cmd.Flags().Int("rounds", defaults.Rounds, "timed rounds per cell")
	cmd.Flags().CountP("quick", "q", "shorten the run; repeat for shorter")
	cmd.Flags().String("csv", "", "optional path to save results as CSV")
	cmd.Flags().Bool("metrics", false, "print round durations in Prometheus text format")
	cmd.Flags().Bool("summary", false, "print per-cell round timer statistics")
	return cmd
}

// configFromViper assembles the runner config from flags and environment.
func configFromViper(v *viper.Viper) bench.Config {
	cfg := bench.DefaultConfig()
	if locks := splitList(v.GetStringSlice("lock")); len(locks) > 0 {
		cfg.Locks = locks
	}
	cfg.Workloads = splitList(v.GetStringSlice("workload"))
	cfg.Repeat = v.GetInt("repeat")
	cfg.RepeatThreaded = v.GetInt("repeat-threaded")
	cfg.Threads = v.GetInt("threads")
	cfg.Rounds = v.GetInt("rounds")
	return cfg.Quick(v.GetInt("quick"))
}

func runBench(cmd *cobra.Command, v *viper.Viper) error {
	level, err := bench.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	log := bench.NewLogger("lockbench", level, out)

	cfg := configFromViper(v)
	r, err := bench.NewRunner(cfg, log)
	if err != nil {
		return err
	}
	log.Debugf("config: %+v", cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	results, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	if path := v.GetString("csv"); path != "" {
		log.Infof("Exporting results to CSV: %s", path)
		if err := bench.WriteCSV(path, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
	}
	if v.GetBool("metrics") {
		r.WriteMetrics(out)
	}
	if v.GetBool("summary") {
		r.WriteSummary(out)
	}
	return nil
}
