package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/sbi-core/internal/store"
	"github.com/GoSim-25-26J-441/sbi-core/internal/task"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/config"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/logger"
)

func main() {
	rootCmd := newRootCmd()
	rootCmd.AddCommand(
		newPriorCmd(),
		newSimulateCmd(),
		newReferenceCmd(),
		newSetupCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sbictl",
		Short: "Gaussian mixture benchmark task from the command line",
		Long: `sbictl samples the prior, runs the simulator, draws reference posterior
samples and generates stored observations for the Gaussian mixture task.

All results are written to stdout as JSON. Logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "YAML config file (defaults built in)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("dim", 0, "parameter and data dimension (overrides config)")
	rootCmd.PersistentFlags().Float64("prior-bound", 0, "half-width of the uniform prior (overrides config)")
	return rootCmd
}

// loadConfig reads the --config file, an optional .env in the working
// directory and SBI_* variables, then applies the --dim and --prior-bound overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	dim, _ := cmd.Flags().GetInt("dim")
	bound, _ := cmd.Flags().GetFloat64("prior-bound")

	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if dim != 0 {
		cfg.Task.Dim = dim
	}
	if bound != 0 {
		cfg.Task.PriorBound = bound
	}
	return cfg, nil
}

// buildTask creates the task described by the global flags. src may be nil
// when no stored observations are needed.
func buildTask(cmd *cobra.Command, src task.ObservationSource) (*task.Task, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	level, _ := cmd.Flags().GetString("log-level")
	log := logger.NewText(level, cmd.ErrOrStderr()).With("task", task.Name)

	opts := []task.Option{
		task.WithDim(cfg.Task.Dim),
		task.WithPriorBound(cfg.Task.PriorBound),
		task.WithLogger(log),
	}
	if src != nil {
		opts = append(opts, task.WithObservationSource(src))
	}
	if m := cfg.Task.Mixture; m != nil {
		opts = append(opts, task.WithMixture(m.LocsFactor, m.Scales, m.Weights))
	}
	if cfg.Sampling.Seed != 0 {
		opts = append(opts, task.WithObservationSeed(cfg.Sampling.Seed))
	}
	tk, err := task.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return tk, cfg, nil
}

// openDB opens the SQLite observation store at path.
func openDB(ctx context.Context, path string) (*store.SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("--db is required")
	}
	db, err := store.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

// seedFlag returns the --seed value, or nil when the flag was not given.
func seedFlag(cmd *cobra.Command) *int64 {
	if !cmd.Flags().Changed("seed") {
		return nil
	}
	seed, _ := cmd.Flags().GetInt64("seed")
	return &seed
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
