package main

import (
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/sbi-core/internal/task"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Generate observations and reference posterior samples into a store",
		Long: `For each observation number, draw the true parameters from the prior,
simulate the observation and sample its reference posterior, then save all
three to the SQLite store. Observation k is seeded deterministically, so
re-running setup reproduces the same data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			workers, _ := cmd.Flags().GetInt("workers")
			samples, _ := cmd.Flags().GetInt("num-samples")
			nums, _ := cmd.Flags().GetIntSlice("observations")

			db, err := openDB(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			tk, cfg, err := buildTask(cmd, db)
			if err != nil {
				return err
			}
			if workers == 0 {
				workers = cfg.Sampling.Workers
			}
			results, err := tk.Setup(cmd.Context(), db, task.SetupOptions{
				Observations:        nums,
				NumReferenceSamples: samples,
				MaxAttempts:         cfg.Sampling.MaxAttempts,
				Workers:             workers,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, results)
		},
	}
	cmd.Flags().String("db", "", "SQLite observation store (created if missing)")
	cmd.Flags().Int("workers", 0, "parallel observations (config default when 0)")
	cmd.Flags().IntP("num-samples", "n", 0, "reference samples per observation (task default when 0)")
	cmd.Flags().IntSlice("observations", nil, "observation numbers to generate (default 1..10)")
	return cmd
}
