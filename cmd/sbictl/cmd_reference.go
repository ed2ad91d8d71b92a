package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/sbi-core/internal/simd"
	"github.com/GoSim-25-26J-441/sbi-core/internal/task"
)

func newReferenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Draw reference posterior samples by rejection sampling",
		Long: `Draw reference posterior samples for either a literal observation
(--observation) or a stored one (--num-observation with --db). Exactly one
of the two must be given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("num-samples")
			obsRaw, _ := cmd.Flags().GetString("observation")
			num, _ := cmd.Flags().GetInt("num-observation")
			dbPath, _ := cmd.Flags().GetString("db")
			maxAttempts, _ := cmd.Flags().GetInt("max-attempts")

			req := simd.ReferenceRequest{
				NumSamples:  n,
				Seed:        seedFlag(cmd),
				MaxAttempts: maxAttempts,
			}
			if cmd.Flags().Changed("observation") {
				obs, err := parseVector(obsRaw)
				if err != nil {
					return fmt.Errorf("--observation %q: %w", obsRaw, err)
				}
				req.Observation = obs
			}
			if cmd.Flags().Changed("num-observation") {
				req.NumObservation = &num
			}

			var src task.ObservationSource
			if dbPath != "" {
				db, err := openDB(cmd.Context(), dbPath)
				if err != nil {
					return err
				}
				defer db.Close()
				src = db
			}

			tk, cfg, err := buildTask(cmd, src)
			if err != nil {
				return err
			}
			if req.MaxAttempts == 0 {
				req.MaxAttempts = cfg.Sampling.MaxAttempts
			}
			timeout, err := cfg.Sampling.GetTimeout()
			if err != nil {
				return err
			}
			svc := simd.NewService(tk, simd.ServiceOptions{Timeout: timeout, MaxSamples: cfg.Sampling.MaxSamples})
			resp, err := svc.SampleReference(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}
	cmd.Flags().IntP("num-samples", "n", 10_000, "number of posterior samples")
	cmd.Flags().String("observation", "", "comma-separated observation vector")
	cmd.Flags().Int("num-observation", 0, "stored observation number (needs --db)")
	cmd.Flags().String("db", "", "SQLite observation store")
	cmd.Flags().Int("max-attempts", 0, "rejection attempt cap (config default when 0)")
	cmd.Flags().Int64("seed", 0, "random seed (time-based when omitted)")
	return cmd
}
