package main

import (
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/sbi-core/internal/simd"
)

func newPriorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prior",
		Short: "Draw parameter vectors from the uniform prior",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("num-samples")

			tk, cfg, err := buildTask(cmd, nil)
			if err != nil {
				return err
			}
			svc := simd.NewService(tk, simd.ServiceOptions{MaxSamples: cfg.Sampling.MaxSamples})
			resp, err := svc.SamplePrior(cmd.Context(), simd.PriorRequest{NumSamples: n, Seed: seedFlag(cmd)})
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}
	cmd.Flags().IntP("num-samples", "n", 1, "number of samples")
	cmd.Flags().Int64("seed", 0, "random seed (time-based when omitted)")
	return cmd
}
