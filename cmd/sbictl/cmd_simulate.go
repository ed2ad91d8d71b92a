package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/sbi-core/internal/simd"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate one observation per parameter vector",
		Example: `  sbictl simulate --theta 1,2 --theta -3,0.5 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetStringArray("theta")
			if len(raw) == 0 {
				return fmt.Errorf("at least one --theta is required")
			}
			rows := make([][]float64, len(raw))
			for i, s := range raw {
				row, err := parseVector(s)
				if err != nil {
					return fmt.Errorf("--theta %q: %w", s, err)
				}
				rows[i] = row
			}

			tk, cfg, err := buildTask(cmd, nil)
			if err != nil {
				return err
			}
			svc := simd.NewService(tk, simd.ServiceOptions{MaxSamples: cfg.Sampling.MaxSamples})
			resp, err := svc.Simulate(cmd.Context(), simd.SimulateRequest{Parameters: rows, Seed: seedFlag(cmd)})
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}
	cmd.Flags().StringArray("theta", nil, "comma-separated parameter vector (repeatable)")
	cmd.Flags().Int64("seed", 0, "random seed (time-based when omitted)")
	return cmd
}

// parseVector parses "1,2.5,-3" into a vector.
func parseVector(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, fmt.Errorf("empty value")
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
