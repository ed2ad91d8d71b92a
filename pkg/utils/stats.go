package utils

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Summary holds descriptive statistics for one dimension of a sample set.
type Summary struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Min    float64 `json:"min" yaml:"min"`
	P05    float64 `json:"p05" yaml:"p05"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95" yaml:"p95"`
	Max    float64 `json:"max" yaml:"max"`
}

// Summarize computes descriptive statistics for values.
// StdDev is the sample standard deviation and is zero for a single value.
func Summarize(values []float64) (Summary, error) {
	data := stats.Float64Data(values)
	if data.Len() == 0 {
		return Summary{}, fmt.Errorf("summarize: %w", stats.ErrEmptyInput)
	}

	var (
		s   Summary
		err error
	)
	if s.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, fmt.Errorf("summarize mean: %w", err)
	}
	if data.Len() > 1 {
		if s.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return Summary{}, fmt.Errorf("summarize std dev: %w", err)
		}
	}
	if s.Min, err = stats.Min(data); err != nil {
		return Summary{}, fmt.Errorf("summarize min: %w", err)
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Summary{}, fmt.Errorf("summarize max: %w", err)
	}
	if s.Median, err = stats.Median(data); err != nil {
		return Summary{}, fmt.Errorf("summarize median: %w", err)
	}
	if s.P05, err = stats.PercentileNearestRank(data, 5); err != nil {
		return Summary{}, fmt.Errorf("summarize p05: %w", err)
	}
	if s.P95, err = stats.PercentileNearestRank(data, 95); err != nil {
		return Summary{}, fmt.Errorf("summarize p95: %w", err)
	}
	return s, nil
}

// SummarizeColumns summarizes each column of a row-major sample set.
func SummarizeColumns(rows [][]float64) ([]Summary, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("summarize columns: %w", stats.ErrEmptyInput)
	}
	cols := len(rows[0])
	out := make([]Summary, cols)
	col := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, row := range rows {
			if len(row) != cols {
				return nil, fmt.Errorf("summarize columns: row %d has %d values, want %d", i, len(row), cols)
			}
			col[i] = row[j]
		}
		s, err := Summarize(col)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", j, err)
		}
		out[j] = s
	}
	return out, nil
}
