package utils

import (
	"errors"
	"math"
	"testing"

	"github.com/montanaflynn/stats"
)

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if s.Mean != 3 {
		t.Errorf("Mean = %f, want 3", s.Mean)
	}
	if s.Median != 3 {
		t.Errorf("Median = %f, want 3", s.Median)
	}
	if s.Min != 1 || s.Max != 5 {
		t.Errorf("Min/Max = %f/%f, want 1/5", s.Min, s.Max)
	}
	// sample std dev of 1..5 is sqrt(2.5)
	if math.Abs(s.StdDev-math.Sqrt(2.5)) > 1e-12 {
		t.Errorf("StdDev = %f, want %f", s.StdDev, math.Sqrt(2.5))
	}
	if s.P05 != 1 {
		t.Errorf("P05 = %f, want 1", s.P05)
	}
	if s.P95 != 5 {
		t.Errorf("P95 = %f, want 5", s.P95)
	}
}

func TestSummarizeSingleValue(t *testing.T) {
	s, err := Summarize([]float64{4.2})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if s.StdDev != 0 {
		t.Errorf("StdDev = %f, want 0 for a single value", s.StdDev)
	}
	if s.Mean != 4.2 || s.P05 != 4.2 || s.P95 != 4.2 {
		t.Errorf("unexpected summary for single value: %+v", s)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil)
	if !errors.Is(err, stats.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSummarizeColumns(t *testing.T) {
	rows := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	}
	out, err := SummarizeColumns(rows)
	if err != nil {
		t.Fatalf("SummarizeColumns error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(out))
	}
	if out[0].Mean != 2 || out[1].Mean != 20 {
		t.Errorf("unexpected means: %f, %f", out[0].Mean, out[1].Mean)
	}

	if _, err := SummarizeColumns([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("expected error for ragged rows")
	}
	if _, err := SummarizeColumns(nil); err == nil {
		t.Error("expected error for no rows")
	}
}
