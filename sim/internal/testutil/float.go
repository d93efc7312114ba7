// Package testutil provides shared assertion helpers for the simulator's
// test packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertAllNaN fails unless every value is NaN.
func AssertAllNaN(t *testing.T, name string, values []float64) {
	t.Helper()
	for i, v := range values {
		if !math.IsNaN(v) {
			t.Errorf("%s[%d]: got %v, want NaN", name, i, v)
		}
	}
}
