package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignif(t *testing.T) {
	tests := []struct {
		x      float64
		digits int
		want   float64
	}{
		{36.787944, 3, 36.8},
		{0.00123456, 2, 0.0012},
		{2.5, 1, 3},
		{-2.5, 1, -3},
		{123456, 2, 120000},
		{1.0, 5, 1.0},
		{42, 0, 42},
		{0, 3, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Signif(tt.x, tt.digits), "Signif(%g, %d)", tt.x, tt.digits)
	}
}

func TestSignif_NonFinitePassThrough(t *testing.T) {
	assert.True(t, math.IsNaN(Signif(math.NaN(), 3)))
	assert.True(t, math.IsInf(Signif(math.Inf(1), 3), 1))
}

func TestTable_RoundSignificant_SkipsLeadingColumns(t *testing.T) {
	// GIVEN a table whose outputs start at column 2
	table := NewTable([]string{"ID", "time", "CENT"}, 1)
	table.RequestStart = 2
	table.Set(0, 0, 1)
	table.Set(0, 1, 1.23456)
	table.Set(0, 2, 9.87654)

	// WHEN rounded to 2 digits
	table.RoundSignificant(2)

	// THEN only the output column changes
	assert.Equal(t, []float64{1, 1.23456, 9.9}, table.Row(0))
}

func TestTable_Column(t *testing.T) {
	table := NewTable([]string{"ID", "time"}, 2)
	table.Set(0, 1, 0.5)
	table.Set(1, 1, 1.5)
	table.ScaleTime(2)

	col, err := table.Column("time")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, col)

	_, err = table.Column("DV")
	assert.Error(t, err)
	assert.Equal(t, 2, table.NCol())
}
