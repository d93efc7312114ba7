package randfx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// GIVEN two generators built from the same key
	a := NewPartitionedRNG(NewSimulationKey(42))
	b := NewPartitionedRNG(NewSimulationKey(42))

	// WHEN drawing from the same stream
	// THEN the sequences are identical
	for i := 0; i < 3; i++ {
		assert.Equal(t, a.ForStream(StreamETA).Float64(), b.ForStream(StreamETA).Float64())
	}
	assert.Equal(t, SimulationKey(42), a.Key())
}

func TestPartitionedRNG_StreamIsolation(t *testing.T) {
	// GIVEN one generator that draws ETAs first and one that does not
	a := NewPartitionedRNG(NewSimulationKey(7))
	b := NewPartitionedRNG(NewSimulationKey(7))
	for i := 0; i < 10; i++ {
		a.ForStream(StreamETA).Float64()
	}

	// WHEN both draw their first EPS value
	// THEN the ETA draws did not shift the EPS stream
	assert.Equal(t, b.ForStream(StreamEPS).Float64(), a.ForStream(StreamEPS).Float64())
}

func TestPartitionedRNG_StreamCached(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(1))
	assert.Same(t, p.ForStream(StreamEPS), p.ForStream(StreamEPS))
}

func TestNewGenerator_ZeroMatrix_DrawsZeros(t *testing.T) {
	g, err := NewGenerator([][]float64{{0, 0}, {0, 0}}, NewPartitionedRNG(1).ForStream(StreamETA))
	require.NoError(t, err)

	draws := g.Draw(3)

	assert.Equal(t, [][]float64{{0, 0}, {0, 0}, {0, 0}}, draws)
}

func TestNewGenerator_EmptyMatrix_DrawsEmptyVectors(t *testing.T) {
	g, err := NewGenerator(nil, NewPartitionedRNG(1).ForStream(StreamETA))
	require.NoError(t, err)

	assert.Equal(t, 0, g.Dim())
	assert.Len(t, g.Draw(2), 2)
	assert.Empty(t, g.Draw(1)[0])
}

func TestNewGenerator_InvalidMatrix(t *testing.T) {
	src := NewPartitionedRNG(1).ForStream(StreamETA)

	_, err := NewGenerator([][]float64{{1, 0}, {0}}, src)
	assert.ErrorIs(t, err, ErrNotSquare)

	_, err = NewGenerator([][]float64{{1, 2}, {2, 1}}, src)
	assert.ErrorIs(t, err, ErrNotPositiveDefinite)
}

func TestGenerator_SampleCovarianceMatchesMatrix(t *testing.T) {
	// GIVEN a correlated 2x2 covariance
	cov := [][]float64{{0.09, 0.03}, {0.03, 0.04}}
	g, err := NewGenerator(cov, NewPartitionedRNG(2024).ForStream(StreamETA))
	require.NoError(t, err)

	// WHEN many vectors are drawn
	const n = 20000
	draws := g.Draw(n)

	// THEN the sample moments approach the requested ones
	var m0, m1, s00, s01, s11 float64
	for _, d := range draws {
		m0 += d[0]
		m1 += d[1]
		s00 += d[0] * d[0]
		s01 += d[0] * d[1]
		s11 += d[1] * d[1]
	}
	assert.InDelta(t, 0, m0/n, 0.01)
	assert.InDelta(t, 0, m1/n, 0.01)
	assert.InDelta(t, 0.09, s00/n, 0.005)
	assert.InDelta(t, 0.03, s01/n, 0.005)
	assert.InDelta(t, 0.04, s11/n, 0.005)
}

func TestPopulation_ShapesAndReproducibility(t *testing.T) {
	omega := [][]float64{{0.1}}
	sigma := [][]float64{{0.01, 0}, {0, 0.02}}

	a, err := Population(NewPartitionedRNG(5), omega, sigma, 3, 7)
	require.NoError(t, err)
	b, err := Population(NewPartitionedRNG(5), omega, sigma, 3, 7)
	require.NoError(t, err)

	assert.Len(t, a.ETA, 3)
	assert.Len(t, a.EPS, 7)
	assert.Len(t, a.EPS[0], 2)
	assert.Equal(t, a, b)
	for _, v := range a.ETA {
		assert.False(t, math.IsNaN(v[0]))
	}
}

func TestPopulation_BadSigma_Named(t *testing.T) {
	_, err := Population(NewPartitionedRNG(5), nil, [][]float64{{-1}}, 1, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sigma")
}
