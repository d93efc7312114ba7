package randfx

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

var (
	// ErrNotSquare is returned for a covariance matrix with ragged or
	// non-square rows.
	ErrNotSquare = errors.New("covariance matrix must be square")
	// ErrNotPositiveDefinite is returned when a non-zero covariance
	// matrix has no Cholesky factorization.
	ErrNotPositiveDefinite = errors.New("covariance matrix is not positive definite")
)

// Generator draws zero-mean multivariate normal vectors. A zero matrix
// yields zero vectors without consuming randomness.
type Generator struct {
	dim  int
	dist *distmv.Normal
}

// NewGenerator builds a Generator for the covariance matrix cov using src.
// An empty matrix gives a zero-dimension generator.
func NewGenerator(cov [][]float64, src rand.Source) (*Generator, error) {
	n := len(cov)
	zero := true
	data := make([]float64, 0, n*n)
	for i, row := range cov {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrNotSquare, i, len(row), n)
		}
		for _, v := range row {
			if v != 0 {
				zero = false
			}
		}
		data = append(data, row...)
	}
	g := &Generator{dim: n}
	if n == 0 || zero {
		return g, nil
	}
	sym := mat.NewSymDense(n, data)
	dist, ok := distmv.NewNormal(make([]float64, n), sym, src)
	if !ok {
		return nil, ErrNotPositiveDefinite
	}
	g.dist = dist
	return g, nil
}

// Dim returns the length of each drawn vector.
func (g *Generator) Dim() int {
	return g.dim
}

// Draw returns n vectors.
func (g *Generator) Draw(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, g.dim)
		if g.dist != nil {
			g.dist.Rand(out[i])
		}
	}
	return out
}

// Draws holds one run's random effects.
type Draws struct {
	ETA [][]float64
	EPS [][]float64
}

// Population draws nsubj ETA vectors from omega and nrow EPS vectors from
// sigma using independent streams of rng.
func Population(rng *PartitionedRNG, omega, sigma [][]float64, nsubj, nrow int) (Draws, error) {
	eta, err := NewGenerator(omega, rng.ForStream(StreamETA))
	if err != nil {
		return Draws{}, fmt.Errorf("omega: %w", err)
	}
	eps, err := NewGenerator(sigma, rng.ForStream(StreamEPS))
	if err != nil {
		return Draws{}, fmt.Errorf("sigma: %w", err)
	}
	return Draws{ETA: eta.Draw(nsubj), EPS: eps.Draw(nrow)}, nil
}
