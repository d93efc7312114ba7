package ode

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decay(k float64) System {
	return func(t float64, y, dydt []float64) {
		for i := range y {
			dydt[i] = -k * y[i]
		}
	}
}

func TestRK45_ExponentialDecay_MatchesClosedForm(t *testing.T) {
	// GIVEN 100 units decaying at rate 1
	r := NewRK45(DefaultSettings())
	y := []float64{100}

	// WHEN integrated over one time unit
	status, err := r.Integrate(decay(1), y, 0, 1)

	// THEN the result is 100*exp(-1)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.InDelta(t, 100*math.Exp(-1), y[0], 1e-6)
}

func TestRK45_ConsecutiveCalls_MatchSingleCall(t *testing.T) {
	// GIVEN two integrators over the same system
	single := NewRK45(DefaultSettings())
	split := NewRK45(DefaultSettings())
	a := []float64{10, 3}
	b := []float64{10, 3}

	// WHEN one covers [0,4] at once and the other in four pieces
	_, err := single.Integrate(decay(0.3), a, 0, 4)
	require.NoError(t, err)
	for tt := 0.0; tt < 4; tt++ {
		_, err := split.Integrate(decay(0.3), b, tt, tt+1)
		require.NoError(t, err)
	}

	// THEN both land on the same values
	for i := range a {
		assert.InDelta(t, a[i], b[i], 1e-6)
	}
}

func TestRK45_EmptyInterval_LeavesStateUntouched(t *testing.T) {
	r := NewRK45(DefaultSettings())
	y := []float64{5}
	status, err := r.Integrate(decay(1), y, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, 5.0, y[0])
}

func TestRK45_BackwardInterval_IllegalInput(t *testing.T) {
	r := NewRK45(DefaultSettings())
	status, err := r.Integrate(decay(1), []float64{1}, 2, 1)
	assert.Equal(t, StatusIllegalInput, status)
	assert.True(t, errors.Is(err, ErrIntegration))
}

func TestRK45_MaxStepsExceeded_ReportsSettings(t *testing.T) {
	// GIVEN a stiff system and a tiny step budget
	s := DefaultSettings()
	s.MaxSteps = 3
	r := NewRK45(s)

	// WHEN integrated over a long interval
	status, err := r.Integrate(decay(1000), []float64{1}, 0, 100)

	// THEN a negative status carries the tolerances and step budget
	assert.Equal(t, StatusTooMuchWork, status)
	var ierr *Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, 3, ierr.MaxSteps)
	assert.Equal(t, s.RelTol, ierr.RelTol)
	assert.Less(t, int(ierr.Status), 0)
}

func TestRK45_NonFiniteDerivative_Fails(t *testing.T) {
	r := NewRK45(DefaultSettings())
	bad := func(t float64, y, dydt []float64) { dydt[0] = math.NaN() }
	status, err := r.Integrate(bad, []float64{1}, 0, 1)
	assert.Equal(t, StatusNonFinite, status)
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"zero rtol", func(s *Settings) { s.RelTol = 0 }, true},
		{"zero maxsteps", func(s *Settings) { s.MaxSteps = 0 }, true},
		{"negative hmax", func(s *Settings) { s.MaxStep = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			if tt.wantErr {
				assert.Error(t, s.Validate())
			} else {
				assert.NoError(t, s.Validate())
			}
		})
	}
}
