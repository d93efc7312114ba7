package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	return NewState((&testModel{}).Spec())
}

func TestState_RateAddRemove_NeverNegative(t *testing.T) {
	s := newTestState()
	s.rateAdd(1, 10)
	s.rateAdd(1, 5)
	assert.Equal(t, 15.0, s.R0[1])
	assert.Equal(t, 2, s.Infusions(1))

	s.rateRemove(1, 10)
	assert.Equal(t, 5.0, s.R0[1])

	// removing more than was added clamps to zero
	s.rateRemove(1, 7)
	s.rateRemove(1, 7)
	assert.Equal(t, 0.0, s.R0[1])
	assert.Equal(t, 0, s.Infusions(1))
}

func TestState_TurnOff_ZeroesAndBlocksAmounts(t *testing.T) {
	s := newTestState()
	s.Y[1] = 40

	require.NoError(t, s.turnOff(1))

	assert.Equal(t, 0.0, s.Y[1])
	assert.ErrorIs(t, s.SetAmount(1, 3), ErrCompartmentOff)
	assert.NoError(t, s.SetAmount(1, 0))
	s.turnOn(1)
	assert.NoError(t, s.SetAmount(1, 3))
	assert.Equal(t, 3.0, s.Y[1])
}

func TestState_TurnOff_FailsWithActiveInfusion(t *testing.T) {
	s := newTestState()
	s.rateAdd(0, 2)

	assert.ErrorIs(t, s.turnOff(0), ErrInfusionActive)
	assert.True(t, s.On[0])
}

func TestState_ResetSubject_ClearsEverything(t *testing.T) {
	// GIVEN a state left over from a previous subject
	spec := (&testModel{}).Spec()
	s := NewState(spec)
	s.Y[1] = 9
	s.Param[pCL] = 42
	s.F[1] = 0.2
	s.rateAdd(1, 3)
	require.NoError(t, s.turnOff(0))

	// WHEN reset for a new subject
	s.resetSubject(spec)

	// THEN nothing carries over
	assert.Equal(t, []float64{0, 0}, s.Y)
	assert.Equal(t, spec.Defaults, s.Param)
	assert.Equal(t, []float64{1, 1}, s.F)
	assert.Equal(t, []float64{0, 0}, s.R0)
	assert.Equal(t, []bool{true, true}, s.On)
}

func TestState_Derivs_AddsRatesAndMasksOff(t *testing.T) {
	s := newTestState()
	s.rateAdd(1, 4)
	dydt := make([]float64, 2)

	s.derivs(&testModel{})(0, []float64{0, 0}, dydt)
	assert.Equal(t, []float64{0, 4}, dydt)

	s.rateRemove(1, 4)
	require.NoError(t, s.turnOff(1))
	s.derivs(&testModel{})(0, []float64{1, 0}, dydt)
	assert.Equal(t, []float64{-1, 0}, dydt)
}
