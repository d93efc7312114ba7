package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// steadyState replaces the subject's amounts with the state reached just
// before dose after an infinite history of identical doses every dose.II.
// With ss == 2 the result is added to the current amounts instead, and
// infusions running before the dose keep running afterwards; with ss == 1
// they are stopped.
//
// The history is simulated cycle by cycle with the active advancer until
// the tracked compartments stop changing. Continuous infusions (rate > 0,
// ii == 0) run in fixed windows with the infusion left on.
func (r *subjectRun) steadyState(dose *EventRecord, f float64) error {
	s := r.state
	cfg := r.sim.cfg.SteadyState
	eq := dose.Compartment()

	var saved []float64
	var rates rateSnapshot
	if dose.SS == 2 {
		saved = append([]float64(nil), s.Y...)
		rates = s.saveRates()
	}
	for i := range s.Y {
		s.Y[i] = 0
	}
	s.resetRates()
	r.ctx.SSFlag = true
	r.adv.Reset()
	defer func() {
		r.ctx.SSFlag = false
		r.adv.Reset()
	}()

	continuous := dose.Rate > 0 && dose.II <= 0
	var dur float64
	if dose.Rate > 0 && !continuous {
		dur = dose.Duration(f)
		if dur > dose.II {
			return fmt.Errorf("%w: duration %g, interval %g", ErrSteadyStateInfusion, dur, dose.II)
		}
	}
	if continuous {
		s.rateAdd(eq, dose.Rate)
	}

	prev := make([]float64, len(s.Y))
	converged := false
	cycles := 0
	for cycles < cfg.MaxIter {
		copy(prev, s.Y)
		var err error
		switch {
		case continuous:
			err = r.adv.Advance(s, 0, cfg.Window)
		case dose.Rate > 0:
			s.rateAdd(eq, dose.Rate)
			r.adv.Reset()
			if err = r.adv.Advance(s, 0, dur); err == nil {
				s.rateRemove(eq, dose.Rate)
				r.adv.Reset()
				err = r.adv.Advance(s, dur, dose.II)
			}
		default:
			s.Y[eq] += dose.Amt * f
			r.adv.Reset()
			err = r.adv.Advance(s, 0, dose.II)
		}
		if err != nil {
			return err
		}
		cycles++
		if cycles > 1 && r.steadyConverged(prev) {
			converged = true
			if !cfg.Fixed {
				break
			}
		}
	}
	if continuous {
		s.rateRemove(eq, dose.Rate)
	}
	if !converged && !cfg.Fixed {
		logrus.Warnf("[subject %g] steady state not reached after %d cycles at time %g (cmt %d)",
			dose.ID, cycles, dose.Time, dose.Cmt)
	}
	if dose.SS == 2 {
		for i, v := range saved {
			s.Y[i] += v
		}
		s.restoreRates(rates)
	}
	return nil
}

// steadyConverged compares the current amounts with prev on the tracked
// compartments.
func (r *subjectRun) steadyConverged(prev []float64) bool {
	cfg := r.sim.cfg.SteadyState
	y := r.state.Y
	check := func(i int) bool {
		return math.Abs(y[i]-prev[i]) <= cfg.RelTol*math.Abs(y[i])+cfg.AbsTol
	}
	if len(cfg.Compartments) > 0 {
		for _, c := range cfg.Compartments {
			if c >= 1 && c <= len(y) && !check(c-1) {
				return false
			}
		}
		return true
	}
	for i := range y {
		if !check(i) {
			return false
		}
	}
	return true
}
