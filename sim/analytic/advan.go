package analytic

import (
	"fmt"
	"math"
)

// Params holds the closed-form model parameters. Models fill the ones
// their compartment layout needs: CL and V2 always, KA when a depot is
// present, Q and V3 for two-compartment models.
type Params struct {
	CL float64
	V2 float64
	KA float64
	Q  float64
	V3 float64
}

// Advan2 advances a one-compartment model by dt in place.
//
// y and r0 hold compartment amounts and zero-order input rates. With one
// compartment, y[0] is central. With two, y[0] is the depot and y[1] is
// central. Input rates are held constant across the step.
func Advan2(y, r0 []float64, p Params, dt float64) error {
	if p.CL <= 0 || p.V2 <= 0 {
		return fmt.Errorf("%w: one-compartment model needs CL > 0 and V2 > 0 (CL=%g, V2=%g)",
			ErrNonPositiveParameter, p.CL, p.V2)
	}
	depot, central := -1, 0
	switch len(y) {
	case 1:
	case 2:
		depot, central = 0, 1
	default:
		return fmt.Errorf("analytic: one-compartment model expects 1 or 2 compartments, got %d", len(y))
	}
	if len(r0) < len(y) {
		return fmt.Errorf("analytic: %d input rates for %d compartments", len(r0), len(y))
	}

	k10 := p.CL / p.V2
	ka := p.KA

	c, err := PolyExp(dt, y[central], r0[central], dt, 0, false, []float64{1}, []float64{k10})
	if err != nil {
		return err
	}
	if depot < 0 {
		y[central] = c
		return nil
	}

	d0, dr := y[depot], r0[depot]
	var d float64
	switch {
	case ka <= 0:
		d = d0 + dr*dt
	case d0 == 0 && dr == 0:
	default:
		if ka == k10 {
			return fmt.Errorf("%w: KA=%g, K10=%g", ErrCoincidentRates, ka, k10)
		}
		if d, err = PolyExp(dt, d0, dr, dt, 0, false, []float64{1}, []float64{ka}); err != nil {
			return err
		}
		a0 := ka / (ka - k10)
		fromDepot, err := PolyExp(dt, d0, dr, dt, 0, false, []float64{a0, -a0}, []float64{k10, ka})
		if err != nil {
			return err
		}
		c += fromDepot
	}
	y[depot] = d
	y[central] = c
	return nil
}

// Advan4 advances a two-compartment model by dt in place.
//
// With two compartments y is (central, peripheral). With three it is
// (depot, central, peripheral).
func Advan4(y, r0 []float64, p Params, dt float64) error {
	if p.V2 <= 0 || p.V3 <= 0 || p.Q < 0 || p.CL <= 0 {
		return fmt.Errorf("%w: two-compartment model needs CL > 0, V2 > 0, V3 > 0, Q >= 0 (CL=%g, V2=%g, Q=%g, V3=%g)",
			ErrNonPositiveParameter, p.CL, p.V2, p.Q, p.V3)
	}
	depot, central, periph := -1, 0, 1
	switch len(y) {
	case 2:
	case 3:
		depot, central, periph = 0, 1, 2
	default:
		return fmt.Errorf("analytic: two-compartment model expects 2 or 3 compartments, got %d", len(y))
	}
	if len(r0) < len(y) {
		return fmt.Errorf("analytic: %d input rates for %d compartments", len(r0), len(y))
	}

	k10 := p.CL / p.V2
	k12 := p.Q / p.V2
	k21 := p.Q / p.V3
	ksum := k10 + k12 + k21
	disc := math.Sqrt(ksum*ksum - 4*k10*k21)
	l1 := (ksum + disc) / 2
	l2 := (ksum - disc) / 2
	lambda := []float64{l1, l2}

	step := func(dose, rate float64, a []float64, alpha []float64) (float64, error) {
		return PolyExp(dt, dose, rate, dt, 0, false, a, alpha)
	}

	c0, cr := y[central], r0[central]
	p0, pr := y[periph], r0[periph]

	cc, err := step(c0, cr, []float64{(k21 - l1) / (l2 - l1), (k21 - l2) / (l1 - l2)}, lambda)
	if err != nil {
		return err
	}
	pc, err := step(p0, pr, []float64{-k21 / (l1 - l2), k21 / (l1 - l2)}, lambda)
	if err != nil {
		return err
	}
	cp, err := step(c0, cr, []float64{-k12 / (l1 - l2), k12 / (l1 - l2)}, lambda)
	if err != nil {
		return err
	}
	e1 := k10 + k12
	pp, err := step(p0, pr, []float64{(e1 - l1) / (l2 - l1), (e1 - l2) / (l1 - l2)}, lambda)
	if err != nil {
		return err
	}
	newC, newP := cc+pc, cp+pp

	if depot >= 0 {
		ka := p.KA
		d0, dr := y[depot], r0[depot]
		var d float64
		switch {
		case ka <= 0:
			d = d0 + dr*dt
		case d0 == 0 && dr == 0:
		default:
			if ka == l1 || ka == l2 {
				return fmt.Errorf("%w: KA=%g, alpha=%g, beta=%g", ErrCoincidentRates, ka, l1, l2)
			}
			alpha := []float64{l1, l2, ka}
			if d, err = step(d0, dr, []float64{1}, []float64{ka}); err != nil {
				return err
			}
			ac := make([]float64, 3)
			ap := make([]float64, 3)
			for j := range alpha {
				denom := 1.0
				for k := range alpha {
					if k != j {
						denom *= alpha[k] - alpha[j]
					}
				}
				ac[j] = ka * (k21 - alpha[j]) / denom
				ap[j] = ka * k12 / denom
			}
			fc, err := step(d0, dr, ac, alpha)
			if err != nil {
				return err
			}
			fp, err := step(d0, dr, ap, alpha)
			if err != nil {
				return err
			}
			newC += fc
			newP += fp
		}
		y[depot] = d
	}
	y[central] = newC
	y[periph] = newP
	return nil
}
