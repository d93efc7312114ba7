// Package analytic holds closed-form solutions for linear one- and
// two-compartment models, with or without a first-order absorption depot.
//
// The building block is PolyExp, which evaluates a sum of exponentials
// driven by a bolus, a zero-order input, or a repeating schedule of either.
// Advan2 and Advan4 combine PolyExp terms to advance compartment amounts
// over a time step without numerical integration.
package analytic

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors returned by the closed-form solvers.
var (
	// ErrInfusionDuration is returned when a repeating infusion has a
	// non-positive duration or a duration longer than its interval.
	ErrInfusionDuration = errors.New("analytic: infusion duration must be positive and no longer than the dosing interval")

	// ErrNonPositiveParameter is returned when a clearance, volume or rate
	// constant required by the closed form is out of range.
	ErrNonPositiveParameter = errors.New("analytic: parameter out of range")

	// ErrCoincidentRates is returned when absorption and elimination rate
	// constants are equal, which makes the depot coefficients singular.
	ErrCoincidentRates = errors.New("analytic: absorption rate equals an elimination rate")
)

// PolyExp evaluates the response at elapsed time x of a sum of exponentials
// sum_i a[i]*exp(-alpha[i]*t) driven by a dosing input.
//
// dose is a bolus amount at time zero. rate is a zero-order input lasting
// xinf time units (xinf >= +Inf means the input never stops). tau is the
// dosing interval; tau == 0 means a single administration, tau > 0 means the
// administration repeats every tau. ss selects the true steady-state
// solution for repeating schedules.
//
// a and alpha must have equal length; only the first len(a) terms are used.
func PolyExp(x, dose, rate, xinf, tau float64, ss bool, a, alpha []float64) (float64, error) {
	n := len(a)
	if len(alpha) < n {
		return 0, fmt.Errorf("analytic: %d coefficients but %d exponents", n, len(alpha))
	}
	a, alpha = nonZeroTerms(a[:n], alpha[:n])
	n = len(a)
	result := 0.0

	// bolus
	if dose > 0 {
		switch {
		case tau <= 0 && x >= 0:
			for i := 0; i < n; i++ {
				result += a[i] * math.Exp(-alpha[i]*x)
			}
		case !ss:
			doses := math.Floor(x/tau) + 1
			dx := x - (doses-1)*tau
			for i := 0; i < n; i++ {
				r := math.Exp(-alpha[i] * tau)
				result += a[i] * math.Exp(-alpha[i]*dx) * (1 - math.Pow(r, doses)) / (1 - r)
			}
		default:
			dx := x - math.Floor(x/tau)*tau
			for i := 0; i < n; i++ {
				result += a[i] * math.Exp(-alpha[i]*dx) / (1 - math.Exp(-alpha[i]*tau))
			}
		}
		result *= dose
	}

	if rate <= 0 {
		return result, nil
	}

	// zero-order input
	bolus := result
	result = 0
	switch {
	case xinf < math.Inf(1) && tau > 0:
		if xinf <= 0 || xinf > tau {
			return 0, fmt.Errorf("%w: duration %g, interval %g", ErrInfusionDuration, xinf, tau)
		}
		doses := math.Floor(x/tau) + 1
		dx := x - (doses-1)*tau
		for i := 0; i < n; i++ {
			r := math.Exp(-alpha[i] * tau)
			on := 1 - math.Exp(-alpha[i]*xinf)
			switch {
			case ss && dx <= xinf:
				result += a[i] * on * math.Exp(-alpha[i]*(dx-xinf+tau)) / (1 - r) / alpha[i]
				result += a[i] * (1 - math.Exp(-alpha[i]*dx)) / alpha[i]
			case ss:
				result += a[i] * on * math.Exp(-alpha[i]*(dx-xinf)) / (1 - r) / alpha[i]
			case dx <= xinf:
				if doses > 1 {
					result += a[i] * on * math.Exp(-alpha[i]*(dx-xinf+tau)) * (1 - math.Pow(r, doses-1)) / (1 - r) / alpha[i]
				}
				result += a[i] * (1 - math.Exp(-alpha[i]*dx)) / alpha[i]
			default:
				result += a[i] * on * math.Exp(-alpha[i]*(dx-xinf)) * (1 - math.Pow(r, doses)) / (1 - r) / alpha[i]
			}
		}
	case xinf < math.Inf(1):
		// single infusion of finite length
		if x <= xinf {
			for i := 0; i < n; i++ {
				result += a[i] * accumulated(alpha[i], x)
			}
		} else {
			for i := 0; i < n; i++ {
				result += a[i] * accumulated(alpha[i], xinf) * math.Exp(-alpha[i]*(x-xinf))
			}
		}
	default:
		// continuous input
		for i := 0; i < n; i++ {
			if ss {
				result += a[i] / alpha[i]
			} else if x >= 0 {
				result += a[i] * accumulated(alpha[i], x)
			}
		}
	}
	return bolus + result*rate, nil
}

// nonZeroTerms drops terms with a zero coefficient so that a zero exponent
// paired with a zero coefficient does not turn the input terms into 0/0.
func nonZeroTerms(a, alpha []float64) ([]float64, []float64) {
	keep := 0
	for _, v := range a {
		if v != 0 {
			keep++
		}
	}
	if keep == len(a) {
		return a, alpha
	}
	ka := make([]float64, 0, keep)
	kalpha := make([]float64, 0, keep)
	for i, v := range a {
		if v != 0 {
			ka = append(ka, v)
			kalpha = append(kalpha, alpha[i])
		}
	}
	return ka, kalpha
}

// accumulated is the integral of exp(-alpha*s) for s in [0, x].
func accumulated(alpha, x float64) float64 {
	if alpha == 0 {
		return x
	}
	return (1 - math.Exp(-alpha*x)) / alpha
}
