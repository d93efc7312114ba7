package ode

import (
	"math"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is an adaptive Dormand-Prince integrator with a mixed
// absolute/relative error norm. The step size carries over between calls
// until Reset.
type RK45 struct {
	settings Settings
	safety   float64
	minScale float64
	maxScale float64

	h float64

	// scratch, sized on first use
	k1, k2, k3, k4, k5, k6, k7 []float64
	tmp, next                  []float64
}

// NewRK45 creates an RK45 integrator. The settings are not validated here;
// callers validate them as part of their own configuration.
func NewRK45(settings Settings) *RK45 {
	return &RK45{
		settings: settings,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Settings returns the integrator settings.
func (r *RK45) Settings() Settings {
	return r.settings
}

// Reset forgets the last accepted step size.
func (r *RK45) Reset() {
	r.h = 0
}

func (r *RK45) ensure(n int) {
	if len(r.k1) == n {
		return
	}
	alloc := func() []float64 { return make([]float64, n) }
	r.k1, r.k2, r.k3, r.k4, r.k5, r.k6, r.k7 = alloc(), alloc(), alloc(), alloc(), alloc(), alloc(), alloc()
	r.tmp, r.next = alloc(), alloc()
}

// Integrate advances y from tfrom to tto in place.
func (r *RK45) Integrate(f System, y []float64, tfrom, tto float64) (Status, error) {
	fail := func(s Status, t float64) (Status, error) {
		return s, &Error{Status: s, Time: t, RelTol: r.settings.RelTol, AbsTol: r.settings.AbsTol, MaxSteps: r.settings.MaxSteps}
	}
	if tto < tfrom || math.IsNaN(tfrom) || math.IsNaN(tto) {
		return fail(StatusIllegalInput, tfrom)
	}
	n := len(y)
	if n == 0 || tto == tfrom {
		return StatusSuccess, nil
	}
	r.ensure(n)

	span := tto - tfrom
	h := r.h
	if h <= 0 {
		h = r.settings.InitialStep
	}
	if h <= 0 {
		h = span / 100
	}
	if r.settings.MaxStep > 0 && h > r.settings.MaxStep {
		h = r.settings.MaxStep
	}

	t := tfrom
	f(t, y, r.k1)
	for steps := 0; t < tto; {
		if steps >= r.settings.MaxSteps {
			return fail(StatusTooMuchWork, t)
		}
		last := false
		if t+h >= tto {
			h = tto - t
			last = true
		}
		errNorm := r.trial(f, y, t, h)
		if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
			return fail(StatusNonFinite, t)
		}
		steps++

		if errNorm <= 1 {
			if last {
				t = tto
			} else {
				t += h
			}
			copy(y, r.next)
			copy(r.k1, r.k7)
		}

		scale := r.maxScale
		if errNorm > 0 {
			scale = r.safety * math.Pow(errNorm, -0.2)
		}
		scale = math.Max(r.minScale, math.Min(r.maxScale, scale))
		if errNorm <= 1 && last {
			// keep the step that was in use before it was clipped to tto
			break
		}
		h *= scale
		if r.settings.MaxStep > 0 && h > r.settings.MaxStep {
			h = r.settings.MaxStep
		}
		if h < r.settings.MinStep*math.Max(1, math.Abs(t)) {
			return fail(StatusStepTooSmall, t)
		}
		r.h = h
	}
	return StatusSuccess, nil
}

// trial computes one Dormand-Prince step of size h from (t, y) into r.next
// and returns the scaled error norm. r.k1 must hold f(t, y).
func (r *RK45) trial(f System, y []float64, t, h float64) float64 {
	n := len(y)
	k1, k2, k3, k4, k5, k6, k7 := r.k1, r.k2, r.k3, r.k4, r.k5, r.k6, r.k7
	x := r.tmp

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*b21*k1[i]
	}
	f(t+a2*h, x, k2)
	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b31*k1[i]+b32*k2[i])
	}
	f(t+a3*h, x, k3)
	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	f(t+a4*h, x, k4)
	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	f(t+a5*h, x, k5)
	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	f(t+h, x, k6)
	for i := 0; i < n; i++ {
		r.next[i] = y[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}
	f(t+h, r.next, k7)

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		sc := r.settings.AbsTol + r.settings.RelTol*math.Max(math.Abs(y[i]), math.Abs(r.next[i]))
		e := errEst / sc
		sum += e * e
	}
	return math.Sqrt(sum / float64(n))
}
