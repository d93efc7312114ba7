package sim

import (
	"fmt"
	"math"
)

// validateRecords checks a subject's input records before any expansion.
func validateRecords(subj Subject, neq int) error {
	prev := math.Inf(-1)
	for i := range subj.Records {
		r := &subj.Records[i]
		if r.Time < prev {
			return fmt.Errorf("%w: subject %g has time %g after %g", ErrUnsortedInput, subj.ID, r.Time, prev)
		}
		prev = r.Time
		if !ValidKinds[r.Kind] {
			return fmt.Errorf("%w: subject %g row %d has kind %d", ErrInvalidKind, subj.ID, r.Row, int(r.Kind))
		}
		if r.Kind == KindDose || r.Kind == KindOther || r.Kind == KindResetDose {
			if r.Cmt == 0 || abs(r.Cmt) > neq {
				return fmt.Errorf("%w: subject %g row %d has cmt %d, model has %d compartment(s)",
					ErrCompartmentRange, subj.ID, r.Row, r.Cmt, neq)
			}
		}
		if r.Addl < 0 {
			return fmt.Errorf("subject %g row %d: addl must be non-negative, got %d", subj.ID, r.Row, r.Addl)
		}
		if r.Addl > 0 && r.II <= 0 {
			return fmt.Errorf("subject %g row %d: addl %d needs ii > 0", subj.ID, r.Row, r.Addl)
		}
		if r.SS > 0 && r.II <= 0 && r.Rate <= 0 && r.Rate != RateFromModel && r.Rate != DurationFromModel {
			return fmt.Errorf("subject %g row %d: steady-state bolus needs ii > 0", subj.ID, r.Row)
		}
		if r.Rate < 0 && r.Rate != RateFromModel && r.Rate != DurationFromModel {
			return fmt.Errorf("%w: subject %g row %d has rate %g", ErrInvalidRate, subj.ID, r.Row, r.Rate)
		}
	}
	return nil
}

// sequence builds the ordered starting sequence for a subject: its input
// records plus design observations. Design times are added when the
// subject has no observation rows or when augment is set.
func sequence(subj Subject, design []float64, augment, obsOnly bool, order Ordering) []EventRecord {
	seq := make([]EventRecord, 0, len(subj.Records)+len(design))
	observations := 0
	for _, r := range subj.Records {
		if r.Kind == KindObservation {
			observations++
		}
		if obsOnly && r.Kind != KindObservation {
			r.Output = false
		}
		order.Assign(&r)
		seq = append(seq, r)
	}
	if observations == 0 || augment {
		for _, t := range design {
			obs := NewObservation(subj.ID, t)
			obs.Origin = OriginDesign
			order.Assign(&obs)
			seq = append(seq, obs)
		}
	}
	order.Sort(seq)
	return seq
}

// expandAddl appends the additional doses described by dose, starting one
// interval after from. Doses after until are never reached and are not
// added.
func expandAddl(seq []EventRecord, dose *EventRecord, from, until float64, order Ordering) []EventRecord {
	for k := 1; k <= dose.Addl; k++ {
		t := from + float64(k)*dose.II
		if t > until {
			break
		}
		c := dose.phantom(t, OriginAddl, 0)
		if c.Kind == KindResetDose {
			c.Kind = KindDose
		}
		order.Assign(&c)
		seq = append(seq, c)
	}
	return seq
}

// lagCopy returns the dose that actually fires lag time units after r.
func lagCopy(r *EventRecord, lag float64, order Ordering) EventRecord {
	c := r.phantom(r.Time+lag, OriginLag, 0)
	order.Assign(&c)
	return c
}

// infusionEnd returns the record that stops the infusion started by r,
// with bioavailability f stretching or shortening the infusion.
func infusionEnd(r *EventRecord, f float64, order Ordering) EventRecord {
	c := r.phantom(r.Time+r.Duration(f), OriginInfusionOff, 0)
	c.Kind = KindInfusionOff
	order.Assign(&c)
	return c
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
