package sim

import (
	"errors"
	"fmt"
	"sort"
)

// TieBreak selects how records that share a time are ordered. Input rows
// always keep their input order relative to each other; the mode decides
// where design-grid observations and additional doses land around them.
//
//	mode  design observations  additional doses
//	1     before input rows    before everything
//	2     before input rows    after everything
//	3     after input rows     before everything
//	4     after input rows     after everything
type TieBreak int

const (
	TieBreakDefault TieBreak = 1
	TieBreakMax     TieBreak = 4
)

// ErrInvalidTieBreak is returned for a mode outside 1..4.
var ErrInvalidTieBreak = errors.New("invalid record sort mode")

// Validate checks that m is one of the four modes.
func (m TieBreak) Validate() error {
	if m < TieBreakDefault || m > TieBreakMax {
		return fmt.Errorf("%w: %d (must be 1, 2, 3 or 4)", ErrInvalidTieBreak, int(m))
	}
	return nil
}

func (m TieBreak) designFirst() bool { return m == 1 || m == 2 }
func (m TieBreak) addlFirst() bool   { return m == 1 || m == 3 }

// Ranks used for records that share a time. Input rows use their row
// index, so every other origin sits at a fixed offset from that range.
const (
	rankAddlFirst    = -1 << 30
	rankLag          = -1200
	rankInfusionOff  = -299
	rankModelEvent   = -200
	rankDesignBefore = -100
	rankAddlLast     = 1 << 30
)

// Ordering is the single comparator for event sequences. It is built once
// per run from the tie-break mode and the number of input rows.
type Ordering struct {
	mode       TieBreak
	designRank int
	addlRank   int
}

// NewOrdering validates mode and returns the comparator for a run over
// nrows input rows.
func NewOrdering(mode TieBreak, nrows int) (Ordering, error) {
	if err := mode.Validate(); err != nil {
		return Ordering{}, err
	}
	o := Ordering{mode: mode, designRank: rankDesignBefore, addlRank: rankAddlLast}
	if !mode.designFirst() {
		o.designRank = nrows + 10
	}
	if mode.addlFirst() {
		o.addlRank = rankAddlFirst
	}
	return o, nil
}

// Mode returns the tie-break mode.
func (o Ordering) Mode() TieBreak {
	return o.mode
}

// Assign stamps r with the rank for its origin.
func (o Ordering) Assign(r *EventRecord) {
	switch r.Origin {
	case OriginData:
		r.rank = r.Row
	case OriginDesign:
		r.rank = o.designRank
	case OriginAddl:
		r.rank = o.addlRank
	case OriginLag:
		r.rank = rankLag
	case OriginInfusionOff:
		r.rank = rankInfusionOff
	case OriginModel:
		r.rank = rankModelEvent
	}
}

// Less orders by time, then rank.
func (o Ordering) Less(a, b *EventRecord) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.rank < b.rank
}

// Sort orders recs in place. Records that compare equal keep their
// relative order, so sorting a sorted sequence leaves it unchanged.
func (o Ordering) Sort(recs []EventRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return o.Less(&recs[i], &recs[j])
	})
}

// SortFrom sorts recs[start:] and leaves the processed prefix alone.
func (o Ordering) SortFrom(recs []EventRecord, start int) {
	if start >= len(recs) {
		return
	}
	o.Sort(recs[start:])
}
