package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/pksim-dev/pksim/sim/trace"
)

// Observer is notified after each subject finishes.
type Observer interface {
	SubjectDone(index int, id float64)
}

// Simulator runs a model over a population of subjects.
type Simulator struct {
	model Model
	spec  ModelSpec
	cfg   Config
	adv   Advancer

	requests []int
	captures []int

	// Trace, when set, receives every processed record.
	Trace    *trace.SimulationTrace
	Observer Observer
}

// NewSimulator checks cfg against the model and prepares the advancer.
func NewSimulator(m Model, cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec := m.Spec()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	advan := cfg.Advan
	if advan == 0 {
		advan = spec.Advan
	}
	adv, err := NewAdvancer(m, advan, cfg.Integrator)
	if err != nil {
		return nil, err
	}
	sim := &Simulator{model: m, spec: spec, cfg: cfg, adv: adv}
	if sim.requests, err = resolveNames(cfg.Output.Request, spec.Compartments, "compartment"); err != nil {
		return nil, err
	}
	if sim.captures, err = resolveNames(cfg.Output.Captures, spec.Captures, "capture"); err != nil {
		return nil, err
	}
	return sim, nil
}

func resolveNames(want, have []string, what string) ([]int, error) {
	if len(want) == 0 {
		idx := make([]int, len(have))
		for i := range have {
			idx[i] = i
		}
		return idx, nil
	}
	idx := make([]int, 0, len(want))
	for _, w := range want {
		found := false
		for i, h := range have {
			if h == w {
				idx = append(idx, i)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s %q", ErrUnknownRequest, what, w)
		}
	}
	return idx, nil
}

// Config returns the run configuration.
func (sim *Simulator) Config() Config {
	return sim.cfg
}

// Run simulates every subject in order and returns the result table.
// ctx is checked between subjects.
func (sim *Simulator) Run(ctx context.Context, in *Input) (*Table, error) {
	order, seqs, nrow, err := sim.prepare(in)
	if err != nil {
		return nil, err
	}
	layout, err := sim.layout(in)
	if err != nil {
		return nil, err
	}
	if in.EPS != nil && len(in.EPS) < nrow {
		return nil, fmt.Errorf("%d residual draws for %d output rows", len(in.EPS), nrow)
	}
	table := NewTable(layout.columns, nrow)
	table.RequestStart = layout.request

	logrus.Infof("Starting simulation: model=%s subjects=%d rows=%d recsort=%d",
		sim.spec.Name, len(in.Subjects), nrow, sim.cfg.RecSort)

	state := NewState(sim.spec)
	mctx := &Context{}
	if err := sim.model.Configure(mctx, state); err != nil {
		return nil, fmt.Errorf("configuring model %q: %w", sim.spec.Name, err)
	}

	row := 0
	for i, subj := range in.Subjects {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		run := &subjectRun{
			sim:     sim,
			in:      in,
			subj:    subj,
			index:   i,
			seq:     seqs[i],
			state:   state,
			ctx:     mctx,
			adv:     sim.adv,
			order:   order,
			table:   table,
			layout:  layout,
			row:     row,
			lastRow: subj.FirstRow,
			history: make(map[modelEventKey]bool),
		}
		if err := run.run(); err != nil {
			return nil, err
		}
		row = run.row
		if sim.Observer != nil {
			sim.Observer.SubjectDone(i, subj.ID)
		}
	}

	if d := sim.cfg.Output.Digits; d > 0 {
		table.RoundSignificant(d)
	}
	if ts := sim.cfg.Output.TScale; ts != 1 {
		table.ScaleTime(ts)
	}
	logrus.Infof("Simulation complete: %d rows", table.NRow)
	return table, nil
}

// OutputRows validates in and returns the number of rows Run will write.
// Callers use it to size per-row inputs such as residual draws.
func (sim *Simulator) OutputRows(in *Input) (int, error) {
	_, _, nrow, err := sim.prepare(in)
	return nrow, err
}

// prepare validates the input and builds every subject's starting
// sequence.
func (sim *Simulator) prepare(in *Input) (Ordering, [][]EventRecord, int, error) {
	if err := in.Grid.Validate(in.Subjects); err != nil {
		return Ordering{}, nil, 0, err
	}
	order, err := NewOrdering(sim.cfg.RecSort, in.NRow())
	if err != nil {
		return Ordering{}, nil, 0, err
	}
	neq := sim.spec.Neq()
	seqs := make([][]EventRecord, len(in.Subjects))
	nrow := 0
	for i, subj := range in.Subjects {
		if err := validateRecords(subj, neq); err != nil {
			return Ordering{}, nil, 0, err
		}
		seqs[i] = sequence(subj, in.Grid.For(subj.ID), sim.cfg.ObsAug, sim.cfg.Output.ObsOnly, order)
		for j := range seqs[i] {
			if seqs[i][j].Output {
				nrow++
			}
		}
	}
	return order, seqs, nrow, nil
}

// columnLayout records where each group of columns starts.
type columnLayout struct {
	columns    []string
	tad        int
	tran       int
	data       int
	idata      int
	request    int
	capture    int
	tranNames  []string
	dataNames  []string
	idataNames []string
}

func (sim *Simulator) layout(in *Input) (columnLayout, error) {
	out := sim.cfg.Output
	l := columnLayout{columns: []string{"ID", "time"}, tad: -1}
	if out.TAD {
		l.tad = len(l.columns)
		l.columns = append(l.columns, "tad")
	}
	l.tran = len(l.columns)
	for _, name := range carryTranOrder {
		for _, want := range out.CarryTran {
			if want == name {
				l.tranNames = append(l.tranNames, name)
				l.columns = append(l.columns, name)
				break
			}
		}
	}
	l.data = len(l.columns)
	for _, name := range out.CarryData {
		if in.Rows == nil || !in.Rows.HasColumn(name) {
			return l, fmt.Errorf("carry_data column %q not found in input data", name)
		}
		l.dataNames = append(l.dataNames, name)
		l.columns = append(l.columns, name)
	}
	l.idata = len(l.columns)
	for _, name := range out.CarryIData {
		if in.IData == nil || !in.IData.HasColumn(name) {
			return l, fmt.Errorf("carry_idata column %q not found in per-subject data", name)
		}
		l.idataNames = append(l.idataNames, name)
		l.columns = append(l.columns, name)
	}
	l.request = len(l.columns)
	for _, i := range sim.requests {
		l.columns = append(l.columns, sim.spec.Compartments[i])
	}
	l.capture = len(l.columns)
	for _, i := range sim.captures {
		l.columns = append(l.columns, sim.spec.Captures[i])
	}
	return l, nil
}

type modelEventKey struct {
	time float64
	kind Kind
	cmt  int
}

// subjectRun holds the state of one subject's pass through its sequence.
type subjectRun struct {
	sim    *Simulator
	in     *Input
	subj   Subject
	index  int
	seq    []EventRecord
	state  *State
	ctx    *Context
	adv    Advancer
	order  Ordering
	table  *Table
	layout columnLayout

	row     int
	lastRow int
	// maxTime is the time of the subject's last record before expansion.
	maxTime float64

	hasDose   bool
	lastDose  float64
	hasFirst  bool
	firstDose float64

	stopLogged bool
	history    map[modelEventKey]bool
}

func (r *subjectRun) run() error {
	sim := r.sim
	s := r.state
	if len(r.seq) == 0 {
		return nil
	}
	s.resetSubject(sim.spec)
	r.adv.Reset()
	r.maxTime = r.seq[len(r.seq)-1].Time
	r.ctx.stop = StopNone
	r.ctx.message = ""
	r.ctx.events = r.ctx.events[:0]
	r.ctx.SSFlag = false
	r.ctx.ETA = nil
	if r.index < len(r.in.ETA) {
		r.ctx.ETA = r.in.ETA[r.index]
	}
	for _, rec := range r.seq {
		if rec.IsDose() {
			r.hasFirst, r.firstDose = true, rec.Time
			break
		}
	}

	first := &r.seq[0]
	if r.in.IData != nil {
		r.in.IData.CopyParameters(r.subj.ID, s.Param)
	}
	if r.in.Rows != nil {
		if first.FromData() {
			r.in.Rows.CopyParameters(first.Row, s.Param)
		} else if sim.cfg.FilBak && r.subj.FirstRow != NoRow {
			r.in.Rows.CopyParameters(r.subj.FirstRow, s.Param)
		}
	}
	if r.in.IData != nil {
		r.in.IData.CopyInits(r.subj.ID, s.Init)
	}
	r.ctx.NewInd = 1
	if r.index == 0 {
		r.ctx.NewInd = 0
	}
	r.ctx.setRecord(first)
	r.initialize(true)

	tfrom := first.Time
	for j := 0; j < len(r.seq); j++ {
		rec := r.seq[j]

		if code := r.ctx.stop; code != StopNone {
			if code.Fatal() {
				return r.wrap(&rec, r.stopError())
			}
			r.logStop(&rec)
			if rec.Output {
				r.writeStopped(&rec, code)
			}
			continue
		}

		if rec.FromData() {
			r.lastRow = rec.Row
			if sim.cfg.NOCB && r.in.Rows != nil {
				r.in.Rows.CopyParameters(rec.Row, s.Param)
			}
		}

		tto := rec.Time
		denom := math.Abs(tfrom)
		if denom == 0 {
			denom = 1
		}
		if dt := (tto - tfrom) / denom; dt > 0 && dt < sim.cfg.MinDt {
			tto = tfrom
		}
		if rec.Output && r.in.EPS != nil {
			r.ctx.EPS = r.in.EPS[r.row]
		}

		if j != 0 {
			r.ctx.NewInd = 2
			r.ctx.setRecord(&rec)
			r.initialize(false)
		}

		logrus.Debugf("[subject %g] t=%g %s cmt=%d origin=%s", rec.ID, rec.Time, rec.Kind, rec.Cmt, rec.Origin)

		if rec.IsEvent() {
			var err error
			if tfrom, err = r.dispatch(j, &rec, tfrom, tto); err != nil {
				return r.wrap(&rec, err)
			}
		}

		if err := r.adv.Advance(s, tfrom, tto); err != nil {
			return r.wrap(&rec, err)
		}

		if rec.Kind != KindOther {
			if err := r.implement(&rec); err != nil {
				return r.wrap(&rec, err)
			}
		}

		if rec.FromData() && !sim.cfg.NOCB && r.in.Rows != nil {
			r.in.Rows.CopyParameters(rec.Row, s.Param)
		}

		r.ctx.events = r.ctx.events[:0]
		sim.model.CaptureOutputs(r.ctx, s)
		if err := r.modelEvents(j, tto); err != nil {
			return r.wrap(&rec, err)
		}
		if r.ctx.stop.Fatal() {
			return r.wrap(&rec, r.stopError())
		}

		if rec.Output {
			r.write(&rec)
		}

		if rec.Kind == KindOther {
			if err := r.implement(&rec); err != nil {
				return r.wrap(&rec, err)
			}
		}

		r.record(&rec)
		tfrom = tto
	}
	return nil
}

// initialize calls the model's Initialize. On the first record of a
// subject it sets the initial amounts; afterwards it only refreshes derived
// quantities and writes initial amounts to scratch.
func (r *subjectRun) initialize(first bool) {
	s := r.state
	m := r.sim.model
	if first && r.sim.cfg.DoInitCalc {
		m.Initialize(r.ctx, s.Init, s)
		copy(s.Y, s.Init)
		return
	}
	copy(s.scratch, s.Init)
	m.Initialize(r.ctx, s.scratch, s)
	if first {
		copy(s.Y, s.Init)
	}
}

// dispatch handles the scheduling side of an event record at cursor j:
// model-rate resolution, steady state, absorption lag, additional doses and
// infusion ends. It returns the (possibly moved) start of the next advance.
func (r *subjectRun) dispatch(j int, rec *EventRecord, tfrom, tto float64) (float64, error) {
	s := r.state
	if rec.Kind == KindReset {
		return tfrom, nil
	}
	eq := rec.Compartment()
	f := s.F[eq]
	if f < 0 {
		return tfrom, fmt.Errorf("%w: F=%g", ErrNegativeBioavailable, f)
	}

	resort := false
	if rec.FromData() && rec.IsDose() {
		if rec.Rate < 0 {
			if err := r.resolveRate(rec, f); err != nil {
				return tfrom, err
			}
		}
		if rec.SS > 0 {
			if err := r.adv.Advance(s, tfrom, tto); err != nil {
				return tfrom, err
			}
			if err := r.steadyState(rec, f); err != nil {
				return tfrom, err
			}
			tfrom = tto
		}
		if lag := s.Alag[eq]; lag > r.sim.cfg.MinDt {
			lagged := lagCopy(rec, lag, r.order)
			r.seq = append(r.seq, lagged)
			r.seq = expandAddl(r.seq, rec, lagged.Time, r.maxTime, r.order)
			rec.Armed = false
			resort = true
		} else if rec.Addl > 0 {
			r.seq = expandAddl(r.seq, rec, rec.Time, r.maxTime, r.order)
			resort = true
		}
	}

	if rec.Infusion() && rec.Armed {
		r.seq = append(r.seq, infusionEnd(rec, f, r.order))
		resort = true
	}
	if resort {
		r.order.SortFrom(r.seq, j+1)
	}

	if rec.IsDose() && rec.Armed {
		r.hasDose = true
		r.lastDose = tto - s.Alag[eq]
	}
	return tfrom, nil
}

// resolveRate replaces a model rate or duration sentinel with a rate.
func (r *subjectRun) resolveRate(rec *EventRecord, f float64) error {
	s := r.state
	eq := rec.Compartment()
	switch rec.Rate {
	case RateFromModel:
		if s.Rate[eq] <= 0 {
			return fmt.Errorf("%w: model rate for cmt %d is %g", ErrInvalidRate, rec.Cmt, s.Rate[eq])
		}
		rec.Rate = s.Rate[eq]
	case DurationFromModel:
		if s.Dur[eq] <= 0 {
			return fmt.Errorf("%w: model duration for cmt %d is %g", ErrInvalidDuration, rec.Cmt, s.Dur[eq])
		}
		rec.Rate = rec.Amt * f / s.Dur[eq]
	default:
		return fmt.Errorf("%w: %g", ErrInvalidRate, rec.Rate)
	}
	return nil
}

// implement applies a record's direct effect on the state.
func (r *subjectRun) implement(rec *EventRecord) error {
	s := r.state
	switch rec.Kind {
	case KindObservation:
		return nil
	case KindReset:
		s.resetAmounts()
	case KindResetDose:
		s.resetAmounts()
		r.dose(rec)
	case KindDose:
		if rec.Cmt < 0 {
			if err := s.turnOff(rec.Compartment()); err != nil {
				return err
			}
			break
		}
		r.dose(rec)
	case KindInfusionOff:
		if eq := rec.Compartment(); s.On[eq] {
			s.rateRemove(eq, rec.Rate)
		}
	case KindOther:
		eq := rec.Compartment()
		if rec.Cmt > 0 {
			s.turnOn(eq)
		} else if err := s.turnOff(eq); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKind, int(rec.Kind))
	}
	r.adv.Reset()
	return nil
}

func (r *subjectRun) dose(rec *EventRecord) {
	if !rec.Armed {
		return
	}
	s := r.state
	eq := rec.Compartment()
	s.turnOn(eq)
	if rec.Rate > 0 {
		s.rateAdd(eq, rec.Rate)
		return
	}
	s.Y[eq] += rec.Amt * s.F[eq]
}

// modelEvents inserts or applies the events requested by CaptureOutputs.
// Events before tto are dropped. Scheduled events are inserted once per
// (time, kind, cmt) per subject.
func (r *subjectRun) modelEvents(j int, tto float64) error {
	evs := r.ctx.events
	if len(evs) == 0 {
		return nil
	}
	neq := r.state.Neq()
	resort := false
	for _, ev := range evs {
		if ev.Time < tto {
			continue
		}
		if !ValidKinds[ev.Kind] {
			return fmt.Errorf("%w: model event kind %d", ErrInvalidKind, int(ev.Kind))
		}
		if ev.Kind != KindObservation && ev.Kind != KindReset && (ev.Cmt == 0 || abs(ev.Cmt) > neq) {
			return fmt.Errorf("%w: model event cmt %d, model has %d compartment(s)", ErrCompartmentRange, ev.Cmt, neq)
		}
		rec := EventRecord{
			ID:      r.subj.ID,
			Time:    ev.Time,
			Kind:    ev.Kind,
			Cmt:     ev.Cmt,
			Amt:     ev.Amt,
			Row:     NoRow,
			Origin:  OriginModel,
			Armed:   true,
			Phantom: true,
		}
		r.order.Assign(&rec)
		if ev.Now {
			if err := r.implement(&rec); err != nil {
				return err
			}
			continue
		}
		key := modelEventKey{time: ev.Time, kind: ev.Kind, cmt: ev.Cmt}
		if r.history[key] {
			continue
		}
		r.history[key] = true
		r.seq = append(r.seq, rec)
		resort = true
	}
	r.ctx.events = r.ctx.events[:0]
	if resort {
		r.order.SortFrom(r.seq, j+1)
	}
	return nil
}

func (r *subjectRun) write(rec *EventRecord) {
	t := r.table
	l := r.layout
	s := r.state
	row := r.row
	r.row++

	t.Set(row, 0, rec.ID)
	t.Set(row, 1, rec.Time)
	if l.tad >= 0 {
		t.Set(row, l.tad, r.tad(rec.Time))
	}
	for k, name := range l.tranNames {
		t.Set(row, l.tran+k, carryTranValue(rec, name))
	}
	dataRow := rec.Row
	if !rec.FromData() {
		dataRow = r.lastRow
	}
	for k, name := range l.dataNames {
		v := math.NaN()
		if dataRow != NoRow {
			v = r.in.Rows.Value(dataRow, name)
		}
		t.Set(row, l.data+k, v)
	}
	for k, name := range l.idataNames {
		t.Set(row, l.idata+k, r.in.IData.Value(rec.ID, name))
	}
	for k, i := range r.sim.requests {
		t.Set(row, l.request+k, s.Y[i])
	}
	for k, i := range r.sim.captures {
		t.Set(row, l.capture+k, s.Capture[i])
	}
}

// writeStopped writes an output row after a soft stop. StopKeepLast repeats
// the frozen state; any other soft code writes NaN outputs.
func (r *subjectRun) writeStopped(rec *EventRecord, code StopCode) {
	row := r.row
	r.write(rec)
	if code == StopKeepLast {
		return
	}
	if r.layout.tad >= 0 {
		r.table.Set(row, r.layout.tad, math.NaN())
	}
	for c := r.layout.request; c < len(r.layout.columns); c++ {
		r.table.Set(row, c, math.NaN())
	}
}

func (r *subjectRun) tad(t float64) float64 {
	switch {
	case r.hasDose:
		return t - r.lastDose
	case r.hasFirst:
		return t - r.firstDose
	}
	return math.NaN()
}

func (r *subjectRun) stopError() error {
	if r.ctx.stop == StopUser {
		return fmt.Errorf("%w: %s", ErrUserStop, r.ctx.message)
	}
	return fmt.Errorf("%w: %s", ErrModelFatal, r.ctx.message)
}

func (r *subjectRun) logStop(rec *EventRecord) {
	if r.stopLogged {
		return
	}
	r.stopLogged = true
	logrus.Warnf("[subject %g] stopped at time %g with code %d: %s", rec.ID, rec.Time, int(r.ctx.stop), r.ctx.message)
	if r.sim.Trace != nil {
		r.sim.Trace.RecordStop(trace.StopRecord{
			Subject: rec.ID,
			Time:    rec.Time,
			Code:    int(r.ctx.stop),
			Message: r.ctx.message,
		})
	}
}

func (r *subjectRun) record(rec *EventRecord) {
	if r.sim.Trace == nil {
		return
	}
	r.sim.Trace.RecordEvent(trace.EventRecord{
		Subject: rec.ID,
		Time:    rec.Time,
		Kind:    int(rec.Kind),
		Cmt:     rec.Cmt,
		Amt:     rec.Amt,
		Rate:    rec.Rate,
		Origin:  rec.Origin.String(),
		Armed:   rec.Armed,
		Output:  rec.Output,
	})
}

func (r *subjectRun) wrap(rec *EventRecord, err error) error {
	return &SubjectError{ID: rec.ID, Time: rec.Time, Cmt: rec.Cmt, Wrapped: err}
}
