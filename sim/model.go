package sim

import (
	"fmt"
	"sort"
)

// ModelSpec describes a model's layout. Slices are indexed the same way as
// the State vectors they size.
type ModelSpec struct {
	Name string
	// Compartments names the state variables, in order.
	Compartments []string
	// Init holds default initial amounts; nil means all zero.
	Init       []float64
	Parameters []string
	Defaults   []float64
	// Captures names the derived outputs written by CaptureOutputs.
	Captures []string
	// Advan is the preferred solver: 1-4 for the closed forms, 13 (or 0)
	// for numerical integration.
	Advan int
}

// Neq returns the number of compartments.
func (s ModelSpec) Neq() int {
	return len(s.Compartments)
}

// Validate checks that defaults and initial amounts match the declared names.
func (s ModelSpec) Validate() error {
	if len(s.Defaults) != len(s.Parameters) {
		return fmt.Errorf("model %q: %d parameter defaults for %d parameters", s.Name, len(s.Defaults), len(s.Parameters))
	}
	if s.Init != nil && len(s.Init) != len(s.Compartments) {
		return fmt.Errorf("model %q: %d initial amounts for %d compartments", s.Name, len(s.Init), len(s.Compartments))
	}
	return nil
}

// CompartmentIndex returns the zero-based index of a named compartment.
func (s ModelSpec) CompartmentIndex(name string) (int, bool) {
	for i, c := range s.Compartments {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// ParameterIndex returns the index of a named parameter.
func (s ModelSpec) ParameterIndex(name string) (int, bool) {
	for i, p := range s.Parameters {
		if p == name {
			return i, true
		}
	}
	return 0, false
}

// Model is the set of callbacks the simulator drives.
//
// Initialize is called at the start of each subject and again before every
// record, so models can recompute derived quantities (F, Alag, R, D,
// closed-form parameters) from the current parameters. It writes initial
// amounts into init; after the first call of a subject those writes go to
// scratch and do not touch the state.
type Model interface {
	Spec() ModelSpec
	// Configure runs once per simulation run, before any subject.
	Configure(ctx *Context, s *State) error
	Initialize(ctx *Context, init []float64, s *State)
	// Derivatives writes the rate of change of y into dydt. Infusion inputs
	// and compartment on/off are applied by the caller.
	Derivatives(t float64, y, dydt []float64, s *State)
	// CaptureOutputs writes s.Capture and may schedule events through ctx.
	CaptureOutputs(ctx *Context, s *State)
}

// StopCode is a model request to stop simulating the current subject.
type StopCode int

const (
	StopNone StopCode = 0
	// StopKeepLast freezes output: remaining rows repeat the last values.
	StopKeepLast StopCode = 1
	// StopFillMissing fills remaining request and capture columns with NaN.
	StopFillMissing StopCode = 2
	// StopUser aborts the whole run.
	StopUser StopCode = 9
	// StopFatal aborts the whole run after a model error.
	StopFatal StopCode = 999
)

// Fatal reports whether the code aborts the run.
func (c StopCode) Fatal() bool {
	return c == StopUser || c == StopFatal
}

// ModelEvent is an event a model asks for from CaptureOutputs.
type ModelEvent struct {
	Time float64
	Kind Kind
	Cmt  int
	Amt  float64
	// Now applies the event immediately instead of scheduling it.
	Now bool
}

// Context carries per-record information to model callbacks.
type Context struct {
	ID   float64
	Time float64
	Kind Kind
	Cmt  int
	Amt  float64
	// NewInd is 0 on the first record of the run, 1 on the first record of
	// a subject and 2 otherwise.
	NewInd int
	// SSFlag is true while steady state is being computed.
	SSFlag bool
	ETA    []float64
	EPS    []float64

	stop    StopCode
	message string
	events  []ModelEvent
}

// Stop asks the simulator to stop the current subject (or the run) with
// the given code.
func (c *Context) Stop(code StopCode, message string) {
	c.stop = code
	c.message = message
}

// Schedule queues an event for the simulator to insert after the current
// CaptureOutputs call returns.
func (c *Context) Schedule(ev ModelEvent) {
	c.events = append(c.events, ev)
}

// Stopped returns the active stop code.
func (c *Context) Stopped() StopCode {
	return c.stop
}

func (c *Context) setRecord(r *EventRecord) {
	c.ID = r.ID
	c.Time = r.Time
	c.Kind = r.Kind
	c.Cmt = r.Cmt
	c.Amt = r.Amt
}

// === Model registry ===

// ModelFactory builds a fresh model instance.
type ModelFactory func() Model

var modelRegistry = map[string]ModelFactory{}

// RegisterModel makes a model available by name. Model packages call it
// from init().
func RegisterModel(name string, factory ModelFactory) {
	modelRegistry[name] = factory
}

// NewModel returns a new instance of a registered model.
func NewModel(name string) (Model, error) {
	factory, ok := modelRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q; registered: %v", name, RegisteredModels())
	}
	return factory(), nil
}

// RegisteredModels returns the registered model names, sorted.
func RegisteredModels() []string {
	names := make([]string, 0, len(modelRegistry))
	for name := range modelRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
