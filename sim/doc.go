// Package sim provides the event-driven compartmental simulation engine for
// pksim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - record.go: EventRecord, the unit of a subject's sequence (observation, dose, reset, on/off)
//   - ordering.go: how records at the same time are ranked (the four recsort modes)
//   - simulator.go: the per-subject loop that advances the system and writes the table
//
// Dosing mechanics live next to the loop: schedule.go expands additional
// doses, lag copies and infusion ends; steady.go pre-runs a dose to steady
// state; state.go holds amounts, infusion rates and compartment on/off flags.
//
// # Architecture
//
// The sim package defines interfaces and bridge types; implementations live in
// sub-packages:
//   - sim/analytic/: closed-form one- and two-compartment solutions (advan 1-4)
//   - sim/ode/: adaptive Runge-Kutta integrator for general models
//   - sim/models/: built-in models, registered via init()
//   - sim/data/: CSV and XLSX loaders for dosing and per-subject data sets
//   - sim/randfx/: seeded multivariate normal ETA and EPS draws
//   - sim/output/: CSV, JSON and XLSX writers for result tables
//   - sim/trace/: per-record trace recording
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Model: spec, configure, initialize, derivatives and captured outputs
//   - Advancer: move a State from one time to the next
//   - RowSource / IDataSource: parameter and covariate lookup per data row or subject
//   - Observer: progress notification after each subject
package sim
