// Package sim provides the causal synthetic-data engine for vendor contracts and
// operational KPIs across a rollup of client sites.
//
// # Reading Guide
//
// The pipeline runs strictly in this order; each file holds one stage:
//   - integration.go: Integration Assignor, one level per (site, vendor)
//   - initial.go: Initial State Builder, one contract per (site, category)
//   - switching.go: Switch Simulator, the monthly state machine
//   - kpi.go: KPI Synthesizer, one record per (site, month)
//   - engine.go: Run, which validates inputs and wires the stages together
//
// # Determinism
//
// All randomness comes from PartitionedRNG (rng.go). Each (site, category) pair
// and each per-site stage has its own stream derived from the seed and a fixed
// name, and every stream is consumed in a fixed order. Sites may therefore be
// simulated concurrently without changing any output.
//
// # Sub-packages
//   - sim/catalog: site and vendor tables, category rule table, demo catalog builder
//   - sim/trace: switch event records and summaries
//   - sim/export: Parquet, CSV, SQLite and PostgreSQL output sinks
package sim
