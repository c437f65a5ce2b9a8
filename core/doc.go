// Package core defines the canonical domain schema (agents, events,
// memories) and the contracts every other package depends on: the durable
// store interfaces, the decision oracle interface and the error taxonomy.
//
// Keeping contracts centralized avoids dependency cycles between the engine,
// the scheduler and pluggable backends; concrete implementations live in
// store/ and oracle/ and are selected at wiring time.
package core
