// Package logging provides a minimal logging interface and adapters for the
// simulation engine.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) used by the engine, the scheduler and the oracle adapters.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - TownLogger with contextual helpers (component, agent, tick)
//
// The design intentionally keeps the interface minimal so callers can plug
// any structured logger while keeping slog the default.
package logging
