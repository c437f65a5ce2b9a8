// Package memstore contains process-local implementations of the core store
// contracts. The store interfaces live in the core package; depend on those
// in your code and select an implementation at wiring time.
//
// Concurrency: every store is protected by an RWMutex and returns defensive
// copies so callers can never mutate internal state. Similarity queries are
// linear cosine scans, suitable for tests and small rosters; swap in the
// sqlite-backed store for durability.
package memstore
