package core

import (
	"errors"
	"fmt"
)

// ErrOracleUnavailable is returned when no oracle is wired or the configured
// adapter has no credential. It is surfaced by the first caller in the
// decision chain so operators see configuration gaps immediately.
var ErrOracleUnavailable = errors.New("decision oracle unavailable: no credential configured")

// ErrStoreUnavailable marks a transient durable-store failure. Read paths
// retry it a bounded number of times before degrading to an empty result.
var ErrStoreUnavailable = errors.New("durable store unavailable")

// ErrNotFound is returned by store lookups for an unknown id.
var ErrNotFound = errors.New("record not found")

// ConfigurationError reports a required input that was never configured,
// such as a missing prompt template. It is fatal to the specific operation
// and never silently defaulted at the call site.
type ConfigurationError struct {
	Subject string
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is missing required configuration %q", e.Subject, e.Missing)
}

// OracleCallError wraps a transport or API failure talking to the oracle.
// It is caught at the pipeline boundary: the affected operation aborts for
// that agent only and the scheduler loop continues.
type OracleCallError struct {
	Model string
	Err   error
}

func (e *OracleCallError) Error() string {
	return fmt.Sprintf("oracle call failed (model %s): %v", e.Model, e.Err)
}

func (e *OracleCallError) Unwrap() error { return e.Err }

// MalformedPayloadError records a field that arrived with the wrong shape
// and was coerced to a safe default rather than rejected. Callers log it;
// they do not propagate it.
type MalformedPayloadError struct {
	Field  string
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload field %q: %s", e.Field, e.Reason)
}
