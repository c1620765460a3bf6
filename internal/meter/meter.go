// Package meter fetches instantaneous electrical readings from the energy
// meter's local HTTP endpoint.
package meter

import "fmt"

// Sample is one reading from the meter. Immutable once captured.
type Sample struct {
	Voltage     float64 `json:"voltage"`      // V
	Current     float64 `json:"current"`      // A
	ActivePower float64 `json:"power_active"` // W
}

// Sanity bounds. Readings outside these ranges are meter glitches or
// corrupt payloads and must never reach the display.
const (
	MaxVoltage = 500.0
	MaxCurrent = 100.0
	MaxPower   = 50000.0
)

// FailureKind classifies why a fetch failed. The orchestrator only needs
// the class, never the underlying transport detail.
type FailureKind int

const (
	FailTransport FailureKind = iota
	FailHTTPStatus
	FailMalformed
	FailMissingField
	FailOutOfRange
)

func (k FailureKind) String() string {
	switch k {
	case FailTransport:
		return "transport"
	case FailHTTPStatus:
		return "http_status"
	case FailMalformed:
		return "malformed"
	case FailMissingField:
		return "missing_field"
	case FailOutOfRange:
		return "out_of_range"
	}
	return "unknown"
}

// FetchError wraps a failed fetch with its classification.
type FetchError struct {
	Kind FailureKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("meter fetch failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("meter fetch failed (%s)", e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

func failf(kind FailureKind, format string, args ...any) *FetchError {
	return &FetchError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// validate applies the sanity bounds to a decoded sample.
func validate(s Sample) error {
	if s.Voltage < 0 || s.Voltage > MaxVoltage {
		return failf(FailOutOfRange, "voltage %.1f outside 0..%.0f", s.Voltage, MaxVoltage)
	}
	if s.Current < 0 || s.Current > MaxCurrent {
		return failf(FailOutOfRange, "current %.2f outside 0..%.0f", s.Current, MaxCurrent)
	}
	if s.ActivePower < 0 || s.ActivePower > MaxPower {
		return failf(FailOutOfRange, "power %.1f outside 0..%.0f", s.ActivePower, MaxPower)
	}
	return nil
}
