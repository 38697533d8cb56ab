package engine

import "fmt"

// Diagnostic codes for translation anomalies.
const (
	// DiagArgsIncomplete: a function call item finished before its
	// accumulated arguments ever formed valid JSON.
	DiagArgsIncomplete = "args_incomplete"

	// DiagArgsParseError: an accumulated arguments string balanced its
	// braces but failed to parse as JSON.
	DiagArgsParseError = "args_json_parse_error"

	// DiagArgsNotObject: accumulated arguments parsed as JSON but the
	// value is not an object.
	DiagArgsNotObject = "args_not_object"
)

// Diagnostic describes a translation anomaly. Diagnostics are advisory and
// never silently dropped: they are routed to a caller-supplied sink, or
// raised as terminating faults when no sink is configured and the anomaly
// occurs at finalization.
type Diagnostic struct {
	Code    string
	Message string
	Snippet string
}

// Error implements the error interface for the terminating-fault path.
func (d *Diagnostic) Error() string {
	if d.Snippet != "" {
		return fmt.Sprintf("%s: %s (args: %s)", d.Code, d.Message, d.Snippet)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Sink receives diagnostics from a Reducer. Implementations must be fast;
// the reducer calls the sink synchronously on the translation path.
type Sink func(Diagnostic)

// snippet truncates an arguments buffer for inclusion in a diagnostic.
func snippet(s string) string {
	const maxLen = 120
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
