package agents

import "fmt"

// DiagnosticsError reports a failed tool-augmented diagnostics call. The
// correlation phase is never attempted after one.
type DiagnosticsError struct {
	Err error
}

func (e *DiagnosticsError) Error() string {
	return fmt.Sprintf("MCP diagnostics failed: %v", e.Err)
}

func (e *DiagnosticsError) Unwrap() error {
	return e.Err
}

// CorrelationError reports a failed retrieval-augmented correlation call.
type CorrelationError struct {
	Err error
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("RAG correlation failed: %v", e.Err)
}

func (e *CorrelationError) Unwrap() error {
	return e.Err
}
