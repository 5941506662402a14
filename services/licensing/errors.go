package licensing

import "fmt"

// TransportError reports a failure to reach a remote endpoint or to read
// its response: connection refused, timeout, malformed JSON body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("licensing: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *TransportError) Unwrap() error { return e.Err }

// Code returns a stable identifier for log lines.
func (e *TransportError) Code() string { return "TRANSPORT_ERROR" }

// ServiceError reports a reachable endpoint answering with a non-success status.
type ServiceError struct {
	Op         string
	StatusCode int
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("licensing: %s: unexpected status %d", e.Op, e.StatusCode)
}

// Code returns a stable identifier for log lines.
func (e *ServiceError) Code() string { return "SERVICE_ERROR" }

// ValidationError reports user input that fails the strategy ID format
// check. It is never sent to a remote service.
type ValidationError struct {
	Input string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("licensing: invalid strategy id %q", e.Input)
}

// Code returns a stable identifier for log lines.
func (e *ValidationError) Code() string { return "VALIDATION_ERROR" }
