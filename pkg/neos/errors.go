package neos

import (
	"errors"
	"fmt"
)

// Sentinel errors for NEOS calls.
var (
	// ErrRemoteRejection indicates NEOS refused a call: an XML-RPC fault, or
	// a submission rejected with job number 0.
	ErrRemoteRejection = errors.New("rejected by NEOS")

	// ErrTransport indicates the channel itself failed (connection, HTTP,
	// malformed response).
	ErrTransport = errors.New("NEOS transport failure")
)

// RemoteError wraps a failed NEOS call with context.
type RemoteError struct {
	// Method is the XML-RPC method name (e.g., "submitJob").
	Method string

	// Message is the text reported by NEOS, if any.
	Message string

	// Err is ErrRemoteRejection or ErrTransport.
	Err error

	// Cause is the underlying library error, if any.
	Cause error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %v: %s: %v", e.Method, e.Err, e.Message, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s: %v: %s", e.Method, e.Err, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v: %v", e.Method, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

// Unwrap returns the sentinel and the underlying cause.
func (e *RemoteError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// IsRemoteRejection returns true if NEOS refused the call.
func IsRemoteRejection(err error) bool {
	return errors.Is(err, ErrRemoteRejection)
}

// IsTransport returns true if the channel failed.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
