package progress

import (
	"errors"
	"fmt"
)

// Envelope pairs a phase label with a snapshot of the underlying failure's
// message. It is an immutable value: two envelopes are equal exactly when
// both fields are equal, regardless of the error values they came from.
//
// The envelope is an observability artifact carried by the Failed event. The
// original error remains the primary channel back to the caller.
type Envelope struct {
	Phase   string
	Message string
}

// Wrap captures err's message under the given phase label. The message is
// snapshotted at wrap time; no reference to err is retained.
//
// A failure is wrapped exactly once: if err already is (or wraps) an
// Envelope, that envelope is returned unchanged instead of being nested.
func Wrap(phase string, err error) Envelope {
	var env Envelope
	if errors.As(err, &env) {
		return env
	}
	return Envelope{Phase: phase, Message: err.Error()}
}

// Error implements the error interface.
func (e Envelope) Error() string {
	return fmt.Sprintf("Loading failed during %s: %s", e.Phase, e.Message)
}

// Describe renders the envelope's stable user-facing description.
func Describe(e Envelope) string {
	return e.Error()
}
