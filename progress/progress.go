// Package progress exports the phase-event surface of a model load: the
// closed event variants, the progress estimator, and the error envelope.
//
// This package wraps the internal implementation and exposes the public API.
//
// Example usage:
//
//	sink := func(ev progress.Event) {
//	    fmt.Printf("%5.1f%% %s\n", progress.Estimate(ev)*100, progress.String(ev))
//	}
package progress

import (
	"github.com/ember-ml/ember/internal/progress"
)

// Event is the closed set of loading phases.
type Event = progress.Event

// Event variants, in state-machine order. Ready and Failed are terminal.
type (
	DownloadingConfig  = progress.DownloadingConfig
	DownloadingWeights = progress.DownloadingWeights
	LoadingWeights     = progress.LoadingWeights
	LoadingTokenizer   = progress.LoadingTokenizer
	InitializingModel  = progress.InitializingModel
	Ready              = progress.Ready
	Failed             = progress.Failed
)

// Envelope pairs a phase label with the failure message it captured.
type Envelope = progress.Envelope

// Sink consumes phase events.
type Sink = progress.Sink

// Estimate maps an event to a completion fraction in [0, 1].
func Estimate(ev Event) float64 {
	return progress.Estimate(ev)
}

// Terminal reports whether no further events may follow ev.
func Terminal(ev Event) bool {
	return progress.Terminal(ev)
}

// String renders an event for display.
func String(ev Event) string {
	return progress.String(ev)
}

// Wrap captures err's message under a phase label, never nesting envelopes.
func Wrap(phase string, err error) Envelope {
	return progress.Wrap(phase, err)
}

// Describe renders an envelope's stable description.
func Describe(e Envelope) string {
	return progress.Describe(e)
}
