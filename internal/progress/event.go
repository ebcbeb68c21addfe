// Package progress defines the typed phase events emitted by a model load,
// the progress estimator that maps them to a completion fraction, and the
// error envelope attached to terminal failures.
package progress

import "fmt"

// Event is the closed set of loading phases. Exactly one variant is active
// at a time; Ready and Failed are terminal and mutually exclusive.
//
// The variant set is sealed so that consumers (and the estimator) can switch
// exhaustively over it.
type Event interface {
	// Phase returns the stable phase label for the variant.
	Phase() string

	isEvent()
}

// DownloadingConfig reports that small metadata files are being fetched.
type DownloadingConfig struct{}

// DownloadingWeights reports network transfer of one weight shard.
// Index is 1-based and never exceeds Total; Fraction is the byte-level
// completion of the current shard in [0, 1].
type DownloadingWeights struct {
	File     string
	Index    int
	Total    int
	Fraction float64
}

// LoadingWeights reports that one already-local weight shard is being parsed
// into memory. Index is 1-based and never exceeds Total.
type LoadingWeights struct {
	File  string
	Index int
	Total int
}

// LoadingTokenizer reports that vocabulary/tokenizer assets are loading.
type LoadingTokenizer struct{}

// InitializingModel reports the sanitize/quantize/verify/materialize stage.
type InitializingModel struct{}

// Ready is the terminal success phase.
type Ready struct{}

// Failed is the terminal failure phase. Err carries the phase-labelled
// envelope built by the orchestrator.
type Failed struct {
	Err Envelope
}

// Phase implements Event.
func (DownloadingConfig) Phase() string  { return "downloading config" }
func (DownloadingWeights) Phase() string { return "downloading weights" }
func (LoadingWeights) Phase() string     { return "loading weights" }
func (LoadingTokenizer) Phase() string   { return "loading tokenizer" }
func (InitializingModel) Phase() string  { return "initializing model" }
func (Ready) Phase() string              { return "ready" }
func (Failed) Phase() string             { return "failed" }

func (DownloadingConfig) isEvent()  {}
func (DownloadingWeights) isEvent() {}
func (LoadingWeights) isEvent()     {}
func (LoadingTokenizer) isEvent()   {}
func (InitializingModel) isEvent()  {}
func (Ready) isEvent()              {}
func (Failed) isEvent()             {}

// Terminal reports whether no further events may follow ev.
func Terminal(ev Event) bool {
	switch ev.(type) {
	case Ready, Failed:
		return true
	default:
		return false
	}
}

// String renders an event for logs and CLI output.
func String(ev Event) string {
	switch e := ev.(type) {
	case DownloadingWeights:
		return fmt.Sprintf("downloading %s (%d/%d, %.0f%%)", e.File, e.Index, e.Total, e.Fraction*100)
	case LoadingWeights:
		return fmt.Sprintf("loading %s (%d/%d)", e.File, e.Index, e.Total)
	case Failed:
		return e.Err.Error()
	default:
		return ev.Phase()
	}
}

// Sink consumes phase events. It is invoked synchronously from whichever
// step is executing and must not panic; implementations are responsible for
// their own thread-safety when shared across concurrent loads.
type Sink func(Event)

// Discard is a Sink that drops every event.
func Discard(Event) {}
