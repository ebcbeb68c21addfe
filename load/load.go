// Package load exposes the model loading pipeline: fetch a repository
// snapshot, aggregate its weight shards, load the tokenizer, and initialize
// a verified, materialized model, reporting phases through an event sink.
//
// Example usage:
//
//	loaded, err := load.Load(ctx, "acme/llama-3-8b",
//	    load.WithSink(func(ev progress.Event) {
//	        fmt.Println(progress.String(ev))
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(loaded.Config.ModelType)
package load

import (
	"context"

	"github.com/ember-ml/ember/internal/load"
)

// Loaded is the assembled result of a successful load.
type Loaded = load.Loaded

// Downloader fetches a repository snapshot, reporting byte progress.
type Downloader = load.Downloader

// Option configures one load invocation.
type Option = load.Option

// Re-exported options.
var (
	WithSink            = load.WithSink
	WithDownloader      = load.WithDownloader
	WithConfigDecoder   = load.WithConfigDecoder
	WithFactory         = load.WithFactory
	WithTokenizerLoader = load.WithTokenizerLoader
)

// Load runs one full load of ref and returns the assembled model. See the
// internal package for the event-ordering and error contracts.
func Load(ctx context.Context, ref string, opts ...Option) (*Loaded, error) {
	return load.Load(ctx, ref, opts...)
}
