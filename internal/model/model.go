// Package model defines the capability surface the loading pipeline drives:
// configuration decoding, an architecture registry, and the sanitize/update/
// materialize steps a model exposes to the weight aggregator.
package model

import (
	"sort"
	"strings"

	"github.com/ember-ml/ember/internal/quant"
	"github.com/ember-ml/ember/internal/tensor"
)

// Verification selects how strictly Update checks the supplied weights.
type Verification int

const (
	// VerifyNone stores whatever weights are supplied.
	VerifyNone Verification = iota

	// VerifyAll requires the supplied weights to match the model's expected
	// parameter set exactly. This is the sole point where missing or extra
	// parameters are detected.
	VerifyAll
)

// Model is the capability surface consumed by the weight aggregator.
type Model interface {
	// Sanitize drops or renames keys the model does not expect, returning
	// the transformed table. It must not mutate its input.
	Sanitize(weights map[string]*tensor.RawTensor) map[string]*tensor.RawTensor

	// Update installs loaded weights. With VerifyAll it fails with a
	// *VerificationError unless every expected parameter is satisfied and
	// nothing unexpected remains.
	Update(weights map[string]*tensor.RawTensor, verify Verification) error

	// Materialize forces any deferred representation of the installed
	// weights. After it returns nil, no parameter is left in a storage-only
	// encoding.
	Materialize() error
}

// Parameters is implemented by models that expose their installed weights.
type Parameters interface {
	Parameters() map[string]*tensor.RawTensor
}

// VerifyWeights compares provided keys against an expected parameter set.
// Companion entries (quantization scales and biases) count toward the base
// path they accompany. Returns nil when the sets match.
func VerifyWeights(weights map[string]*tensor.RawTensor, expected []string) error {
	provided := make(map[string]bool, len(weights))
	for key := range weights {
		provided[quant.BasePath(key)] = true
	}

	want := make(map[string]bool, len(expected))
	var missing []string
	for _, path := range expected {
		want[path] = true
		if !provided[path] {
			missing = append(missing, path)
		}
	}

	var extra []string
	for path := range provided {
		if !want[path] {
			extra = append(extra, path)
		}
	}

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return &VerificationError{Missing: missing, Extra: extra}
}

// dropKey reports whether a shard key is loader-side noise that no model
// consumes.
func dropKey(key string) bool {
	return strings.HasSuffix(key, ".rotary_emb.inv_freq") ||
		strings.HasPrefix(key, "optimizer.")
}
