// Package weights aggregates a model's weight shards into a single
// parameter table and runs the post-load initialization steps: sanitize,
// quantization merge, verified update, materialize.
package weights

import (
	"sort"

	"github.com/ember-ml/ember/internal/tensor"
)

// Table is the merged key→tensor mapping assembled from all shards of one
// load. It is owned by a single aggregation; it grows until handoff to the
// model update and is discarded afterwards.
//
// Duplicate keys across shards follow a last-shard-wins policy, which is
// deterministic because shards are processed in lexicographic path order.
// The defining shard index is recorded per key so the policy is observable.
type Table struct {
	tensors map[string]*tensor.RawTensor
	origin  map[string]int // key → 1-based index of the defining shard
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		tensors: make(map[string]*tensor.RawTensor),
		origin:  make(map[string]int),
	}
}

// Set merges one tensor under key, recording the 1-based shard index that
// defined it. A later shard silently replaces an earlier definition.
func (t *Table) Set(key string, raw *tensor.RawTensor, shard int) {
	t.tensors[key] = raw
	t.origin[key] = shard
}

// Get returns the tensor for key, if present.
func (t *Table) Get(key string) (*tensor.RawTensor, bool) {
	raw, ok := t.tensors[key]
	return raw, ok
}

// Origin returns the 1-based index of the shard that last defined key.
func (t *Table) Origin(key string) (int, bool) {
	idx, ok := t.origin[key]
	return idx, ok
}

// Len returns the number of keys in the table.
func (t *Table) Len() int {
	return len(t.tensors)
}

// Keys returns all keys in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.tensors))
	for key := range t.tensors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Tensors hands off the underlying mapping. The table must not be used for
// further merging after handoff.
func (t *Table) Tensors() map[string]*tensor.RawTensor {
	return t.tensors
}

// remove deletes a key and its origin record.
func (t *Table) remove(key string) {
	delete(t.tensors, key)
	delete(t.origin, key)
}

// replace swaps the underlying mapping, used after a sanitize pass returns
// a transformed table.
func (t *Table) replace(tensors map[string]*tensor.RawTensor) {
	t.tensors = tensors
	for key := range t.origin {
		if _, ok := tensors[key]; !ok {
			delete(t.origin, key)
		}
	}
}
