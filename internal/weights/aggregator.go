package weights

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ember-ml/ember/internal/model"
	"github.com/ember-ml/ember/internal/progress"
	"github.com/ember-ml/ember/internal/quant"
	"github.com/ember-ml/ember/internal/safetensors"
	"github.com/ember-ml/ember/internal/tensor"
)

// shardExtensions marks files as weight-shard candidates. The actual format
// is sniffed from content at parse time.
var shardExtensions = map[string]bool{
	".safetensors": true,
	".bin":         true,
}

// Shard describes one discovered weight-shard file.
type Shard struct {
	Name string // base file name, used in phase events
	Path string // absolute or directory-relative path
}

// Discover lists all weight-shard files below dir, recursively, ordered
// lexicographically by relative path so that repeated loads of an unchanged
// directory assign the same indices.
func Discover(dir string) ([]Shard, error) {
	var shards []Shard
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if shardExtensions[strings.ToLower(filepath.Ext(path))] {
			shards = append(shards, Shard{Name: d.Name(), Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate shards in %s: %w", dir, err)
	}

	// WalkDir already yields lexical order; sort anyway so the index
	// assignment never depends on traversal details.
	sort.Slice(shards, func(i, j int) bool { return shards[i].Path < shards[j].Path })
	return shards, nil
}

// LoadAll parses every shard in order into a single table. A LoadingWeights
// event is emitted before each shard is parsed, with 1-based indices. Any
// parse failure aborts the whole load; there is no partial-table recovery.
// Cancellation is checked before each shard so a torn table is never handed
// onward.
func LoadAll(ctx context.Context, shards []Shard, emit progress.Sink) (*Table, error) {
	table := NewTable()
	total := len(shards)

	for i, shard := range shards {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load aborted before shard %s: %w", shard.Name, err)
		}

		emit(progress.LoadingWeights{File: shard.Name, Index: i + 1, Total: total})

		tensors, err := loadShard(shard.Path)
		if err != nil {
			return nil, fmt.Errorf("load shard %s: %w", shard.Name, err)
		}
		for key, raw := range tensors {
			table.Set(key, raw, i+1)
		}
	}

	return table, nil
}

// loadShard parses one shard file into a key→tensor mapping.
func loadShard(path string) (map[string]*tensor.RawTensor, error) {
	if !safetensors.Sniff(path) {
		return nil, fmt.Errorf("%s is not a safetensors file", filepath.Base(path))
	}
	reader, err := safetensors.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()
	return reader.LoadAll()
}

// Finalize runs the post-load steps around the InitializingModel phase:
// sanitize, quantization-parameter merge, verified update, materialize.
// Errors propagate unwrapped; emitting Failed is the orchestrator's job.
func Finalize(ctx context.Context, table *Table, m model.Model, qcfg *model.QuantizationConfig, emit progress.Sink) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("finalize aborted: %w", err)
	}

	emit(progress.InitializingModel{})

	table.replace(m.Sanitize(table.Tensors()))

	if err := applyQuantization(table, qcfg); err != nil {
		return err
	}

	if err := m.Update(table.Tensors(), model.VerifyAll); err != nil {
		return err
	}

	return m.Materialize()
}

// applyQuantization resolves a spec for every path with a scales companion
// (per-layer lookup first, then the global spec) and expands those packed
// weights in place. Paths without a scales companion stay untouched even
// under a global spec.
func applyQuantization(table *Table, qcfg *model.QuantizationConfig) error {
	if qcfg == nil {
		return nil
	}

	plan := quant.Plan(table.Keys(), qcfg.Global(), qcfg.Resolver())
	for _, path := range quant.PlannedPaths(plan) {
		packed, ok := table.Get(path)
		if !ok {
			continue
		}
		scales, _ := table.Get(quant.ScalesKey(path))
		biases, _ := table.Get(quant.BiasesKey(path))

		expanded, err := quant.Dequantize(packed, scales, biases, plan[path])
		if err != nil {
			return fmt.Errorf("dequantize %s: %w", path, err)
		}

		shard, _ := table.Origin(path)
		table.Set(path, expanded, shard)
		table.remove(quant.ScalesKey(path))
		table.remove(quant.BiasesKey(path))
	}
	return nil
}
