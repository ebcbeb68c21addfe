package model

import (
	"fmt"

	"github.com/ember-ml/ember/internal/quant"
	"github.com/ember-ml/ember/internal/safetensors"
	"github.com/ember-ml/ember/internal/tensor"
)

// Transformer is a decoder-only transformer parameter container covering
// the LLaMA/Mistral weight layout. It does not run inference; it owns the
// expected parameter skeleton, verification, and materialization.
type Transformer struct {
	cfg      Config
	expected []string
	params   map[string]*tensor.RawTensor
}

func init() {
	Register("llama", NewTransformer)
	Register("mistral", NewTransformer)
	Register("qwen2", NewTransformer)
}

// NewTransformer builds a transformer skeleton from the configuration.
func NewTransformer(cfg Config) (Model, error) {
	if cfg.NumLayers <= 0 {
		return nil, &DecodingError{File: ConfigFile, Message: fmt.Sprintf("invalid num_hidden_layers: %d", cfg.NumLayers)}
	}
	return &Transformer{
		cfg:      cfg,
		expected: expectedParams(cfg),
	}, nil
}

// expectedParams lists every parameter path the architecture requires.
// Naming follows the upstream checkpoint layout.
func expectedParams(cfg Config) []string {
	paths := []string{
		"model.embed_tokens.weight",
		"model.norm.weight",
	}
	if !cfg.TieWordEmbeddings {
		paths = append(paths, "lm_head.weight")
	}

	layerTensors := []string{
		"input_layernorm.weight",
		"post_attention_layernorm.weight",
		"self_attn.q_proj.weight",
		"self_attn.k_proj.weight",
		"self_attn.v_proj.weight",
		"self_attn.o_proj.weight",
		"mlp.gate_proj.weight",
		"mlp.up_proj.weight",
		"mlp.down_proj.weight",
	}
	for i := 0; i < cfg.NumLayers; i++ {
		for _, name := range layerTensors {
			paths = append(paths, fmt.Sprintf("model.layers.%d.%s", i, name))
		}
	}
	return paths
}

// Config returns the configuration the model was built from.
func (t *Transformer) Config() Config {
	return t.cfg
}

// ExpectedParameters returns the parameter paths verification checks for.
func (t *Transformer) ExpectedParameters() []string {
	out := make([]string, len(t.expected))
	copy(out, t.expected)
	return out
}

// Sanitize drops keys no transformer consumes. The input table is not
// mutated.
func (t *Transformer) Sanitize(weights map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor, len(weights))
	for key, value := range weights {
		if dropKey(key) {
			continue
		}
		out[key] = value
	}
	return out
}

// Update installs the supplied weights, verifying them first when asked.
func (t *Transformer) Update(weights map[string]*tensor.RawTensor, verify Verification) error {
	if verify == VerifyAll {
		if err := VerifyWeights(weights, t.expected); err != nil {
			return err
		}
	}
	if t.params == nil {
		t.params = make(map[string]*tensor.RawTensor, len(weights))
	}
	for key, value := range weights {
		t.params[key] = value
	}
	return nil
}

// Materialize converts every installed parameter out of its storage-only
// encoding: half-precision tensors become float32. A packed quantized
// weight still present here means no spec covered it, which is an error;
// callers must not observe partially-lazy state after Materialize succeeds.
func (t *Transformer) Materialize() error {
	for key, value := range t.params {
		switch value.DType() {
		case tensor.Float16, tensor.BFloat16:
			converted, err := safetensors.ToFloat32(value)
			if err != nil {
				return fmt.Errorf("materialize %s: %w", key, err)
			}
			t.params[key] = converted
		case tensor.Uint32:
			if !quant.IsCompanion(key) {
				return fmt.Errorf("materialize %s: packed quantized weight has no quantization spec", key)
			}
		}
	}
	return nil
}

// Parameters returns the installed parameter table.
func (t *Transformer) Parameters() map[string]*tensor.RawTensor {
	return t.params
}
