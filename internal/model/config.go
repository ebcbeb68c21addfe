package model

import (
	"encoding/json"

	"github.com/ember-ml/ember/internal/quant"
)

// ConfigFile is the conventional name of the model configuration asset.
const ConfigFile = "config.json"

// Config holds the decoded model configuration.
type Config struct {
	ModelType         string              `json:"model_type"`
	HiddenSize        int                 `json:"hidden_size"`
	IntermediateSize  int                 `json:"intermediate_size"`
	NumLayers         int                 `json:"num_hidden_layers"`
	NumHeads          int                 `json:"num_attention_heads"`
	NumKVHeads        int                 `json:"num_key_value_heads"`
	VocabSize         int                 `json:"vocab_size"`
	RMSNormEps        float64             `json:"rms_norm_eps"`
	TieWordEmbeddings bool                `json:"tie_word_embeddings"`
	Quantization      *QuantizationConfig `json:"quantization"`
}

// QuantizationConfig carries the global quantization spec plus optional
// per-layer overrides. In the config JSON the overrides appear as extra
// object-valued entries inside the "quantization" object, keyed by tensor
// path.
type QuantizationConfig struct {
	quant.Spec
	Overrides map[string]quant.Spec
}

// UnmarshalJSON decodes the global spec and collects per-layer overrides.
func (q *QuantizationConfig) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &q.Spec); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if key == "group_size" || key == "bits" {
			continue
		}
		var override quant.Spec
		if err := json.Unmarshal(value, &override); err != nil {
			// Non-spec entries (version strings etc.) are ignored.
			continue
		}
		if override.GroupSize == 0 && override.Bits == 0 {
			continue
		}
		if q.Overrides == nil {
			q.Overrides = make(map[string]quant.Spec)
		}
		q.Overrides[key] = override
	}
	return nil
}

// Global returns the global spec, or nil when the config carries none.
func (q *QuantizationConfig) Global() *quant.Spec {
	if q == nil || (q.GroupSize == 0 && q.Bits == 0) {
		return nil
	}
	spec := q.Spec
	return &spec
}

// Resolver returns the per-layer lookup, or nil when no overrides exist.
func (q *QuantizationConfig) Resolver() quant.Resolver {
	if q == nil || len(q.Overrides) == 0 {
		return nil
	}
	return func(path string) (quant.Spec, bool) {
		spec, ok := q.Overrides[path]
		return spec, ok
	}
}

// DecodeConfig parses a config.json payload.
func DecodeConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, &DecodingError{File: ConfigFile, Message: err.Error()}
	}
	if cfg.ModelType == "" {
		return Config{}, &DecodingError{File: ConfigFile, Message: "missing model_type"}
	}
	if cfg.NumKVHeads == 0 {
		cfg.NumKVHeads = cfg.NumHeads
	}
	return cfg, nil
}
