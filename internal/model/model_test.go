package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-ml/ember/internal/quant"
	"github.com/ember-ml/ember/internal/tensor"
)

func TestDecodeConfig(t *testing.T) {
	data := []byte(`{
		"model_type": "llama",
		"hidden_size": 64,
		"intermediate_size": 256,
		"num_hidden_layers": 2,
		"num_attention_heads": 8,
		"vocab_size": 1000,
		"rms_norm_eps": 1e-5
	}`)

	cfg, err := DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "llama", cfg.ModelType)
	assert.Equal(t, 2, cfg.NumLayers)
	assert.Equal(t, 8, cfg.NumKVHeads, "kv heads default to attention heads")
	assert.Nil(t, cfg.Quantization)
}

func TestDecodeConfig_Errors(t *testing.T) {
	_, err := DecodeConfig([]byte(`{not json`))
	var decodeErr *DecodingError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, ConfigFile, decodeErr.File)

	_, err = DecodeConfig([]byte(`{"hidden_size": 64}`))
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDecodeConfig_Quantization(t *testing.T) {
	data := []byte(`{
		"model_type": "llama",
		"num_hidden_layers": 1,
		"quantization": {
			"group_size": 64,
			"bits": 4,
			"model.layers.0.mlp.up_proj.weight": {"group_size": 32, "bits": 8}
		}
	}`)

	cfg, err := DecodeConfig(data)
	require.NoError(t, err)
	require.NotNil(t, cfg.Quantization)

	global := cfg.Quantization.Global()
	require.NotNil(t, global)
	assert.Equal(t, quant.Spec{GroupSize: 64, Bits: 4}, *global)

	resolver := cfg.Quantization.Resolver()
	require.NotNil(t, resolver)
	spec, ok := resolver("model.layers.0.mlp.up_proj.weight")
	require.True(t, ok)
	assert.Equal(t, quant.Spec{GroupSize: 32, Bits: 8}, spec)
	_, ok = resolver("model.norm.weight")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	_, err := New(Config{ModelType: "made-up-arch", NumLayers: 1})
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "made-up-arch", unsupported.Kind)

	m, err := New(Config{ModelType: "llama", NumLayers: 1})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func testTensor(t *testing.T) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.FromFloat32(tensor.Shape{2}, []float32{1, 2})
	require.NoError(t, err)
	return raw
}

func TestTransformer_ExpectedParameters(t *testing.T) {
	m, err := NewTransformer(Config{ModelType: "llama", NumLayers: 2})
	require.NoError(t, err)
	tr := m.(*Transformer)

	expected := tr.ExpectedParameters()
	assert.Contains(t, expected, "model.embed_tokens.weight")
	assert.Contains(t, expected, "lm_head.weight")
	assert.Contains(t, expected, "model.layers.1.self_attn.q_proj.weight")
	assert.Len(t, expected, 3+2*9)

	tied, err := NewTransformer(Config{ModelType: "llama", NumLayers: 1, TieWordEmbeddings: true})
	require.NoError(t, err)
	assert.NotContains(t, tied.(*Transformer).ExpectedParameters(), "lm_head.weight")
}

func TestTransformer_SanitizeDropsNoise(t *testing.T) {
	m, err := NewTransformer(Config{ModelType: "llama", NumLayers: 1})
	require.NoError(t, err)

	in := map[string]*tensor.RawTensor{
		"model.norm.weight":                            testTensor(t),
		"model.layers.0.self_attn.rotary_emb.inv_freq": testTensor(t),
	}
	out := m.Sanitize(in)

	assert.Contains(t, out, "model.norm.weight")
	assert.NotContains(t, out, "model.layers.0.self_attn.rotary_emb.inv_freq")
	assert.Len(t, in, 2, "input table is not mutated")
}

func TestVerifyWeights(t *testing.T) {
	expected := []string{"a.weight", "b.weight"}

	ok := map[string]*tensor.RawTensor{"a.weight": nil, "b.weight": nil}
	assert.NoError(t, VerifyWeights(ok, expected))

	// Companions satisfy their base path.
	quantized := map[string]*tensor.RawTensor{
		"a.weight": nil, "a.weight.scales": nil, "a.weight.biases": nil,
		"b.weight": nil,
	}
	assert.NoError(t, VerifyWeights(quantized, expected))

	bad := map[string]*tensor.RawTensor{"a.weight": nil, "c.weight": nil}
	err := VerifyWeights(bad, expected)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"b.weight"}, verr.Missing)
	assert.Equal(t, []string{"c.weight"}, verr.Extra)
}

func TestTransformer_UpdateVerifiesAndMaterializes(t *testing.T) {
	m, err := NewTransformer(Config{ModelType: "llama", NumLayers: 1})
	require.NoError(t, err)
	tr := m.(*Transformer)

	err = tr.Update(map[string]*tensor.RawTensor{"model.norm.weight": testTensor(t)}, VerifyAll)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Missing)

	weights := make(map[string]*tensor.RawTensor)
	for _, path := range tr.ExpectedParameters() {
		weights[path] = testTensor(t)
	}
	require.NoError(t, tr.Update(weights, VerifyAll))
	require.NoError(t, tr.Materialize())
	assert.Len(t, tr.Parameters(), len(weights))
}

func TestTransformer_MaterializeRejectsUncoveredPacked(t *testing.T) {
	m, err := NewTransformer(Config{ModelType: "llama", NumLayers: 1})
	require.NoError(t, err)
	tr := m.(*Transformer)

	packed, err := tensor.NewRaw(tensor.Shape{1}, tensor.Uint32)
	require.NoError(t, err)
	require.NoError(t, tr.Update(map[string]*tensor.RawTensor{"model.norm.weight": packed}, VerifyNone))

	assert.Error(t, tr.Materialize())
}
