package quant

import (
	"fmt"

	"github.com/ember-ml/ember/internal/safetensors"
	"github.com/ember-ml/ember/internal/tensor"
)

// Dequantize expands a grouped-affine packed weight back to float32.
//
// The packed tensor holds 32/bits consecutive elements per uint32 along the
// last axis. Each run of GroupSize expanded elements shares one scale and
// one bias: w = scale*q + bias. A nil biases tensor means bias 0 (symmetric
// quantization).
func Dequantize(packed, scales, biases *tensor.RawTensor, spec Spec) (*tensor.RawTensor, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if packed.DType() != tensor.Uint32 {
		return nil, fmt.Errorf("packed weight has dtype %s, want uint32", packed.DType())
	}

	scales, err := safetensors.ToFloat32(scales)
	if err != nil {
		return nil, fmt.Errorf("scales: %w", err)
	}
	if biases != nil {
		biases, err = safetensors.ToFloat32(biases)
		if err != nil {
			return nil, fmt.Errorf("biases: %w", err)
		}
	}

	perWord := 32 / spec.Bits
	mask := uint32(1)<<spec.Bits - 1

	inShape := packed.Shape()
	if len(inShape) == 0 {
		return nil, fmt.Errorf("packed weight must have at least one axis")
	}
	outShape := inShape.Clone()
	outShape[len(outShape)-1] *= perWord

	cols := outShape[len(outShape)-1]
	rows := outShape.NumElements() / cols
	if cols%spec.GroupSize != 0 {
		return nil, fmt.Errorf("row length %d not divisible by group size %d", cols, spec.GroupSize)
	}
	groups := cols / spec.GroupSize
	if scales.NumElements() != rows*groups {
		return nil, fmt.Errorf("scales have %d elements, want %d (%d rows x %d groups)",
			scales.NumElements(), rows*groups, rows, groups)
	}
	if biases != nil && biases.NumElements() != rows*groups {
		return nil, fmt.Errorf("biases have %d elements, want %d", biases.NumElements(), rows*groups)
	}

	out, err := tensor.NewRaw(outShape, tensor.Float32)
	if err != nil {
		return nil, err
	}

	words := packed.AsUint32()
	scaleVals := scales.AsFloat32()
	var biasVals []float32
	if biases != nil {
		biasVals = biases.AsFloat32()
	}
	dst := out.AsFloat32()

	// Expand word by word; all elements of one word fall in the same row.
	wordsPerRow := inShape[len(inShape)-1]
	for row := 0; row < rows; row++ {
		for w := 0; w < wordsPerRow; w++ {
			word := words[row*wordsPerRow+w]
			base := w * perWord
			for k := 0; k < perWord; k++ {
				col := base + k
				group := row*groups + col/spec.GroupSize
				q := float32(word >> (k * spec.Bits) & mask)
				val := scaleVals[group] * q
				if biasVals != nil {
					val += biasVals[group]
				}
				dst[row*cols+col] = val
			}
		}
	}

	return out, nil
}
