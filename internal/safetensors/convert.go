package safetensors

import (
	"encoding/binary"
	"fmt"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/ember-ml/ember/internal/tensor"
)

// ToFloat32 converts a half-precision tensor to Float32. Float32 input is
// returned unchanged; other dtypes are an error.
func ToFloat32(raw *tensor.RawTensor) (*tensor.RawTensor, error) {
	switch raw.DType() {
	case tensor.Float32:
		return raw, nil
	case tensor.Float16:
		return convertF16(raw)
	case tensor.BFloat16:
		return convertBF16(raw)
	default:
		return nil, fmt.Errorf("cannot convert dtype %s to float32", raw.DType())
	}
}

func convertF16(raw *tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(raw.Shape(), tensor.Float32)
	if err != nil {
		return nil, err
	}

	src := raw.Data()
	dst := out.AsFloat32()
	for i := range dst {
		bits := binary.LittleEndian.Uint16(src[i*2:])
		dst[i] = float16.Frombits(bits).Float32()
	}
	return out, nil
}

func convertBF16(raw *tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(raw.Shape(), tensor.Float32)
	if err != nil {
		return nil, err
	}

	copy(out.AsFloat32(), bfloat16.DecodeFloat32(raw.Data()))
	return out, nil
}
