// Package tensor provides the value types a loaded weight table is built
// from: shapes, runtime data types, and raw host-memory tensors.
package tensor

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types. Float16 and BFloat16 are storage types only; they
// are converted to Float32 when a model is materialized. Uint32 is the
// packed storage type for grouped-affine quantized weights.
const (
	Float32 DataType = iota
	Float16
	BFloat16
	Int32
	Int64
	Uint8
	Uint32
	Bool
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32, Uint32:
		return 4
	case Float16, BFloat16:
		return 2
	case Int64:
		return 8
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint32:
		return "uint32"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}
