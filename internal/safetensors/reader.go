// Package safetensors reads and writes the SafeTensors weight-shard format:
// an 8-byte little-endian header size, a JSON header describing each tensor,
// then the raw tensor data.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ember-ml/ember/internal/tensor"
)

// maxHeaderSize bounds the JSON header; anything larger is a corrupt file.
const maxHeaderSize = 100 * 1024 * 1024

// DType identifies a tensor's storage type in the file header.
type DType string

// Supported SafeTensors dtypes.
const (
	F32  DType = "F32"
	F16  DType = "F16"
	BF16 DType = "BF16"
	I32  DType = "I32"
	I64  DType = "I64"
	U8   DType = "U8"
	U32  DType = "U32"
	Bool DType = "BOOL"
)

// TensorInfo describes one tensor in the header.
type TensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end]
}

// Header is the parsed JSON header of a SafeTensors file.
type Header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

// UnmarshalJSON splits the flat header map into __metadata__ and tensors.
func (h *Header) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if metaRaw, ok := raw["__metadata__"]; ok {
		if err := json.Unmarshal(metaRaw, &h.Metadata); err != nil {
			return fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]TensorInfo, len(raw))
	for key, value := range raw {
		if key == "__metadata__" {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}

	return nil
}

// Reader reads tensors from a single SafeTensors file.
type Reader struct {
	file       *os.File
	header     Header
	dataOffset int64 // Offset where tensor data starts
}

// Open opens a SafeTensors file and parses its header.
func Open(path string) (*Reader, error) {
	//nolint:gosec // G304: shard paths come from directory discovery
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shard: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("invalid header size: %d (too large)", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("parse header JSON: %w", err)
	}

	return &Reader{
		file:       file,
		header:     header,
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: header size bounded above
	}, nil
}

// Sniff reports whether the file at path plausibly is a SafeTensors file:
// a sane header size followed by a JSON object opener. Discovery marks
// candidates by extension; the format itself is decided by content.
func Sniff(path string) bool {
	//nolint:gosec // G304: shard paths come from directory discovery
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() {
		_ = file.Close()
	}()

	var buf [9]byte
	if _, err := io.ReadFull(file, buf[:]); err != nil {
		return false
	}
	headerSize := binary.LittleEndian.Uint64(buf[:8])
	return headerSize > 0 && headerSize <= maxHeaderSize && buf[8] == '{'
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the __metadata__ map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns all tensor names in the file.
func (r *Reader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	return names
}

// TensorInfo returns header information for one tensor.
func (r *Reader) TensorInfo(name string) (*TensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	return &info, nil
}

// ReadTensorData reads the raw bytes of one tensor.
func (r *Reader) ReadTensorData(name string) ([]byte, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	start := r.dataOffset + info.DataOffsets[0]
	size := info.DataOffsets[1] - info.DataOffsets[0]
	if size < 0 {
		return nil, fmt.Errorf("invalid data offsets for tensor %s: [%d, %d]",
			name, info.DataOffsets[0], info.DataOffsets[1])
	}

	if _, err := r.file.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to tensor data: %w", err)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return nil, fmt.Errorf("read tensor data: %w", err)
	}

	return data, nil
}

// LoadTensor reads one tensor into a RawTensor, keeping its storage dtype.
// F16 and BF16 payloads stay in their 2-byte encodings until a model is
// materialized.
func (r *Reader) LoadTensor(name string) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, err := toDataType(info.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	shape := tensor.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}

	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, err
	}

	raw, err := tensor.FromBytes(shape, dtype, data)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return raw, nil
}

// LoadAll reads every tensor in the file, keyed by name.
func (r *Reader) LoadAll() (map[string]*tensor.RawTensor, error) {
	tensors := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for name := range r.header.Tensors {
		raw, err := r.LoadTensor(name)
		if err != nil {
			return nil, err
		}
		tensors[name] = raw
	}
	return tensors, nil
}

// toDataType converts a SafeTensors dtype to the runtime DataType.
func toDataType(dtype DType) (tensor.DataType, error) {
	switch dtype {
	case F32:
		return tensor.Float32, nil
	case F16:
		return tensor.Float16, nil
	case BF16:
		return tensor.BFloat16, nil
	case I32:
		return tensor.Int32, nil
	case I64:
		return tensor.Int64, nil
	case U8:
		return tensor.Uint8, nil
	case U32:
		return tensor.Uint32, nil
	case Bool:
		return tensor.Bool, nil
	default:
		return 0, fmt.Errorf("unsupported dtype: %s", dtype)
	}
}

// fromDataType converts a runtime DataType to its SafeTensors dtype.
func fromDataType(dt tensor.DataType) (DType, error) {
	switch dt {
	case tensor.Float32:
		return F32, nil
	case tensor.Float16:
		return F16, nil
	case tensor.BFloat16:
		return BF16, nil
	case tensor.Int32:
		return I32, nil
	case tensor.Int64:
		return I64, nil
	case tensor.Uint8:
		return U8, nil
	case tensor.Uint32:
		return U32, nil
	case tensor.Bool:
		return Bool, nil
	default:
		return "", fmt.Errorf("dtype %s has no SafeTensors encoding", dt)
	}
}
