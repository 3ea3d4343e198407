// Package tablepb defines the wire types and gRPC surface of the table
// bridge. Bulk columns travel as packed little-endian buffers so a
// multi-spw read stays a handful of allocations per slice instead of a
// JSON number per visibility.
package tablepb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/snappy"
)

// Array codecs. Empty codec means raw little-endian bytes.
const (
	CodecNone   = ""
	CodecSnappy = "snappy"
)

// Float64Array is a packed little-endian float64 buffer.
type Float64Array struct {
	Shape []int64 `protobuf:"varint,1,rep,packed,name=shape,proto3" json:"shape,omitempty"`
	Codec string  `protobuf:"bytes,2,opt,name=codec,proto3" json:"codec,omitempty"`
	Raw   []byte  `protobuf:"bytes,3,opt,name=raw,proto3" json:"raw,omitempty"`
}

// Int32Array is a packed little-endian int32 buffer.
type Int32Array struct {
	Shape []int64 `protobuf:"varint,1,rep,packed,name=shape,proto3" json:"shape,omitempty"`
	Codec string  `protobuf:"bytes,2,opt,name=codec,proto3" json:"codec,omitempty"`
	Raw   []byte  `protobuf:"bytes,3,opt,name=raw,proto3" json:"raw,omitempty"`
}

// BoolArray is a packed one-byte-per-value buffer.
type BoolArray struct {
	Shape []int64 `protobuf:"varint,1,rep,packed,name=shape,proto3" json:"shape,omitempty"`
	Codec string  `protobuf:"bytes,2,opt,name=codec,proto3" json:"codec,omitempty"`
	Raw   []byte  `protobuf:"bytes,3,opt,name=raw,proto3" json:"raw,omitempty"`
}

// Complex128Array is a packed buffer of real/imag float64 pairs.
type Complex128Array struct {
	Shape []int64 `protobuf:"varint,1,rep,packed,name=shape,proto3" json:"shape,omitempty"`
	Codec string  `protobuf:"bytes,2,opt,name=codec,proto3" json:"codec,omitempty"`
	Raw   []byte  `protobuf:"bytes,3,opt,name=raw,proto3" json:"raw,omitempty"`
}

func elemCount(shape []int64) int {
	n := 1
	for _, s := range shape {
		n *= int(s)
	}
	return n
}

func compress(raw []byte) (string, []byte) {
	return CodecSnappy, snappy.Encode(nil, raw)
}

func expand(codec string, raw []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return raw, nil
	case CodecSnappy:
		out, err := snappy.Decode(nil, raw)
		if err != nil {
			return nil, fmt.Errorf("tablepb: snappy decode: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tablepb: unknown array codec %q", codec)
	}
}

// PackFloat64s packs vals into a snappy-compressed array with the given
// shape. A nil shape means a flat vector.
func PackFloat64s(vals []float64, shape ...int64) *Float64Array {
	if shape == nil {
		shape = []int64{int64(len(vals))}
	}
	raw := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	codec, packed := compress(raw)
	return &Float64Array{Shape: shape, Codec: codec, Raw: packed}
}

// Values unpacks the buffer. A nil array yields a nil slice.
func (a *Float64Array) Values() ([]float64, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := expand(a.Codec, a.Raw)
	if err != nil {
		return nil, err
	}
	n := elemCount(a.Shape)
	if len(raw) != 8*n {
		return nil, fmt.Errorf("tablepb: float64 array: %d bytes for shape %v", len(raw), a.Shape)
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return vals, nil
}

// PackInt32s packs vals into a snappy-compressed array with the given
// shape. A nil shape means a flat vector.
func PackInt32s(vals []int32, shape ...int64) *Int32Array {
	if shape == nil {
		shape = []int64{int64(len(vals))}
	}
	raw := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[4*i:], uint32(v))
	}
	codec, packed := compress(raw)
	return &Int32Array{Shape: shape, Codec: codec, Raw: packed}
}

// Values unpacks the buffer. A nil array yields a nil slice.
func (a *Int32Array) Values() ([]int32, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := expand(a.Codec, a.Raw)
	if err != nil {
		return nil, err
	}
	n := elemCount(a.Shape)
	if len(raw) != 4*n {
		return nil, fmt.Errorf("tablepb: int32 array: %d bytes for shape %v", len(raw), a.Shape)
	}
	vals := make([]int32, n)
	for i := range vals {
		vals[i] = int32(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vals, nil
}

// PackBools packs vals into a snappy-compressed array with the given
// shape. A nil shape means a flat vector.
func PackBools(vals []bool, shape ...int64) *BoolArray {
	if shape == nil {
		shape = []int64{int64(len(vals))}
	}
	raw := make([]byte, len(vals))
	for i, v := range vals {
		if v {
			raw[i] = 1
		}
	}
	codec, packed := compress(raw)
	return &BoolArray{Shape: shape, Codec: codec, Raw: packed}
}

// Values unpacks the buffer. A nil array yields a nil slice.
func (a *BoolArray) Values() ([]bool, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := expand(a.Codec, a.Raw)
	if err != nil {
		return nil, err
	}
	n := elemCount(a.Shape)
	if len(raw) != n {
		return nil, fmt.Errorf("tablepb: bool array: %d bytes for shape %v", len(raw), a.Shape)
	}
	vals := make([]bool, n)
	for i, b := range raw {
		vals[i] = b != 0
	}
	return vals, nil
}

// PackComplex128s packs vals as interleaved real/imag float64 pairs into
// a snappy-compressed array with the given shape. A nil shape means a
// flat vector.
func PackComplex128s(vals []complex128, shape ...int64) *Complex128Array {
	if shape == nil {
		shape = []int64{int64(len(vals))}
	}
	raw := make([]byte, 16*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(raw[16*i:], math.Float64bits(real(v)))
		binary.LittleEndian.PutUint64(raw[16*i+8:], math.Float64bits(imag(v)))
	}
	codec, packed := compress(raw)
	return &Complex128Array{Shape: shape, Codec: codec, Raw: packed}
}

// Values unpacks the buffer. A nil array yields a nil slice.
func (a *Complex128Array) Values() ([]complex128, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := expand(a.Codec, a.Raw)
	if err != nil {
		return nil, err
	}
	n := elemCount(a.Shape)
	if len(raw) != 16*n {
		return nil, fmt.Errorf("tablepb: complex128 array: %d bytes for shape %v", len(raw), a.Shape)
	}
	vals := make([]complex128, n)
	for i := range vals {
		re := math.Float64frombits(binary.LittleEndian.Uint64(raw[16*i:]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(raw[16*i+8:]))
		vals[i] = complex(re, im)
	}
	return vals, nil
}
