package asdf

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// NDArray is an n-dimensional array stored in an ASDF binary block. The
// payload is little-endian C-order, one block per array.
type NDArray struct {
	Datatype  string // float64, complex128, bool8, int32, int64
	ByteOrder string
	Shape     []int
	Source    int // block index, assigned while writing

	data []byte
}

// Elements returns the element count implied by the shape.
func (a *NDArray) Elements() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

func newArray(datatype string, shape []int, payload any) *NDArray {
	var buf bytes.Buffer
	// binary.Write cannot fail on a bytes.Buffer with fixed-size elements.
	_ = binary.Write(&buf, binary.LittleEndian, payload)
	return &NDArray{Datatype: datatype, ByteOrder: "little", Shape: shape, data: buf.Bytes()}
}

// Float64Array builds a float64 NDArray.
func Float64Array(shape []int, vals []float64) *NDArray {
	return newArray("float64", shape, vals)
}

// Complex128Array builds a complex128 NDArray.
func Complex128Array(shape []int, vals []complex128) *NDArray {
	return newArray("complex128", shape, vals)
}

// BoolArray builds a bool8 NDArray.
func BoolArray(shape []int, vals []bool) *NDArray {
	return newArray("bool8", shape, vals)
}

// Int32Array builds an int32 NDArray.
func Int32Array(shape []int, vals []int32) *NDArray {
	return newArray("int32", shape, vals)
}

// Int64Array builds an int64 NDArray.
func Int64Array(shape []int, vals []int64) *NDArray {
	return newArray("int64", shape, vals)
}

func (a *NDArray) decode(datatype string, out any) error {
	if a.Datatype != datatype {
		return fmt.Errorf("asdf: array is %s, not %s", a.Datatype, datatype)
	}
	if a.ByteOrder != "" && a.ByteOrder != "little" {
		return fmt.Errorf("asdf: unsupported byte order %q", a.ByteOrder)
	}
	return binary.Read(bytes.NewReader(a.data), binary.LittleEndian, out)
}

// Float64s decodes the block payload as []float64.
func (a *NDArray) Float64s() ([]float64, error) {
	out := make([]float64, a.Elements())
	if err := a.decode("float64", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Complex128s decodes the block payload as []complex128.
func (a *NDArray) Complex128s() ([]complex128, error) {
	out := make([]complex128, a.Elements())
	if err := a.decode("complex128", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Bools decodes the block payload as []bool.
func (a *NDArray) Bools() ([]bool, error) {
	out := make([]bool, a.Elements())
	if err := a.decode("bool8", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Int32s decodes the block payload as []int32.
func (a *NDArray) Int32s() ([]int32, error) {
	out := make([]int32, a.Elements())
	if err := a.decode("int32", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Int64s decodes the block payload as []int64.
func (a *NDArray) Int64s() ([]int64, error) {
	out := make([]int64, a.Elements())
	if err := a.decode("int64", out); err != nil {
		return nil, err
	}
	return out, nil
}
