// Package npy reads and writes NumPy ".npy" arrays and ".npz" archives for
// the little-endian C-order dtypes visibility exports need: <f8, <f4, <i4,
// <i8, <c16, |b1 and |u1. Files written here load with numpy.load without a
// CASA installation anywhere in sight.
package npy

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var magic = []byte("\x93NUMPY")

// Array is a decoded .npy payload. Data holds a typed slice matching Dtype.
type Array struct {
	Dtype string
	Shape []int
	Data  any
}

// Elements returns the element count implied by the shape.
func (a *Array) Elements() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Float64s returns the payload as []float64.
func (a *Array) Float64s() ([]float64, error) {
	v, ok := a.Data.([]float64)
	if !ok {
		return nil, fmt.Errorf("npy: array is %s, not <f8", a.Dtype)
	}
	return v, nil
}

// Complex128s returns the payload as []complex128.
func (a *Array) Complex128s() ([]complex128, error) {
	v, ok := a.Data.([]complex128)
	if !ok {
		return nil, fmt.Errorf("npy: array is %s, not <c16", a.Dtype)
	}
	return v, nil
}

// Bools returns the payload as []bool.
func (a *Array) Bools() ([]bool, error) {
	v, ok := a.Data.([]bool)
	if !ok {
		return nil, fmt.Errorf("npy: array is %s, not |b1", a.Dtype)
	}
	return v, nil
}

// Int32s returns the payload as []int32.
func (a *Array) Int32s() ([]int32, error) {
	v, ok := a.Data.([]int32)
	if !ok {
		return nil, fmt.Errorf("npy: array is %s, not <i4", a.Dtype)
	}
	return v, nil
}

// Int64s returns the payload as []int64.
func (a *Array) Int64s() ([]int64, error) {
	v, ok := a.Data.([]int64)
	if !ok {
		return nil, fmt.Errorf("npy: array is %s, not <i8", a.Dtype)
	}
	return v, nil
}

func dtypeOf(data any) (string, int, error) {
	switch v := data.(type) {
	case []float64:
		return "<f8", len(v), nil
	case []float32:
		return "<f4", len(v), nil
	case []int32:
		return "<i4", len(v), nil
	case []int64:
		return "<i8", len(v), nil
	case []complex128:
		return "<c16", len(v), nil
	case []bool:
		return "|b1", len(v), nil
	case []uint8:
		return "|u1", len(v), nil
	default:
		return "", 0, fmt.Errorf("npy: unsupported element type %T", data)
	}
}

func shapeTuple(shape []int) string {
	if len(shape) == 1 {
		return fmt.Sprintf("(%d,)", shape[0])
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Write encodes data as a version 1.0 .npy stream. The element type of data
// determines the dtype; its length must match the shape.
func Write(w io.Writer, shape []int, data any) error {
	dtype, n, err := dtypeOf(data)
	if err != nil {
		return err
	}
	want := 1
	for _, d := range shape {
		want *= d
	}
	if len(shape) == 0 || n != want {
		return fmt.Errorf("npy: %d elements do not fill shape %v", n, shape)
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", dtype, shapeTuple(shape))
	// Pad so the data section starts on a 64-byte boundary.
	unpadded := len(magic) + 2 + 2 + len(header) + 1
	pad := (64 - unpadded%64) % 64
	header += strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(magic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

// Read decodes a .npy stream. Fortran-ordered and big-endian arrays are
// rejected; nothing in this module produces them.
func Read(r io.Reader) (*Array, error) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("npy: short header: %w", err)
	}
	if string(head[:6]) != string(magic) {
		return nil, fmt.Errorf("npy: bad magic %q", head[:6])
	}

	var headerLen int
	switch head[6] {
	case 1:
		var l uint16
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return nil, err
		}
		headerLen = int(l)
	case 2, 3:
		var l uint32
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return nil, err
		}
		headerLen = int(l)
	default:
		return nil, fmt.Errorf("npy: unsupported format version %d.%d", head[6], head[7])
	}

	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("npy: short header dict: %w", err)
	}
	header := string(raw)

	dtype, err := headerField(header, "descr")
	if err != nil {
		return nil, err
	}
	if strings.Contains(header, "'fortran_order': True") {
		return nil, fmt.Errorf("npy: fortran-ordered arrays are not supported")
	}
	shape, err := headerShape(header)
	if err != nil {
		return nil, err
	}

	n := 1
	for _, d := range shape {
		n *= d
	}

	arr := &Array{Dtype: dtype, Shape: shape}
	switch dtype {
	case "<f8":
		v := make([]float64, n)
		err = binary.Read(r, binary.LittleEndian, v)
		arr.Data = v
	case "<f4":
		v := make([]float32, n)
		err = binary.Read(r, binary.LittleEndian, v)
		arr.Data = v
	case "<i4":
		v := make([]int32, n)
		err = binary.Read(r, binary.LittleEndian, v)
		arr.Data = v
	case "<i8":
		v := make([]int64, n)
		err = binary.Read(r, binary.LittleEndian, v)
		arr.Data = v
	case "<c16":
		v := make([]complex128, n)
		err = binary.Read(r, binary.LittleEndian, v)
		arr.Data = v
	case "|b1":
		v := make([]bool, n)
		err = binary.Read(r, binary.LittleEndian, v)
		arr.Data = v
	case "|u1":
		v := make([]uint8, n)
		err = binary.Read(r, binary.LittleEndian, v)
		arr.Data = v
	default:
		return nil, fmt.Errorf("npy: unsupported dtype %q", dtype)
	}
	if err != nil {
		return nil, fmt.Errorf("npy: short data section: %w", err)
	}
	return arr, nil
}

func headerField(header, key string) (string, error) {
	marker := "'" + key + "': '"
	i := strings.Index(header, marker)
	if i < 0 {
		return "", fmt.Errorf("npy: header missing %s", key)
	}
	rest := header[i+len(marker):]
	j := strings.IndexByte(rest, '\'')
	if j < 0 {
		return "", fmt.Errorf("npy: malformed header value for %s", key)
	}
	return rest[:j], nil
}

func headerShape(header string) ([]int, error) {
	i := strings.Index(header, "'shape':")
	if i < 0 {
		return nil, fmt.Errorf("npy: header missing shape")
	}
	rest := header[i:]
	open := strings.IndexByte(rest, '(')
	close_ := strings.IndexByte(rest, ')')
	if open < 0 || close_ < open {
		return nil, fmt.Errorf("npy: malformed shape tuple")
	}

	var shape []int
	for _, part := range strings.Split(rest[open+1:close_], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("npy: bad shape dimension %q", part)
		}
		shape = append(shape, d)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("npy: scalar arrays are not supported")
	}
	return shape, nil
}
