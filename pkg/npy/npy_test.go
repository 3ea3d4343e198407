package npy

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestWriteReadFloat64(t *testing.T) {
	var buf bytes.Buffer
	data := []float64{1.5, -2.5, 3.25, 0, 5, 6}
	if err := Write(&buf, []int{2, 3}, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// Data section starts 64-byte aligned.
	headerEnd := bytes.IndexByte(buf.Bytes(), '\n') + 1
	if headerEnd%64 != 0 {
		t.Fatalf("header ends at %d, not a multiple of 64", headerEnd)
	}

	arr, err := Read(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if arr.Dtype != "<f8" {
		t.Fatalf("unexpected dtype %q", arr.Dtype)
	}
	if len(arr.Shape) != 2 || arr.Shape[0] != 2 || arr.Shape[1] != 3 {
		t.Fatalf("unexpected shape %v", arr.Shape)
	}
	got, err := arr.Float64s()
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("element %d: expected %v, got %v", i, data[i], got[i])
		}
	}
}

func TestWriteReadComplex(t *testing.T) {
	var buf bytes.Buffer
	data := []complex128{complex(1, -1), complex(0.5, 2.25)}
	if err := Write(&buf, []int{2}, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	arr, err := Read(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if arr.Dtype != "<c16" {
		t.Fatalf("unexpected dtype %q", arr.Dtype)
	}
	got, err := arr.Complex128s()
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if got[0] != data[0] || got[1] != data[1] {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestWriteReadBoolAndInts(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []int{4}, []bool{true, false, true, true}); err != nil {
		t.Fatalf("bool write failed: %v", err)
	}
	arr, err := Read(&buf)
	if err != nil {
		t.Fatalf("bool read failed: %v", err)
	}
	b, err := arr.Bools()
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if !b[0] || b[1] || !b[3] {
		t.Fatalf("bool round trip mismatch: %v", b)
	}

	buf.Reset()
	if err := Write(&buf, []int{3}, []int32{-1, 0, 7}); err != nil {
		t.Fatalf("int32 write failed: %v", err)
	}
	arr, err = Read(&buf)
	if err != nil {
		t.Fatalf("int32 read failed: %v", err)
	}
	ints, err := arr.Int32s()
	if err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if ints[0] != -1 || ints[2] != 7 {
		t.Fatalf("int32 round trip mismatch: %v", ints)
	}
}

func TestWriteRejectsBadShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []int{3}, []float64{1, 2}); err == nil {
		t.Fatal("expected length/shape mismatch error")
	}
	if err := Write(&buf, nil, []float64{}); err == nil {
		t.Fatal("expected error for empty shape")
	}
	if err := Write(&buf, []int{1}, "not a slice"); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not numpy data"))); err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestNPZRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.npz")
	entries := []Entry{
		{Name: "uu", Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}},
		{Name: "data", Shape: []int{4}, Data: []complex128{1, 2i, -3, complex(0.5, 0.5)}},
		{Name: "flag", Shape: []int{4}, Data: []bool{false, true, false, false}},
	}
	if err := WriteNPZFile(path, entries); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	arrays, err := ReadNPZFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(arrays) != 3 {
		t.Fatalf("expected 3 members, got %d", len(arrays))
	}

	uu, err := arrays["uu"].Float64s()
	if err != nil {
		t.Fatalf("uu: %v", err)
	}
	if uu[3] != 4 {
		t.Fatalf("uu mismatch: %v", uu)
	}

	data, err := arrays["data"].Complex128s()
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if data[1] != 2i {
		t.Fatalf("data mismatch: %v", data)
	}

	flag, err := arrays["flag"].Bools()
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if !flag[1] {
		t.Fatalf("flag mismatch: %v", flag)
	}
}
