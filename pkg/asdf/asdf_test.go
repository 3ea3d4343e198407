package asdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	tree := map[string]any{
		"telescope": "ALMA",
		"spw_id":    3,
		"averaged":  true,
		"freqs":     Float64Array([]int{3}, []float64{230e9, 231e9, 232e9}),
		"data":      Complex128Array([]int{2, 2}, []complex128{1, 2i, complex(3, -1), -4}),
		"flag":      BoolArray([]int{4}, []bool{false, true, false, false}),
		"nested": map[string]any{
			"sigma_rescale": 1.4142,
			"spws":          []int{9, 11, 13},
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, tree); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("#ASDF 1.0.0\n")) {
		t.Fatal("missing ASDF header")
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if got["telescope"] != "ALMA" {
		t.Fatalf("expected telescope ALMA, got %v", got["telescope"])
	}
	if got["spw_id"] != 3 {
		t.Fatalf("expected spw_id 3, got %v", got["spw_id"])
	}
	if got["averaged"] != true {
		t.Fatalf("expected averaged true, got %v", got["averaged"])
	}

	freqs, ok := got["freqs"].(*NDArray)
	if !ok {
		t.Fatalf("freqs is %T, not *NDArray", got["freqs"])
	}
	fv, err := freqs.Float64s()
	if err != nil {
		t.Fatalf("freqs decode: %v", err)
	}
	if fv[1] != 231e9 {
		t.Fatalf("freqs mismatch: %v", fv)
	}

	data, ok := got["data"].(*NDArray)
	if !ok {
		t.Fatalf("data is %T, not *NDArray", got["data"])
	}
	if len(data.Shape) != 2 || data.Shape[0] != 2 || data.Shape[1] != 2 {
		t.Fatalf("data shape mismatch: %v", data.Shape)
	}
	dv, err := data.Complex128s()
	if err != nil {
		t.Fatalf("data decode: %v", err)
	}
	if dv[1] != 2i || dv[2] != complex(3, -1) {
		t.Fatalf("data mismatch: %v", dv)
	}

	flag, _ := got["flag"].(*NDArray)
	bv, err := flag.Bools()
	if err != nil {
		t.Fatalf("flag decode: %v", err)
	}
	if !bv[1] || bv[0] {
		t.Fatalf("flag mismatch: %v", bv)
	}

	nested, ok := got["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested is %T", got["nested"])
	}
	if nested["sigma_rescale"] != 1.4142 {
		t.Fatalf("nested float mismatch: %v", nested["sigma_rescale"])
	}

	if _, ok := got["asdf_library"]; !ok {
		t.Fatal("expected asdf_library entry in tree")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.asdf")
	tree := map[string]any{
		"weight": Float64Array([]int{2}, []float64{0.5, 0.25}),
	}
	if err := WriteFile(path, tree); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	w, ok := got["weight"].(*NDArray)
	if !ok {
		t.Fatalf("weight is %T", got["weight"])
	}
	wv, err := w.Float64s()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wv[0] != 0.5 || wv[1] != 0.25 {
		t.Fatalf("weight mismatch: %v", wv)
	}
}

func TestReadDetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	tree := map[string]any{
		"x": Float64Array([]int{2}, []float64{1, 2}),
	}
	if err := Write(&buf, tree); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	raw := buf.Bytes()
	payloadStart := bytes.Index(raw, blockMagic) + len(blockMagic) + 2 + blockHeaderSize
	raw[payloadStart] ^= 0xff

	if _, err := Read(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected checksum mismatch on corrupted payload")
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not an asdf file"))); err == nil {
		t.Fatal("expected header error")
	}
	if _, err := ReadFile(filepath.Join(os.TempDir(), "nonexistent-visread.asdf")); err == nil {
		t.Fatal("expected missing file error")
	}
}
