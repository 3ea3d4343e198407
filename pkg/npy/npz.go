package npy

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry names one array of an .npz archive.
type Entry struct {
	Name  string
	Shape []int
	Data  any
}

// WriteNPZ writes entries as a zip of .npy members, the layout
// numpy.savez produces.
func WriteNPZ(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		if e.Name == "" {
			return fmt.Errorf("npz: entry with empty name")
		}
		f, err := zw.Create(e.Name + ".npy")
		if err != nil {
			return err
		}
		if err := Write(f, e.Shape, e.Data); err != nil {
			return fmt.Errorf("npz: %s: %w", e.Name, err)
		}
	}
	return zw.Close()
}

// WriteNPZFile writes an .npz archive to path.
func WriteNPZFile(path string, entries []Entry) error {
	var buf bytes.Buffer
	if err := WriteNPZ(&buf, entries); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadNPZ decodes every member of an .npz archive, keyed by member name
// with the ".npy" suffix stripped.
func ReadNPZ(r io.ReaderAt, size int64) (map[string]*Array, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("npz: %w", err)
	}

	out := make(map[string]*Array, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("npz: %s: %w", f.Name, err)
		}
		arr, err := Read(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("npz: %s: %w", f.Name, err)
		}
		out[strings.TrimSuffix(f.Name, ".npy")] = arr
	}
	return out, nil
}

// ReadNPZFile decodes an .npz archive from disk.
func ReadNPZFile(path string) (map[string]*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return ReadNPZ(f, info.Size())
}
