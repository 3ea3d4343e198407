package ms

import (
	"context"
	"testing"
)

type stubTable struct {
	opts Options
}

func (s *stubTable) Info(ctx context.Context) (*TableInfo, error) { return &TableInfo{}, nil }
func (s *stubTable) DataDescriptions(ctx context.Context) ([]*DataDescription, error) {
	return nil, nil
}
func (s *stubTable) SpectralWindow(ctx context.Context, spwID int) (*SpectralWindow, error) {
	return nil, nil
}
func (s *stubTable) Antennas(ctx context.Context) ([]*Antenna, error)        { return nil, nil }
func (s *stubTable) ReadChunk(ctx context.Context, req *ReadRequest) (*Chunk, error) {
	return &Chunk{}, nil
}
func (s *stubTable) Close() error { return nil }

func TestRegistryOpenParsesURL(t *testing.T) {
	reg := NewRegistry()
	var seen Options
	reg.Register("stub", func(ctx context.Context, opts Options) (Table, error) {
		seen = opts
		return &stubTable{opts: opts}, nil
	})

	tbl, err := reg.Open(context.Background(), "stub:/data/AS209.ms?seed=42&flag=true")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer tbl.Close()

	if seen.Path != "/data/AS209.ms" {
		t.Fatalf("unexpected path %q", seen.Path)
	}
	if got := seen.Int("seed", 0); got != 42 {
		t.Fatalf("expected seed=42, got %d", got)
	}
	if !seen.Bool("flag", false) {
		t.Fatal("expected flag=true")
	}
}

func TestRegistryOpenHostURL(t *testing.T) {
	reg := NewRegistry()
	reg.Register("net", func(ctx context.Context, opts Options) (Table, error) {
		if opts.Host != "localhost:7040" {
			t.Fatalf("unexpected host %q", opts.Host)
		}
		if opts.Path != "/AS209" {
			t.Fatalf("unexpected path %q", opts.Path)
		}
		return &stubTable{}, nil
	})

	if _, err := reg.Open(context.Background(), "net://localhost:7040/AS209"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
}

func TestRegistryUnknownScheme(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Open(context.Background(), "nosuch:/x")
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !IsCode(err, CodeUnknownBackend) {
		t.Fatalf("expected %s, got %v", CodeUnknownBackend, err)
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	factory := func(ctx context.Context, opts Options) (Table, error) { return &stubTable{}, nil }
	reg.Register("dup", factory)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	reg.Register("dup", factory)
}

func TestOptionsInts(t *testing.T) {
	o := Options{Params: map[string]string{"spws": "9, 11,13"}}
	got := o.Ints("spws")
	want := []int{9, 11, 13}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if o.Ints("missing") != nil {
		t.Fatal("missing key should yield nil")
	}
}
