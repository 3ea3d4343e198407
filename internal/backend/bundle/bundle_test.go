package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mpol-dev/visread/internal/backend/sim"
	"github.com/mpol-dev/visread/internal/export"
	"github.com/mpol-dev/visread/internal/ms"
)

// exportDir simulates a small table and exports it as npz, returning both
// so tests can compare the round trip.
func exportDir(t *testing.T, withModel bool) (string, ms.Table) {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.NumAntennas = 3
	cfg.NumIntegrations = 4
	cfg.Channels = []int{4, 6}
	cfg.WithModel = withModel
	tbl, err := sim.New(cfg)
	if err != nil {
		t.Fatalf("sim.New: %v", err)
	}
	t.Cleanup(func() { tbl.Close() })

	dir := t.TempDir()
	exp := export.New(zerolog.Nop())
	if _, err := exp.Run(context.Background(), tbl, export.Options{Dir: dir}); err != nil {
		t.Fatalf("export: %v", err)
	}
	return dir, tbl
}

func TestBundleRoundTrip(t *testing.T) {
	dir, tbl := exportDir(t, true)
	ctx := context.Background()

	b, err := ms.Open(ctx, "bundle:"+dir)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer b.Close()

	want, err := tbl.Info(ctx)
	if err != nil {
		t.Fatalf("sim info: %v", err)
	}
	got, err := b.Info(ctx)
	if err != nil {
		t.Fatalf("bundle info: %v", err)
	}
	if got.Name != want.Name || got.Telescope != want.Telescope {
		t.Fatalf("info mismatch: got %q/%q want %q/%q", got.Name, got.Telescope, want.Name, want.Telescope)
	}
	if got.NumRows != want.NumRows {
		t.Fatalf("rows: got %d want %d", got.NumRows, want.NumRows)
	}
	if len(got.DataDescIDs) != 2 {
		t.Fatalf("data desc ids: %v", got.DataDescIDs)
	}
	if !got.HasColumn(ms.ColModelData) {
		t.Fatalf("bundle should advertise MODEL_DATA, columns %v", got.Columns)
	}

	ants, err := b.Antennas(ctx)
	if err != nil {
		t.Fatalf("antennas: %v", err)
	}
	wantAnts, _ := tbl.Antennas(ctx)
	if len(ants) != len(wantAnts) {
		t.Fatalf("antennas: got %d want %d", len(ants), len(wantAnts))
	}
	for i, a := range ants {
		if a.Name != wantAnts[i].Name || a.Position != wantAnts[i].Position {
			t.Fatalf("antenna %d mismatch: %+v vs %+v", i, a, wantAnts[i])
		}
	}

	for _, ddid := range got.DataDescIDs {
		wc, err := tbl.ReadChunk(ctx, &ms.ReadRequest{DataDescID: ddid})
		if err != nil {
			t.Fatalf("sim read %d: %v", ddid, err)
		}
		gc, err := b.ReadChunk(ctx, &ms.ReadRequest{DataDescID: ddid})
		if err != nil {
			t.Fatalf("bundle read %d: %v", ddid, err)
		}
		if gc.NRow != wc.NRow || gc.NumChan() != wc.NumChan() {
			t.Fatalf("ddid %d shape: got %dx%d want %dx%d", ddid, gc.NRow, gc.NumChan(), wc.NRow, wc.NumChan())
		}
		for i, v := range wc.Data.Data {
			if gc.Data.Data[i] != v {
				t.Fatalf("ddid %d DATA[%d]: got %v want %v", ddid, i, gc.Data.Data[i], v)
			}
		}
		for i, v := range wc.Model.Data {
			if gc.Model.Data[i] != v {
				t.Fatalf("ddid %d MODEL[%d]: got %v want %v", ddid, i, gc.Model.Data[i], v)
			}
		}
		for i, v := range wc.Weight.Data {
			if gc.Weight.Data[i] != v {
				t.Fatalf("ddid %d WEIGHT[%d]: got %v want %v", ddid, i, gc.Weight.Data[i], v)
			}
		}
		for i, v := range wc.Flag.Data {
			if gc.Flag.Data[i] != v {
				t.Fatalf("ddid %d FLAG[%d]: got %v want %v", ddid, i, gc.Flag.Data[i], v)
			}
		}
		for i, v := range wc.U {
			if gc.U[i] != v {
				t.Fatalf("ddid %d U[%d]: got %v want %v", ddid, i, gc.U[i], v)
			}
		}
		for i, v := range wc.Time {
			if gc.Time[i] != v {
				t.Fatalf("ddid %d TIME[%d]: got %v want %v", ddid, i, gc.Time[i], v)
			}
		}
	}
}

func TestBundleWindowing(t *testing.T) {
	dir, tbl := exportDir(t, true)
	ctx := context.Background()

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	whole, err := tbl.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 0})
	if err != nil {
		t.Fatalf("sim read: %v", err)
	}
	var parts []*ms.Chunk
	for start := int64(0); ; start += 5 {
		c, err := b.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 0, StartRow: start, MaxRows: 5})
		if err != nil {
			t.Fatalf("windowed read at %d: %v", start, err)
		}
		if c.NRow == 0 {
			break
		}
		parts = append(parts, c)
	}
	merged, err := ms.MergeChunks(parts)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.NRow != whole.NRow {
		t.Fatalf("merged rows: got %d want %d", merged.NRow, whole.NRow)
	}
	for i, v := range whole.Data.Data {
		if merged.Data.Data[i] != v {
			t.Fatalf("DATA[%d]: got %v want %v", i, merged.Data.Data[i], v)
		}
	}
}

func TestBundleSpectralWindow(t *testing.T) {
	dir, tbl := exportDir(t, true)
	ctx := context.Background()

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	want, err := tbl.SpectralWindow(ctx, 1)
	if err != nil {
		t.Fatalf("sim spw: %v", err)
	}
	got, err := b.SpectralWindow(ctx, 1)
	if err != nil {
		t.Fatalf("bundle spw: %v", err)
	}
	if got.NumChan != want.NumChan {
		t.Fatalf("nchan: got %d want %d", got.NumChan, want.NumChan)
	}
	for i, f := range want.ChanFreqs {
		if got.ChanFreqs[i] != f {
			t.Fatalf("freq %d: got %v want %v", i, got.ChanFreqs[i], f)
		}
	}
	if got.ChanWidths[0] != want.ChanWidths[0] {
		t.Fatalf("width: got %v want %v", got.ChanWidths[0], want.ChanWidths[0])
	}

	if _, err := b.SpectralWindow(ctx, 99); !ms.IsCode(err, ms.CodeDescriptorUnknown) {
		t.Fatalf("unknown spw: %v", err)
	}
}

func TestBundleErrors(t *testing.T) {
	dir, _ := exportDir(t, false)
	ctx := context.Background()

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	info, _ := b.Info(ctx)
	if info.HasColumn(ms.ColModelData) {
		t.Fatalf("model-less bundle advertises MODEL_DATA")
	}
	if _, err := b.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 0, Columns: []string{ms.ColModelData}}); !ms.IsCode(err, ms.CodeColumnMissing) {
		t.Fatalf("explicit MODEL_DATA: %v", err)
	}
	c, err := b.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 0})
	if err != nil {
		t.Fatalf("default read: %v", err)
	}
	if !c.Model.Empty() {
		t.Fatalf("default read produced MODEL_DATA from a model-less export")
	}
	if _, err := b.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 42}); !ms.IsCode(err, ms.CodeDescriptorUnknown) {
		t.Fatalf("unknown ddid: %v", err)
	}

	if _, err := Open(filepath.Join(dir, "missing")); !ms.IsCode(err, ms.CodeTableNotFound) {
		t.Fatalf("missing dir: %v", err)
	}
	if _, err := ms.Open(ctx, "bundle:"); !ms.IsCode(err, ms.CodeInvalidConfig) {
		t.Fatalf("empty path: %v", err)
	}
}

func TestBundleChecksumMismatch(t *testing.T) {
	dir, _ := exportDir(t, true)
	ctx := context.Background()

	man, err := export.LoadManifest(dir)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	name := man.Files[0].Name
	path := filepath.Join(dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	raw[len(raw)/2] ^= 0xff
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("rewrite %s: %v", name, err)
	}

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()
	if _, err := b.ReadChunk(ctx, &ms.ReadRequest{DataDescID: man.Files[0].DataDescID}); !ms.IsCode(err, ms.CodeReadFailed) {
		t.Fatalf("corrupted file read: %v", err)
	}
}

func TestBundleClosed(t *testing.T) {
	dir, _ := exportDir(t, true)
	b, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b.Close()
	if _, err := b.Info(context.Background()); !ms.IsCode(err, ms.CodeClosed) {
		t.Fatalf("info after close: %v", err)
	}
}
