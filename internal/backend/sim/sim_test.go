package sim

import (
	"context"
	"math"
	"testing"

	"github.com/mpol-dev/visread/internal/ms"
	"github.com/mpol-dev/visread/internal/scatter"
)

func TestDeterminism(t *testing.T) {
	a, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	ca, err := a.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 1})
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	cb, err := b.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 1})
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if ca.Data.Len() != cb.Data.Len() || ca.Data.Len() == 0 {
		t.Fatalf("data lengths %d vs %d", ca.Data.Len(), cb.Data.Len())
	}
	for i := range ca.Data.Data {
		if ca.Data.Data[i] != cb.Data.Data[i] {
			t.Fatalf("data[%d] differs: %v vs %v", i, ca.Data.Data[i], cb.Data.Data[i])
		}
	}
	for i := range ca.Weight.Data {
		if ca.Weight.Data[i] != cb.Weight.Data[i] {
			t.Fatalf("weight[%d] differs", i)
		}
	}
}

func TestOpenURL(t *testing.T) {
	ctx := context.Background()
	tbl, err := ms.Open(ctx, "sim:?seed=7&antennas=4&channels=8,8")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tbl.Close()

	info, err := tbl.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Telescope != "ALMA" {
		t.Errorf("telescope = %q", info.Telescope)
	}
	if len(info.DataDescIDs) != 2 {
		t.Fatalf("ddids = %v", info.DataDescIDs)
	}
	// 4 antennas -> 6 baselines, 12 integrations, 2 spws.
	if want := int64(6 * 12 * 2); info.NumRows != want {
		t.Errorf("NumRows = %d, want %d", info.NumRows, want)
	}

	if _, err := ms.Open(ctx, "sim:?antennas=1"); !ms.IsCode(err, ms.CodeInvalidConfig) {
		t.Fatalf("antennas=1: got %v, want %s", err, ms.CodeInvalidConfig)
	}
}

func TestChannelPresets(t *testing.T) {
	ctx := context.Background()
	tbl, err := ms.Open(ctx, "sim:?antennas=3&integrations=2&channels=continuum")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tbl.Close()

	info, err := tbl.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if len(info.DataDescIDs) != 4 {
		t.Fatalf("ddids = %v", info.DataDescIDs)
	}
	for _, ddid := range info.DataDescIDs {
		spw, err := tbl.SpectralWindow(ctx, ddid)
		if err != nil {
			t.Fatalf("spw %d: %v", ddid, err)
		}
		if spw.NumChan != 128 {
			t.Errorf("spw %d channels = %d, want 128", ddid, spw.NumChan)
		}
	}

	// An unknown preset name is not silently a channel list.
	if _, err := ms.Open(ctx, "sim:?channels=nonsense"); !ms.IsCode(err, ms.CodeInvalidConfig) {
		t.Fatalf("bad preset: got %v, want %s", err, ms.CodeInvalidConfig)
	}
}

func TestReadChunkWindowsMerge(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	whole, err := tbl.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 0})
	if err != nil {
		t.Fatalf("whole read: %v", err)
	}

	var slices []*ms.Chunk
	var start int64
	for {
		c, err := tbl.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 0, StartRow: start, MaxRows: 37})
		if err != nil {
			t.Fatalf("windowed read at %d: %v", start, err)
		}
		if c.NRow == 0 {
			break
		}
		slices = append(slices, c)
		start += int64(c.NRow)
	}
	merged, err := ms.MergeChunks(slices)
	if err != nil {
		t.Fatalf("MergeChunks: %v", err)
	}

	if merged.NRow != whole.NRow {
		t.Fatalf("merged rows = %d, want %d", merged.NRow, whole.NRow)
	}
	for i := range whole.Data.Data {
		if merged.Data.Data[i] != whole.Data.Data[i] {
			t.Fatalf("data[%d] differs after merge", i)
		}
	}
	for i := range whole.Time {
		if merged.Time[i] != whole.Time[i] {
			t.Fatalf("time[%d] differs after merge", i)
		}
	}
	for i := range whole.Flag.Data {
		if merged.Flag.Data[i] != whole.Flag.Data[i] {
			t.Fatalf("flag[%d] differs after merge", i)
		}
	}
}

func TestReadPastEnd(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c, err := tbl.ReadChunk(context.Background(), &ms.ReadRequest{DataDescID: 0, StartRow: 1 << 30})
	if err != nil {
		t.Fatalf("past-end read: %v", err)
	}
	if c.NRow != 0 || !c.Data.Empty() {
		t.Fatalf("past-end chunk not empty: %d rows", c.NRow)
	}
}

func TestUnknownDescriptor(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = tbl.ReadChunk(context.Background(), &ms.ReadRequest{DataDescID: 99})
	if !ms.IsCode(err, ms.CodeDescriptorUnknown) {
		t.Fatalf("got %v, want %s", err, ms.CodeDescriptorUnknown)
	}
	_, err = tbl.SpectralWindow(context.Background(), 99)
	if !ms.IsCode(err, ms.CodeDescriptorUnknown) {
		t.Fatalf("got %v, want %s", err, ms.CodeDescriptorUnknown)
	}
}

func TestModelColumnAbsent(t *testing.T) {
	ctx := context.Background()
	tbl, err := ms.Open(ctx, "sim:?model=false")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tbl.Close()

	info, _ := tbl.Info(ctx)
	if info.HasColumn(ms.ColModelData) {
		t.Fatal("model=false table should not list MODEL_DATA")
	}

	// Default column set: absent model is silently omitted.
	c, err := tbl.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 0})
	if err != nil {
		t.Fatalf("default read: %v", err)
	}
	if c.HasModel() {
		t.Fatal("chunk should not carry MODEL_DATA")
	}

	// Naming it explicitly is an error.
	_, err = tbl.ReadChunk(ctx, &ms.ReadRequest{
		DataDescID: 0,
		Columns:    []string{ms.ColData, ms.ColModelData},
	})
	if !ms.IsCode(err, ms.CodeColumnMissing) {
		t.Fatalf("explicit MODEL_DATA: got %v, want %s", err, ms.CodeColumnMissing)
	}
}

func TestClosed(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := tbl.Info(context.Background()); !ms.IsCode(err, ms.CodeClosed) {
		t.Fatalf("Info after close: got %v, want %s", err, ms.CodeClosed)
	}
}

func TestUVWPreservesBaselineLength(t *testing.T) {
	tbl, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	ants, err := tbl.Antennas(ctx)
	if err != nil {
		t.Fatalf("Antennas: %v", err)
	}
	c, err := tbl.ReadChunk(ctx, &ms.ReadRequest{DataDescID: 0})
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	for r := 0; r < c.NRow; r++ {
		a1, a2 := ants[c.Antenna1[r]], ants[c.Antenna2[r]]
		bx := a2.Position[0] - a1.Position[0]
		by := a2.Position[1] - a1.Position[1]
		want := bx*bx + by*by
		got := c.U[r]*c.U[r] + c.V[r]*c.V[r] + c.W[r]*c.W[r]
		if math.Abs(got-want) > 1e-6*want {
			t.Fatalf("row %d: |uvw|^2 = %g, |baseline|^2 = %g", r, got, want)
		}
	}
}

func TestScatterRecoversMiscalibration(t *testing.T) {
	cfg := DefaultConfig()
	tbl, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := scatter.Analyze(context.Background(), tbl, scatter.AnalyzeOptions{ApplyFlags: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(results) != len(cfg.Channels) {
		t.Fatalf("results = %d, want %d", len(results), len(cfg.Channels))
	}
	for _, res := range results {
		for _, ps := range res.Pols {
			if ps.N == 0 {
				t.Fatalf("ddid %d pol %d: no samples", res.DataDescID, ps.Pol)
			}
			if rel := math.Abs(ps.Suggested-cfg.MiscalFactor) / cfg.MiscalFactor; rel > 0.08 {
				t.Errorf("ddid %d pol %d: suggested rescale %.4f, injected %.4f (off by %.1f%%)",
					res.DataDescID, ps.Pol, ps.Suggested, cfg.MiscalFactor, 100*rel)
			}
		}
	}
}
