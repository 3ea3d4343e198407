// Package bundle opens a directory written by the exporter as a read-only
// measurement set. This is how the analysis host works after a pull: the
// npz files plus manifest stand in for the original table, and nothing on
// the machine needs casacore.
package bundle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mpol-dev/visread/internal/export"
	"github.com/mpol-dev/visread/internal/ms"
	"github.com/mpol-dev/visread/pkg/npy"
)

// Table serves chunks from an export directory. Files are decoded lazily,
// one per DATA_DESC_ID, and verified against the manifest checksums.
type Table struct {
	dir   string
	man   *export.Manifest
	info  *ms.TableInfo
	descs []*ms.DataDescription
	ants  []*ms.Antenna

	mu     sync.Mutex
	byDDID map[int]*slab
	bySPW  map[int]*slab
	closed atomic.Bool
}

// slab is one npz file, decoded on first use.
type slab struct {
	file export.FileEntry
	full *ms.Chunk
}

// Open reads dir/manifest.json and prepares the npz files for reading.
// A directory without a manifest is treated as not-a-table, since the
// manifest is only written once an export completes.
func Open(dir string) (*Table, error) {
	man, err := export.LoadManifest(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ms.Errorf(ms.CodeTableNotFound, false, "bundle: no manifest in %s", dir)
		}
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}

	t := &Table{
		dir:    dir,
		man:    man,
		byDDID: make(map[int]*slab),
		bySPW:  make(map[int]*slab),
	}
	withModel := true
	var numRows int64
	for _, f := range man.Files {
		if f.Format != export.FormatNPZ {
			continue
		}
		if _, dup := t.byDDID[f.DataDescID]; dup {
			return nil, ms.Errorf(ms.CodeInvalidConfig, false, "bundle: two npz files claim DATA_DESC_ID %d", f.DataDescID)
		}
		sl := &slab{file: f}
		t.byDDID[f.DataDescID] = sl
		t.bySPW[f.SpwID] = sl
		t.descs = append(t.descs, &ms.DataDescription{
			ID:               f.DataDescID,
			SpectralWindowID: f.SpwID,
			PolarizationID:   0,
			NumPol:           f.Pols,
			NumRows:          int64(f.Rows),
		})
		withModel = withModel && f.HasModel
		numRows += int64(f.Rows)
	}
	if len(t.descs) == 0 {
		return nil, ms.Errorf(ms.CodeInvalidConfig, false,
			"bundle: %s carries no npz files (formats: %s)", dir, strings.Join(man.Formats, ", "))
	}
	sort.Slice(t.descs, func(i, j int) bool { return t.descs[i].ID < t.descs[j].ID })

	ids := make([]int, len(t.descs))
	for i, d := range t.descs {
		ids[i] = d.ID
	}
	columns := []string{
		ms.ColTime, ms.ColAntenna1, ms.ColAntenna2, ms.ColUVW,
		ms.ColWeight, ms.ColFlag, ms.ColData,
	}
	if withModel {
		columns = append(columns, ms.ColModelData)
	}
	t.info = &ms.TableInfo{
		Name:        man.Table,
		Path:        dir,
		Telescope:   man.Telescope,
		Observer:    man.Source,
		NumRows:     numRows,
		DataDescIDs: ids,
		Columns:     columns,
	}
	for _, a := range man.Antennas {
		t.ants = append(t.ants, &ms.Antenna{
			ID:           a.ID,
			Name:         a.Name,
			Station:      a.Station,
			DishDiameter: a.DiameterM,
			Position:     a.PositionM,
		})
	}
	return t, nil
}

// Manifest returns the manifest the bundle was opened from.
func (t *Table) Manifest() *export.Manifest { return t.man }

func (t *Table) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ms.WrapError(ms.CodeReadFailed, false, err)
	}
	if t.closed.Load() {
		return ms.Errorf(ms.CodeClosed, false, "bundle: table closed")
	}
	return nil
}

func (t *Table) Info(ctx context.Context) (*ms.TableInfo, error) {
	if err := t.guard(ctx); err != nil {
		return nil, err
	}
	return t.info, nil
}

func (t *Table) DataDescriptions(ctx context.Context) ([]*ms.DataDescription, error) {
	if err := t.guard(ctx); err != nil {
		return nil, err
	}
	return t.descs, nil
}

// SpectralWindow rebuilds the window from the exported channel centers.
// Widths are not carried in the export, so they come from the grid spacing.
func (t *Table) SpectralWindow(ctx context.Context, spwID int) (*ms.SpectralWindow, error) {
	if err := t.guard(ctx); err != nil {
		return nil, err
	}
	t.mu.Lock()
	sl, ok := t.bySPW[spwID]
	t.mu.Unlock()
	if !ok {
		return nil, ms.Errorf(ms.CodeDescriptorUnknown, false, "bundle: no spectral window %d", spwID)
	}
	full, err := t.load(sl)
	if err != nil {
		return nil, err
	}

	freqs := append([]float64(nil), full.Freqs...)
	nchan := len(freqs)
	var ref, width float64
	if nchan > 0 {
		ref = freqs[0]
	}
	if nchan > 1 {
		width = math.Abs(freqs[1] - freqs[0])
	}
	widths := make([]float64, nchan)
	for i := range widths {
		widths[i] = width
	}
	return &ms.SpectralWindow{
		ID:             spwID,
		Name:           fmt.Sprintf("spw%d", spwID),
		NumChan:        nchan,
		RefFreq:        ref,
		ChanFreqs:      freqs,
		ChanWidths:     widths,
		TotalBandwidth: width * float64(nchan),
	}, nil
}

func (t *Table) Antennas(ctx context.Context) ([]*ms.Antenna, error) {
	if err := t.guard(ctx); err != nil {
		return nil, err
	}
	return t.ants, nil
}

func (t *Table) ReadChunk(ctx context.Context, req *ms.ReadRequest) (*ms.Chunk, error) {
	if err := t.guard(ctx); err != nil {
		return nil, err
	}
	t.mu.Lock()
	sl, ok := t.byDDID[req.DataDescID]
	t.mu.Unlock()
	if !ok {
		return nil, ms.Errorf(ms.CodeDescriptorUnknown, false, "bundle: no DATA_DESC_ID %d", req.DataDescID)
	}
	for _, col := range req.Columns {
		if !t.info.HasColumn(col) {
			return nil, ms.Errorf(ms.CodeColumnMissing, false, "bundle: column %s not in export", col)
		}
	}
	full, err := t.load(sl)
	if err != nil {
		return nil, err
	}
	return ms.WindowChunk(full, req), nil
}

func (t *Table) Close() error {
	t.closed.Store(true)
	return nil
}

// load decodes the slab's npz once, checking it against the manifest first.
func (t *Table) load(sl *slab) (*ms.Chunk, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sl.full != nil {
		return sl.full, nil
	}

	raw, err := os.ReadFile(filepath.Join(t.dir, sl.file.Name))
	if err != nil {
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}
	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != sl.file.SHA256 {
		return nil, ms.Errorf(ms.CodeReadFailed, false,
			"bundle: %s does not match its manifest checksum", sl.file.Name)
	}
	arrs, err := npy.ReadNPZ(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}
	full, err := decodeChunk(sl.file, arrs)
	if err != nil {
		return nil, err
	}
	sl.full = full
	return full, nil
}

// member pulls one named array out of a decoded npz and checks its length.
func member[T any](file string, arrs map[string]*npy.Array, name string, want int, conv func(*npy.Array) ([]T, error)) ([]T, error) {
	arr, ok := arrs[name]
	if !ok {
		return nil, ms.Errorf(ms.CodeReadFailed, false, "bundle: %s has no member %q", file, name)
	}
	v, err := conv(arr)
	if err != nil {
		return nil, ms.Errorf(ms.CodeReadFailed, false, "bundle: %s member %q: %v", file, name, err)
	}
	if len(v) != want {
		return nil, ms.Errorf(ms.CodeShapeMismatch, false,
			"bundle: %s member %q has %d values, want %d", file, name, len(v), want)
	}
	return v, nil
}

func decodeChunk(file export.FileEntry, arrs map[string]*npy.Array) (*ms.Chunk, error) {
	npol, nchan, nrow := file.Pols, file.Channels, file.Rows
	c := &ms.Chunk{DataDescID: file.DataDescID, NRow: nrow}

	var err error
	if c.Freqs, err = member(file.Name, arrs, "freqs", nchan, (*npy.Array).Float64s); err != nil {
		return nil, err
	}
	if c.Time, err = member(file.Name, arrs, "time", nrow, (*npy.Array).Float64s); err != nil {
		return nil, err
	}
	if c.Antenna1, err = member(file.Name, arrs, "antenna1", nrow, (*npy.Array).Int32s); err != nil {
		return nil, err
	}
	if c.Antenna2, err = member(file.Name, arrs, "antenna2", nrow, (*npy.Array).Int32s); err != nil {
		return nil, err
	}
	if c.U, err = member(file.Name, arrs, "u_m", nrow, (*npy.Array).Float64s); err != nil {
		return nil, err
	}
	if c.V, err = member(file.Name, arrs, "v_m", nrow, (*npy.Array).Float64s); err != nil {
		return nil, err
	}
	if c.W, err = member(file.Name, arrs, "w_m", nrow, (*npy.Array).Float64s); err != nil {
		return nil, err
	}

	wvals, err := member(file.Name, arrs, "weight", npol*nrow, (*npy.Array).Float64s)
	if err != nil {
		return nil, err
	}
	if c.Weight, err = ms.MatrixFrom(npol, nrow, wvals); err != nil {
		return nil, ms.WrapError(ms.CodeShapeMismatch, false, err)
	}
	fvals, err := member(file.Name, arrs, "flag", npol*nchan*nrow, (*npy.Array).Bools)
	if err != nil {
		return nil, err
	}
	if c.Flag, err = ms.CubeFrom(npol, nchan, nrow, fvals); err != nil {
		return nil, ms.WrapError(ms.CodeShapeMismatch, false, err)
	}
	dvals, err := member(file.Name, arrs, "data", npol*nchan*nrow, (*npy.Array).Complex128s)
	if err != nil {
		return nil, err
	}
	if c.Data, err = ms.CubeFrom(npol, nchan, nrow, dvals); err != nil {
		return nil, ms.WrapError(ms.CodeShapeMismatch, false, err)
	}
	if _, ok := arrs["model"]; ok {
		mvals, err := member(file.Name, arrs, "model", npol*nchan*nrow, (*npy.Array).Complex128s)
		if err != nil {
			return nil, err
		}
		if c.Model, err = ms.CubeFrom(npol, nchan, nrow, mvals); err != nil {
			return nil, ms.WrapError(ms.CodeShapeMismatch, false, err)
		}
	}
	return c, nil
}
