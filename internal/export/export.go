// Package export materializes measurement-set visibilities into
// analysis-ready files: one npz/asdf/parquet file per DATA_DESC_ID plus
// a manifest with checksums. The products carry both raw baselines in
// meters and per-channel baselines in kilolambda, with polarizations
// optionally averaged down to one.
package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mpol-dev/visread/internal/ms"
	"github.com/mpol-dev/visread/internal/process"
	"github.com/mpol-dev/visread/pkg/asdf"
	"github.com/mpol-dev/visread/pkg/npy"
)

// Export formats.
const (
	FormatNPZ     = "npz"
	FormatASDF    = "asdf"
	FormatParquet = "parquet"
)

var knownFormats = map[string]bool{
	FormatNPZ:     true,
	FormatASDF:    true,
	FormatParquet: true,
}

// Options configures one export run.
type Options struct {
	// Dir receives the data files and the manifest.
	Dir string

	// Formats to produce; empty means npz only.
	Formats []string

	// SigmaRescale rescales WEIGHT per spectral window (w / factor^2)
	// before anything else happens. Unlisted windows pass through.
	SigmaRescale map[int]float64

	// AveragePols collapses the polarization axis to a single
	// weighted-average product.
	AveragePols bool

	// DataDescIDs restricts the run; empty exports every descriptor.
	DataDescIDs []int

	// MaxRowsPerChunk bounds single reads. Zero reads descriptors whole.
	MaxRowsPerChunk int

	// RunID labels the run; a UUID is assigned when empty.
	RunID string
}

// Exporter writes export products.
type Exporter struct {
	log zerolog.Logger
}

// New creates an Exporter logging through log.
func New(log zerolog.Logger) *Exporter {
	return &Exporter{log: log}
}

// Run exports t into opts.Dir and returns the manifest, which is
// written last as the completion marker.
func (e *Exporter) Run(ctx context.Context, t ms.Table, opts Options) (*Manifest, error) {
	formats, err := normalizeFormats(opts.Formats)
	if err != nil {
		return nil, err
	}

	info, err := t.Info(ctx)
	if err != nil {
		return nil, err
	}
	descs, err := t.DataDescriptions(ctx)
	if err != nil {
		return nil, err
	}
	ants, err := t.Antennas(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", opts.Dir, err)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	manifest := &Manifest{
		RunID:        runID,
		CreatedAt:    time.Now().UTC(),
		Source:       info.Path,
		Table:        info.Name,
		Telescope:    info.Telescope,
		Formats:      formats,
		AveragedPols: opts.AveragePols,
		SigmaRescale: opts.SigmaRescale,
	}
	for _, a := range ants {
		manifest.Antennas = append(manifest.Antennas, AntennaEntry{
			ID:        a.ID,
			Name:      a.Name,
			Station:   a.Station,
			DiameterM: a.DishDiameter,
			PositionM: a.Position,
		})
	}

	wanted := map[int]bool{}
	for _, id := range opts.DataDescIDs {
		wanted[id] = true
	}

	for _, desc := range descs {
		if len(wanted) > 0 && !wanted[desc.ID] {
			continue
		}
		chunk, err := readAll(ctx, t, desc.ID, opts.MaxRowsPerChunk)
		if err != nil {
			return nil, err
		}
		if chunk.NRow == 0 {
			e.log.Warn().Int("data_desc_id", desc.ID).Msg("export: descriptor has no rows, skipping")
			continue
		}

		if factor, ok := opts.SigmaRescale[desc.SpectralWindowID]; ok && factor > 0 && factor != 1 {
			chunk.Weight = process.RescaleWeights(chunk.Weight, factor)
		}

		prod, err := buildProducts(chunk, opts.AveragePols)
		if err != nil {
			return nil, fmt.Errorf("export: descriptor %d: %w", desc.ID, err)
		}

		for _, format := range formats {
			name := fmt.Sprintf("ddid%02d.%s", desc.ID, format)
			var payload []byte
			switch format {
			case FormatNPZ:
				payload, err = encodeNPZ(chunk, prod)
			case FormatASDF:
				payload, err = encodeASDF(info, desc, chunk, prod, opts)
			case FormatParquet:
				payload, err = encodeParquet(desc, chunk, prod)
			}
			if err != nil {
				return nil, fmt.Errorf("export: encode %s: %w", name, err)
			}
			if err := os.WriteFile(filepath.Join(opts.Dir, name), payload, 0o644); err != nil {
				return nil, fmt.Errorf("export: write %s: %w", name, err)
			}
			sum := sha256.Sum256(payload)
			manifest.Files = append(manifest.Files, FileEntry{
				Name:       name,
				Format:     format,
				DataDescID: desc.ID,
				SpwID:      desc.SpectralWindowID,
				Rows:       chunk.NRow,
				Channels:   chunk.NumChan(),
				Pols:       prod.data.NPol,
				HasModel:   !prod.model.Empty(),
				Bytes:      int64(len(payload)),
				SHA256:     hex.EncodeToString(sum[:]),
			})
			e.log.Info().
				Str("file", name).
				Int("rows", chunk.NRow).
				Int("channels", chunk.NumChan()).
				Int("pols", prod.data.NPol).
				Msg("export: wrote file")
		}
	}

	if err := WriteManifest(opts.Dir, manifest); err != nil {
		return nil, err
	}
	e.log.Info().
		Str("run_id", manifest.RunID).
		Int("files", len(manifest.Files)).
		Str("dir", opts.Dir).
		Msg("export: manifest written")
	return manifest, nil
}

func normalizeFormats(formats []string) ([]string, error) {
	if len(formats) == 0 {
		return []string{FormatNPZ}, nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		if !knownFormats[f] {
			return nil, fmt.Errorf("export: unknown format %q (have npz, asdf, parquet)", f)
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

func readAll(ctx context.Context, t ms.Table, ddid, maxRows int) (*ms.Chunk, error) {
	if maxRows <= 0 {
		return t.ReadChunk(ctx, &ms.ReadRequest{DataDescID: ddid})
	}
	var slices []*ms.Chunk
	var start int64
	for {
		c, err := t.ReadChunk(ctx, &ms.ReadRequest{DataDescID: ddid, StartRow: start, MaxRows: maxRows})
		if err != nil {
			return nil, err
		}
		if c.NRow == 0 {
			break
		}
		slices = append(slices, c)
		start += int64(c.NRow)
	}
	return ms.MergeChunks(slices)
}

// products holds the per-descriptor arrays after optional polarization
// averaging, plus the kilolambda baseline grids.
type products struct {
	weight ms.Matrix[float64]
	flag   ms.Cube[bool]
	data   ms.Cube[complex128]
	model  ms.Cube[complex128]
	uu     process.Grid
	vv     process.Grid
}

func buildProducts(chunk *ms.Chunk, averagePols bool) (*products, error) {
	if chunk.Data.Empty() || chunk.Weight.Empty() || chunk.Flag.Empty() {
		return nil, fmt.Errorf("table did not supply DATA, WEIGHT and FLAG")
	}
	if len(chunk.Time) == 0 || len(chunk.Antenna1) == 0 || len(chunk.U) == 0 {
		return nil, fmt.Errorf("table did not supply TIME, ANTENNA and UVW columns")
	}
	if len(chunk.Freqs) == 0 {
		return nil, fmt.Errorf("descriptor has no channel frequencies")
	}

	p := &products{}
	if averagePols {
		avg, err := process.AverageDataPolarization(chunk.Data, chunk.Weight)
		if err != nil {
			return nil, err
		}
		p.data = avg
		if chunk.HasModel() {
			mavg, err := process.AverageDataPolarization(chunk.Model, chunk.Weight)
			if err != nil {
				return nil, err
			}
			p.model = mavg
		}
		p.flag = process.AverageFlagPolarization(chunk.Flag)
		p.weight = process.AverageWeightPolarization(chunk.Weight)
	} else {
		p.data = chunk.Data
		p.model = chunk.Model
		p.flag = chunk.Flag
		p.weight = chunk.Weight
	}

	p.uu = process.ConvertBaselinesKLambda(chunk.U, chunk.Freqs)
	p.vv = process.ConvertBaselinesKLambda(chunk.V, chunk.Freqs)
	return p, nil
}

func encodeNPZ(chunk *ms.Chunk, p *products) ([]byte, error) {
	nchan, nrow := chunk.NumChan(), chunk.NRow
	entries := []npy.Entry{
		{Name: "freqs", Shape: []int{nchan}, Data: chunk.Freqs},
		{Name: "time", Shape: []int{nrow}, Data: chunk.Time},
		{Name: "antenna1", Shape: []int{nrow}, Data: chunk.Antenna1},
		{Name: "antenna2", Shape: []int{nrow}, Data: chunk.Antenna2},
		{Name: "u_m", Shape: []int{nrow}, Data: chunk.U},
		{Name: "v_m", Shape: []int{nrow}, Data: chunk.V},
		{Name: "w_m", Shape: []int{nrow}, Data: chunk.W},
		{Name: "uu", Shape: []int{nchan, nrow}, Data: p.uu.Data},
		{Name: "vv", Shape: []int{nchan, nrow}, Data: p.vv.Data},
		{Name: "weight", Shape: []int{p.weight.NPol, nrow}, Data: p.weight.Data},
		{Name: "flag", Shape: []int{p.flag.NPol, nchan, nrow}, Data: p.flag.Data},
		{Name: "data", Shape: []int{p.data.NPol, nchan, nrow}, Data: p.data.Data},
	}
	if !p.model.Empty() {
		entries = append(entries, npy.Entry{
			Name: "model", Shape: []int{p.model.NPol, nchan, nrow}, Data: p.model.Data,
		})
	}
	var buf bytes.Buffer
	if err := npy.WriteNPZ(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeASDF(info *ms.TableInfo, desc *ms.DataDescription, chunk *ms.Chunk, p *products, opts Options) ([]byte, error) {
	nchan, nrow := chunk.NumChan(), chunk.NRow
	tree := map[string]any{
		"telescope":     info.Telescope,
		"table":         info.Name,
		"data_desc_id":  desc.ID,
		"spw_id":        desc.SpectralWindowID,
		"averaged_pols": opts.AveragePols,
		"freqs":         asdf.Float64Array([]int{nchan}, chunk.Freqs),
		"time":          asdf.Float64Array([]int{nrow}, chunk.Time),
		"antenna1":      asdf.Int32Array([]int{nrow}, chunk.Antenna1),
		"antenna2":      asdf.Int32Array([]int{nrow}, chunk.Antenna2),
		"u_m":           asdf.Float64Array([]int{nrow}, chunk.U),
		"v_m":           asdf.Float64Array([]int{nrow}, chunk.V),
		"w_m":           asdf.Float64Array([]int{nrow}, chunk.W),
		"uu":            asdf.Float64Array([]int{nchan, nrow}, p.uu.Data),
		"vv":            asdf.Float64Array([]int{nchan, nrow}, p.vv.Data),
		"weight":        asdf.Float64Array([]int{p.weight.NPol, nrow}, p.weight.Data),
		"flag":          asdf.BoolArray([]int{p.flag.NPol, nchan, nrow}, p.flag.Data),
		"data":          asdf.Complex128Array([]int{p.data.NPol, nchan, nrow}, p.data.Data),
	}
	if factor, ok := opts.SigmaRescale[desc.SpectralWindowID]; ok && factor > 0 {
		tree["sigma_rescale"] = factor
	}
	if !p.model.Empty() {
		tree["model"] = asdf.Complex128Array([]int{p.model.NPol, nchan, nrow}, p.model.Data)
	}
	var buf bytes.Buffer
	if err := asdf.Write(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
