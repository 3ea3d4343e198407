// Package sim serves a deterministic synthetic measurement set. It is
// the test double for CASA-produced data: a point source at phase
// center observed by a small array, with the WEIGHT column deliberately
// miscalibrated so the scatter analysis has something to find.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/mpol-dev/visread/internal/ms"
)

// Sidereal rotation rate, rad/s.
const earthOmega = 2 * math.Pi / 86164.0905

// TIME epoch of the first integration, seconds (casacore MJD seconds).
const timeOrigin = 5.0e9

// Table is an in-memory measurement set generated from a Config.
// All columns are materialized at construction; reads only slice.
type Table struct {
	cfg    *Config
	info   *ms.TableInfo
	descs  []*ms.DataDescription
	ants   []*ms.Antenna
	byDDID map[int]*slab
	bySPW  map[int]*ms.SpectralWindow
	closed atomic.Bool
}

// slab holds the fully generated columns of one DATA_DESC_ID.
type slab struct {
	window *ms.SpectralWindow
	full   *ms.Chunk
}

// New generates the synthetic observation. The same Config always
// yields bit-identical columns.
func New(cfg *Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		cfg:    cfg,
		byDDID: make(map[int]*slab),
		bySPW:  make(map[int]*ms.SpectralWindow),
	}
	t.generate()
	return t, nil
}

// TrueSigmaRescale returns the factor the generated noise exceeds the
// WEIGHT-implied sigma by. Scatter analysis on this table should
// recover it.
func (t *Table) TrueSigmaRescale() float64 { return t.cfg.MiscalFactor }

func (t *Table) generate() {
	cfg := t.cfg
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Antenna pads scattered over a compact configuration.
	t.ants = make([]*ms.Antenna, cfg.NumAntennas)
	for i := range t.ants {
		east := (rng.Float64()*2 - 1) * 300.0
		north := (rng.Float64()*2 - 1) * 300.0
		up := (rng.Float64()*2 - 1) * 2.0
		t.ants[i] = &ms.Antenna{
			ID:           i,
			Name:         fmt.Sprintf("DA%02d", 41+i),
			Station:      fmt.Sprintf("A%03d", i+1),
			DishDiameter: 12.0,
			Position:     [3]float64{east, north, up},
		}
	}

	nb := cfg.NumBaselines()
	nint := cfg.NumIntegrations
	nrow := nb * nint

	// Shared row geometry: time-major baseline ordering, hour angle
	// swept symmetrically through transit, baselines kept in the
	// equatorial plane.
	timeCol := make([]float64, nrow)
	ant1 := make([]int32, nrow)
	ant2 := make([]int32, nrow)
	u := make([]float64, nrow)
	v := make([]float64, nrow)
	w := make([]float64, nrow)
	dec := cfg.DecDeg * math.Pi / 180
	sinDec, cosDec := math.Sin(dec), math.Cos(dec)
	r := 0
	for it := 0; it < nint; it++ {
		h := (float64(it) - float64(nint-1)/2) * cfg.IntegrationSec * earthOmega
		sinH, cosH := math.Sin(h), math.Cos(h)
		for i := 0; i < cfg.NumAntennas; i++ {
			for j := i + 1; j < cfg.NumAntennas; j++ {
				bx := t.ants[j].Position[0] - t.ants[i].Position[0]
				by := t.ants[j].Position[1] - t.ants[i].Position[1]
				timeCol[r] = timeOrigin + float64(it)*cfg.IntegrationSec
				ant1[r] = int32(i)
				ant2[r] = int32(j)
				u[r] = bx*sinH + by*cosH
				v[r] = -bx*sinDec*cosH + by*sinDec*sinH
				w[r] = bx*cosDec*cosH - by*cosDec*sinH
				r++
			}
		}
	}

	const npol = 2 // XX, YY
	model := complex(cfg.FluxJy, 0)

	t.descs = make([]*ms.DataDescription, len(cfg.Channels))
	for s, nchan := range cfg.Channels {
		base := cfg.BaseFreqHz + float64(s)*cfg.SpwSpacingHz
		freqs := make([]float64, nchan)
		widths := make([]float64, nchan)
		for ch := range freqs {
			freqs[ch] = base + float64(ch)*cfg.ChanWidthHz
			widths[ch] = cfg.ChanWidthHz
		}
		window := &ms.SpectralWindow{
			ID:             s,
			Name:           fmt.Sprintf("spw%d", s),
			NumChan:        nchan,
			RefFreq:        freqs[0],
			ChanFreqs:      freqs,
			ChanWidths:     widths,
			TotalBandwidth: float64(nchan) * cfg.ChanWidthHz,
		}

		weight := ms.NewMatrix[float64](npol, nrow)
		for p := 0; p < npol; p++ {
			for row := 0; row < nrow; row++ {
				weight.Set(p, row, cfg.BaseWeight*(0.5+rng.Float64()))
			}
		}

		flag := ms.NewCube[bool](npol, nchan, nrow)
		data := ms.NewCube[complex128](npol, nchan, nrow)
		for p := 0; p < npol; p++ {
			for ch := 0; ch < nchan; ch++ {
				for row := 0; row < nrow; row++ {
					sigma := cfg.MiscalFactor / math.Sqrt(weight.At(p, row))
					outlier := rng.Float64() < cfg.OutlierFraction
					flagged := outlier || rng.Float64() < cfg.FlagFraction
					if outlier {
						sigma *= 8
					}
					vis := model + complex(sigma*rng.NormFloat64(), sigma*rng.NormFloat64())
					data.Set(p, ch, row, vis)
					flag.Set(p, ch, row, flagged)
				}
			}
		}

		full := &ms.Chunk{
			DataDescID: s,
			StartRow:   0,
			NRow:       nrow,
			Freqs:      freqs,
			Time:       timeCol,
			Antenna1:   ant1,
			Antenna2:   ant2,
			U:          u,
			V:          v,
			W:          w,
			Weight:     weight,
			Flag:       flag,
			Data:       data,
		}
		if cfg.WithModel {
			mdl := ms.NewCube[complex128](npol, nchan, nrow)
			for i := range mdl.Data {
				mdl.Data[i] = model
			}
			full.Model = mdl
		}

		t.descs[s] = &ms.DataDescription{
			ID:               s,
			SpectralWindowID: s,
			PolarizationID:   0,
			NumPol:           npol,
			NumRows:          int64(nrow),
		}
		t.byDDID[s] = &slab{window: window, full: full}
		t.bySPW[s] = window
	}

	cols := []string{
		ms.ColTime, ms.ColAntenna1, ms.ColAntenna2, ms.ColUVW,
		ms.ColWeight, ms.ColFlag, ms.ColData,
	}
	if cfg.WithModel {
		cols = append(cols, ms.ColModelData)
	}
	ddids := make([]int, len(cfg.Channels))
	for i := range ddids {
		ddids[i] = i
	}
	t.info = &ms.TableInfo{
		Name:        cfg.Name,
		Path:        "sim:" + cfg.Name,
		Telescope:   cfg.Telescope,
		Observer:    "simobserve",
		NumRows:     int64(nrow * len(cfg.Channels)),
		DataDescIDs: ddids,
		Columns:     cols,
	}
}

func (t *Table) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ms.WrapError(ms.CodeReadFailed, false, err)
	}
	if t.closed.Load() {
		return ms.Errorf(ms.CodeClosed, false, "sim: table closed")
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

func (t *Table) SpectralWindow(ctx context.Context, spwID int) (*ms.SpectralWindow, error) {
	if err := t.guard(ctx); err != nil {
		return nil, err
	}
	window, ok := t.bySPW[spwID]
	if !ok {
		return nil, ms.Errorf(ms.CodeDescriptorUnknown, false, "sim: no spectral window %d", spwID)
	}
	return window, nil
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
	sl, ok := t.byDDID[req.DataDescID]
	if !ok {
		return nil, ms.Errorf(ms.CodeDescriptorUnknown, false, "sim: no DATA_DESC_ID %d", req.DataDescID)
	}
	for _, col := range req.Columns {
		if !t.info.HasColumn(col) {
			return nil, ms.Errorf(ms.CodeColumnMissing, false, "sim: column %s not in table", col)
		}
	}
	return ms.WindowChunk(sl.full, req), nil
}

func (t *Table) Close() error {
	t.closed.Store(true)
	return nil
}
