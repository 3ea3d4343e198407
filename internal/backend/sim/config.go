package sim

import (
	"math"

	"github.com/mpol-dev/visread/internal/ms"
)

// Config holds the simulated observation parameters. The defaults mimic
// a short ALMA band-6 track on a southern point source, with per-spw
// thermal noise injected at MiscalFactor times the level the WEIGHT
// column claims.
type Config struct {
	Seed            int64
	Name            string
	Telescope       string
	NumAntennas     int
	NumIntegrations int
	IntegrationSec  float64
	Channels        []int   // channel count per spectral window
	BaseFreqHz      float64 // first channel of spw 0
	SpwSpacingHz    float64 // offset between consecutive spw bases
	ChanWidthHz     float64
	FluxJy          float64 // point source at phase center
	BaseWeight      float64
	MiscalFactor    float64 // true noise sigma / sigma implied by WEIGHT
	FlagFraction    float64
	OutlierFraction float64 // amplified-noise samples, always flagged
	DecDeg          float64
	WithModel       bool // serve a MODEL_DATA column
}

// DefaultConfig returns the simulation defaults.
func DefaultConfig() *Config {
	return &Config{
		Seed:            42,
		Name:            "simulated.ms",
		Telescope:       "ALMA",
		NumAntennas:     6,
		NumIntegrations: 12,
		IntegrationSec:  30.0,
		Channels:        []int{16, 24, 16, 8},
		BaseFreqHz:      230.538e9,
		SpwSpacingHz:    2.0e9,
		ChanWidthHz:     15.625e6,
		FluxJy:          0.25,
		BaseWeight:      0.5,
		MiscalFactor:    math.Sqrt2,
		FlagFraction:    0.02,
		OutlierFraction: 0.005,
		DecDeg:          -14.4,
		WithModel:       true,
	}
}

// spwPresets names common channelizations, so URLs can say
// "sim:?channels=continuum" instead of spelling out the counts.
var spwPresets = map[string][]int{
	"continuum": {128, 128, 128, 128},
	"line":      {960},
	"mixed":     {16, 24, 16, 8},
}

// ParseConfig builds a Config from table URL options, e.g.
// "sim:?seed=7&antennas=8&channels=16,16&model=false".
func ParseConfig(opts ms.Options) (*Config, error) {
	cfg := DefaultConfig()
	if opts.Path != "" {
		cfg.Name = opts.Path
	}
	cfg.Seed = opts.Int64("seed", cfg.Seed)
	cfg.Telescope = opts.String("telescope", cfg.Telescope)
	cfg.NumAntennas = opts.Int("antennas", cfg.NumAntennas)
	cfg.NumIntegrations = opts.Int("integrations", cfg.NumIntegrations)
	cfg.IntegrationSec = opts.Float("integration_sec", cfg.IntegrationSec)
	if preset, ok := spwPresets[opts.String("channels", "")]; ok {
		cfg.Channels = append([]int(nil), preset...)
	} else if ch := opts.Ints("channels"); ch != nil {
		cfg.Channels = ch
	}
	cfg.BaseFreqHz = opts.Float("base_freq_hz", cfg.BaseFreqHz)
	cfg.SpwSpacingHz = opts.Float("spw_spacing_hz", cfg.SpwSpacingHz)
	cfg.ChanWidthHz = opts.Float("chan_width_hz", cfg.ChanWidthHz)
	cfg.FluxJy = opts.Float("flux_jy", cfg.FluxJy)
	cfg.BaseWeight = opts.Float("base_weight", cfg.BaseWeight)
	cfg.MiscalFactor = opts.Float("miscal", cfg.MiscalFactor)
	cfg.FlagFraction = opts.Float("flag_fraction", cfg.FlagFraction)
	cfg.OutlierFraction = opts.Float("outlier_fraction", cfg.OutlierFraction)
	cfg.DecDeg = opts.Float("dec_deg", cfg.DecDeg)
	cfg.WithModel = opts.Bool("model", cfg.WithModel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks parameter ranges.
func (c *Config) Validate() error {
	switch {
	case c.NumAntennas < 2:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: need at least 2 antennas, got %d", c.NumAntennas)
	case c.NumIntegrations < 1:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: need at least 1 integration, got %d", c.NumIntegrations)
	case c.IntegrationSec <= 0:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: integration time must be positive, got %g", c.IntegrationSec)
	case len(c.Channels) == 0:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: need at least one spectral window")
	case c.ChanWidthHz <= 0:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: channel width must be positive, got %g", c.ChanWidthHz)
	case c.BaseWeight <= 0:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: base weight must be positive, got %g", c.BaseWeight)
	case c.MiscalFactor <= 0:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: miscalibration factor must be positive, got %g", c.MiscalFactor)
	case c.FlagFraction < 0 || c.FlagFraction >= 1:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: flag fraction must be in [0,1), got %g", c.FlagFraction)
	case c.OutlierFraction < 0 || c.OutlierFraction >= 1:
		return ms.Errorf(ms.CodeInvalidConfig, false, "sim: outlier fraction must be in [0,1), got %g", c.OutlierFraction)
	}
	for i, n := range c.Channels {
		if n < 1 {
			return ms.Errorf(ms.CodeInvalidConfig, false, "sim: spw %d has %d channels", i, n)
		}
	}
	return nil
}

// NumBaselines returns the cross-correlation count per integration.
func (c *Config) NumBaselines() int {
	return c.NumAntennas * (c.NumAntennas - 1) / 2
}
